package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"os"

	"sepet/models"
)

// FileShopSource reads shop entries from a JSON array file.
type FileShopSource struct {
	path string
}

// NewFileShopSource returns a source reading the JSON file at path.
func NewFileShopSource(path string) *FileShopSource {
	return &FileShopSource{path: path}
}

func (s *FileShopSource) Name() string { return s.path }

// LoadShops parses the file. Any read or decode problem is a ConfigError.
func (s *FileShopSource) LoadShops(_ context.Context) ([]ShopEntry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &models.ConfigError{Source: s.path, Reason: "read shops file", Err: err}
	}
	return DecodeShops(s.path, data)
}

// DecodeShops decodes a JSON array of shop entries.
func DecodeShops(source string, data []byte) ([]ShopEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &models.ConfigError{Source: source, Reason: "shops file is empty"}
	}

	var entries []ShopEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &models.ConfigError{Source: source, Reason: "decode shops", Err: err}
	}
	if len(entries) == 0 {
		return nil, &models.ConfigError{Source: source, Reason: "no shops defined"}
	}
	return entries, nil
}
