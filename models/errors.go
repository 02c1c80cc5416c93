package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a shop id is not in the registry.
	ErrNotFound = errors.New("not found")

	// ErrConfig marks configuration problems detected at startup.
	ErrConfig = errors.New("invalid configuration")

	// ErrResolution marks a shop whose scraper could not be built.
	ErrResolution = errors.New("scraper resolution failed")

	// ErrValidation marks a search request rejected before dispatch.
	ErrValidation = errors.New("invalid search request")
)

// ErrorKind classifies why a shop produced no results.
type ErrorKind string

const (
	KindNetwork   ErrorKind = "network"
	KindParse     ErrorKind = "parse"
	KindTimeout   ErrorKind = "timeout"
	KindBlocked   ErrorKind = "blocked"
	KindUnknown   ErrorKind = "unknown"
	KindConfig    ErrorKind = "config"
	KindCancelled ErrorKind = "cancelled"
)

// ConfigError reports bad or ambiguous shop/category configuration.
type ConfigError struct {
	Source string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config %s: %s: %v", e.Source, e.Reason, e.Err)
	}
	return fmt.Sprintf("config %s: %s", e.Source, e.Reason)
}

func (e *ConfigError) Unwrap() []error { return unwrapWith(ErrConfig, e.Err) }

// ResolutionError reports that a configured shop has no usable scraper.
type ResolutionError struct {
	ShopID string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve scraper for %q: %s: %v", e.ShopID, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve scraper for %q: %s", e.ShopID, e.Reason)
}

func (e *ResolutionError) Unwrap() []error { return unwrapWith(ErrResolution, e.Err) }

// ValidationError reports a search request that cannot be dispatched.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ScrapeError is the failure a shop scraper returns from Search.
type ScrapeError struct {
	Kind ErrorKind
	Shop string
	Err  error
}

// NewScrapeError wraps err with a failure kind.
func NewScrapeError(shop string, kind ErrorKind, err error) *ScrapeError {
	return &ScrapeError{Kind: kind, Shop: shop, Err: err}
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Shop, e.Kind, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

func unwrapWith(sentinel, cause error) []error {
	if cause == nil {
		return []error{sentinel}
	}
	return []error{sentinel, cause}
}
