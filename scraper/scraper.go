// Package scraper defines the contract every shop plugin satisfies and the
// compiled-in table the scraper factory resolves plugins from.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"sepet/models"
	"sepet/utils"
)

// Scraper queries one shop. Zero matches is a successful, empty result;
// failures are *models.ScrapeError values.
type Scraper interface {
	Search(ctx context.Context, query string) ([]*models.RawProduct, error)
}

// Reentrant is implemented by scrapers that tolerate concurrent Search calls
// on one instance.
type Reentrant interface {
	Reentrant() bool
}

// Options carries process-wide settings plugins may need at construction.
type Options struct {
	Logger      *utils.Logger
	UserAgent   string
	ChromeBin   string
	ProxyURL    string
	MaxPages    int
	PageDelay   time.Duration
	HTTPClient  *http.Client
	PollTimeout time.Duration
}

// Constructor builds a scraper for one configured shop.
type Constructor func(shop models.ShopDescriptor, opts Options) (Scraper, error)

// Key is the (module, class) pair a shop configuration names.
type Key struct {
	Module string
	Class  string
}

func (k Key) String() string { return k.Module + "." + k.Class }

func newKey(module, class string) Key {
	return Key{Module: strings.TrimSpace(module), Class: strings.TrimSpace(class)}
}

// Table maps resolution coordinates to plugin constructors.
type Table struct {
	mu    sync.RWMutex
	ctors map[Key]Constructor
}

// NewTable creates an empty plugin table.
func NewTable() *Table {
	return &Table{ctors: make(map[Key]Constructor)}
}

// Register adds a constructor under (module, class).
func (t *Table) Register(module, class string, ctor Constructor) error {
	key := newKey(module, class)
	if key.Module == "" || key.Class == "" {
		return fmt.Errorf("scraper: register %q: module and class are required", key)
	}
	if ctor == nil {
		return fmt.Errorf("scraper: register %s: nil constructor", key)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.ctors[key]; exists {
		return fmt.Errorf("scraper: %s already registered", key)
	}
	t.ctors[key] = ctor
	return nil
}

// MustRegister is Register for init-time tables; it panics on error.
func (t *Table) MustRegister(module, class string, ctor Constructor) {
	if err := t.Register(module, class, ctor); err != nil {
		panic(err)
	}
}

// Lookup returns the constructor registered under (module, class).
func (t *Table) Lookup(module, class string) (Constructor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ctor, ok := t.ctors[newKey(module, class)]
	return ctor, ok
}

// Keys lists registered coordinates in sorted order.
func (t *Table) Keys() []Key {
	t.mu.RLock()
	defer t.mu.RUnlock()

	keys := make([]Key, 0, len(t.ctors))
	for k := range t.ctors {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// StatusError is an unexpected HTTP status from a shop.
type StatusError struct {
	URL    string
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

// Classify turns any error into a *models.ScrapeError. Errors that already
// carry a kind are returned unchanged.
func Classify(shop string, err error) *models.ScrapeError {
	if err == nil {
		return nil
	}

	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}

	var status *StatusError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(shop, models.KindTimeout, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(shop, models.KindCancelled, err)
	case errors.As(err, &status):
		switch status.Status {
		case http.StatusForbidden, http.StatusTooManyRequests, http.StatusUnavailableForLegalReasons:
			return models.NewScrapeError(shop, models.KindBlocked, err)
		default:
			return models.NewScrapeError(shop, models.KindNetwork, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.NewScrapeError(shop, models.KindTimeout, err)
		}
		return models.NewScrapeError(shop, models.KindNetwork, err)
	}

	return models.NewScrapeError(shop, models.KindUnknown, err)
}
