// Package credential holds the extraction service keys and acquires one
// interactively when none is configured.
package credential

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
)

// ErrNoCredentials is returned when no API key is available.
var ErrNoCredentials = errors.New("no extraction service API key")

// Pool rotates requests across several API keys using atomic round-robin
// selection. A key hitting its rate limit is simply skipped on retry.
type Pool struct {
	keys    []string
	counter atomic.Uint64
}

// NewPool creates a Pool from a list of keys. Blank keys are dropped and at
// least one key is required.
func NewPool(keys []string) (*Pool, error) {
	var clean []string
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	if len(clean) == 0 {
		return nil, ErrNoCredentials
	}
	slog.Debug("credential pool initialised", "keys", len(clean))
	return &Pool{keys: clean}, nil
}

// Next returns the next key using round-robin selection.
// This is safe for concurrent use.
func (p *Pool) Next() string {
	idx := p.counter.Add(1) - 1
	return p.keys[idx%uint64(len(p.keys))]
}

// Len returns the number of keys in the pool.
func (p *Pool) Len() int {
	return len(p.keys)
}

// Fingerprint returns a short, log-safe identifier for key.
func Fingerprint(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "…" + key[len(key)-4:]
}
