// Package cache stores resolved songs keyed by normalized link.
package cache

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"odeslibot/pkg/musiclink"
)

const (
	// BackendMemory keeps songs in process memory.
	BackendMemory = "memory"
	// BackendSQLite persists songs in a SQLite database.
	BackendSQLite = "sqlite"
)

// Config selects and sizes a cache backend.
type Config struct {
	Backend    string
	TTL        time.Duration
	Path       string
	MaxEntries int
}

// Store is a musiclink.Cache that owns resources.
type Store interface {
	musiclink.Cache
	Len() int
	Close() error
}

// New opens the configured backend.
func New(cfg Config, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(cfg.MaxEntries, cfg.TTL), nil
	case BackendSQLite:
		return OpenSQLite(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
