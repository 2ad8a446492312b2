package persistence

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/felixbrock/promptstudio/internal/history"
	"github.com/felixbrock/promptstudio/internal/logger"
)

type StoreConfig struct {
	// Backend is one of memory, file, sqlite, redis.
	Backend   string
	Path      string
	RedisAddr string
}

// OpenStore builds the configured history store. The returned close func is
// never nil.
func OpenStore(cfg StoreConfig, log *logger.Logger) (history.Store, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return NewMemoryStore(), noop, nil
	case "file":
		store, err := NewFileStore(cfg.Path, log)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case "sqlite":
		path := cfg.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "history.db")
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case "redis":
		store, err := NewRedisStore(cfg.RedisAddr)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
