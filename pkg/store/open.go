package store

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendSQLite  = "sqlite"
	BackendMongoDB = "mongodb"
)

// Config selects and locates a store backend.
type Config struct {
	Backend string `toml:"backend"`
	// Path is the SQLite file.
	Path string `toml:"path"`
	// URI and Database address MongoDB.
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

// Open returns the backend named by cfg.Backend (sqlite when empty).
func Open(ctx context.Context, cfg Config, logger *log.Logger) (Store, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		if cfg.Path == "" {
			return nil, errors.New(errors.ErrCodeInvalidOption, "sqlite store needs a path")
		}
		st, err := NewSQLiteStore(ctx, cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	case BackendMongoDB:
		if cfg.URI == "" {
			return nil, errors.New(errors.ErrCodeInvalidOption, "mongodb store needs a uri")
		}
		st, err := NewMongoStore(ctx, cfg.URI, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, errors.New(errors.ErrCodeInvalidOption, "unknown store backend %q (want sqlite or mongodb)", cfg.Backend)
	}
}
