package filingstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/simplesdash/simplesdash/internal/platform/db"
)

// Drivers.
const (
	DriverFS       = "fs"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
)

// Config selects and configures a driver.
type Config struct {
	Driver string
	Dir    string
	PGDSN  string
	S3     S3Config
}

// Open returns the configured store and a close function.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	noop := func() {}
	switch cfg.Driver {
	case "", DriverFS:
		store, err := NewFS(cfg.Dir)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("filing store ready", slog.String("driver", DriverFS), slog.String("dir", cfg.Dir))
		return store, noop, nil
	case DriverPostgres:
		pool, err := db.New(ctx, db.Config{DSN: cfg.PGDSN})
		if err != nil {
			return nil, noop, err
		}
		store := NewPostgres(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		logger.Info("filing store ready", slog.String("driver", DriverPostgres))
		return store, pool.Close, nil
	case DriverS3:
		store, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, noop, err
		}
		logger.Info("filing store ready", slog.String("driver", DriverS3), slog.String("bucket", cfg.S3.Bucket))
		return store, noop, nil
	default:
		return nil, noop, fmt.Errorf("filingstore: unknown driver %q", cfg.Driver)
	}
}
