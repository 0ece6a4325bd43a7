package repository

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/config"
	"github.com/octobees/place-intelligence/internal/database"
)

// Store is a dataset backend that can be both read and replaced.
type Store interface {
	PlacesSource
	PlacesWriter
}

// OpenStore connects the configured database backend, Postgres first, then
// SQLite. The returned close function releases the connection.
func OpenStore(ctx context.Context, cfg config.DatasetConfig) (Store, func(), error) {
	switch {
	case cfg.DatabaseURL != "":
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, err
		}
		zap.L().Info("dataset backend selected", zap.String("backend", "postgres"))
		return NewPGXPlacesRepository(pool), pool.Close, nil
	case cfg.SQLitePath != "":
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("dataset backend selected", zap.String("backend", "sqlite"), zap.String("path", cfg.SQLitePath))
		return NewSQLitePlacesRepository(db), func() { db.Close() }, nil
	default:
		return nil, nil, eris.New("repository: neither DATABASE_URL nor SQLITE_PATH is set")
	}
}

// OpenSource returns the configured dataset source: a database store when one
// is configured, the dataset file otherwise.
func OpenSource(ctx context.Context, cfg config.DatasetConfig) (PlacesSource, func(), error) {
	if cfg.DatabaseURL != "" || cfg.SQLitePath != "" {
		return OpenStore(ctx, cfg)
	}
	if cfg.Path == "" {
		return nil, nil, eris.New("repository: no dataset source configured")
	}

	src, err := NewFileSource(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("dataset backend selected", zap.String("backend", "file"), zap.String("path", cfg.Path))
	return src, func() {}, nil
}
