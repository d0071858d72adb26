package app

import (
	"context"
	"fmt"

	"serenote/internal/config"
	"serenote/internal/db"
	"serenote/internal/engine"
	"serenote/internal/migrate"
	"serenote/internal/repo"
)

// Store is an engine store that owns a connection.
type Store interface {
	engine.Store
	Close() error
}

// OpenStore opens the store selected by cfg. SQLite databases live in the
// workspace and are migrated on open.
func OpenStore(ctx context.Context, workspace string, cfg *config.Config) (Store, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	switch cfg.Store.Driver {
	case config.DriverMongo:
		m, err := repo.ConnectMongo(ctx, cfg.Store.Mongo.URI, cfg.Store.Mongo.Database)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.DriverSQLite, "":
		conn, err := db.Open(db.Config{Workspace: workspace})
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		if _, err := migrate.MigrateContext(ctx, conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return repo.Repo{DB: conn}, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Workspace bundles the loaded config and open store for a command.
type Workspace struct {
	Dir    string
	Config *config.Config
	Store  Store
}

// OpenWorkspace loads serenote.yml (defaults when absent) and opens its store.
func OpenWorkspace(ctx context.Context, dir string) (*Workspace, error) {
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	store, err := OpenStore(ctx, dir, cfg)
	if err != nil {
		return nil, err
	}
	return &Workspace{Dir: dir, Config: cfg, Store: store}, nil
}

func (w *Workspace) Close() error {
	if w == nil || w.Store == nil {
		return nil
	}
	return w.Store.Close()
}
