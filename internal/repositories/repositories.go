package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/shared"
)

// Store is a [models.DocumentStore] that owns its connection.
type Store interface {
	models.DocumentStore
	Close() error
}

// Open builds the document store selected by cfg.Store.Backend.
//
// The SQL backend runs pending migrations before returning.
func Open(ctx context.Context, cfg *shared.Config, logger *log.Logger) (Store, error) {
	switch cfg.Store.Backend {
	case "", "sql":
		dialect, err := shared.ParseDialect(cfg.Database.Driver)
		if err != nil {
			return nil, err
		}

		db, err := shared.OpenDatabase(dialect, cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrStoreUnavailable, err)
		}
		if cfg.Database.Path != ":memory:" && cfg.Database.MaxOpenConns > 0 {
			shared.ConfigureDatabase(db, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		}

		if err := shared.RunMigrations(db, dialect); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		logger.Debug("opened sql document store", "driver", dialect, "path", cfg.Database.Path)
		return NewSQLDocumentStore(db, dialect), nil
	case "redis":
		store, err := NewRedisDocumentStore(ctx, cfg.Store.Redis)
		if err != nil {
			return nil, err
		}
		logger.Debug("opened redis document store", "addr", cfg.Store.Redis.Addr, "prefix", store.prefix)
		return store, nil
	case "memory":
		logger.Warn("using in-memory document store; progress is lost on exit")
		return NewMemoryDocumentStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", shared.ErrInvalidConfig, cfg.Store.Backend)
	}
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrStoreUnavailable, op, err)
}

func notFound(collection, id string) error {
	return fmt.Errorf("%w: %s/%s", shared.ErrDocumentNotFound, collection, id)
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: fields are not JSON encodable: %v", shared.ErrInvalidInput, err)
	}
	return data, nil
}

func decodeFields(data []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode document fields: %w", err)
	}
	return fields, nil
}

// mergeFields overlays incoming onto existing at the top level only.
func mergeFields(existing, incoming map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(incoming))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range incoming {
		out[k] = v
	}
	return out
}
