// Package stores opens the persistence backends selected by STORE_DRIVER.
package stores

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventide/backend/config"
	"github.com/eventide/backend/internal/auth"
	"github.com/eventide/backend/internal/entry"
	"github.com/eventide/backend/internal/events"
	"github.com/eventide/backend/pkg/database"
	"github.com/eventide/backend/pkg/mongo"
)

// Stores bundles the repositories every process needs.
type Stores struct {
	Driver   string
	Events   events.Store
	Users    auth.UserStore
	CheckIns entry.CheckInStore
	// Ping reports backend health; nil for the memory driver.
	Ping  func(ctx context.Context) error
	close func()
}

// Close releases the underlying connections.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the configured backend, applying migrations or indexes.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns), logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		if err := database.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &Stores{
			Driver:   cfg.Store.Driver,
			Events:   events.NewRepository(pool),
			Users:    auth.NewRepository(pool),
			CheckIns: entry.NewRepository(pool),
			Ping:     pool.Ping,
			close:    pool.Close,
		}, nil

	case config.StoreMongo:
		client, err := mongo.NewClient(ctx, cfg.Mongo.URI, cfg.Mongo.DB, logger)
		if err != nil {
			return nil, err
		}
		evRepo := events.NewMongoRepository(client.DB)
		userRepo := auth.NewMongoRepository(client.DB)
		checkIns := entry.NewMongoRepository(client.DB)
		for name, ensure := range map[string]func(context.Context) error{
			"events":    evRepo.EnsureIndexes,
			"users":     userRepo.EnsureIndexes,
			"check_ins": checkIns.EnsureIndexes,
		} {
			if err := ensure(ctx); err != nil {
				client.Close()
				return nil, fmt.Errorf("%s indexes: %w", name, err)
			}
		}
		return &Stores{
			Driver:   cfg.Store.Driver,
			Events:   evRepo,
			Users:    userRepo,
			CheckIns: checkIns,
			Ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    client.Close,
		}, nil

	case config.StoreMemory:
		logger.Warn("using in-memory stores; data is lost on restart")
		return &Stores{
			Driver:   cfg.Store.Driver,
			Events:   events.NewMemoryStore(),
			Users:    auth.NewMemoryStore(),
			CheckIns: entry.NewMemoryStore(),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
