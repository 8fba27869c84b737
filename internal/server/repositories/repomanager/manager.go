// Package repomanager opens the configured storage backend and vends the
// repositories built on it.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/storeauth/internal/server/config"
	"github.com/dmitrijs2005/storeauth/internal/server/repositories/persons"
	"github.com/redis/go-redis/v9"
)

// Store is an opened storage backend.
type Store struct {
	Persons persons.Repository
	closers []func() error
}

// Close releases the backend's connections.
func (s *Store) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to the backend named by cfg.StorageBackend. For PostgreSQL
// it also applies pending migrations.
func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		return openPostgres(ctx, cfg.DatabaseDSN)
	case config.BackendRedis:
		return openRedis(ctx, cfg.RedisAddr)
	case config.BackendMemory:
		return &Store{Persons: persons.NewMemoryRepository()}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sqlOpen("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	return &Store{Persons: m.Persons(db), closers: []func() error{db.Close}}, nil
}

func openRedis(ctx context.Context, addr string) (*Store, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping error: %w", err)
	}
	return &Store{
		Persons: persons.NewRedisRepository(client, "person"),
		closers: []func() error{client.Close},
	}, nil
}
