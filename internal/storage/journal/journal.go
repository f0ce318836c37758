// Package journal opens the configured issuance journal backend.
package journal

import (
	"context"
	"fmt"
	"io"
	"log"

	"sss-shared/internal/storage"
	chstore "sss-shared/internal/storage/clickhouse"
	"sss-shared/internal/storage/memory"
	"sss-shared/internal/storage/migrations"
	"sss-shared/internal/storage/postgres"
)

// Options selects the backend. Postgres wins when both DSNs are set;
// neither selects the in-memory journal.
type Options struct {
	PostgresDSN   string
	ClickHouseDSN string
	Logger        *log.Logger
}

// Backend names reported by Open.
const (
	BackendMemory     = "memory"
	BackendPostgres   = "postgres"
	BackendClickHouse = "clickhouse"
)

// Journal is an open issuance store and its connection.
type Journal struct {
	storage.IssuanceStore
	Backend string
	close   func() error
}

// Close releases the backend connection.
func (j *Journal) Close() error {
	if j.close == nil {
		return nil
	}
	return j.close()
}

// Open connects to the selected backend and applies its migrations.
func Open(ctx context.Context, opts Options) (*Journal, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	switch {
	case opts.PostgresDSN != "":
		pool, err := postgres.NewPool(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
		logger.Printf("Issuance journal: postgres")
		return &Journal{
			IssuanceStore: postgres.NewIssuanceStore(pool),
			Backend:       BackendPostgres,
			close: func() error {
				pool.Close()
				return nil
			},
		}, nil

	case opts.ClickHouseDSN != "":
		conn, err := migrations.RunClickhouseMigrations(ctx, opts.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		logger.Printf("Issuance journal: clickhouse")
		return &Journal{
			IssuanceStore: chstore.NewIssuanceStore(conn),
			Backend:       BackendClickHouse,
			close:         conn.Close,
		}, nil

	default:
		logger.Printf("Issuance journal: memory")
		return &Journal{
			IssuanceStore: memory.NewIssuanceStore(),
			Backend:       BackendMemory,
		}, nil
	}
}
