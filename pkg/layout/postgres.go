// postgres.go - Layout records in a PostgreSQL table, one row per template.
package layout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS field_layouts (
	template_name TEXT PRIMARY KEY,
	record        JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore keeps each layout as a JSONB row keyed by template name.
// A save is a single upsert statement.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Ensure PostgresStore implements Store
var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects with the given DSN, pings the server and creates
// the field_layouts table if it does not exist.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create field_layouts: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Load reads the record for name.
func (s *PostgresStore) Load(ctx context.Context, name string) (*Layout, bool) {
	if err := ValidateName(name); err != nil {
		Logger().Warn("layout lookup rejected", "template", name, "err", err)
		return nil, false
	}

	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM field_layouts WHERE template_name = $1`, name,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false
	}
	if err != nil {
		Logger().Error("read layout", "template", name, "err", err)
		return nil, false
	}

	l, err := Decode(data)
	if err != nil {
		Logger().Error("malformed layout record", "template", name, "err", err)
		return nil, false
	}
	return l, true
}

// Save upserts the record for name.
func (s *PostgresStore) Save(ctx context.Context, name string, l *Layout) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := Encode(l)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO field_layouts (template_name, record, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (template_name) DO UPDATE
		 SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert layout %s: %w", name, err)
	}
	Logger().Info("layout saved", "template", name, "fields", len(l.Fields))
	return nil
}
