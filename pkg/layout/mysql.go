// mysql.go - Layout records in a MySQL table, one row per template.
package layout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

const mysqlSchema = `CREATE TABLE IF NOT EXISTS field_layouts (
	template_name VARCHAR(255) NOT NULL PRIMARY KEY,
	record        JSON NOT NULL,
	updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
) CHARACTER SET utf8mb4`

// MySQLStore keeps each layout as a JSON row keyed by template name.
type MySQLStore struct {
	db *sql.DB
}

// Ensure MySQLStore implements Store
var _ Store = (*MySQLStore)(nil)

// OpenMySQL connects with a go-sql-driver DSN (user:pw@tcp(host:port)/db),
// pings the server and creates the field_layouts table if needed.
func OpenMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["charset"] = "utf8mb4"

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create field_layouts: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

// Close releases the connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Load reads the record for name.
func (s *MySQLStore) Load(ctx context.Context, name string) (*Layout, bool) {
	if err := ValidateName(name); err != nil {
		Logger().Warn("layout lookup rejected", "template", name, "err", err)
		return nil, false
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT record FROM field_layouts WHERE template_name = ?", name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
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
func (s *MySQLStore) Save(ctx context.Context, name string, l *Layout) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := Encode(l)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO field_layouts (template_name, record) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE record = VALUES(record)`,
		name, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert layout %s: %w", name, err)
	}
	Logger().Info("layout saved", "template", name, "fields", len(l.Fields))
	return nil
}
