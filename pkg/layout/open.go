// open.go - Backend selection for the layout store.
package layout

import (
	"context"
	"fmt"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Options selects and configures a store backend.
type Options struct {
	Backend string // "file" (default), "redis", "postgres" or "mysql"
	Dir     string // file backend directory
	Redis   RedisOptions
	DSN     string // postgres or mysql connection string
}

// Open returns the configured store and a function releasing its resources.
func Open(ctx context.Context, o Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch o.Backend {
	case "", BackendFile:
		return NewFileStore(o.Dir), noop, nil
	case BackendRedis:
		s, err := OpenRedis(ctx, o.Redis)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendPostgres:
		s, err := OpenPostgres(ctx, o.DSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case BackendMySQL:
		s, err := OpenMySQL(ctx, o.DSN)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown layout backend %q: use file, redis, postgres or mysql", o.Backend)
	}
}
