// redis.go - Layout records as JSON strings in Redis, one key per template.
package layout

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces layout keys.
const DefaultRedisPrefix = "formstencil:layout:"

// RedisStore keeps each layout under <prefix><template name>.
// A save is a single SET, so each record is replaced atomically.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)

// RedisOptions configures OpenRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// OpenRedis connects to Redis and verifies the connection with PING.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return NewRedisStore(client, opts.Prefix), nil
}

// NewRedisStore wraps an existing client. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load reads the record for name.
func (s *RedisStore) Load(ctx context.Context, name string) (*Layout, bool) {
	if err := ValidateName(name); err != nil {
		Logger().Warn("layout lookup rejected", "template", name, "err", err)
		return nil, false
	}

	val, err := s.client.Get(ctx, s.prefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		Logger().Error("read layout", "key", s.prefix+name, "err", err)
		return nil, false
	}

	l, err := Decode(val)
	if err != nil {
		Logger().Error("malformed layout record", "key", s.prefix+name, "err", err)
		return nil, false
	}
	return l, true
}

// Save writes the record for name without expiry.
func (s *RedisStore) Save(ctx context.Context, name string, l *Layout) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := Encode(l)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+name, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", s.prefix+name, err)
	}
	Logger().Info("layout saved", "template", name, "fields", len(l.Fields))
	return nil
}
