package storage

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Open creates the Store for sensorID using the named backend. dsn is a file
// path for sqlite and a redis:// URL for redis; it is ignored for memory.
func Open(ctx context.Context, backend, dsn, sensorID string) (Store, error) {
	switch backend {
	case "", BackendMemory:
		return NewInMemoryStore(sensorID), nil
	case BackendSQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		return OpenSQLite(dsn, sensorID)
	case BackendRedis:
		opts, err := redis.ParseURL(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url %q: %w", dsn, err)
		}
		rs, err := NewRedisStore(opts, sensorID)
		if err != nil {
			return nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("redis not reachable: %w", err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
