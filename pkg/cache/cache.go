package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface.
//
// Values are stored as JSON; Get decodes into dest.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	Close() error
}

// Loader fetches the value for a cache miss.
type Loader[T any] func(ctx context.Context) (T, error)

// GetOrLoad reads key from c and falls back to load on a miss or a cache error.
// Loaded values are written back with ttl; failed loads are never cached.
// The returned bool reports a cache hit.
func GetOrLoad[T any](ctx context.Context, c Service, key string, ttl time.Duration, load Loader[T]) (T, bool, error) {
	var cached T
	if err := c.Get(ctx, key, &cached); err == nil {
		return cached, true, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, false, nil
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	case *string:
		*d = string(data)
		return nil
	default:
		return json.Unmarshal(data, dest)
	}
}
