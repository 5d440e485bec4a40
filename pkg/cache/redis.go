package cache

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/hlsched/pkg/errors"
)

// RedisOptions configures [NewRedisCache].
type RedisOptions struct {
	// URL is a redis:// or rediss:// connection string.
	URL string
	// Namespace is prepended to every key and bounds what Clear removes.
	// Defaults to "hlsched:".
	Namespace string
}

// RedisCache stores entries in Redis with native key expiry.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

// NewRedisCache connects to Redis and pings it, retrying transient
// failures.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	ropts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidOption, err, "parse redis url")
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "hlsched:"
	}
	c := &RedisCache{client: redis.NewClient(ropts), namespace: ns}

	err = RetryWithBackoff(ctx, func() error {
		return classify(c.client.Ping(ctx).Err())
	})
	if err != nil {
		_ = c.client.Close()
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "connect to redis at %s", ropts.Addr)
	}
	return c, nil
}

// Get implements [Cache]. redis.Nil is a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		b, err := c.client.Get(ctx, c.namespace+key).Bytes()
		if err != nil {
			return classify(err)
		}
		data = b
		return nil
	})
	if stderrors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeStorage, err, "redis get")
	}
	return data, true, nil
}

// Set implements [Cache]. A ttl of zero never expires.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := RetryWithBackoff(ctx, func() error {
		return classify(c.client.Set(ctx, c.namespace+key, data, ttl).Err())
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "redis set")
	}
	return nil
}

// Delete implements [Cache].
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.namespace+key).Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "redis del")
	}
	return nil
}

// Clear deletes every key in the namespace.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.namespace+"*", 256).Iterator()
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := c.client.Del(ctx, batch...).Err()
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 256 {
			if err := flush(); err != nil {
				return errors.Wrap(errors.ErrCodeStorage, err, "redis clear")
			}
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "redis scan")
	}
	if err := flush(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "redis clear")
	}
	return nil
}

// Close closes the client connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify marks connection-level failures as retryable.
func classify(err error) error {
	if err == nil || stderrors.Is(err, redis.Nil) {
		return err
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) || stderrors.Is(err, io.EOF) {
		return Retryable(stderrors.Join(ErrNetwork, err))
	}
	return err
}

var (
	_ Cache   = (*RedisCache)(nil)
	_ Clearer = (*RedisCache)(nil)
)
