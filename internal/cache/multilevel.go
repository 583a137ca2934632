package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/sirupsen/logrus"
)

type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
	Stats() map[string]interface{}
	Health(ctx context.Context) error
	Close() error
}

const l1MaxTTL = 30 * time.Second

// MultiLevelCache keeps a short-lived in-process copy in front of redis.
// Redis is optional; when it is nil or its breaker is open the cache
// degrades to L1 only.
type MultiLevelCache struct {
	l1      *MemoryCache
	l2      *RedisCache
	breaker *CircuitBreaker
	metrics *CacheMetrics
	log     logrus.FieldLogger
}

var _ Cache = (*MultiLevelCache)(nil)

func NewMultiLevelCache(redisCache *RedisCache, breaker *CircuitBreaker, metrics *CacheMetrics, log logrus.FieldLogger) *MultiLevelCache {
	if metrics == nil {
		metrics = NewCacheMetrics()
	}
	if breaker == nil && redisCache != nil {
		breaker = NewCircuitBreaker("redis", nil, nil)
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &MultiLevelCache{
		l1:      NewMemoryCache(1000),
		l2:      redisCache,
		breaker: breaker,
		metrics: metrics,
		log:     log,
	}
}

func (c *MultiLevelCache) Metrics() *CacheMetrics {
	return c.metrics
}

func (c *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	c.l1.Set(key, data, minDuration(ttl, l1MaxTTL))
	c.metrics.RecordSet()

	return c.l2Do(func() error {
		return c.l2.Set(ctx, key, json.RawMessage(data), ttl)
	})
}

func (c *MultiLevelCache) Get(ctx context.Context, key string, dest interface{}) error {
	if value, found := c.l1.Get(key); found {
		c.metrics.RecordL1Hit()
		return copyValue(value, dest)
	}

	if c.l2 == nil {
		c.metrics.RecordMiss()
		return ErrCacheMiss
	}

	var raw json.RawMessage
	err := c.l2Do(func() error {
		return c.l2.Get(ctx, key, &raw)
	})
	switch {
	case err == nil:
		c.metrics.RecordL2Hit()
		c.l1.Set(key, []byte(raw), l1MaxTTL)
		return copyValue([]byte(raw), dest)
	case errors.Is(err, ErrCacheMiss):
		c.metrics.RecordMiss()
		return ErrCacheMiss
	default:
		c.metrics.RecordMiss()
		return err
	}
}

func (c *MultiLevelCache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(key)
	c.metrics.RecordDelete()

	return c.l2Do(func() error {
		return c.l2.Delete(ctx, key)
	})
}

func (c *MultiLevelCache) DeletePattern(ctx context.Context, pattern string) error {
	c.l1.DeletePattern(pattern)
	c.metrics.RecordDelete()

	return c.l2Do(func() error {
		return c.l2.DeletePattern(ctx, pattern)
	})
}

func (c *MultiLevelCache) Stats() map[string]interface{} {
	stats := map[string]interface{}{
		"l1":       c.l1.Stats(),
		"metrics":  c.metrics.Snapshot(),
		"hit_rate": c.metrics.HitRate(),
	}

	if c.l2 != nil {
		stats["l2"] = c.l2.Stats()
		stats["breaker"] = c.breaker.State().String()
	}

	return stats
}

func (c *MultiLevelCache) Health(ctx context.Context) error {
	if c.l2 != nil {
		return c.l2.Health(ctx)
	}

	return nil
}

func (c *MultiLevelCache) Close() error {
	if c.l2 != nil {
		return c.l2.Close()
	}

	return nil
}

// l2Do runs fn against redis through the breaker and records failures.
// Misses are passed through untouched.
func (c *MultiLevelCache) l2Do(fn func() error) error {
	if c.l2 == nil {
		return nil
	}
	err := c.breaker.Execute(fn)
	if err == nil || errors.Is(err, ErrCacheMiss) {
		return err
	}
	if errors.Is(err, ErrCacheDown) {
		c.metrics.RecordRejected()
	} else {
		c.metrics.RecordError()
	}
	c.log.WithError(err).Warn("redis cache operation failed")
	return err
}

func copyValue(src, dest interface{}) error {
	destValue := reflect.ValueOf(dest)
	if destValue.Kind() != reflect.Ptr {
		return fmt.Errorf("destination must be a pointer, got %T", dest)
	}

	if destValue.IsNil() {
		return fmt.Errorf("destination pointer is nil")
	}

	data, ok := src.([]byte)
	if !ok {
		var err error
		if data, err = json.Marshal(src); err != nil {
			return fmt.Errorf("failed to marshal source value: %w", err)
		}
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal to destination: %w", err)
	}

	return nil
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
