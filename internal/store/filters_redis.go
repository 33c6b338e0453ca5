package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"spotpilot/internal/exchange"
)

const redisFilterPrefix = "spotpilot:filters:"

// RedisFilterCache 多个终端/进程共享的元数据缓存，过期由 redis TTL 负责
type RedisFilterCache struct {
	rdb *redis.Client
}

var _ exchange.FilterCache = (*RedisFilterCache)(nil)

func NewRedisFilterCache(rdb *redis.Client) *RedisFilterCache {
	return &RedisFilterCache{rdb: rdb}
}

// DialRedis 连接并 PING 一次，失败立即返回
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("连接 redis %s 失败: %w", addr, err)
	}
	return rdb, nil
}

func (c *RedisFilterCache) GetFilters(ctx context.Context, symbol string) (exchange.SymbolFilters, bool, error) {
	raw, err := c.rdb.Get(ctx, redisFilterPrefix+key(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return exchange.SymbolFilters{}, false, nil
	}
	if err != nil {
		return exchange.SymbolFilters{}, false, err
	}
	var f exchange.SymbolFilters
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return exchange.SymbolFilters{}, false, err
	}
	return f, true, nil
}

func (c *RedisFilterCache) PutFilters(ctx context.Context, f exchange.SymbolFilters, ttl time.Duration) error {
	buf, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisFilterPrefix+key(f.Symbol), buf, ttl).Err()
}

func (c *RedisFilterCache) Close() error { return c.rdb.Close() }
