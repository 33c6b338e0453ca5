package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"spotpilot/internal/exchange"
)

type cachedFilters struct {
	filters   exchange.SymbolFilters
	expiresAt time.Time
}

// MemoryFilterCache 进程内元数据缓存（单次命令生命周期）
type MemoryFilterCache struct {
	mu   sync.RWMutex
	data map[string]cachedFilters
	now  func() time.Time
}

var _ exchange.FilterCache = (*MemoryFilterCache)(nil)

func NewMemoryFilterCache() *MemoryFilterCache {
	return &MemoryFilterCache{data: make(map[string]cachedFilters), now: time.Now}
}

func key(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

// GetFilters 过期条目视为未命中
func (c *MemoryFilterCache) GetFilters(ctx context.Context, symbol string) (exchange.SymbolFilters, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[key(symbol)]
	if !ok || !c.now().Before(e.expiresAt) {
		return exchange.SymbolFilters{}, false, nil
	}
	return e.filters, true, nil
}

func (c *MemoryFilterCache) PutFilters(ctx context.Context, f exchange.SymbolFilters, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key(f.Symbol)] = cachedFilters{filters: f, expiresAt: c.now().Add(ttl)}
	return nil
}
