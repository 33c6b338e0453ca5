package exchange

import (
	"context"
	"fmt"
	"time"

	"spotpilot/internal/logger"
)

// parseSymbolFilters 解析 exchangeInfo.filters（[]map，数值均为字符串）
func parseSymbolFilters(op, symbol, status, base, quote string, raw []map[string]interface{}) (SymbolFilters, error) {
	out := SymbolFilters{
		Symbol:     symbol,
		Status:     status,
		BaseAsset:  base,
		QuoteAsset: quote,
		Percent:    DefaultPercentPrice,
	}
	field := func(f map[string]interface{}, key string) (float64, error) {
		v, ok := f[key]
		if !ok || v == nil {
			return 0, nil
		}
		switch t := v.(type) {
		case string:
			return num(op, key, t)
		case float64:
			return t, nil
		default:
			return 0, malformed(op, key, fmt.Sprint(v))
		}
	}
	for _, f := range raw {
		kind, _ := f["filterType"].(string)
		var err error
		switch kind {
		case "LOT_SIZE":
			if out.StepSize, err = field(f, "stepSize"); err != nil {
				return out, err
			}
			if out.MinQty, err = field(f, "minQty"); err != nil {
				return out, err
			}
			if out.MaxQty, err = field(f, "maxQty"); err != nil {
				return out, err
			}
		case "PRICE_FILTER":
			if out.TickSize, err = field(f, "tickSize"); err != nil {
				return out, err
			}
			if out.MinPrice, err = field(f, "minPrice"); err != nil {
				return out, err
			}
			if out.MaxPrice, err = field(f, "maxPrice"); err != nil {
				return out, err
			}
		case "NOTIONAL", "MIN_NOTIONAL":
			v, err := field(f, "minNotional")
			if err != nil {
				return out, err
			}
			if v > out.MinNotional {
				out.MinNotional = v
			}
			if out.MaxNotional, err = field(f, "maxNotional"); err != nil {
				return out, err
			}
		case "PERCENT_PRICE_BY_SIDE":
			p := PercentPrice{}
			if p.BidUp, err = field(f, "bidMultiplierUp"); err != nil {
				return out, err
			}
			if p.BidDown, err = field(f, "bidMultiplierDown"); err != nil {
				return out, err
			}
			if p.AskUp, err = field(f, "askMultiplierUp"); err != nil {
				return out, err
			}
			if p.AskDown, err = field(f, "askMultiplierDown"); err != nil {
				return out, err
			}
			if p.BidUp > 0 && p.AskUp > 0 {
				out.Percent = p
			}
		}
	}
	// 缺少 LOT_SIZE → 元数据不可信，直接拒绝
	if out.StepSize <= 0 {
		return out, malformed(op, "LOT_SIZE.stepSize", fmt.Sprint(out.StepSize))
	}
	if out.TickSize <= 0 {
		return out, malformed(op, "PRICE_FILTER.tickSize", fmt.Sprint(out.TickSize))
	}
	return out, nil
}

// FilterCache 交易对元数据缓存（会话内可缓存，但非永久静态）
type FilterCache interface {
	GetFilters(ctx context.Context, symbol string) (SymbolFilters, bool, error)
	PutFilters(ctx context.Context, f SymbolFilters, ttl time.Duration) error
}

// CachedFilters 在 Client 外包一层元数据缓存；其余调用直接透传
type CachedFilters struct {
	Client
	Cache FilterCache
	TTL   time.Duration
}

func NewCachedFilters(c Client, cache FilterCache, ttl time.Duration) *CachedFilters {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedFilters{Client: c, Cache: cache, TTL: ttl}
}

func (c *CachedFilters) SymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error) {
	if c.Cache != nil {
		f, ok, err := c.Cache.GetFilters(ctx, symbol)
		if err != nil {
			logger.Warnf("读取 %s 元数据缓存失败，改为直连交易所: %v", symbol, err)
		} else if ok {
			logger.Debugf("元数据缓存命中: %s", symbol)
			return f, nil
		}
	}
	return c.Refresh(ctx, symbol)
}

// Refresh 跳过缓存强制从交易所拉取并回写
func (c *CachedFilters) Refresh(ctx context.Context, symbol string) (SymbolFilters, error) {
	f, err := c.Client.SymbolFilters(ctx, symbol)
	if err != nil {
		return SymbolFilters{}, err
	}
	if c.Cache != nil {
		if err := c.Cache.PutFilters(ctx, f, c.TTL); err != nil {
			logger.Warnf("写入 %s 元数据缓存失败: %v", symbol, err)
		}
	}
	return f, nil
}
