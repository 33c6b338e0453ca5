package exchange

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string]SymbolFilters
}

func (m *mapCache) GetFilters(ctx context.Context, symbol string) (SymbolFilters, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.data[strings.ToUpper(symbol)]
	return f, ok, nil
}

func (m *mapCache) PutFilters(ctx context.Context, f SymbolFilters, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[f.Symbol] = f
	return nil
}

type countingClient struct {
	Client
	calls int
}

func (c *countingClient) SymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error) {
	c.calls++
	return SymbolFilters{Symbol: strings.ToUpper(symbol), StepSize: 0.001, TickSize: 0.01}, nil
}

func TestCachedFiltersHitsExchangeOnce(t *testing.T) {
	inner := &countingClient{}
	c := NewCachedFilters(inner, &mapCache{data: map[string]SymbolFilters{}}, time.Minute)

	for i := 0; i < 3; i++ {
		f, err := c.SymbolFilters(context.Background(), "BTCUSDT")
		require.NoError(t, err)
		assert.Equal(t, 0.001, f.StepSize)
	}
	assert.Equal(t, 1, inner.calls)

	_, err := c.Refresh(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestParseSymbolFiltersRejectsMissingLotSize(t *testing.T) {
	_, err := parseSymbolFilters("exchangeInfo", "XUSDT", "TRADING", "X", "USDT", []map[string]interface{}{
		{"filterType": "PRICE_FILTER", "tickSize": "0.01"},
	})
	var apiErr *ExchangeAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindMalformed, apiErr.Kind)
}

func TestParseSymbolFiltersDefaultsPercentPrice(t *testing.T) {
	f, err := parseSymbolFilters("exchangeInfo", "XUSDT", "TRADING", "X", "USDT", []map[string]interface{}{
		{"filterType": "PRICE_FILTER", "tickSize": "0.01"},
		{"filterType": "LOT_SIZE", "stepSize": "0.1", "minQty": "0.1"},
		{"filterType": "MIN_NOTIONAL", "minNotional": "10"},
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultPercentPrice, f.Percent)
	assert.Equal(t, 10.0, f.MinNotional)
}

func TestParseOrderTypeAliases(t *testing.T) {
	typ, ok := ParseOrderType("stop-limit")
	require.True(t, ok)
	assert.Equal(t, TypeStopLossLimit, typ)
	_, ok = ParseOrderType("ICEBERG")
	assert.False(t, ok)
	side, ok := ParseSide(" sell ")
	require.True(t, ok)
	assert.Equal(t, SideSell, side)
}

func TestIsOCOOnlyExcludesMinusOne(t *testing.T) {
	assert.False(t, Order{OrderListID: -1}.IsOCO())
	assert.True(t, Order{OrderListID: 0}.IsOCO())
	assert.True(t, Order{OrderListID: 12}.IsOCO())
}
