package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/exchange"
)

func solFilters() exchange.SymbolFilters {
	return exchange.SymbolFilters{
		Symbol: "SOLUSDT", Status: "TRADING", BaseAsset: "SOL", QuoteAsset: "USDT",
		StepSize: 0.001, MinQty: 0.001, MaxQty: 9000, TickSize: 0.01, MinPrice: 0.01, MaxPrice: 100000,
		MinNotional: 5, Percent: exchange.DefaultPercentPrice,
	}
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestMemoryFilterCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemoryFilterCache()
	c.now = clk.now

	require.NoError(t, c.PutFilters(ctx, solFilters(), time.Hour))
	got, ok, err := c.GetFilters(ctx, " solusdt ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.001, got.StepSize)

	clk.t = clk.t.Add(time.Hour)
	_, ok, err = c.GetFilters(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteFiltersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s.now = clk.now

	_, ok, err := s.GetFilters(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.PutFilters(ctx, solFilters(), 10*time.Minute))
	f := solFilters()
	f.MinNotional = 10
	require.NoError(t, s.PutFilters(ctx, f, 10*time.Minute))

	got, ok, err := s.GetFilters(ctx, "solusdt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, f, got)

	clk.t = clk.t.Add(11 * time.Minute)
	_, ok, err = s.GetFilters(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteOrderJournal(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err := s.RecordOrder(ctx, OrderRecord{Action: "place", Symbol: "SOLUSDT", Side: "SELL", OrderType: "LIMIT",
		Quantity: 3.867, Price: 190, MarketPrice: 180, Status: "NEW", ExchangeOrderID: 42, CreatedAt: base})
	require.NoError(t, err)
	_, err = s.RecordOrder(ctx, OrderRecord{Action: "rejected", Symbol: "SOLUSDT", Side: "SELL", OrderType: "LIMIT",
		Quantity: 6.368, Price: 170, Status: "REJECTED", Error: "IMMEDIATE_FILL", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)
	_, err = s.RecordOrder(ctx, OrderRecord{Action: "place", Symbol: "BTCUSDT", Status: "FILLED", CreatedAt: base.Add(2 * time.Minute)})
	require.NoError(t, err)

	sol, err := s.ListOrders(ctx, "solusdt", 10)
	require.NoError(t, err)
	require.Len(t, sol, 2)
	assert.Equal(t, "rejected", sol[0].Action)
	assert.Equal(t, "IMMEDIATE_FILL", sol[0].Error)
	assert.Zero(t, sol[0].ExchangeOrderID)
	assert.Equal(t, int64(42), sol[1].ExchangeOrderID)
	assert.True(t, sol[1].CreatedAt.Equal(base))

	all, err := s.ListOrders(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "BTCUSDT", all[0].Symbol)

	_, err = s.RecordOrder(ctx, OrderRecord{Symbol: "SOLUSDT"})
	assert.Error(t, err)
}

func TestSQLitePromptHandoff(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, ok, err := s.GetPrompt(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SavePrompt(ctx, PromptRecord{ID: "p1", Kind: "portfolio", System: "sys", User: "usr"}))
	require.NoError(t, s.SavePrompt(ctx, PromptRecord{ID: "p1", Kind: "portfolio", System: "sys", User: "usr", FilePath: "prompts/p1.md"}))
	p, ok, err := s.GetPrompt(ctx, "p1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "prompts/p1.md", p.FilePath)
	assert.Equal(t, "usr", p.User)

	score := 82
	_, err = s.SaveResponse(ctx, ResponseRecord{PromptID: "p1", Raw: "first", Score: &score, Recommendations: "[]"})
	require.NoError(t, err)
	_, err = s.SaveResponse(ctx, ResponseRecord{PromptID: "p1", Raw: "second"})
	require.NoError(t, err)

	rs, err := s.ListResponses(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rs, 2)
	require.NotNil(t, rs[0].Score)
	assert.Equal(t, 82, *rs[0].Score)
	assert.Nil(t, rs[1].Score)
	assert.Empty(t, rs[1].Recommendations)
}

func TestSQLiteClosed(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, _, err = s.GetFilters(context.Background(), "SOLUSDT")
	assert.Error(t, err)

	_, err = OpenSQLite("")
	assert.Error(t, err)
}

func TestRedisFilterCache(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb, err := DialRedis(ctx, mr.Addr(), 0)
	require.NoError(t, err)
	c := NewRedisFilterCache(rdb)
	t.Cleanup(func() { _ = c.Close() })

	_, ok, err := c.GetFilters(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.PutFilters(ctx, solFilters(), time.Minute))
	assert.True(t, mr.Exists("spotpilot:filters:SOLUSDT"))
	got, ok, err := c.GetFilters(ctx, "solusdt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, solFilters(), got)

	mr.FastForward(2 * time.Minute)
	_, ok, err = c.GetFilters(ctx, "SOLUSDT")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisMalformedPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("spotpilot:filters:SOLUSDT", "not-json"))
	c := NewRedisFilterCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer c.Close()
	_, _, err := c.GetFilters(context.Background(), "SOLUSDT")
	assert.Error(t, err)
}

func TestDialRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err := DialRedis(context.Background(), addr, 0)
	assert.Error(t, err)
}
