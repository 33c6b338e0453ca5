package mcp

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/app"
	"spotpilot/internal/config"
	"spotpilot/internal/exchange"
	"spotpilot/internal/exchange/exchangetest"
	"spotpilot/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, *exchangetest.Fake) {
	t.Helper()
	fake := exchangetest.New()
	fake.AccountData = exchange.Account{Balances: []exchange.Balance{
		{Asset: "USDT", Free: 1000},
		{Asset: "SOL", Free: 10},
	}}
	fake.Filters["SOLUSDT"] = exchange.SymbolFilters{
		Symbol: "SOLUSDT", Status: "TRADING", BaseAsset: "SOL", QuoteAsset: "USDT",
		StepSize: 0.001, MinQty: 0.001, MaxQty: 9000, TickSize: 0.01, MinPrice: 0.01, MaxPrice: 100000,
		MinNotional: 5, Percent: exchange.DefaultPercentPrice,
	}
	fake.PriceData["SOLUSDT"] = 100
	ks := make([]exchange.Kline, 120)
	for i := range ks {
		c := 100 + 2*math.Sin(float64(i)/3)
		ks[i] = exchange.Kline{OpenTime: int64(i) * 3600000, Open: c - 0.5, High: c + 1, Low: c - 1, Close: c}
	}
	fake.KlineData["SOLUSDT"] = ks

	cfg := config.Default()
	cfg.Prompt.OutputDir = t.TempDir()
	cfg.Chart.OutputDir = t.TempDir()
	a := app.New(cfg, fake, store.NewMemoryFilterCache(), nil)
	return NewRouter(a), fake
}

func call(t *testing.T, h http.Handler, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestAccountInfo(t *testing.T) {
	h, _ := newTestRouter(t)
	code, out := call(t, h, `{"action":"get_account_info","parameters":{}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.InDelta(t, 2000, out["total_value"], 1e-9)
	assert.Len(t, out["assets"], 2)
}

func TestRequestValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	code, out := call(t, h, `{"parameters":{}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, out["error"])

	code, out = call(t, h, `{"action":"withdraw","parameters":{}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "未知动作")

	code, out = call(t, h, `{"action":"get_trade_history","parameters":{}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, out["error"], "symbol")

	code, _ = call(t, h, `{"action":"place_order","parameters":{"symbol":"SOLUSDT","side":"BUY","order_type":"LIMIT","quantity":"abc","price":95}}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestReadActions(t *testing.T) {
	h, fake := newTestRouter(t)
	fake.Orders = []exchange.Order{{Symbol: "SOLUSDT", OrderID: 7, OrderListID: -1, Side: exchange.SideSell, Type: exchange.TypeLimit, Price: 130, OrigQty: 2}}
	fake.TradeData["SOLUSDT"] = []exchange.Trade{{ID: 1, Symbol: "SOLUSDT", Price: 99, Qty: 1}}

	code, out := call(t, h, `{"action":"get_open_orders","parameters":{"symbol":"solusdt"}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Len(t, out["orders"], 1)

	code, out = call(t, h, `{"action":"get_trade_history","parameters":{"symbol":"SOLUSDT","limit":5}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Len(t, out["history"], 1)

	code, out = call(t, h, `{"action":"get_lot_size_info","parameters":{"symbol":"SOLUSDT"}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "0.001", out["stepSize"])

	code, out = call(t, h, `{"action":"get_symbol_info","parameters":{"symbol":"SOLUSDT"}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, 0.01, out["tick_size"])

	code, out = call(t, h, `{"action":"get_technical_indicators","parameters":{"coin_symbol":"sol"}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "SOLUSDT", out["symbol"])

	code, _ = call(t, h, `{"action":"get_technical_indicators","parameters":{"coin_symbol":"eth"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestPlaceOrderGoesThroughValidation(t *testing.T) {
	h, fake := newTestRouter(t)

	code, out := call(t, h, `{"action":"place_order","parameters":{"symbol":"SOLUSDT","side":"buy","order_type":"LIMIT","quantity":"1.2345","price":95.123}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.NotNil(t, out["order"])
	require.Len(t, fake.Placed, 1)
	assert.InDelta(t, 1.234, fake.Placed[0].Quantity, 1e-9)
	assert.InDelta(t, 95.12, fake.Placed[0].Price, 1e-9)

	// 买价高于市价会立即成交，被本地拦截
	code, out = call(t, h, `{"action":"place_order","parameters":{"symbol":"SOLUSDT","side":"BUY","order_type":"LIMIT","quantity":1,"price":105}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.NotEmpty(t, out["error"])
	assert.Len(t, fake.Placed, 1)

	code, _ = call(t, h, `{"action":"place_order","parameters":{"symbol":"SOLUSDT","side":"BUY","order_type":"OCO","quantity":1,"price":120,"stop_price":90}}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = call(t, h, `{"action":"place_order","parameters":{"symbol":"SOLUSDT","side":"SELL","order_type":"OCO","quantity":5,"price":120,"stop_price":90}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.NotNil(t, out["oco"])
	require.Len(t, fake.Placed, 2)
	assert.Equal(t, 90.0, fake.Placed[1].StopLimitPrice)
}

func TestCancelOrder(t *testing.T) {
	h, fake := newTestRouter(t)

	code, out := call(t, h, `{"action":"cancel_order","parameters":{"symbol":"SOLUSDT","order_type":"oco","order_id":55}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, []int64{55}, fake.CanceledOCO)

	code, _ = call(t, h, `{"action":"cancel_order","parameters":{"symbol":"SOLUSDT","order_type":"order","order_id":"12"}}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []int64{12}, fake.Canceled)

	code, _ = call(t, h, `{"action":"cancel_order","parameters":{"symbol":"SOLUSDT","order_type":"all","order_id":1}}`)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = call(t, h, `{"action":"cancel_order","parameters":{"symbol":"SOLUSDT","order_type":"order","order_id":1.5}}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestExchangeErrorMapsToBadGateway(t *testing.T) {
	h, fake := newTestRouter(t)
	fake.Errs["account"] = &exchange.ExchangeAPIError{Op: "account", Code: -1022, Message: "Signature for this request is not valid.", Kind: exchange.KindGeneral}
	code, out := call(t, h, `{"action":"get_account_info","parameters":{}}`)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Contains(t, out["error"], "-1022")
}
