package exchange

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exchangeInfoBody = `{
  "timezone": "UTC",
  "serverTime": 1700000000000,
  "symbols": [{
    "symbol": "SOLUSDT",
    "status": "TRADING",
    "baseAsset": "SOL",
    "quoteAsset": "USDT",
    "filters": [
      {"filterType": "PRICE_FILTER", "minPrice": "0.01000000", "maxPrice": "10000.00000000", "tickSize": "0.01000000"},
      {"filterType": "LOT_SIZE", "minQty": "0.00100000", "maxQty": "9000000.00000000", "stepSize": "0.00100000"},
      {"filterType": "NOTIONAL", "minNotional": "5.00000000", "applyMinToMarket": true, "maxNotional": "9000000.00000000", "applyMaxToMarket": false, "avgPriceMins": 5},
      {"filterType": "PERCENT_PRICE_BY_SIDE", "bidMultiplierUp": "5", "bidMultiplierDown": "0.2", "askMultiplierUp": "5", "askMultiplierDown": "0.2", "avgPriceMins": 5}
    ]
  }]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *BinanceClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewBinanceClient(Options{APIKey: "k", APISecret: "s", BaseURL: srv.URL, Timeout: 5 * time.Second})
	c.newUUID = func() string { return "test-client-id" }
	return c
}

func TestAccountParsesBalancesAndSendsAPIKey(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/account", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-MBX-APIKEY"))
		assert.NotEmpty(t, r.URL.Query().Get("signature"))
		_, _ = w.Write([]byte(`{"canTrade":true,"balances":[{"asset":"SOL","free":"6.36800000","locked":"0.00000000"},{"asset":"USDT","free":"120.5","locked":"30"}]}`))
	})
	acct, err := c.Account(context.Background())
	require.NoError(t, err)
	require.Len(t, acct.Balances, 2)
	assert.InDelta(t, 6.368, acct.Balance("SOL").Free, 1e-12)
	assert.InDelta(t, 150.5, acct.Balance("usdt").Total(), 1e-12)
	assert.Equal(t, 0.0, acct.Balance("BTC").Total())
}

func TestAccountRejectsMalformedNumbers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balances":[{"asset":"SOL","free":"abc","locked":"0"}]}`))
	})
	_, err := c.Account(context.Background())
	var apiErr *ExchangeAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindMalformed, apiErr.Kind)
	assert.Zero(t, apiErr.Code)
}

func TestSymbolFiltersParsesAllFilters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/exchangeInfo", r.URL.Path)
		_, _ = w.Write([]byte(exchangeInfoBody))
	})
	f, err := c.SymbolFilters(context.Background(), "solusdt")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", f.Symbol)
	assert.Equal(t, "SOL", f.BaseAsset)
	assert.Equal(t, 0.001, f.StepSize)
	assert.Equal(t, 0.001, f.MinQty)
	assert.Equal(t, 0.01, f.TickSize)
	assert.Equal(t, 5.0, f.MinNotional)
	assert.Equal(t, 9000000.0, f.MaxNotional)
	assert.Equal(t, 0.2, f.Percent.AskDown)
}

func TestAPIErrorIsClassifiedAndPreserved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-2010,"msg":"Account has insufficient balance for requested action."}`))
	})
	_, err := c.PlaceOrder(context.Background(), OrderRequest{Symbol: "SOLUSDT", Side: SideBuy, Type: TypeLimit, Quantity: 1, Price: 100})
	var apiErr *ExchangeAPIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, int64(-2010), apiErr.Code)
	assert.Equal(t, KindInsufficientFunds, apiErr.Kind)
	assert.Contains(t, apiErr.Error(), "insufficient balance")
	assert.Contains(t, apiErr.Error(), "-2010")
	assert.Equal(t, "下单被拒绝，检查参数与账户状态", apiErr.Suggestion)
}

func TestPlaceLimitOrderSendsParameters(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v3/order", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "LIMIT", r.Form.Get("type"))
		assert.Equal(t, "GTC", r.Form.Get("timeInForce"))
		assert.Equal(t, "6.368", r.Form.Get("quantity"))
		assert.Equal(t, "185.5", r.Form.Get("price"))
		assert.Equal(t, "test-client-id", r.Form.Get("newClientOrderId"))
		_, _ = w.Write([]byte(`{"symbol":"SOLUSDT","orderId":42,"clientOrderId":"test-client-id","price":"185.50","origQty":"6.368","executedQty":"0","status":"NEW","type":"LIMIT","side":"SELL"}`))
	})
	res, err := c.PlaceOrder(context.Background(), OrderRequest{Symbol: "SOLUSDT", Side: SideSell, Type: TypeLimit, Quantity: 6.368, Price: 185.5})
	require.NoError(t, err)
	assert.Equal(t, int64(42), res.OrderID)
	assert.Equal(t, "NEW", res.Status)
	assert.Equal(t, 6.368, res.OrigQty)
}

func TestOpenOrdersConvertsOrderList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SOLUSDT", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`[
          {"symbol":"SOLUSDT","orderId":1,"orderListId":-1,"price":"200","origQty":"2","executedQty":"0.5","status":"PARTIALLY_FILLED","type":"LIMIT","side":"SELL","stopPrice":"0"},
          {"symbol":"SOLUSDT","orderId":2,"orderListId":7,"price":"150","origQty":"3","executedQty":"0","status":"NEW","type":"STOP_LOSS_LIMIT","side":"SELL","stopPrice":"151"}
        ]`))
	})
	orders, err := c.OpenOrders(context.Background(), "solusdt")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.False(t, orders[0].IsOCO())
	assert.Equal(t, 1.5, orders[0].Remaining())
	assert.True(t, orders[1].IsOCO())
	assert.Equal(t, 151.0, orders[1].TriggerPrice())
}

func TestTransportErrorIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.PlaceOrder(ctx, OrderRequest{Symbol: "SOLUSDT", Side: SideBuy, Type: TypeMarket, Quantity: 1})
	var apiErr *ExchangeAPIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, 1, calls)
}

// fixedFormatter 固定小数位，模拟按步长格式化
type fixedFormatter struct{ qty, price int }

func (f fixedFormatter) Quantity(_ string, v float64) (string, error) {
	return strconv.FormatFloat(v, 'f', f.qty, 64), nil
}

func (f fixedFormatter) Price(_ string, v float64) (string, error) {
	if v > 1e6 {
		return "", errors.New("价格超出范围")
	}
	return strconv.FormatFloat(v, 'f', f.price, 64), nil
}

func TestPlaceOCOUsesFormatter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/order/oco", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "6.300", r.Form.Get("quantity"))
		assert.Equal(t, "210.00", r.Form.Get("price"))
		assert.Equal(t, "170.50", r.Form.Get("stopPrice"))
		assert.Equal(t, "170.50", r.Form.Get("stopLimitPrice"))
		_, _ = w.Write([]byte(`{"orderListId":9,"listClientOrderId":"test-client-id","listStatusType":"EXEC_STARTED","symbol":"SOLUSDT","orders":[{"orderId":1},{"orderId":2}]}`))
	})
	c.format = fixedFormatter{qty: 3, price: 2}
	res, err := c.PlaceOCO(context.Background(), OrderRequest{Symbol: "SOLUSDT", Side: SideSell, Type: TypeOCO, Quantity: 6.3, Price: 210, StopPrice: 170.5})
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.OrderListID)
	assert.Equal(t, []int64{1, 2}, res.OrderIDs)
}

func TestFormatterErrorStopsSubmission(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	c.format = fixedFormatter{qty: 3, price: 2}
	_, err := c.PlaceOrder(context.Background(), OrderRequest{Symbol: "SOLUSDT", Side: SideBuy, Type: TypeLimit, Quantity: 1, Price: 2e6})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "格式化价格失败")
	assert.False(t, called)
}
