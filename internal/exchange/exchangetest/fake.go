// Package exchangetest 提供内存版交易所，用于上层组件测试。
package exchangetest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"spotpilot/internal/exchange"
)

type Fake struct {
	mu sync.Mutex

	AccountData exchange.Account
	Orders      []exchange.Order
	TradeData   map[string][]exchange.Trade
	Filters     map[string]exchange.SymbolFilters
	KlineData   map[string][]exchange.Kline
	PriceData   map[string]float64
	// Errs 按操作名注入错误，如 "account"、"order"
	Errs map[string]error

	Placed      []exchange.OrderRequest
	Canceled    []int64
	CanceledOCO []int64
	Calls       []string
	nextID      int64
}

var _ exchange.Client = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		TradeData: map[string][]exchange.Trade{},
		Filters:   map[string]exchange.SymbolFilters{},
		KlineData: map[string][]exchange.Kline{},
		PriceData: map[string]float64{},
		Errs:      map[string]error{},
		nextID:    1000,
	}
}

func (f *Fake) call(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op)
	return f.Errs[op]
}

// CallCount 统计某操作被调用次数
func (f *Fake) CallCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *Fake) Account(ctx context.Context) (exchange.Account, error) {
	if err := f.call("account"); err != nil {
		return exchange.Account{}, err
	}
	return f.AccountData, nil
}

func (f *Fake) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	if err := f.call("openOrders"); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)
	out := make([]exchange.Order, 0, len(f.Orders))
	for _, o := range f.Orders {
		if symbol == "" || o.Symbol == symbol {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *Fake) Trades(ctx context.Context, symbol string, limit int) ([]exchange.Trade, error) {
	if err := f.call("myTrades"); err != nil {
		return nil, err
	}
	ts := f.TradeData[strings.ToUpper(symbol)]
	if limit > 0 && len(ts) > limit {
		ts = ts[len(ts)-limit:]
	}
	return ts, nil
}

func (f *Fake) SymbolFilters(ctx context.Context, symbol string) (exchange.SymbolFilters, error) {
	if err := f.call("exchangeInfo"); err != nil {
		return exchange.SymbolFilters{}, err
	}
	sf, ok := f.Filters[strings.ToUpper(symbol)]
	if !ok {
		return exchange.SymbolFilters{}, &exchange.ExchangeAPIError{Op: "exchangeInfo", Code: -1121, Message: "Invalid symbol.", Kind: exchange.KindInvalidSymbol}
	}
	return sf, nil
}

func (f *Fake) Klines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Kline, error) {
	if err := f.call("klines"); err != nil {
		return nil, err
	}
	ks := f.KlineData[strings.ToUpper(symbol)]
	if limit > 0 && len(ks) > limit {
		ks = ks[len(ks)-limit:]
	}
	return ks, nil
}

func (f *Fake) Price(ctx context.Context, symbol string) (float64, error) {
	if err := f.call("price"); err != nil {
		return 0, err
	}
	p, ok := f.PriceData[strings.ToUpper(symbol)]
	if !ok {
		return 0, &exchange.ExchangeAPIError{Op: "ticker/price", Code: -1121, Message: "Invalid symbol.", Kind: exchange.KindInvalidSymbol}
	}
	return p, nil
}

func (f *Fake) Prices(ctx context.Context) (map[string]float64, error) {
	if err := f.call("prices"); err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(f.PriceData))
	for k, v := range f.PriceData {
		out[k] = v
	}
	return out, nil
}

func (f *Fake) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	if err := f.call("order"); err != nil {
		return exchange.OrderResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Placed = append(f.Placed, req)
	f.nextID++
	status := "NEW"
	if req.Type == exchange.TypeMarket {
		status = "FILLED"
	}
	return exchange.OrderResult{
		Symbol:        req.Symbol,
		OrderID:       f.nextID,
		ClientOrderID: fmt.Sprintf("fake-%d", f.nextID),
		Status:        status,
		Type:          string(req.Type),
		Side:          string(req.Side),
		Price:         req.Price,
		OrigQty:       req.Quantity,
	}, nil
}

func (f *Fake) PlaceOCO(ctx context.Context, req exchange.OrderRequest) (exchange.OCOResult, error) {
	if err := f.call("order/oco"); err != nil {
		return exchange.OCOResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Placed = append(f.Placed, req)
	f.nextID += 3
	return exchange.OCOResult{
		Symbol:      req.Symbol,
		OrderListID: f.nextID,
		ListStatus:  "EXEC_STARTED",
		OrderIDs:    []int64{f.nextID - 2, f.nextID - 1},
	}, nil
}

func (f *Fake) CancelOrder(ctx context.Context, symbol string, orderID int64) (exchange.OrderResult, error) {
	if err := f.call("cancel order"); err != nil {
		return exchange.OrderResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Canceled = append(f.Canceled, orderID)
	return exchange.OrderResult{Symbol: symbol, OrderID: orderID, Status: "CANCELED"}, nil
}

func (f *Fake) CancelOCO(ctx context.Context, symbol string, orderListID int64) (exchange.OCOResult, error) {
	if err := f.call("cancel orderList"); err != nil {
		return exchange.OCOResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CanceledOCO = append(f.CanceledOCO, orderListID)
	return exchange.OCOResult{Symbol: symbol, OrderListID: orderListID, ListStatus: "ALL_DONE"}, nil
}
