package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spotpilot/internal/balance"
	"spotpilot/internal/exchange"
	"spotpilot/internal/logger"
	"spotpilot/internal/store"
	"spotpilot/internal/validator"
)

// Placement 下单结果；OCO 时 OCO 非空
type Placement struct {
	Report validator.Report      `json:"report"`
	Order  *exchange.OrderResult `json:"order,omitempty"`
	OCO    *exchange.OCOResult   `json:"oco,omitempty"`
}

func (a *App) record(ctx context.Context, rec store.OrderRecord) {
	if a.journal == nil {
		return
	}
	if _, err := a.journal.RecordOrder(ctx, rec); err != nil {
		logger.Warnf("写入下单日志失败: %v", err)
	}
}

func recordOf(action string, req exchange.OrderRequest, market float64) store.OrderRecord {
	return store.OrderRecord{
		Action:      action,
		Symbol:      req.Symbol,
		Side:        string(req.Side),
		OrderType:   string(req.Type),
		Quantity:    req.Quantity,
		Price:       req.Price,
		StopPrice:   req.StopPrice,
		MarketPrice: market,
	}
}

// gate 拉取规则与行情，做本地校验与余额检查；失败时记录被拦截的请求
func (a *App) gate(ctx context.Context, req exchange.OrderRequest, allowImmediate bool) (exchange.OrderRequest, validator.Report, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	f, err := a.filters.SymbolFilters(ctx, req.Symbol)
	if err != nil {
		return req, validator.Report{Request: req}, err
	}
	a.formatter.Remember(f)
	market, err := a.client.Price(ctx, req.Symbol)
	if err != nil {
		return req, validator.Report{Request: req}, err
	}
	adj, rep, err := validator.Gate(req, f, market, allowImmediate)
	if err == nil {
		var sheet balance.Sheet
		if sheet, err = a.Balances(ctx); err == nil {
			err = balance.Check(adj, market, sheet, a.quote)
		}
	}
	if err != nil {
		var ebe *exchange.ExchangeAPIError
		if !errors.As(err, &ebe) {
			rec := recordOf("rejected", req, market)
			rec.Status, rec.Error = "REJECTED", err.Error()
			a.record(ctx, rec)
		}
		return adj, rep, err
	}
	return adj, rep, nil
}

func (a *App) place(ctx context.Context, req exchange.OrderRequest, allowImmediate bool) (Placement, error) {
	adj, rep, err := a.gate(ctx, req, allowImmediate)
	out := Placement{Report: rep}
	if err != nil {
		return out, err
	}
	rec := recordOf("place", adj, rep.MarketPrice)
	res, err := a.client.PlaceOrder(ctx, adj)
	if err != nil {
		rec.Status, rec.Error = "ERROR", err.Error()
		a.record(ctx, rec)
		return out, err
	}
	rec.Status, rec.ExchangeOrderID, rec.ClientOrderID = res.Status, res.OrderID, res.ClientOrderID
	a.record(ctx, rec)
	logger.Infof("已下单 %s %s %s 数量 %v 订单 %d", adj.Symbol, adj.Side, adj.Type, adj.Quantity, res.OrderID)
	out.Order = &res
	return out, nil
}

func (a *App) PlaceMarket(ctx context.Context, symbol string, side exchange.Side, qty float64) (Placement, error) {
	return a.place(ctx, exchange.OrderRequest{Symbol: symbol, Side: side, Type: exchange.TypeMarket, Quantity: qty}, true)
}

// PlaceLimit allowImmediate 允许主动吃单
func (a *App) PlaceLimit(ctx context.Context, symbol string, side exchange.Side, qty, price float64, allowImmediate bool) (Placement, error) {
	return a.place(ctx, exchange.OrderRequest{Symbol: symbol, Side: side, Type: exchange.TypeLimit, Quantity: qty, Price: price}, allowImmediate)
}

func (a *App) PlaceStopLimit(ctx context.Context, symbol string, side exchange.Side, qty, price, stop float64) (Placement, error) {
	return a.place(ctx, exchange.OrderRequest{Symbol: symbol, Side: side, Type: exchange.TypeStopLossLimit, Quantity: qty, Price: price, StopPrice: stop}, false)
}

// PlaceOCO 总是卖出：price 为止盈价，stop 为止损触发价，stopLimit<=0 时等于 stop
func (a *App) PlaceOCO(ctx context.Context, symbol string, qty, price, stop, stopLimit float64) (Placement, error) {
	if stopLimit <= 0 {
		stopLimit = stop
	}
	req := exchange.OrderRequest{Symbol: symbol, Side: exchange.SideSell, Type: exchange.TypeOCO, Quantity: qty, Price: price, StopPrice: stop, StopLimitPrice: stopLimit}
	adj, rep, err := a.gate(ctx, req, false)
	out := Placement{Report: rep}
	if err != nil {
		return out, err
	}
	rec := recordOf("place", adj, rep.MarketPrice)
	res, err := a.client.PlaceOCO(ctx, adj)
	if err != nil {
		rec.Status, rec.Error = "ERROR", err.Error()
		a.record(ctx, rec)
		return out, err
	}
	rec.Status, rec.ExchangeOrderID, rec.ClientOrderID = res.ListStatus, res.OrderListID, res.ListClientOrderID
	a.record(ctx, rec)
	logger.Infof("已提交 OCO %s 数量 %v 列表 %d", adj.Symbol, adj.Quantity, res.OrderListID)
	out.OCO = &res
	return out, nil
}

func (a *App) CancelOrder(ctx context.Context, symbol string, orderID int64) (exchange.OrderResult, error) {
	symbol = strings.ToUpper(symbol)
	rec := store.OrderRecord{Action: "cancel", Symbol: symbol, ExchangeOrderID: orderID}
	res, err := a.client.CancelOrder(ctx, symbol, orderID)
	if err != nil {
		rec.Status, rec.Error = "ERROR", err.Error()
		a.record(ctx, rec)
		return res, err
	}
	rec.Status = res.Status
	a.record(ctx, rec)
	return res, nil
}

func (a *App) CancelOCO(ctx context.Context, symbol string, listID int64) (exchange.OCOResult, error) {
	symbol = strings.ToUpper(symbol)
	rec := store.OrderRecord{Action: "cancel_oco", Symbol: symbol, ExchangeOrderID: listID}
	res, err := a.client.CancelOCO(ctx, symbol, listID)
	if err != nil {
		rec.Status, rec.Error = "ERROR", err.Error()
		a.record(ctx, rec)
		return res, err
	}
	rec.Status = res.ListStatus
	a.record(ctx, rec)
	return res, nil
}

// Simulate 只做本地校验（order-simulation），不下单也不记日志
func (a *App) Simulate(ctx context.Context, req exchange.OrderRequest) (validator.Report, error) {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	f, err := a.filters.SymbolFilters(ctx, req.Symbol)
	if err != nil {
		return validator.Report{}, err
	}
	market, err := a.client.Price(ctx, req.Symbol)
	if err != nil {
		return validator.Report{}, err
	}
	if req.Type == exchange.TypeOCO && req.StopLimitPrice <= 0 {
		req.StopLimitPrice = req.StopPrice
	}
	return validator.Validate(req, f, market), nil
}

// Journal 本地下单日志
func (a *App) Journal(ctx context.Context, symbol string, limit int) ([]store.OrderRecord, error) {
	if a.journal == nil {
		return nil, fmt.Errorf("下单日志未启用（journal.enabled=false）")
	}
	return a.journal.ListOrders(ctx, symbol, limit)
}
