package exchange

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/google/uuid"
)

// Client 现货 REST 能力集合；每个方法为一次顺序调用，不做自动重试。
type Client interface {
	Account(ctx context.Context) (Account, error)
	OpenOrders(ctx context.Context, symbol string) ([]Order, error)
	Trades(ctx context.Context, symbol string, limit int) ([]Trade, error)
	SymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error)
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error)
	Price(ctx context.Context, symbol string) (float64, error)
	Prices(ctx context.Context) (map[string]float64, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	PlaceOCO(ctx context.Context, req OrderRequest) (OCOResult, error)
	CancelOrder(ctx context.Context, symbol string, orderID int64) (OrderResult, error)
	CancelOCO(ctx context.Context, symbol string, orderListID int64) (OCOResult, error)
}

// NumberFormatter 按交易对步长/最小变动价位输出下单用的数量与价格字符串
type NumberFormatter interface {
	Quantity(symbol string, qty float64) (string, error)
	Price(symbol string, price float64) (string, error)
}

// Options 构造参数；Formatter 为空时按 float 原样输出
type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
	Formatter NumberFormatter
}

// BinanceClient 基于 go-binance 的实现（签名、X-MBX-APIKEY 头由库处理）
type BinanceClient struct {
	api     *binance.Client
	format  NumberFormatter
	newUUID func() string
}

var _ Client = (*BinanceClient)(nil)

func NewBinanceClient(opts Options) *BinanceClient {
	api := binance.NewClient(opts.APIKey, opts.APISecret)
	if strings.TrimSpace(opts.BaseURL) != "" {
		api.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	api.HTTPClient = &http.Client{Timeout: timeout}
	return &BinanceClient{api: api, format: opts.Formatter, newUUID: func() string { return uuid.NewString() }}
}

// 解析交易所返回的数值字符串；空串视为 0
func num(op, field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, malformed(op, field, raw)
	}
	return v, nil
}

// 未配置 Formatter 时的输出，避免科学计数法
func str(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// orderTexts 格式化数量与各价格；价格为 0 时留空
func (c *BinanceClient) orderTexts(op, symbol string, qty float64, prices ...float64) (string, []string, error) {
	out := make([]string, len(prices))
	if c.format == nil {
		for i, p := range prices {
			out[i] = str(p)
		}
		return str(qty), out, nil
	}
	q, err := c.format.Quantity(symbol, qty)
	if err != nil {
		return "", nil, fmt.Errorf("%s: 格式化数量失败: %w", op, err)
	}
	for i, p := range prices {
		if p <= 0 {
			continue
		}
		if out[i], err = c.format.Price(symbol, p); err != nil {
			return "", nil, fmt.Errorf("%s: 格式化价格失败: %w", op, err)
		}
	}
	return q, out, nil
}

func (c *BinanceClient) Account(ctx context.Context) (Account, error) {
	const op = "account"
	res, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return Account{}, wrapErr(op, err)
	}
	out := Account{Balances: make([]Balance, 0, len(res.Balances))}
	for _, b := range res.Balances {
		free, err := num(op, "free", b.Free)
		if err != nil {
			return Account{}, err
		}
		locked, err := num(op, "locked", b.Locked)
		if err != nil {
			return Account{}, err
		}
		out.Balances = append(out.Balances, Balance{Asset: b.Asset, Free: free, Locked: locked})
	}
	return out, nil
}

func convertOrder(op string, o *binance.Order) (Order, error) {
	price, err := num(op, "price", o.Price)
	if err != nil {
		return Order{}, err
	}
	stop, err := num(op, "stopPrice", o.StopPrice)
	if err != nil {
		return Order{}, err
	}
	orig, err := num(op, "origQty", o.OrigQuantity)
	if err != nil {
		return Order{}, err
	}
	exec, err := num(op, "executedQty", o.ExecutedQuantity)
	if err != nil {
		return Order{}, err
	}
	return Order{
		Symbol:        o.Symbol,
		OrderID:       o.OrderID,
		OrderListID:   o.OrderListId,
		ClientOrderID: o.ClientOrderID,
		Side:          Side(o.Side),
		Type:          OrderType(o.Type),
		Status:        string(o.Status),
		Price:         price,
		StopPrice:     stop,
		OrigQty:       orig,
		ExecutedQty:   exec,
		Time:          o.Time,
	}, nil
}

func (c *BinanceClient) OpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	const op = "openOrders"
	svc := c.api.NewListOpenOrdersService()
	if s := strings.ToUpper(strings.TrimSpace(symbol)); s != "" {
		svc = svc.Symbol(s)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	out := make([]Order, 0, len(res))
	for _, o := range res {
		conv, err := convertOrder(op, o)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

func (c *BinanceClient) Trades(ctx context.Context, symbol string, limit int) ([]Trade, error) {
	const op = "myTrades"
	if limit <= 0 || limit > 1000 {
		limit = 500
	}
	res, err := c.api.NewListTradesService().Symbol(strings.ToUpper(symbol)).Limit(limit).Do(ctx)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	out := make([]Trade, 0, len(res))
	for _, t := range res {
		price, err := num(op, "price", t.Price)
		if err != nil {
			return nil, err
		}
		qty, err := num(op, "qty", t.Quantity)
		if err != nil {
			return nil, err
		}
		quote, err := num(op, "quoteQty", t.QuoteQuantity)
		if err != nil {
			return nil, err
		}
		fee, err := num(op, "commission", t.Commission)
		if err != nil {
			return nil, err
		}
		out = append(out, Trade{
			ID:              t.ID,
			Symbol:          t.Symbol,
			OrderID:         t.OrderID,
			Price:           price,
			Qty:             qty,
			QuoteQty:        quote,
			Commission:      fee,
			CommissionAsset: t.CommissionAsset,
			Time:            t.Time,
			IsBuyer:         t.IsBuyer,
			IsMaker:         t.IsMaker,
		})
	}
	return out, nil
}

func (c *BinanceClient) SymbolFilters(ctx context.Context, symbol string) (SymbolFilters, error) {
	const op = "exchangeInfo"
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	res, err := c.api.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil {
		return SymbolFilters{}, wrapErr(op, err)
	}
	for _, s := range res.Symbols {
		if s.Symbol != symbol {
			continue
		}
		return parseSymbolFilters(op, s.Symbol, s.Status, s.BaseAsset, s.QuoteAsset, s.Filters)
	}
	return SymbolFilters{}, &ExchangeAPIError{Op: op, Code: -1121, Message: "交易对不存在: " + symbol, Kind: KindInvalidSymbol, Suggestion: suggestions[-1121]}
}

func (c *BinanceClient) Klines(ctx context.Context, symbol, interval string, limit int) ([]Kline, error) {
	const op = "klines"
	if limit <= 0 {
		limit = 100
	}
	res, err := c.api.NewKlinesService().Symbol(strings.ToUpper(symbol)).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	out := make([]Kline, 0, len(res))
	for _, k := range res {
		var vals [5]float64
		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := num(op, "kline", raw)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		out = append(out, Kline{
			OpenTime:  k.OpenTime,
			CloseTime: k.CloseTime,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		})
	}
	return out, nil
}

func (c *BinanceClient) Price(ctx context.Context, symbol string) (float64, error) {
	const op = "ticker/price"
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	res, err := c.api.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, wrapErr(op, err)
	}
	for _, p := range res {
		if p.Symbol == symbol {
			v, err := num(op, "price", p.Price)
			if err != nil {
				return 0, err
			}
			if v <= 0 {
				return 0, malformed(op, "price", p.Price)
			}
			return v, nil
		}
	}
	return 0, &ExchangeAPIError{Op: op, Code: -1121, Message: "无报价: " + symbol, Kind: KindInvalidSymbol, Suggestion: suggestions[-1121]}
}

func (c *BinanceClient) Prices(ctx context.Context) (map[string]float64, error) {
	const op = "ticker/price"
	res, err := c.api.NewListPricesService().Do(ctx)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	out := make(map[string]float64, len(res))
	for _, p := range res {
		v, err := num(op, "price", p.Price)
		if err != nil {
			return nil, err
		}
		out[p.Symbol] = v
	}
	return out, nil
}

func (c *BinanceClient) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	const op = "order"
	symbol := strings.ToUpper(req.Symbol)
	qty, px, err := c.orderTexts(op, symbol, req.Quantity, req.Price, req.StopPrice)
	if err != nil {
		return OrderResult{}, err
	}
	svc := c.api.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(req.Side)).
		Quantity(qty).
		NewClientOrderID(c.newUUID())
	switch req.Type {
	case TypeMarket:
		svc = svc.Type(binance.OrderTypeMarket)
	case TypeLimit:
		svc = svc.Type(binance.OrderTypeLimit).TimeInForce(binance.TimeInForceTypeGTC).Price(px[0])
	case TypeStopLossLimit:
		svc = svc.Type(binance.OrderTypeStopLossLimit).TimeInForce(binance.TimeInForceTypeGTC).
			Price(px[0]).StopPrice(px[1])
	default:
		return OrderResult{}, &ExchangeAPIError{Op: op, Code: -1014, Message: "不支持的订单类型: " + string(req.Type), Kind: KindInvalidSymbol}
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return OrderResult{}, wrapErr(op, err)
	}
	price, err := num(op, "price", res.Price)
	if err != nil {
		return OrderResult{}, err
	}
	orig, err := num(op, "origQty", res.OrigQuantity)
	if err != nil {
		return OrderResult{}, err
	}
	exec, err := num(op, "executedQty", res.ExecutedQuantity)
	if err != nil {
		return OrderResult{}, err
	}
	return OrderResult{
		Symbol:        res.Symbol,
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Status:        string(res.Status),
		Type:          string(res.Type),
		Side:          string(res.Side),
		Price:         price,
		OrigQty:       orig,
		ExecutedQty:   exec,
	}, nil
}

func (c *BinanceClient) PlaceOCO(ctx context.Context, req OrderRequest) (OCOResult, error) {
	const op = "order/oco"
	stopLimit := req.StopLimitPrice
	if stopLimit <= 0 {
		stopLimit = req.StopPrice
	}
	symbol := strings.ToUpper(req.Symbol)
	qty, px, err := c.orderTexts(op, symbol, req.Quantity, req.Price, req.StopPrice, stopLimit)
	if err != nil {
		return OCOResult{}, err
	}
	res, err := c.api.NewCreateOCOService().
		Symbol(symbol).
		Side(binance.SideType(req.Side)).
		Quantity(qty).
		Price(px[0]).
		StopPrice(px[1]).
		StopLimitPrice(px[2]).
		StopLimitTimeInForce(binance.TimeInForceTypeGTC).
		ListClientOrderID(c.newUUID()).
		Do(ctx)
	if err != nil {
		return OCOResult{}, wrapErr(op, err)
	}
	out := OCOResult{
		Symbol:            res.Symbol,
		OrderListID:       res.OrderListID,
		ListClientOrderID: res.ListClientOrderID,
		ListStatus:        res.ListStatusType,
	}
	for _, o := range res.Orders {
		out.OrderIDs = append(out.OrderIDs, o.OrderID)
	}
	return out, nil
}

func (c *BinanceClient) CancelOrder(ctx context.Context, symbol string, orderID int64) (OrderResult, error) {
	const op = "cancel order"
	res, err := c.api.NewCancelOrderService().Symbol(strings.ToUpper(symbol)).OrderID(orderID).Do(ctx)
	if err != nil {
		return OrderResult{}, wrapErr(op, err)
	}
	return OrderResult{
		Symbol:        res.Symbol,
		OrderID:       res.OrderID,
		ClientOrderID: res.ClientOrderID,
		Status:        string(res.Status),
		Type:          string(res.Type),
		Side:          string(res.Side),
	}, nil
}

func (c *BinanceClient) CancelOCO(ctx context.Context, symbol string, orderListID int64) (OCOResult, error) {
	const op = "cancel orderList"
	res, err := c.api.NewCancelOCOService().Symbol(strings.ToUpper(symbol)).OrderListID(orderListID).Do(ctx)
	if err != nil {
		return OCOResult{}, wrapErr(op, err)
	}
	out := OCOResult{
		Symbol:            res.Symbol,
		OrderListID:       res.OrderListID,
		ListClientOrderID: res.ListClientOrderID,
		ListStatus:        res.ListStatusType,
	}
	for _, o := range res.Orders {
		out.OrderIDs = append(out.OrderIDs, o.OrderID)
	}
	return out, nil
}
