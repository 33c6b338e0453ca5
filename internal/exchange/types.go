package exchange

import (
	"strings"
)

// 现货交易所数据模型：在 API 边界完成字符串→数值转换与校验，下游只处理强类型。

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 大小写不敏感解析买卖方向
func ParseSide(s string) (Side, bool) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, true
	case SideSell:
		return SideSell, true
	}
	return "", false
}

type OrderType string

const (
	TypeMarket          OrderType = "MARKET"
	TypeLimit           OrderType = "LIMIT"
	TypeLimitMaker      OrderType = "LIMIT_MAKER"
	TypeStopLoss        OrderType = "STOP_LOSS"
	TypeStopLossLimit   OrderType = "STOP_LOSS_LIMIT"
	TypeTakeProfit      OrderType = "TAKE_PROFIT"
	TypeTakeProfitLimit OrderType = "TAKE_PROFIT_LIMIT"
	// TypeOCO 仅用于请求侧，交易所返回的是两条腿（LIMIT_MAKER + STOP_LOSS_LIMIT）
	TypeOCO OrderType = "OCO"
)

// ParseOrderType 支持 STOP_LIMIT 作为 STOP_LOSS_LIMIT 的别名
func ParseOrderType(s string) (OrderType, bool) {
	v := strings.ToUpper(strings.TrimSpace(s))
	v = strings.ReplaceAll(v, "-", "_")
	switch OrderType(v) {
	case TypeMarket, TypeLimit, TypeOCO, TypeStopLossLimit, TypeLimitMaker:
		return OrderType(v), true
	case "STOP_LIMIT":
		return TypeStopLossLimit, true
	}
	return "", false
}

// IsStop 触发类订单（使用 stopPrice 作为触发价）
func (t OrderType) IsStop() bool {
	switch t {
	case TypeStopLoss, TypeStopLossLimit, TypeTakeProfit, TypeTakeProfitLimit:
		return true
	}
	return false
}

type Balance struct {
	Asset  string  `json:"asset"`
	Free   float64 `json:"free"`
	Locked float64 `json:"locked"`
}

// Total 可用+冻结
func (b Balance) Total() float64 { return b.Free + b.Locked }

type Account struct {
	Balances []Balance `json:"balances"`
}

// Balance 返回指定资产余额；不存在时为零值
func (a Account) Balance(asset string) Balance {
	asset = strings.ToUpper(asset)
	for _, b := range a.Balances {
		if b.Asset == asset {
			return b
		}
	}
	return Balance{Asset: asset}
}

// NonZero 过滤掉可用与冻结都为 0 的资产
func (a Account) NonZero() []Balance {
	out := make([]Balance, 0, len(a.Balances))
	for _, b := range a.Balances {
		if b.Total() > 0 {
			out = append(out, b)
		}
	}
	return out
}

// Order 挂单快照
type Order struct {
	Symbol        string    `json:"symbol"`
	OrderID       int64     `json:"order_id"`
	OrderListID   int64     `json:"order_list_id"`
	ClientOrderID string    `json:"client_order_id"`
	Side          Side      `json:"side"`
	Type          OrderType `json:"type"`
	Status        string    `json:"status"`
	Price         float64   `json:"price"`
	StopPrice     float64   `json:"stop_price"`
	OrigQty       float64   `json:"orig_qty"`
	ExecutedQty   float64   `json:"executed_qty"`
	Time          int64     `json:"time"`
}

// Remaining 未成交数量
func (o Order) Remaining() float64 {
	r := o.OrigQty - o.ExecutedQty
	if r < 0 {
		return 0
	}
	return r
}

// IsOCO Binance 对非 OCO 订单返回 orderListId=-1
func (o Order) IsOCO() bool { return o.OrderListID != -1 }

// TriggerPrice 止损/止盈类订单取 stopPrice，其余取 price
func (o Order) TriggerPrice() float64 {
	if o.Type.IsStop() && o.StopPrice > 0 {
		return o.StopPrice
	}
	return o.Price
}

type Trade struct {
	ID              int64   `json:"id"`
	Symbol          string  `json:"symbol"`
	OrderID         int64   `json:"order_id"`
	Price           float64 `json:"price"`
	Qty             float64 `json:"qty"`
	QuoteQty        float64 `json:"quote_qty"`
	Commission      float64 `json:"commission"`
	CommissionAsset string  `json:"commission_asset"`
	Time            int64   `json:"time"`
	IsBuyer         bool    `json:"is_buyer"`
	IsMaker         bool    `json:"is_maker"`
}

type Kline struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// Closes 提取收盘价序列（时间升序）
func Closes(ks []Kline) []float64 {
	out := make([]float64, len(ks))
	for i, k := range ks {
		out[i] = k.Close
	}
	return out
}

// Lows 提取最低价序列
func Lows(ks []Kline) []float64 {
	out := make([]float64, len(ks))
	for i, k := range ks {
		out[i] = k.Low
	}
	return out
}

// PercentPrice PERCENT_PRICE_BY_SIDE 过滤器
type PercentPrice struct {
	BidUp   float64 `json:"bid_multiplier_up"`
	BidDown float64 `json:"bid_multiplier_down"`
	AskUp   float64 `json:"ask_multiplier_up"`
	AskDown float64 `json:"ask_multiplier_down"`
}

// DefaultPercentPrice 交易所未返回该过滤器时使用的宽松默认值
var DefaultPercentPrice = PercentPrice{BidUp: 5, BidDown: 0.2, AskUp: 5, AskDown: 0.2}

// SymbolFilters 交易对元数据（LOT_SIZE / PRICE_FILTER / NOTIONAL / PERCENT_PRICE_BY_SIDE）
type SymbolFilters struct {
	Symbol      string       `json:"symbol"`
	Status      string       `json:"status"`
	BaseAsset   string       `json:"base_asset"`
	QuoteAsset  string       `json:"quote_asset"`
	StepSize    float64      `json:"step_size"`
	MinQty      float64      `json:"min_qty"`
	MaxQty      float64      `json:"max_qty"`
	TickSize    float64      `json:"tick_size"`
	MinPrice    float64      `json:"min_price"`
	MaxPrice    float64      `json:"max_price"`
	MinNotional float64      `json:"min_notional"`
	MaxNotional float64      `json:"max_notional"`
	Percent     PercentPrice `json:"percent_price"`
}

// OrderRequest 由调用方构造，校验只产生修正后的副本
type OrderRequest struct {
	Symbol         string    `json:"symbol"`
	Side           Side      `json:"side"`
	Type           OrderType `json:"type"`
	Quantity       float64   `json:"quantity"`
	Price          float64   `json:"price,omitempty"`
	StopPrice      float64   `json:"stop_price,omitempty"`
	StopLimitPrice float64   `json:"stop_limit_price,omitempty"`
}

// Notional 以 price 计算名义价值；市价单由调用方传入市场价
func (r OrderRequest) Notional(price float64) float64 {
	if r.Price > 0 {
		price = r.Price
	}
	return r.Quantity * price
}

type OrderResult struct {
	Symbol        string  `json:"symbol"`
	OrderID       int64   `json:"order_id"`
	ClientOrderID string  `json:"client_order_id"`
	Status        string  `json:"status"`
	Type          string  `json:"type"`
	Side          string  `json:"side"`
	Price         float64 `json:"price"`
	OrigQty       float64 `json:"orig_qty"`
	ExecutedQty   float64 `json:"executed_qty"`
}

type OCOResult struct {
	Symbol            string  `json:"symbol"`
	OrderListID       int64   `json:"order_list_id"`
	ListClientOrderID string  `json:"list_client_order_id"`
	ListStatus        string  `json:"list_status"`
	OrderIDs          []int64 `json:"order_ids"`
}

// BaseOf 从交易对中剥离计价资产（BTCUSDT → BTC）
func BaseOf(symbol, quote string) string {
	symbol = strings.ToUpper(symbol)
	return strings.TrimSuffix(symbol, strings.ToUpper(quote))
}
