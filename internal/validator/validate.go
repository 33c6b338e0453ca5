package validator

import (
	"errors"
	"fmt"

	"spotpilot/internal/exchange"
	"spotpilot/internal/pkg/format"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityError    Severity = "ERROR"
	SeverityWarning  Severity = "WARNING"
)

type Issue struct {
	Severity Severity `json:"severity"`
	Check    string   `json:"check"`
	Message  string   `json:"message"`
	Err      error    `json:"-"`
}

// Report 单笔订单的完整校验结果
type Report struct {
	Request     exchange.OrderRequest `json:"request"`
	Adjusted    exchange.OrderRequest `json:"adjusted"`
	MarketPrice float64               `json:"market_price"`
	Notional    float64               `json:"notional"`
	Simulation  *Simulation           `json:"simulation,omitempty"`
	Issues      []Issue               `json:"issues"`
}

func (r *Report) add(sev Severity, check string, err error) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Check: check, Message: err.Error(), Err: err})
}

func (r *Report) warn(check, tmpl string, args ...any) {
	r.Issues = append(r.Issues, Issue{Severity: SeverityWarning, Check: check, Message: fmt.Sprintf(tmpl, args...)})
}

// Valid 无 CRITICAL/ERROR 即有效
func (r Report) Valid() bool { return r.Err() == nil }

// Count 统计某级别问题数
func (r Report) Count(sev Severity) int {
	n := 0
	for _, is := range r.Issues {
		if is.Severity == sev {
			n++
		}
	}
	return n
}

// Err 返回首个阻断性错误（CRITICAL 优先）
func (r Report) Err() error {
	for _, is := range r.Issues {
		if is.Severity == SeverityCritical {
			return is.Err
		}
	}
	for _, is := range r.Issues {
		if is.Severity == SeverityError {
			return is.Err
		}
	}
	return nil
}

// Validate 按 LOT_SIZE / PRICE_FILTER / PERCENT_PRICE_BY_SIDE / NOTIONAL / OCO 关系 / 立即成交 逐项检查
func Validate(req exchange.OrderRequest, f exchange.SymbolFilters, marketPrice float64) Report {
	rep := Report{Request: req, Adjusted: req, MarketPrice: marketPrice}
	if req.Side != exchange.SideBuy && req.Side != exchange.SideSell {
		rep.add(SeverityError, "SIDE", &FilterError{Filter: "SIDE", Message: "方向必须为 BUY 或 SELL"})
		return rep
	}
	if marketPrice <= 0 {
		rep.add(SeverityError, "MARKET_PRICE", &PrecisionError{Field: "market_price", Value: marketPrice, Step: 1})
		return rep
	}

	// LOT_SIZE
	qty, err := AdjustQuantity(req.Quantity, f)
	if err != nil {
		rep.add(SeverityError, "LOT_SIZE", err)
		return rep
	}
	rep.Adjusted.Quantity = qty
	if f.MaxQty > 0 && qty > f.MaxQty {
		rep.add(SeverityError, "LOT_SIZE", &FilterError{Filter: "LOT_SIZE",
			Message: fmt.Sprintf("数量 %s 超过上限 %s", format.Float(qty, 8), format.Float(f.MaxQty, 8))})
	}
	if qty != req.Quantity {
		rep.warn("LOT_SIZE", "数量按步长 %s 修正: %s → %s", format.Float(f.StepSize, 8), format.Float(req.Quantity, 8), format.Float(qty, 8))
	}

	notionalPrice := marketPrice
	if req.Type != exchange.TypeMarket {
		adj, err := adjust(req, f)
		if err != nil {
			rep.add(SeverityError, "PRICE_FILTER", err)
			return rep
		}
		rep.Adjusted = adj
		checkPrice(&rep, "price", req.Price, adj.Price, f)
		if req.Type == exchange.TypeStopLossLimit || req.Type == exchange.TypeOCO {
			checkPrice(&rep, "stop_price", req.StopPrice, adj.StopPrice, f)
		}
		checkPercentPrice(&rep, adj.Price, marketPrice, f)
		notionalPrice = adj.Price
		if req.Type == exchange.TypeOCO {
			checkOCO(&rep, adj)
			// 止损腿名义价值更低，按较低一侧检查
			leg := adj.StopLimitPrice
			if leg <= 0 {
				leg = adj.StopPrice
			}
			if leg > 0 && leg < notionalPrice {
				notionalPrice = leg
			}
		}
	}

	// NOTIONAL
	rep.Notional = rep.Adjusted.Quantity * notionalPrice
	if err := ValidateNotional(rep.Adjusted.Quantity, notionalPrice, f.MinNotional); err != nil {
		var ne *NotionalError
		if errors.As(err, &ne) {
			ne.Max = f.MaxNotional
		}
		rep.add(SeverityError, "NOTIONAL", err)
	} else if f.MaxNotional > 0 && rep.Notional > f.MaxNotional {
		rep.add(SeverityError, "NOTIONAL", &NotionalError{Notional: rep.Notional, Min: f.MinNotional, Max: f.MaxNotional})
	}

	// 立即成交
	sim := Simulation{Quantity: rep.Adjusted.Quantity, Price: rep.Adjusted.Price, StopPrice: rep.Adjusted.StopPrice, Outcome: RestsOnBook}
	fill, reason := crosses(rep.Adjusted, marketPrice)
	sim.Reason = reason
	if fill {
		sim.Outcome = WouldFillImmediately
		if req.Type != exchange.TypeMarket {
			rep.add(SeverityCritical, "IMMEDIATE_FILL", &ImmediateFillError{Symbol: req.Symbol, Reason: reason})
		}
	}
	rep.Simulation = &sim
	return rep
}

func checkPrice(rep *Report, field string, raw, adj float64, f exchange.SymbolFilters) {
	if f.MinPrice > 0 && adj < f.MinPrice {
		rep.add(SeverityError, "PRICE_FILTER", &FilterError{Filter: "PRICE_FILTER",
			Message: fmt.Sprintf("%s %s 低于最小价格 %s", field, format.Float(adj, 8), format.Float(f.MinPrice, 8))})
	}
	if f.MaxPrice > 0 && adj > f.MaxPrice {
		rep.add(SeverityError, "PRICE_FILTER", &FilterError{Filter: "PRICE_FILTER",
			Message: fmt.Sprintf("%s %s 超过最大价格 %s", field, format.Float(adj, 8), format.Float(f.MaxPrice, 8))})
	}
	if f.TickSize > 0 && !IsMultiple(raw, f.TickSize) {
		rep.warn("PRICE_FILTER", "%s 按 tick %s 修正: %s → %s", field, format.Float(f.TickSize, 8), format.Float(raw, 8), format.Float(adj, 8))
	}
}

func checkPercentPrice(rep *Report, price, market float64, f exchange.SymbolFilters) {
	pp := f.Percent
	if pp.BidUp <= 0 || pp.AskUp <= 0 {
		pp = exchange.DefaultPercentPrice
	}
	up, down := pp.AskUp, pp.AskDown
	if rep.Request.Side == exchange.SideBuy {
		up, down = pp.BidUp, pp.BidDown
	}
	hi, lo := market*up, market*down
	if price > hi || price < lo {
		rep.add(SeverityError, "PERCENT_PRICE_BY_SIDE", &FilterError{Filter: "PERCENT_PRICE_BY_SIDE",
			Message: fmt.Sprintf("价格 %s 超出允许区间 [%s, %s]", format.Float(price, 8), format.Float(lo, 8), format.Float(hi, 8))})
	}
}

func checkOCO(rep *Report, adj exchange.OrderRequest) {
	if adj.Side == exchange.SideSell && adj.Price <= adj.StopPrice {
		rep.add(SeverityError, "OCO", &FilterError{Filter: "OCO",
			Message: fmt.Sprintf("卖出 OCO 需满足 止盈价 %s > 止损价 %s", format.Float(adj.Price, 8), format.Float(adj.StopPrice, 8))})
	}
	if adj.Side == exchange.SideBuy && adj.Price >= adj.StopPrice {
		rep.add(SeverityError, "OCO", &FilterError{Filter: "OCO",
			Message: fmt.Sprintf("买入 OCO 需满足 限价 %s < 触发价 %s", format.Float(adj.Price, 8), format.Float(adj.StopPrice, 8))})
	}
	if adj.StopLimitPrice > 0 && adj.Side == exchange.SideSell && adj.StopLimitPrice > adj.StopPrice {
		rep.warn("OCO", "止损限价 %s 高于触发价 %s，触发后可能无法成交", format.Float(adj.StopLimitPrice, 8), format.Float(adj.StopPrice, 8))
	}
}

// Gate 在任何下单调用前执行；返回修正后的请求或首个阻断错误。
// allowImmediate 仅放行 LIMIT 的主动吃单，保护型订单（OCO/止损）始终拦截。
func Gate(req exchange.OrderRequest, f exchange.SymbolFilters, marketPrice float64, allowImmediate bool) (exchange.OrderRequest, Report, error) {
	rep := Validate(req, f, marketPrice)
	if allowImmediate && req.Type == exchange.TypeLimit {
		kept := rep.Issues[:0]
		for _, is := range rep.Issues {
			if is.Check == "IMMEDIATE_FILL" {
				is.Severity = SeverityWarning
			}
			kept = append(kept, is)
		}
		rep.Issues = kept
	}
	if err := rep.Err(); err != nil {
		return req, rep, err
	}
	return rep.Adjusted, rep, nil
}
