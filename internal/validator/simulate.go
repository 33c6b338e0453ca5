package validator

import (
	"fmt"

	"spotpilot/internal/exchange"
	"spotpilot/internal/pkg/format"
)

type Outcome string

const (
	WouldFillImmediately Outcome = "WOULD_FILL_IMMEDIATELY"
	RestsOnBook          Outcome = "RESTS_ON_BOOK"
)

// Simulation 不触网的撮合判断结果，附带修正后的数量与价格
type Simulation struct {
	Outcome   Outcome `json:"outcome"`
	Quantity  float64 `json:"quantity"`
	Price     float64 `json:"price,omitempty"`
	StopPrice float64 `json:"stop_price,omitempty"`
	Reason    string  `json:"reason"`
}

// crosses 复刻交易所"价格穿越盘口"判断：与 market 比较，不考虑深度
func crosses(req exchange.OrderRequest, market float64) (bool, string) {
	p := format.Float
	switch req.Type {
	case exchange.TypeMarket:
		return true, "市价单按当前盘口立即成交"
	case exchange.TypeLimit, exchange.TypeLimitMaker:
		if req.Side == exchange.SideSell && req.Price <= market {
			return true, fmt.Sprintf("卖出限价 %s ≤ 当前价 %s，将作为吃单立即成交", p(req.Price, 8), p(market, 8))
		}
		if req.Side == exchange.SideBuy && req.Price >= market {
			return true, fmt.Sprintf("买入限价 %s ≥ 当前价 %s，将作为吃单立即成交", p(req.Price, 8), p(market, 8))
		}
	case exchange.TypeStopLossLimit:
		if req.Side == exchange.SideSell && req.StopPrice >= market {
			return true, fmt.Sprintf("卖出止损触发价 %s ≥ 当前价 %s，将立即触发", p(req.StopPrice, 8), p(market, 8))
		}
		if req.Side == exchange.SideBuy && req.StopPrice <= market {
			return true, fmt.Sprintf("买入止损触发价 %s ≤ 当前价 %s，将立即触发", p(req.StopPrice, 8), p(market, 8))
		}
	case exchange.TypeOCO:
		if req.Side == exchange.SideSell {
			if req.Price <= market {
				return true, fmt.Sprintf("OCO 止盈价 %s ≤ 当前价 %s，限价腿将立即成交", p(req.Price, 8), p(market, 8))
			}
			if req.StopPrice >= market {
				return true, fmt.Sprintf("OCO 止损触发价 %s ≥ 当前价 %s，止损腿将立即触发", p(req.StopPrice, 8), p(market, 8))
			}
		} else {
			if req.Price >= market {
				return true, fmt.Sprintf("OCO 买入限价 %s ≥ 当前价 %s，限价腿将立即成交", p(req.Price, 8), p(market, 8))
			}
			if req.StopPrice <= market {
				return true, fmt.Sprintf("OCO 买入触发价 %s ≤ 当前价 %s，止损腿将立即触发", p(req.StopPrice, 8), p(market, 8))
			}
		}
	}
	return false, "挂单等待成交"
}

// adjust 返回经 LOT_SIZE / PRICE_FILTER 修正后的请求副本
func adjust(req exchange.OrderRequest, f exchange.SymbolFilters) (exchange.OrderRequest, error) {
	out := req
	q, err := AdjustQuantity(req.Quantity, f)
	if err != nil {
		return req, err
	}
	out.Quantity = q
	if req.Type == exchange.TypeMarket {
		out.Price, out.StopPrice, out.StopLimitPrice = 0, 0, 0
		return out, nil
	}
	if out.Price, err = AdjustPrice(req.Price, f); err != nil {
		return req, err
	}
	if req.Type == exchange.TypeStopLossLimit || req.Type == exchange.TypeOCO {
		if out.StopPrice, err = AdjustPrice(req.StopPrice, f); err != nil {
			return req, err
		}
		if req.StopLimitPrice > 0 {
			if out.StopLimitPrice, err = AdjustPrice(req.StopLimitPrice, f); err != nil {
				return req, err
			}
		}
	}
	return out, nil
}

// SimulateOrder 判断订单是会立即成交还是挂在盘口
func SimulateOrder(req exchange.OrderRequest, f exchange.SymbolFilters, marketPrice float64) (Simulation, error) {
	if marketPrice <= 0 {
		return Simulation{}, &PrecisionError{Field: "market_price", Value: marketPrice, Step: 1}
	}
	adj, err := adjust(req, f)
	if err != nil {
		return Simulation{}, err
	}
	sim := Simulation{Quantity: adj.Quantity, Price: adj.Price, StopPrice: adj.StopPrice, Outcome: RestsOnBook}
	fill, reason := crosses(adj, marketPrice)
	if fill {
		sim.Outcome = WouldFillImmediately
	}
	sim.Reason = reason
	return sim, nil
}
