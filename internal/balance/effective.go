// Package balance 计算扣除挂单占用后的有效余额。
package balance

import (
	"fmt"
	"sort"
	"strings"

	"spotpilot/internal/exchange"
	"spotpilot/internal/pkg/format"
)

// Effective 单个资产的余额拆分
type Effective struct {
	Asset     string  `json:"asset"`
	Free      float64 `json:"free"`
	Locked    float64 `json:"locked"`
	Total     float64 `json:"total"`
	Committed float64 `json:"committed"`
	Available float64 `json:"available"`
}

// Sheet 资产 → 有效余额
type Sheet map[string]Effective

// Get 不存在时返回零值
func (s Sheet) Get(asset string) Effective {
	asset = strings.ToUpper(asset)
	if e, ok := s[asset]; ok {
		return e
	}
	return Effective{Asset: asset}
}

// Sorted 按资产名排序输出
func (s Sheet) Sorted() []Effective {
	out := make([]Effective, 0, len(s))
	for _, e := range s {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// InsufficientBalanceError 请求量超过扣除挂单占用后的可用余额
type InsufficientBalanceError struct {
	Asset     string
	Required  float64
	Available float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("%s 余额不足: 需要 %s，可用 %s（已扣除挂单占用）",
		e.Asset, format.Float(e.Required, 8), format.Float(e.Available, 8))
}

// Compute 汇总余额与挂单占用。
// 计价资产占用 = Σ 买单剩余量×价格；基础资产占用 = Σ 卖单剩余量，同一 OCO 列表只计一次（取两腿较大剩余量）。
func Compute(acct exchange.Account, orders []exchange.Order, quote string) Sheet {
	quote = strings.ToUpper(quote)
	sheet := Sheet{}
	for _, b := range acct.Balances {
		sheet[b.Asset] = Effective{Asset: b.Asset, Free: b.Free, Locked: b.Locked, Total: b.Total()}
	}

	type ocoKey struct {
		listID int64
		asset  string
	}
	committed := map[string]float64{}
	oco := map[ocoKey]float64{}
	for _, o := range orders {
		if !strings.HasSuffix(o.Symbol, quote) {
			continue
		}
		rem := o.Remaining()
		asset, amt := exchange.BaseOf(o.Symbol, quote), rem
		switch o.Side {
		case exchange.SideBuy:
			price := o.Price
			if price <= 0 {
				price = o.StopPrice
			}
			asset, amt = quote, rem*price
		case exchange.SideSell:
		default:
			continue
		}
		if o.IsOCO() {
			k := ocoKey{listID: o.OrderListID, asset: asset}
			if amt > oco[k] {
				oco[k] = amt
			}
			continue
		}
		committed[asset] += amt
	}
	for k, amt := range oco {
		committed[k.asset] += amt
	}
	for asset, amt := range committed {
		e := sheet[asset]
		e.Asset = asset
		e.Committed = amt
		sheet[asset] = e
	}
	for asset, e := range sheet {
		e.Available = e.Total - e.Committed
		if e.Available < 0 {
			e.Available = 0
		}
		sheet[asset] = e
	}
	return sheet
}

// Check 下单前余额检查；BUY 需要计价资产 qty×price（市价单用 marketPrice），SELL 需要基础资产数量
func Check(req exchange.OrderRequest, marketPrice float64, sheet Sheet, quote string) error {
	base := exchange.BaseOf(req.Symbol, quote)
	switch req.Side {
	case exchange.SideBuy:
		need := req.Notional(marketPrice)
		avail := sheet.Get(quote).Available
		if need > avail {
			return &InsufficientBalanceError{Asset: strings.ToUpper(quote), Required: need, Available: avail}
		}
	case exchange.SideSell:
		avail := sheet.Get(base).Available
		if req.Quantity > avail {
			return &InsufficientBalanceError{Asset: base, Required: req.Quantity, Available: avail}
		}
	default:
		return fmt.Errorf("未知方向: %s", req.Side)
	}
	return nil
}
