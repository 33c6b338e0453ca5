package balance

import (
	"sort"
	"strings"

	"spotpilot/internal/exchange"
)

// Valuation 单个资产按最新价折算的价值
type Valuation struct {
	Asset         string  `json:"asset"`
	Free          float64 `json:"free"`
	Locked        float64 `json:"locked"`
	Total         float64 `json:"total"`
	Price         float64 `json:"price"`
	Value         float64 `json:"value"`
	AllocationPct float64 `json:"allocation_pct"`
}

type Portfolio struct {
	Assets     []Valuation `json:"assets"`
	TotalValue float64     `json:"total_value"`
	// Unpriced 有余额但找不到报价的资产
	Unpriced []string `json:"unpriced,omitempty"`
}

// PriceOf 依次尝试 ASSET+quote / ASSET+BUSD / ASSET+USD
func PriceOf(asset, quote string, prices map[string]float64) (float64, bool) {
	asset, quote = strings.ToUpper(asset), strings.ToUpper(quote)
	if asset == quote {
		return 1, true
	}
	for _, q := range []string{quote, "BUSD", "USD"} {
		if p, ok := prices[asset+q]; ok && p > 0 {
			return p, true
		}
	}
	return 0, false
}

// Value 计算组合价值；价值低于 minValue 的资产不列出，也不计入总值
func Value(acct exchange.Account, prices map[string]float64, quote string, minValue float64) Portfolio {
	out := Portfolio{Assets: make([]Valuation, 0)}
	for _, b := range acct.NonZero() {
		p, ok := PriceOf(b.Asset, quote, prices)
		if !ok {
			out.Unpriced = append(out.Unpriced, b.Asset)
			continue
		}
		v := Valuation{Asset: b.Asset, Free: b.Free, Locked: b.Locked, Total: b.Total(), Price: p, Value: b.Total() * p}
		if v.Value < minValue {
			continue
		}
		out.Assets = append(out.Assets, v)
		out.TotalValue += v.Value
	}
	for i := range out.Assets {
		if out.TotalValue > 0 {
			out.Assets[i].AllocationPct = out.Assets[i].Value / out.TotalValue * 100
		}
	}
	sort.SliceStable(out.Assets, func(i, j int) bool { return out.Assets[i].Value > out.Assets[j].Value })
	return out
}

// Allocation 某资产占比（百分数），不存在为 0
func (p Portfolio) Allocation(asset string) float64 {
	for _, a := range p.Assets {
		if strings.EqualFold(a.Asset, asset) {
			return a.AllocationPct
		}
	}
	return 0
}
