package protection

import (
	"math"
	"sort"
	"strings"

	"spotpilot/internal/exchange"
)

// Thresholds 价格距离阈值（百分比）：≤Full 满分，≥Zero 为 0，中间线性衰减
type Thresholds struct {
	FullPct float64
	ZeroPct float64
}

var DefaultThresholds = Thresholds{FullPct: 5, ZeroPct: 20}

type Level string

const (
	LevelExcellent Level = "EXCELLENT"
	LevelGood      Level = "GOOD"
	LevelModerate  Level = "MODERATE"
	LevelWeak      Level = "WEAK"
	LevelPoor      Level = "POOR"
)

// Position 由余额快照推导，不持久化
type Position struct {
	Asset    string  `json:"asset"`
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
}

func (p Position) Value() float64 { return p.Quantity * p.Price }

// Result 单个仓位的保护评分
type Result struct {
	Position       Position         `json:"position"`
	Score          int              `json:"score"`
	Proximity      float64          `json:"proximity"`
	Coverage       float64          `json:"coverage"`
	ProtectedQty   float64          `json:"protected_qty"`
	NearestPct     float64          `json:"nearest_distance_pct"`
	Nearest        *exchange.Order  `json:"nearest,omitempty"`
	Orders         []exchange.Order `json:"orders"`
	Level          Level            `json:"level"`
	Recommendation string           `json:"recommendation"`
}

func isProtectiveType(t exchange.OrderType) bool {
	switch t {
	case exchange.TypeLimit, exchange.TypeLimitMaker, exchange.TypeStopLoss, exchange.TypeStopLossLimit,
		exchange.TypeTakeProfit, exchange.TypeTakeProfitLimit:
		return true
	}
	return false
}

// Protective 筛选该交易对上能减少持仓下行敞口的挂单（卖单）
func Protective(symbol string, orders []exchange.Order) []exchange.Order {
	symbol = strings.ToUpper(symbol)
	out := make([]exchange.Order, 0)
	for _, o := range orders {
		if o.Symbol != symbol || o.Side != exchange.SideSell || !isProtectiveType(o.Type) {
			continue
		}
		if o.Remaining() <= 0 || o.TriggerPrice() <= 0 {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ProximityScore 距离（百分比）→ [0,1]，随距离增大单调不增
func ProximityScore(distancePct float64, th Thresholds) float64 {
	if th.ZeroPct <= th.FullPct {
		th = DefaultThresholds
	}
	distancePct = math.Abs(distancePct)
	switch {
	case distancePct <= th.FullPct:
		return 1
	case distancePct >= th.ZeroPct:
		return 0
	}
	return (th.ZeroPct - distancePct) / (th.ZeroPct - th.FullPct)
}

// protectedQuantity 汇总剩余数量，同一 OCO 列表只计一次
func protectedQuantity(orders []exchange.Order) float64 {
	total := 0.0
	oco := map[int64]float64{}
	for _, o := range orders {
		if o.IsOCO() {
			if r := o.Remaining(); r > oco[o.OrderListID] {
				oco[o.OrderListID] = r
			}
			continue
		}
		total += o.Remaining()
	}
	for _, q := range oco {
		total += q
	}
	return total
}

// Score 计算 protection_score = round(100 × (0.5×proximity + 0.5×coverage))
func Score(pos Position, orders []exchange.Order, th Thresholds) Result {
	res := Result{Position: pos, Orders: Protective(pos.Symbol, orders)}
	if pos.Quantity <= 0 || pos.Price <= 0 {
		res.Level, res.Recommendation = classify(0)
		return res
	}
	if len(res.Orders) > 0 {
		best := -1
		bestDist := math.MaxFloat64
		for i, o := range res.Orders {
			d := math.Abs(o.TriggerPrice()-pos.Price) / pos.Price * 100
			if d < bestDist {
				best, bestDist = i, d
			}
		}
		nearest := res.Orders[best]
		res.Nearest = &nearest
		res.NearestPct = bestDist
		res.Proximity = ProximityScore(bestDist, th)
	}
	res.ProtectedQty = protectedQuantity(res.Orders)
	res.Coverage = math.Min(1, res.ProtectedQty/pos.Quantity)
	res.Score = int(math.Round(100 * (0.5*res.Proximity + 0.5*res.Coverage)))
	res.Level, res.Recommendation = classify(res.Score)
	return res
}

func classify(score int) (Level, string) {
	switch {
	case score >= 90:
		return LevelExcellent, "保护充分：维持现有挂单，跳过新增保护建议"
	case score >= 70:
		return LevelGood, "保护良好：可按需微调价格或补足数量"
	case score >= 50:
		return LevelModerate, "保护一般：建议补充覆盖数量或靠近当前价"
	case score >= 30:
		return LevelWeak, "保护偏弱：建议增加止损或 OCO 保护"
	default:
		return LevelPoor, "缺少有效保护：优先设置 OCO 或止损单"
	}
}

// Summary 组合层面的保护概况
type Summary struct {
	Results     []Result `json:"results"`
	Average     float64  `json:"average"`
	Level       Level    `json:"level"`
	Unprotected []string `json:"unprotected"`
	TotalValue  float64  `json:"total_value"`
}

// Portfolio 对非计价资产且占比 ≥1% 的仓位逐个评分
func Portfolio(positions []Position, orders []exchange.Order, quote string, th Thresholds) Summary {
	quote = strings.ToUpper(quote)
	sum := Summary{}
	for _, p := range positions {
		sum.TotalValue += p.Value()
	}
	total := 0
	for _, p := range positions {
		if strings.EqualFold(p.Asset, quote) || sum.TotalValue <= 0 {
			continue
		}
		if p.Value()/sum.TotalValue < 0.01 {
			continue
		}
		r := Score(p, orders, th)
		sum.Results = append(sum.Results, r)
		total += r.Score
		if len(r.Orders) == 0 {
			sum.Unprotected = append(sum.Unprotected, p.Asset)
		}
	}
	sort.Slice(sum.Results, func(i, j int) bool {
		return sum.Results[i].Position.Value() > sum.Results[j].Position.Value()
	})
	if n := len(sum.Results); n > 0 {
		sum.Average = float64(total) / float64(n)
	}
	sum.Level, _ = classify(int(math.Round(sum.Average)))
	return sum
}
