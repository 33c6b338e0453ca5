// Package prompt 生成交给外部模型的分析提示词（第一阶段），并接收人工粘贴回来的回复（第二阶段）。
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"spotpilot/internal/balance"
	"spotpilot/internal/exchange"
	"spotpilot/internal/indicators"
	"spotpilot/internal/pkg/format"
	"spotpilot/internal/protection"
)

type Kind string

const (
	KindPortfolio    Kind = "portfolio"
	KindMarketTiming Kind = "market-timing"
	KindUpdatePlan   Kind = "update-plan"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindPortfolio, KindMarketTiming, KindUpdatePlan:
		return k, nil
	}
	return "", fmt.Errorf("未知提示词类型 %q", s)
}

// Holding 组合中的一项（含计价币）
type Holding struct {
	Asset         string  `json:"asset"`
	Quantity      float64 `json:"quantity"`
	Price         float64 `json:"price"`
	Value         float64 `json:"value"`
	AllocationPct float64 `json:"allocation_pct"`
}

// Input 构建提示词所需的全部数据，由调用方一次性准备
type Input struct {
	Kind          Kind
	StrategyPhase string
	Quote         string
	Holdings      []Holding
	Snapshots     []indicators.Snapshot
	Protection    protection.Summary
	Balances      balance.Sheet
	Orders        []exchange.Order
	// Plan 仅 update-plan 使用：当前执行中的计划原文
	Plan string
}

// Artifact 第一阶段产出
type Artifact struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	System    string    `json:"system"`
	User      string    `json:"user"`
	Path      string    `json:"path,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Markdown 写入文件的完整内容
func (a Artifact) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<!-- prompt_id: %s kind: %s created_at: %s -->\n\n", a.ID, a.Kind, a.CreatedAt.UTC().Format(time.RFC3339))
	b.WriteString("## System\n\n")
	b.WriteString(a.System)
	b.WriteString("\n\n## User\n\n")
	b.WriteString(a.User)
	b.WriteString("\n")
	return b.String()
}

// AllocationOf 从持仓计算各资产占比
func AllocationOf(holdings []Holding) []Holding {
	total := 0.0
	for _, h := range holdings {
		total += h.Value
	}
	out := make([]Holding, len(holdings))
	for i, h := range holdings {
		if total > 0 {
			h.AllocationPct = h.Value / total * 100
		}
		out[i] = h
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

type Builder struct {
	newID func() string
	now   func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{newID: func() string { return uuid.NewString() }, now: time.Now}
}

func (b *Builder) Build(in Input) (Artifact, error) {
	if in.Kind == "" {
		in.Kind = KindPortfolio
	}
	if _, err := ParseKind(string(in.Kind)); err != nil {
		return Artifact{}, err
	}
	if in.Quote == "" {
		in.Quote = "USDT"
	}
	if in.StrategyPhase == "" {
		in.StrategyPhase = "STRATEGIC_ANALYSIS"
	}
	if in.Kind == KindUpdatePlan && strings.TrimSpace(in.Plan) == "" {
		return Artifact{}, fmt.Errorf("update-plan 需要提供当前计划")
	}
	sections := Sections{
		Protection: renderProtection(in.Protection),
		Balance:    renderBalance(in.Balances, in.Quote),
		Strategic:  renderStrategic(in),
		Portfolio:  renderPortfolio(in.Holdings, in.Quote),
		Market:     renderMarket(in.Snapshots),
		Orders:     renderOrders(in.Orders),
		Plan:       strings.TrimSpace(in.Plan),
		Rules:      renderRules(),
		Template:   renderTemplate(in.Kind),
	}
	return Artifact{
		ID:        b.newID(),
		Kind:      in.Kind,
		System:    systemPrompt(in.Kind),
		User:      sections.Render(),
		CreatedAt: b.now(),
	}, nil
}

func systemPrompt(kind Kind) string {
	base := "你是一名谨慎的现货交易分析师，只基于给出的数据作答，不编造行情。所有价格以 USDT 计。"
	switch kind {
	case KindMarketTiming:
		return base + "任务：评估当前是否适合部署可用资金，给出具体入场价位、分批计划与对应止损。"
	case KindUpdatePlan:
		return base + "任务：对照最新数据审阅现有交易计划，逐条说明保留、调整或取消，并给出调整后的订单。"
	}
	return base + "任务：审阅整个组合的配置、保护与风险，给出按优先级排序的可执行订单建议。"
}

// Stance 按计价币占比判断组合姿态
func Stance(quotePct float64) string {
	switch {
	case quotePct >= 55:
		return "DEFENSIVE（计价币占比高）"
	case quotePct > 30:
		return "BALANCED（计价币占比适中）"
	}
	return "AGGRESSIVE（计价币占比低）"
}

func renderStrategic(in Input) string {
	quotePct := 0.0
	major := make([]string, 0)
	for _, h := range AllocationOf(in.Holdings) {
		if strings.EqualFold(h.Asset, in.Quote) {
			quotePct = h.AllocationPct
			continue
		}
		if h.AllocationPct > 20 {
			major = append(major, h.Asset)
		}
	}
	lines := []string{
		"策略阶段: " + in.StrategyPhase,
		"组合姿态: " + Stance(quotePct),
	}
	if len(major) > 0 {
		lines = append(lines, "主要仓位 (>20%): "+strings.Join(major, ", "))
	}
	return strings.Join(lines, "\n")
}

func renderProtection(sum protection.Summary) string {
	if len(sum.Results) == 0 {
		return "组合中没有需要保护的非计价币仓位"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "组合保护评分: %.0f/100 (%s)\n", sum.Average, sum.Level)
	for _, r := range sum.Results {
		fmt.Fprintf(&b, "- %s: %s (%d/100) - %s\n", r.Position.Asset, r.Level, r.Score, r.Recommendation)
	}
	if len(sum.Unprotected) > 0 {
		fmt.Fprintf(&b, "无任何保护单: %s\n", strings.Join(sum.Unprotected, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBalance(sheet balance.Sheet, quote string) string {
	if len(sheet) == 0 {
		return "余额数据不可用"
	}
	q := sheet.Get(quote)
	line := fmt.Sprintf("- %s: %s 可立即使用", quote, format.USD(q.Available))
	if q.Committed > 0 {
		line += fmt.Sprintf("（%s 已被挂单占用）", format.USD(q.Committed))
	}
	lines := []string{line}
	for _, e := range sheet.Sorted() {
		if strings.EqualFold(e.Asset, quote) || e.Committed == 0 {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: 可用 %s / 总量 %s（%s 已挂卖单）", e.Asset,
			format.Float(e.Available, 8), format.Float(e.Total, 8), format.Float(e.Committed, 8)))
	}
	return strings.Join(lines, "\n")
}

func renderPortfolio(holdings []Holding, quote string) string {
	if len(holdings) == 0 {
		return "组合数据不可用"
	}
	rows := AllocationOf(holdings)
	total := 0.0
	for _, h := range rows {
		total += h.Value
	}
	var b strings.Builder
	fmt.Fprintf(&b, "总价值: %s\n", format.USD(total))
	for _, h := range rows {
		if strings.EqualFold(h.Asset, quote) {
			fmt.Fprintf(&b, "- %s: %s (%.1f%%)\n", h.Asset, format.USD(h.Value), h.AllocationPct)
			continue
		}
		fmt.Fprintf(&b, "- %s: %s (%.1f%%) - 持有 %s @ %s\n", h.Asset, format.USD(h.Value), h.AllocationPct,
			format.Float(h.Quantity, 8), format.Price(h.Price))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMarket(snaps []indicators.Snapshot) string {
	if len(snaps) == 0 {
		return "行情数据不可用"
	}
	var b strings.Builder
	for _, s := range snaps {
		fmt.Fprintf(&b, "- %s: $%s | RSI %.1f (%s) | MACD 柱 %s | 趋势 %s", s.Symbol, format.Price(s.Price), s.RSI, s.RSIZone(),
			format.Float(s.MACD.Histogram, 4), s.Trend)
		if periods := emaPeriods(s.EMA); len(periods) > 0 {
			parts := make([]string, 0, len(periods))
			for _, p := range periods {
				parts = append(parts, fmt.Sprintf("EMA%d %s", p, format.Price(s.EMA[p])))
			}
			b.WriteString(" | " + strings.Join(parts, " "))
		}
		if s.High > 0 {
			fmt.Fprintf(&b, " | 区间 %s–%s (%+.2f%%/%s)", format.Price(s.Low), format.Price(s.High), s.Change, s.Interval)
		}
		if len(s.Supports) > 0 {
			low, high := format.RangeSummary(s.Supports)
			fmt.Fprintf(&b, " | 支撑 %s~%s", format.Price(low), format.Price(high))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func emaPeriods(m map[int]float64) []int {
	out := make([]int, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func renderOrders(orders []exchange.Order) string {
	if len(orders) == 0 {
		return "无挂单"
	}
	bySymbol := map[string][]exchange.Order{}
	symbols := make([]string, 0)
	for _, o := range orders {
		if _, ok := bySymbol[o.Symbol]; !ok {
			symbols = append(symbols, o.Symbol)
		}
		bySymbol[o.Symbol] = append(bySymbol[o.Symbol], o)
	}
	sort.Strings(symbols)
	var b strings.Builder
	fmt.Fprintf(&b, "共 %d 笔挂单\n", len(orders))
	for _, sym := range symbols {
		fmt.Fprintf(&b, "%s:\n", sym)
		for _, o := range bySymbol[sym] {
			fmt.Fprintf(&b, "  - %s %s: %s @ %s", o.Side, o.Type, format.Float(o.Remaining(), 8), format.Price(o.Price))
			if o.StopPrice > 0 {
				fmt.Fprintf(&b, " 触发 %s", format.Price(o.StopPrice))
			}
			fmt.Fprintf(&b, " (ID: %d", o.OrderID)
			if o.IsOCO() {
				fmt.Fprintf(&b, ", OCO %d", o.OrderListID)
			}
			b.WriteString(")\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderRules() string {
	return strings.Join([]string{
		"1. 建议任何保护单前先查看上方保护分析，已有 EXCELLENT 保护的仓位不要重复设置",
		"2. 新仓位只使用“可立即使用”的余额，不要按总余额计算",
		"3. 单一资产占比不超过 40%，主要仓位 (>20%) 优先保护",
		"4. 挂单价格不得让限价单或止损单立即成交",
		"5. 建议需与当前策略阶段一致",
	}, "\n")
}

// ScoreLine 回复中自评分的固定格式
const ScoreLine = "SCORE: NN/100"

func renderTemplate(kind Kind) string {
	lines := []string{
		"先用文字给出分析，然后输出一个 JSON 数组（仅一个），每个元素形如：",
		`{"symbol":"SOLUSDT","action":"BUY|SELL|OCO|CANCEL","quantity":1.5,"price":180.5,"stop_price":170,"reasoning":"...","expected_current_price":182.3}`,
		"OCO 为卖出方向：price 为止盈价，stop_price 为止损触发价。",
	}
	if kind == KindUpdatePlan {
		lines = append(lines, "对需要撤销的现有订单使用 CANCEL，并在 reasoning 中注明订单 ID。")
	}
	lines = append(lines, "最后单独一行给出本次分析的置信度自评："+ScoreLine)
	return strings.Join(lines, "\n")
}
