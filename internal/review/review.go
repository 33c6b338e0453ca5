package review

import (
	"fmt"
	"math"

	"spotpilot/internal/exchange"
	"spotpilot/internal/validator"
)

type Category string

const (
	CategoryTechnical Category = "technical_validity"
	CategoryRisk      Category = "risk_management"
	CategoryExecution Category = "execution_feasibility"
	CategoryPortfolio Category = "portfolio_alignment"
)

// Categories 固定输出顺序
var Categories = []Category{CategoryTechnical, CategoryRisk, CategoryExecution, CategoryPortfolio}

const categoryMax = 25

type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

type Finding struct {
	Category Category `json:"category"`
	Severity Severity `json:"severity"`
	Symbol   string   `json:"symbol,omitempty"`
	Message  string   `json:"message"`
	Penalty  int      `json:"penalty"`
}

// Market 评估所需的行情与账户数据（由调用方一次性准备好）
type Market struct {
	Prices         map[string]float64
	RSI            map[string]float64
	Filters        map[string]exchange.SymbolFilters
	QuoteAvailable float64
}

type Result struct {
	Valid      bool             `json:"is_valid"`
	Score      int              `json:"score"`
	Label      string           `json:"label"`
	Categories map[Category]int `json:"category_scores"`
	Freshness  int              `json:"data_freshness"`
	Findings   []Finding        `json:"findings"`
	Advice     []string         `json:"advice"`
}

// Errors 仅返回阻断级问题
func (r Result) Errors() []Finding {
	out := make([]Finding, 0)
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			out = append(out, f)
		}
	}
	return out
}

type scorer struct {
	res Result
}

func (s *scorer) add(cat Category, sev Severity, symbol string, penalty int, tmpl string, args ...any) {
	s.res.Findings = append(s.res.Findings, Finding{Category: cat, Severity: sev, Symbol: symbol, Message: fmt.Sprintf(tmpl, args...), Penalty: penalty})
	if cat != "" {
		s.res.Categories[cat] -= penalty
	}
}

// Label 分数档位
func Label(score int) string {
	switch {
	case score >= 90:
		return "EXCELLENT"
	case score >= 75:
		return "GOOD"
	case score >= 60:
		return "FAIR"
	}
	return "POOR"
}

// Evaluate 纯计算，不访问网络
func Evaluate(recs []Recommendation, m Market) Result {
	s := &scorer{res: Result{Categories: map[Category]int{}, Freshness: 100}}
	for _, c := range Categories {
		s.res.Categories[c] = categoryMax
	}
	s.technical(recs, m)
	s.risk(recs, m)
	s.execution(recs, m)
	s.portfolio(recs)
	s.freshness(recs, m)

	total := 0
	for _, c := range Categories {
		if s.res.Categories[c] < 0 {
			s.res.Categories[c] = 0
		}
		total += s.res.Categories[c]
	}
	if s.res.Freshness < 0 {
		s.res.Freshness = 0
	}
	s.res.Score = total
	s.res.Label = Label(total)
	s.res.Valid = len(s.res.Errors()) == 0 && total >= 60
	s.res.Advice = advice(s.res)
	return s.res
}

func (s *scorer) technical(recs []Recommendation, m Market) {
	for _, r := range recs {
		if r.Action != ActionBuy && r.Action != ActionSell {
			continue
		}
		rsi, ok := m.RSI[r.Symbol]
		if !ok {
			s.add(CategoryTechnical, SeverityWarning, r.Symbol, 3, "%s 缺少技术指标", r.Symbol)
			continue
		}
		switch {
		case r.Action == ActionBuy && rsi > 85:
			s.add(CategoryTechnical, SeverityWarning, r.Symbol, 5, "%s 在 RSI %.1f（极度超买）时买入", r.Symbol, rsi)
		case r.Action == ActionSell && rsi < 20:
			s.add(CategoryTechnical, SeverityError, r.Symbol, 8, "%s 在 RSI %.1f（超卖）时卖出", r.Symbol, rsi)
		case r.Action == ActionSell && rsi < 30:
			s.add(CategoryTechnical, SeverityWarning, r.Symbol, 3, "%s 在 RSI %.1f（偏低）时卖出", r.Symbol, rsi)
		}
	}
}

func (s *scorer) risk(recs []Recommendation, m Market) {
	hasOCO, largeBuy := false, false
	totalBuy := 0.0
	for _, r := range recs {
		switch r.Action {
		case ActionOCO:
			hasOCO = true
			dist := math.Abs(r.Price-r.StopPrice) / r.Price * 100
			switch {
			case dist > 15:
				s.add(CategoryRisk, SeverityWarning, r.Symbol, 3, "%s 止损距离 %.1f%% 过宽", r.Symbol, dist)
			case dist < 2:
				s.add(CategoryRisk, SeverityWarning, r.Symbol, 3, "%s 止损距离 %.1f%% 过窄", r.Symbol, dist)
			}
		case ActionBuy:
			v := r.Notional()
			totalBuy += v
			if v > 500 {
				largeBuy = true
			}
		}
	}
	if largeBuy && !hasOCO {
		s.add(CategoryRisk, SeverityWarning, "", 3, "超过 $500 的买入没有配套 OCO 保护")
	}
	if totalBuy <= 0 {
		return
	}
	switch {
	case totalBuy > m.QuoteAvailable*0.9:
		s.add(CategoryRisk, SeverityError, "", 10, "建议将动用超过 90%% 的可用资金（%.2f / %.2f）", totalBuy, m.QuoteAvailable)
	case totalBuy > m.QuoteAvailable*0.5:
		s.add(CategoryRisk, SeverityWarning, "", 5, "建议将动用超过 50%% 的可用资金（%.2f / %.2f）", totalBuy, m.QuoteAvailable)
	}
}

func orderFor(r Recommendation) exchange.OrderRequest {
	req := exchange.OrderRequest{Symbol: r.Symbol, Quantity: r.Quantity, Price: r.Price}
	switch r.Action {
	case ActionBuy:
		req.Side, req.Type = exchange.SideBuy, exchange.TypeLimit
		if r.Price <= 0 {
			req.Type = exchange.TypeMarket
		}
	case ActionSell:
		req.Side, req.Type = exchange.SideSell, exchange.TypeLimit
	case ActionOCO:
		req.Side, req.Type = exchange.SideSell, exchange.TypeOCO
		req.StopPrice = r.StopPrice
		req.StopLimitPrice = r.StopPrice
	}
	return req
}

func (s *scorer) execution(recs []Recommendation, m Market) {
	for _, r := range recs {
		if r.Action == ActionCancel {
			continue
		}
		f, okF := m.Filters[r.Symbol]
		price, okP := m.Prices[r.Symbol]
		if !okF || !okP {
			s.add(CategoryExecution, SeverityWarning, r.Symbol, 2, "%s 缺少交易规则或行情，无法校验", r.Symbol)
			continue
		}
		rep := validator.Validate(orderFor(r), f, price)
		for _, is := range rep.Issues {
			switch is.Severity {
			case validator.SeverityCritical:
				s.add(CategoryExecution, SeverityError, r.Symbol, 5, "%s %s: %s", r.Symbol, is.Check, is.Message)
			case validator.SeverityError:
				s.add(CategoryExecution, SeverityWarning, r.Symbol, 2, "%s %s: %s", r.Symbol, is.Check, is.Message)
			}
		}
	}
}

func (s *scorer) portfolio(recs []Recommendation) {
	if len(recs) > 2 && len(Symbols(recs)) == 1 {
		s.add(CategoryPortfolio, SeverityWarning, recs[0].Symbol, 5, "全部建议集中在 %s，注意分散", recs[0].Symbol)
	}
	buys := make([]Recommendation, 0)
	total := 0.0
	for _, r := range recs {
		if r.Action == ActionBuy {
			buys = append(buys, r)
			total += r.Notional()
		}
	}
	if len(buys) < 2 || total <= 0 {
		return
	}
	for _, r := range buys {
		if pct := r.Notional() / total * 100; pct > 70 {
			s.add(CategoryPortfolio, SeverityWarning, r.Symbol, 3, "%s 占本次买入的 %.1f%%，过于集中", r.Symbol, pct)
		}
	}
}

// freshness 模型预期价格与当前价偏差，只影响数据质量分
func (s *scorer) freshness(recs []Recommendation, m Market) {
	for _, r := range recs {
		cur, ok := m.Prices[r.Symbol]
		if r.ExpectedCurrentPrice <= 0 || !ok {
			continue
		}
		diff := math.Abs(cur-r.ExpectedCurrentPrice) / r.ExpectedCurrentPrice * 100
		switch {
		case diff > 10:
			s.res.Freshness -= 20
			s.add("", SeverityInfo, r.Symbol, 0, "%s 预期价 %.4g，当前 %.4g（偏差 %.1f%%）", r.Symbol, r.ExpectedCurrentPrice, cur, diff)
		case diff > 5:
			s.res.Freshness -= 10
			s.add("", SeverityInfo, r.Symbol, 0, "%s 价格小幅偏离（%.1f%%）", r.Symbol, diff)
		}
	}
}

func advice(r Result) []string {
	out := make([]string, 0, 4)
	switch {
	case r.Score >= 90:
		out = append(out, "无明显需要处理的问题")
	case r.Score >= 75:
		out = append(out, "少量可优化项，执行前查看警告")
	case r.Score >= 60:
		out = append(out, "存在多项问题，先处理错误再考虑警告")
	default:
		out = append(out, "存在严重问题，处理全部错误前不要执行")
	}
	hints := map[Category]string{
		CategoryTechnical: "复核技术面，可能在逆势操作",
		CategoryRisk:      "为新仓位补充保护单",
		CategoryExecution: "检查可用余额与下单精度",
		CategoryPortfolio: "考虑对组合分散度的影响",
	}
	for _, c := range Categories {
		if r.Categories[c] < 20 {
			out = append(out, hints[c])
		}
	}
	if r.Freshness < 50 {
		out = append(out, "建议所用行情已过时，重新生成分析")
	}
	return out
}
