package app

import (
	"context"
	"fmt"

	"spotpilot/internal/balance"
	"spotpilot/internal/coins"
	"spotpilot/internal/exchange"
	"spotpilot/internal/logger"
	"spotpilot/internal/prompt"
	"spotpilot/internal/protection"
	"spotpilot/internal/review"
	"spotpilot/internal/store"
)

// Prompt 第一阶段：汇总账户、行情、保护与挂单，生成提示词文件
func (a *App) Prompt(ctx context.Context, kind prompt.Kind, plan string) (prompt.Artifact, error) {
	p, err := a.Portfolio(ctx, 0)
	if err != nil {
		return prompt.Artifact{}, err
	}
	acct, err := a.client.Account(ctx)
	if err != nil {
		return prompt.Artifact{}, err
	}
	orders, err := a.client.OpenOrders(ctx, "")
	if err != nil {
		return prompt.Artifact{}, err
	}
	// 无持仓也无默认币种时只输出账户部分
	var snaps IndicatorReport
	if symbols, err := coins.Normalize(append(held(p, a.quote), a.cfg.Analysis.DefaultCoins...), a.quote); err == nil {
		snaps = a.snapshots(ctx, symbols)
	}

	holdings := make([]prompt.Holding, 0, len(p.Assets))
	for _, v := range p.Assets {
		holdings = append(holdings, prompt.Holding{Asset: v.Asset, Quantity: v.Total, Price: v.Price, Value: v.Value})
	}
	in := prompt.Input{
		Kind:          kind,
		StrategyPhase: a.cfg.Prompt.StrategyPhase,
		Quote:         a.quote,
		Holdings:      prompt.AllocationOf(holdings),
		Snapshots:     snaps.Snapshots,
		Protection:    protection.Portfolio(positionsOf(p, a.quote), orders, a.quote, a.threshold),
		Balances:      balance.Compute(acct, orders, a.quote),
		Orders:        orders,
		Plan:          plan,
	}
	return a.handoff.Issue(ctx, in)
}

// Accepted 第二阶段结果；结构化成功时附带评估
type Accepted struct {
	Response prompt.Response `json:"response"`
	Review   *review.Result  `json:"review,omitempty"`
}

// Accept 接收模型回复；能解析出建议时顺带做一次评估
func (a *App) Accept(ctx context.Context, promptID, text string) (Accepted, error) {
	resp, err := a.handoff.Accept(ctx, promptID, text)
	if err != nil {
		return Accepted{Response: resp}, err
	}
	out := Accepted{Response: resp}
	if !resp.Structured || len(resp.Recommendations) == 0 {
		return out, nil
	}
	res, err := a.Review(ctx, resp.Recommendations)
	if err != nil {
		logger.Warnf("评估回复 %s 失败: %v", promptID, err)
		return out, nil
	}
	out.Review = &res
	return out, nil
}

// Responses ai responses：列出提示词下已接收的回复
func (a *App) Responses(ctx context.Context, promptID string) ([]store.ResponseRecord, error) {
	return a.handoff.Responses(ctx, promptID)
}

// ReviewJSON validate ai-recommendations 入口
func (a *App) ReviewJSON(ctx context.Context, raw string) (review.Result, error) {
	recs, err := review.Parse(raw)
	if err != nil {
		return review.Result{}, err
	}
	if len(recs) == 0 {
		return review.Result{}, fmt.Errorf("建议列表为空")
	}
	return a.Review(ctx, recs)
}

// Review 准备行情/指标/规则/可用资金后做纯计算评估；单个交易对数据缺失只影响对应扣分
func (a *App) Review(ctx context.Context, recs []review.Recommendation) (review.Result, error) {
	sheet, err := a.Balances(ctx)
	if err != nil {
		return review.Result{}, err
	}
	m := review.Market{
		Prices:         map[string]float64{},
		RSI:            map[string]float64{},
		Filters:        map[string]exchange.SymbolFilters{},
		QuoteAvailable: sheet.Get(a.quote).Available,
	}
	for _, sym := range review.Symbols(recs) {
		if p, err := a.client.Price(ctx, sym); err == nil {
			m.Prices[sym] = p
		} else {
			logger.Warnf("%s 获取价格失败: %v", sym, err)
		}
		if f, err := a.filters.SymbolFilters(ctx, sym); err == nil {
			m.Filters[sym] = f
		} else {
			logger.Warnf("%s 获取交易规则失败: %v", sym, err)
		}
		if snap, err := a.calc.Snapshot(ctx, sym); err == nil {
			m.RSI[sym] = snap.RSI
		} else {
			logger.Warnf("%s 指标计算失败: %v", sym, err)
		}
	}
	return review.Evaluate(recs, m), nil
}
