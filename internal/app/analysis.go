package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"spotpilot/internal/balance"
	"spotpilot/internal/chart"
	"spotpilot/internal/coins"
	"spotpilot/internal/indicators"
	"spotpilot/internal/logger"
	"spotpilot/internal/protection"
)

// IndicatorReport 单个交易对失败不影响其余
type IndicatorReport struct {
	Snapshots []indicators.Snapshot `json:"snapshots"`
	Failed    map[string]string     `json:"failed,omitempty"`
}

// symbolProvider 顺序：--coins、analysis.default_coins、账户持仓
func (a *App) symbolProvider(list []string) coins.SymbolProvider {
	if len(list) == 0 {
		list = a.cfg.Analysis.DefaultCoins
	}
	if len(list) == 0 {
		return coins.NewHoldingsProvider(a.client, a.quote)
	}
	return coins.NewStaticProvider(list, a.quote)
}

// Indicators coins 为空时使用 analysis.default_coins，仍为空则分析当前持仓
func (a *App) Indicators(ctx context.Context, list []string) (IndicatorReport, error) {
	symbols, err := a.symbolProvider(list).List(ctx)
	if err != nil {
		return IndicatorReport{}, err
	}
	return a.snapshots(ctx, symbols), nil
}

func (a *App) snapshots(ctx context.Context, symbols []string) IndicatorReport {
	out := IndicatorReport{Snapshots: make([]indicators.Snapshot, 0, len(symbols))}
	for _, sym := range symbols {
		snap, err := a.calc.Snapshot(ctx, sym)
		if err != nil {
			logger.Warnf("%s 指标计算失败: %v", sym, err)
			if out.Failed == nil {
				out.Failed = map[string]string{}
			}
			out.Failed[sym] = err.Error()
			continue
		}
		out.Snapshots = append(out.Snapshots, snap)
	}
	return out
}

func positionsOf(p balance.Portfolio, quote string) []protection.Position {
	out := make([]protection.Position, 0, len(p.Assets))
	for _, v := range p.Assets {
		sym := v.Asset + quote
		if strings.EqualFold(v.Asset, quote) {
			sym = quote
		}
		out = append(out, protection.Position{Asset: v.Asset, Symbol: sym, Quantity: v.Total, Price: v.Price})
	}
	return out
}

// Protection 组合保护分析
func (a *App) Protection(ctx context.Context) (protection.Summary, error) {
	p, err := a.Portfolio(ctx, 0)
	if err != nil {
		return protection.Summary{}, err
	}
	orders, err := a.client.OpenOrders(ctx, "")
	if err != nil {
		return protection.Summary{}, err
	}
	return protection.Portfolio(positionsOf(p, a.quote), orders, a.quote, a.threshold), nil
}

// Chart 生成 HTML 图表，out 为空时写到 chart.output_dir
func (a *App) Chart(ctx context.Context, symbol, out string) (string, error) {
	syms, err := coins.Normalize([]string{symbol}, a.quote)
	if err != nil {
		return "", err
	}
	symbol = syms[0]
	p := a.calc.Params()
	ks, err := a.client.Klines(ctx, symbol, p.Interval, p.Limit)
	if err != nil {
		return "", fmt.Errorf("获取 %s K线失败: %w", symbol, err)
	}
	if out == "" {
		out = filepath.Join(a.cfg.Chart.OutputDir, fmt.Sprintf("%s-%s-%s.html", symbol, p.Interval, time.Now().UTC().Format("20060102-150405")))
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	f, err := os.Create(out)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := chart.Render(f, symbol, ks, chart.Options{Interval: p.Interval, EMAPeriods: p.EMAPeriods, RSIPeriod: p.RSIPeriod}); err != nil {
		return "", err
	}
	return out, nil
}

// held 当前持仓对应的交易对（不含计价币）
func held(p balance.Portfolio, quote string) []string {
	out := make([]string, 0, len(p.Assets))
	for _, v := range p.Assets {
		if !strings.EqualFold(v.Asset, quote) {
			out = append(out, v.Asset)
		}
	}
	return out
}
