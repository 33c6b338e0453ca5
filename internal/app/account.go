package app

import (
	"context"
	"strings"

	"spotpilot/internal/balance"
	"spotpilot/internal/exchange"
	"spotpilot/internal/logger"
)

// Portfolio 账户资产与估值；minValue<=0 时使用配置值
func (a *App) Portfolio(ctx context.Context, minValue float64) (balance.Portfolio, error) {
	if minValue <= 0 {
		minValue = a.cfg.Account.MinValueUSD
	}
	acct, err := a.client.Account(ctx)
	if err != nil {
		return balance.Portfolio{}, err
	}
	prices, err := a.client.Prices(ctx)
	if err != nil {
		return balance.Portfolio{}, err
	}
	p := balance.Value(acct, prices, a.quote, minValue)
	if len(p.Unpriced) > 0 {
		logger.Debugf("无报价资产: %s", strings.Join(p.Unpriced, ","))
	}
	return p, nil
}

func (a *App) OpenOrders(ctx context.Context, symbol string) ([]exchange.Order, error) {
	return a.client.OpenOrders(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}

func (a *App) History(ctx context.Context, symbol string, limit int) ([]exchange.Trade, error) {
	if limit <= 0 {
		limit = 20
	}
	return a.client.Trades(ctx, strings.ToUpper(symbol), limit)
}

// Balances 扣除挂单占用后的有效余额
func (a *App) Balances(ctx context.Context) (balance.Sheet, error) {
	acct, err := a.client.Account(ctx)
	if err != nil {
		return nil, err
	}
	orders, err := a.client.OpenOrders(ctx, "")
	if err != nil {
		return nil, err
	}
	return balance.Compute(acct, orders, a.quote), nil
}

// BalanceCheck 单个资产的有效余额
func (a *App) BalanceCheck(ctx context.Context, asset string) (balance.Effective, error) {
	sheet, err := a.Balances(ctx)
	if err != nil {
		return balance.Effective{}, err
	}
	return sheet.Get(asset), nil
}

// SymbolInfo refresh=true 时跳过缓存
func (a *App) SymbolInfo(ctx context.Context, symbol string, refresh bool) (exchange.SymbolFilters, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if refresh {
		return a.filters.Refresh(ctx, symbol)
	}
	return a.filters.SymbolFilters(ctx, symbol)
}
