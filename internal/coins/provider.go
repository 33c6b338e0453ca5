package coins

import (
	"context"
	"errors"
	"strings"

	"spotpilot/internal/exchange"
)

// SymbolProvider 分析命令的交易对来源
type SymbolProvider interface {
	List(ctx context.Context) ([]string, error)
	Name() string
}

// Normalize 把 "btc, ETH ,SOLUSDT" 这类输入统一成去重后的 BTCUSDT/ETHUSDT/SOLUSDT
func Normalize(coins []string, quote string) ([]string, error) {
	quote = strings.ToUpper(strings.TrimSpace(quote))
	if quote == "" {
		quote = "USDT"
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(coins))
	for _, raw := range coins {
		for _, s := range strings.Split(raw, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" || s == quote {
				continue
			}
			if !strings.HasSuffix(s, quote) {
				s += quote
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("标准化后币种列表为空")
	}
	return out, nil
}

// StaticProvider 命令行 --coins 或配置 default_coins
type StaticProvider struct {
	coins []string
	quote string
}

func NewStaticProvider(coins []string, quote string) *StaticProvider {
	return &StaticProvider{coins: coins, quote: quote}
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) List(ctx context.Context) ([]string, error) {
	if len(p.coins) == 0 {
		return nil, errors.New("币种列表为空")
	}
	return Normalize(p.coins, p.quote)
}

// HoldingsProvider 以账户当前持仓（非计价币、余额非零）作为分析对象
type HoldingsProvider struct {
	client exchange.Client
	quote  string
}

func NewHoldingsProvider(client exchange.Client, quote string) *HoldingsProvider {
	return &HoldingsProvider{client: client, quote: quote}
}

func (p *HoldingsProvider) Name() string { return "holdings" }

func (p *HoldingsProvider) List(ctx context.Context) ([]string, error) {
	acct, err := p.client.Account(ctx)
	if err != nil {
		return nil, err
	}
	assets := make([]string, 0)
	for _, b := range acct.NonZero() {
		assets = append(assets, b.Asset)
	}
	if len(assets) == 0 {
		return nil, errors.New("账户没有非零持仓")
	}
	return Normalize(assets, p.quote)
}
