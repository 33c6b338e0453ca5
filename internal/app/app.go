package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spotpilot/internal/config"
	"spotpilot/internal/exchange"
	"spotpilot/internal/indicators"
	"spotpilot/internal/logger"
	"spotpilot/internal/prompt"
	"spotpilot/internal/protection"
	"spotpilot/internal/store"
	"spotpilot/internal/validator"
)

// App 负责一次命令调用内的依赖编排：交易所客户端、元数据缓存、日志库与各分析组件。
type App struct {
	cfg       *config.Config
	client    exchange.Client
	filters   *exchange.CachedFilters
	journal   store.Journal
	calc      *indicators.Calculator
	handoff   *prompt.Handoff
	formatter *validator.Formatter
	threshold protection.Thresholds
	quote     string
	cleanup   func()
}

// NewApp 根据配置构建应用对象
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	a, cleanup, err := buildAppWithWire(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.cleanup = cleanup
	return a, nil
}

func newApp(cfg *config.Config, client exchange.Client, filters *exchange.CachedFilters, journal store.Journal,
	calc *indicators.Calculator, handoff *prompt.Handoff, formatter *validator.Formatter) *App {
	return &App{
		cfg:       cfg,
		client:    client,
		filters:   filters,
		journal:   journal,
		calc:      calc,
		handoff:   handoff,
		formatter: formatter,
		threshold: protection.Thresholds{
			FullPct: cfg.Protection.FullProximityPct,
			ZeroPct: cfg.Protection.ZeroProximityPct,
		},
		quote: strings.ToUpper(cfg.Account.QuoteAsset),
	}
}

// New 用已构造好的客户端与存储组装 App；journal 可为 nil
func New(cfg *config.Config, client exchange.Client, cache exchange.FilterCache, journal store.Journal) *App {
	filters := exchange.NewCachedFilters(client, cache, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	return newApp(cfg, client, filters, journal, provideCalculator(filters, cfg), provideHandoff(cfg, journal), validator.NewFormatter())
}

// Config 只读访问
func (a *App) Config() *config.Config { return a.cfg }

// Close 释放连接；可重复调用
func (a *App) Close() {
	if a == nil || a.cleanup == nil {
		return
	}
	a.cleanup()
	a.cleanup = nil
}
