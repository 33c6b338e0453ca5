package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/wire"

	"spotpilot/internal/config"
	"spotpilot/internal/exchange"
	"spotpilot/internal/indicators"
	"spotpilot/internal/logger"
	"spotpilot/internal/prompt"
	"spotpilot/internal/store"
	"spotpilot/internal/validator"
)

// ProviderSet App 的全部依赖
var ProviderSet = wire.NewSet(
	validator.NewFormatter,
	provideBinanceClient,
	wire.Bind(new(exchange.Client), new(*exchange.BinanceClient)),
	provideSQLite,
	provideJournal,
	provideFilterCache,
	provideCachedFilters,
	provideCalculator,
	provideHandoff,
	newApp,
)

func provideBinanceClient(cfg *config.Config, fm *validator.Formatter) *exchange.BinanceClient {
	return exchange.NewBinanceClient(exchange.Options{
		Formatter: fm,
		APIKey:    cfg.Exchange.APIKey,
		APISecret: cfg.Exchange.APISecret,
		BaseURL:   cfg.Exchange.BaseURL,
		Timeout:   time.Duration(cfg.Exchange.TimeoutSeconds) * time.Second,
	})
}

// provideSQLite 仅在日志启用或缓存后端为 sqlite 时打开数据库
func provideSQLite(cfg *config.Config) (*store.SQLiteStore, func(), error) {
	if !cfg.Journal.Enabled && !strings.EqualFold(cfg.Cache.Backend, "sqlite") {
		return nil, func() {}, nil
	}
	db, err := store.OpenSQLite(cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("初始化本地数据库失败: %w", err)
	}
	path := cfg.Journal.Path
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	logger.Debugf("本地数据库: %s", path)
	return db, func() {
		if err := db.Close(); err != nil {
			logger.Warnf("关闭数据库失败: %v", err)
		}
	}, nil
}

func provideJournal(cfg *config.Config, db *store.SQLiteStore) store.Journal {
	if !cfg.Journal.Enabled || db == nil {
		return nil
	}
	return db
}

func provideFilterCache(ctx context.Context, cfg *config.Config, db *store.SQLiteStore) (exchange.FilterCache, func(), error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "redis":
		rdb, err := store.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		cache := store.NewRedisFilterCache(rdb)
		return cache, func() { _ = cache.Close() }, nil
	case "sqlite":
		if db != nil {
			return db, func() {}, nil
		}
	}
	return store.NewMemoryFilterCache(), func() {}, nil
}

func provideCachedFilters(client exchange.Client, cache exchange.FilterCache, cfg *config.Config) *exchange.CachedFilters {
	return exchange.NewCachedFilters(client, cache, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
}

func provideCalculator(filters *exchange.CachedFilters, cfg *config.Config) *indicators.Calculator {
	a := cfg.Analysis
	return indicators.NewCalculator(filters, indicators.Params{
		Interval:      a.Interval,
		Limit:         a.Limit,
		MinDataPoints: a.MinDataPoints,
		RSIPeriod:     a.RSIPeriod,
		EMAPeriods:    a.EMAPeriods,
		MACDFast:      a.MACDFast,
		MACDSlow:      a.MACDSlow,
		MACDSignal:    a.MACDSignal,
	})
}

func provideHandoff(cfg *config.Config, journal store.Journal) *prompt.Handoff {
	var j prompt.Journal
	if journal != nil {
		j = journal
	}
	return prompt.NewHandoff(prompt.NewBuilder(), j, cfg.Prompt.OutputDir)
}
