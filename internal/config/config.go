package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	EnvAPIKey    = "BINANCE_API_KEY"
	EnvAPISecret = "BINANCE_API_SECRET"

	DefaultBaseURL    = "https://api.binance.com"
	TestnetBaseURL    = "https://testnet.binance.vision"
	DefaultConfigPath = "configs/config.toml"
)

// 配置结构体：一次命令调用内只读，通过构造函数注入各组件
type Config struct {
	App struct {
		Env      string `toml:"env"`
		LogLevel string `toml:"log_level"`
	} `toml:"app"`

	Exchange struct {
		BaseURL        string `toml:"base_url"`
		Testnet        bool   `toml:"testnet"`
		TimeoutSeconds int    `toml:"timeout_seconds"`
		// 凭证只从环境变量/.env 读取，不写入配置文件
		APIKey    string `toml:"-"`
		APISecret string `toml:"-"`
	} `toml:"exchange"`

	Account struct {
		MinValueUSD float64 `toml:"min_value_usd"` // account info 默认隐藏的小额资产阈值
		QuoteAsset  string  `toml:"quote_asset"`
	} `toml:"account"`

	Analysis struct {
		Interval      string   `toml:"interval"`
		Limit         int      `toml:"limit"`
		MinDataPoints int      `toml:"min_data_points"`
		RSIPeriod     int      `toml:"rsi_period"`
		EMAPeriods    []int    `toml:"ema_periods"`
		MACDFast      int      `toml:"macd_fast"`
		MACDSlow      int      `toml:"macd_slow"`
		MACDSignal    int      `toml:"macd_signal"`
		DefaultCoins  []string `toml:"default_coins"`
	} `toml:"analysis"`

	Protection struct {
		FullProximityPct float64 `toml:"full_proximity_pct"`
		ZeroProximityPct float64 `toml:"zero_proximity_pct"`
	} `toml:"protection"`

	Cache struct {
		Backend    string `toml:"backend"` // memory | sqlite | redis
		TTLSeconds int    `toml:"ttl_seconds"`
		RedisAddr  string `toml:"redis_addr"`
		RedisDB    int    `toml:"redis_db"`
	} `toml:"cache"`

	Journal struct {
		Enabled bool   `toml:"enabled"`
		Path    string `toml:"path"`
	} `toml:"journal"`

	Prompt struct {
		OutputDir     string `toml:"output_dir"`
		StrategyPhase string `toml:"strategy_phase"`
	} `toml:"prompt"`

	Chart struct {
		OutputDir string `toml:"output_dir"`
	} `toml:"chart"`

	MCP struct {
		Addr string `toml:"addr"`
	} `toml:"mcp"`
}

// Load 读取并解析 TOML 配置文件，并设置缺省值与基本校验
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 TOML 失败: %w", err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault 配置文件不存在时退回缺省配置
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return Load(path)
}

// Default 返回只含缺省值的配置
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// LoadCredentials 先加载 .env（若存在），再从环境变量读取 API 凭证；环境变量优先。
func (c *Config) LoadCredentials(envFile string) error {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			vals, err := godotenv.Read(envFile)
			if err != nil {
				return fmt.Errorf("读取 %s 失败: %w", envFile, err)
			}
			c.Exchange.APIKey = vals[EnvAPIKey]
			c.Exchange.APISecret = vals[EnvAPISecret]
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		c.Exchange.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAPISecret)); v != "" {
		c.Exchange.APISecret = v
	}
	return nil
}

// RequireCredentials 需要签名的命令调用前检查
func (c *Config) RequireCredentials() error {
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return fmt.Errorf("缺少 API 凭证：请设置 %s / %s", EnvAPIKey, EnvAPISecret)
	}
	return nil
}

// 默认值设置
func applyDefaults(c *Config) {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Exchange.BaseURL == "" {
		c.Exchange.BaseURL = DefaultBaseURL
		if c.Exchange.Testnet {
			c.Exchange.BaseURL = TestnetBaseURL
		}
	}
	if c.Exchange.TimeoutSeconds <= 0 {
		c.Exchange.TimeoutSeconds = 20
	}
	if c.Account.MinValueUSD <= 0 {
		c.Account.MinValueUSD = 1.0
	}
	if c.Account.QuoteAsset == "" {
		c.Account.QuoteAsset = "USDT"
	}
	if c.Analysis.Interval == "" {
		c.Analysis.Interval = "1h"
	}
	if c.Analysis.Limit <= 0 {
		c.Analysis.Limit = 100
	}
	if c.Analysis.MinDataPoints <= 0 {
		c.Analysis.MinDataPoints = 50
	}
	if c.Analysis.RSIPeriod <= 0 {
		c.Analysis.RSIPeriod = 14
	}
	if len(c.Analysis.EMAPeriods) == 0 {
		c.Analysis.EMAPeriods = []int{10, 21, 50}
	}
	if c.Analysis.MACDFast <= 0 {
		c.Analysis.MACDFast = 12
	}
	if c.Analysis.MACDSlow <= 0 {
		c.Analysis.MACDSlow = 26
	}
	if c.Analysis.MACDSignal <= 0 {
		c.Analysis.MACDSignal = 9
	}
	// 保护阈值：5% 内满分，20% 及以外为 0
	if c.Protection.FullProximityPct <= 0 {
		c.Protection.FullProximityPct = 5
	}
	if c.Protection.ZeroProximityPct <= 0 {
		c.Protection.ZeroProximityPct = 20
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "sqlite"
	}
	if c.Cache.TTLSeconds <= 0 {
		c.Cache.TTLSeconds = 3600
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "127.0.0.1:6379"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/spotpilot.db"
	}
	if c.Prompt.OutputDir == "" {
		c.Prompt.OutputDir = "prompts"
	}
	if c.Prompt.StrategyPhase == "" {
		c.Prompt.StrategyPhase = "STRATEGIC_ANALYSIS"
	}
	if c.Chart.OutputDir == "" {
		c.Chart.OutputDir = "charts"
	}
	if c.MCP.Addr == "" {
		c.MCP.Addr = "127.0.0.1:8765"
	}
}

// 基础校验
func validate(c *Config) error {
	switch strings.ToLower(c.Cache.Backend) {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("cache.backend 仅支持 memory/sqlite/redis，当前=%s", c.Cache.Backend)
	}
	if c.Protection.FullProximityPct >= c.Protection.ZeroProximityPct {
		return fmt.Errorf("protection.full_proximity_pct(%.2f) 必须小于 zero_proximity_pct(%.2f)",
			c.Protection.FullProximityPct, c.Protection.ZeroProximityPct)
	}
	if c.Analysis.MACDFast >= c.Analysis.MACDSlow {
		return fmt.Errorf("analysis.macd_fast 必须小于 macd_slow")
	}
	for _, p := range c.Analysis.EMAPeriods {
		if p <= 1 {
			return fmt.Errorf("analysis.ema_periods 含非法周期 %d", p)
		}
	}
	if c.Analysis.Limit < c.Analysis.MinDataPoints {
		return fmt.Errorf("analysis.limit(%d) 不能小于 min_data_points(%d)", c.Analysis.Limit, c.Analysis.MinDataPoints)
	}
	if c.Analysis.RSIPeriod < 2 {
		return fmt.Errorf("analysis.rsi_period 至少为 2")
	}
	return nil
}
