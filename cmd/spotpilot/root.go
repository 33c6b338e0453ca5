package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/config"
	"spotpilot/internal/exchange"
	"spotpilot/internal/logger"
	"spotpilot/internal/pkg/jsonutil"
)

const envConfigPath = "SPOTPILOT_CONFIG"

// cli 全局参数，子命令通过闭包共享
type cli struct {
	configPath string
	envFile    string
	logLevel   string
	json       bool
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "spotpilot",
		Short:         "Binance 现货交易助手：账户查询、带校验的下单、指标与 AI 提示词",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	defCfg := os.Getenv(envConfigPath)
	if defCfg == "" {
		defCfg = config.DefaultConfigPath
	}
	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", defCfg, "配置文件路径（环境变量 "+envConfigPath+"）")
	pf.StringVar(&c.envFile, "env-file", ".env", "凭证 .env 文件")
	pf.StringVar(&c.logLevel, "log-level", "", "日志级别 debug|info|warn|error，覆盖配置")
	pf.BoolVar(&c.json, "json", false, "以 JSON 输出")

	root.AddCommand(
		c.accountCmd(),
		c.orderCmd(),
		c.exchangeCmd(),
		c.analysisCmd(),
		c.validateCmd(),
		c.aiCmd(),
		c.mcpCmd(),
	)
	return root
}

// open 加载配置与凭证并构建 App；signed=true 时要求 API 凭证
func (c *cli) open(cmd *cobra.Command, signed bool) (*app.App, error) {
	cfg, err := config.LoadOrDefault(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logLevel != "" {
		cfg.App.LogLevel = c.logLevel
	}
	logger.SetLevel(cfg.App.LogLevel)
	if err := cfg.LoadCredentials(c.envFile); err != nil {
		return nil, err
	}
	if signed {
		if err := cfg.RequireCredentials(); err != nil {
			return nil, err
		}
	}
	logger.Debugf("配置 %s（环境=%s，缓存=%s）", c.configPath, cfg.App.Env, cfg.Cache.Backend)
	return app.NewApp(cmd.Context(), cfg)
}

// run 包装需要 App 的命令，保证资源释放
func (c *cli) run(signed bool, fn func(cmd *cobra.Command, a *app.App, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := c.open(cmd, signed)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

// emit --json 时输出 v，否则输出表格文本
func (c *cli) emit(cmd *cobra.Command, v any, table func() string) error {
	if c.json {
		s, err := jsonutil.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), s)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), table())
	return nil
}

func parsePositive(name, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("无效的%s: %q", name, raw)
	}
	return v, nil
}

func parseSide(raw string) (exchange.Side, error) {
	s, ok := exchange.ParseSide(raw)
	if !ok {
		return "", fmt.Errorf("方向必须为 BUY 或 SELL: %q", raw)
	}
	return s, nil
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的订单 ID: %q", raw)
	}
	return id, nil
}
