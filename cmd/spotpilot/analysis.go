package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/render"
)

func (c *cli) analysisCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "analysis", Short: "技术指标与组合保护"}

	var coins []string
	ind := &cobra.Command{
		Use:   "indicators",
		Short: "RSI / EMA / MACD / 支撑位",
		Args:  cobra.NoArgs,
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, _ []string) error {
			rep, err := a.Indicators(cmd.Context(), coins)
			if err != nil {
				return err
			}
			if len(rep.Snapshots) == 0 && len(rep.Failed) > 0 {
				return fmt.Errorf("全部交易对指标计算失败")
			}
			return c.emit(cmd, rep, func() string {
				out := render.Snapshots(rep.Snapshots)
				failed := make([]string, 0, len(rep.Failed))
				for sym := range rep.Failed {
					failed = append(failed, sym)
				}
				sort.Strings(failed)
				for _, sym := range failed {
					out += fmt.Sprintf("\n%s: %s", sym, rep.Failed[sym])
				}
				return out
			})
		}),
	}
	ind.Flags().StringSliceVar(&coins, "coins", nil, "币种列表，如 BTC,ETH（默认 analysis.default_coins）")

	prot := &cobra.Command{
		Use:   "protection",
		Short: "持仓保护评分",
		Args:  cobra.NoArgs,
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, _ []string) error {
			sum, err := a.Protection(cmd.Context())
			if err != nil {
				return err
			}
			return c.emit(cmd, sum, func() string { return render.Protection(sum) })
		}),
	}

	var out string
	chart := &cobra.Command{
		Use:   "chart SYMBOL",
		Short: "生成 K 线 + EMA + RSI 的 HTML 图表",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, args []string) error {
			path, err := a.Chart(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}
			return c.emit(cmd, map[string]string{"symbol": strings.ToUpper(args[0]), "path": path}, func() string {
				return "图表已生成: " + path
			})
		}),
	}
	chart.Flags().StringVar(&out, "out", "", "输出文件，默认写入 chart.output_dir")

	cmd.AddCommand(ind, prot, chart)
	return cmd
}
