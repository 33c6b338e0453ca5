package main

import (
	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/render"
)

func (c *cli) exchangeCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "exchange", Short: "交易对元数据"}

	lot := &cobra.Command{
		Use:   "lotsize SYMBOL",
		Short: "LOT_SIZE 规则",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, args []string) error {
			f, err := a.SymbolInfo(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			return c.emit(cmd, f, func() string { return render.LotSize(f) })
		}),
	}

	var refresh bool
	info := &cobra.Command{
		Use:   "info SYMBOL",
		Short: "完整交易规则",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, args []string) error {
			f, err := a.SymbolInfo(cmd.Context(), args[0], refresh)
			if err != nil {
				return err
			}
			return c.emit(cmd, f, func() string { return render.Filters(f) })
		}),
	}
	info.Flags().BoolVar(&refresh, "refresh", false, "跳过缓存重新拉取")

	cmd.AddCommand(lot, info)
	return cmd
}
