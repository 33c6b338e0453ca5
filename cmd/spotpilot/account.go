package main

import (
	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/pkg/format"
	"spotpilot/internal/render"
)

func (c *cli) accountCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "账户查询"}

	var minValue float64
	info := &cobra.Command{
		Use:   "info",
		Short: "资产与估值",
		Args:  cobra.NoArgs,
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, _ []string) error {
			p, err := a.Portfolio(cmd.Context(), minValue)
			if err != nil {
				return err
			}
			return c.emit(cmd, p, func() string { return render.Portfolio(p) })
		}),
	}
	info.Flags().Float64Var(&minValue, "min-value", 0, "隐藏估值低于该值（USD）的资产，默认取 account.min_value_usd")

	var symbol string
	orders := &cobra.Command{
		Use:   "orders",
		Short: "当前挂单",
		Args:  cobra.NoArgs,
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, _ []string) error {
			list, err := a.OpenOrders(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			return c.emit(cmd, list, func() string { return render.Orders(list) })
		}),
	}
	orders.Flags().StringVar(&symbol, "symbol", "", "只看某个交易对")

	var limit int
	history := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "成交历史",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			ts, err := a.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return c.emit(cmd, ts, func() string { return render.Trades(args[0], ts) })
		}),
	}
	history.Flags().IntVar(&limit, "limit", 20, "最多返回条数")

	bal := &cobra.Command{
		Use:   "balance",
		Short: "扣除挂单占用后的有效余额",
		Args:  cobra.NoArgs,
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, _ []string) error {
			sheet, err := a.Balances(cmd.Context())
			if err != nil {
				return err
			}
			return c.emit(cmd, sheet.Sorted(), func() string { return render.Balances(sheet) })
		}),
	}

	cmd.AddCommand(info, orders, history, bal)
	return cmd
}

func qtyText(v float64) string { return format.Float(v, 8) }
