package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/exchange"
	"spotpilot/internal/render"
)

func (c *cli) validateCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "validate", Short: "只校验不下单"}

	var price, stopPrice, stopLimit float64
	sim := &cobra.Command{
		Use:   "order-simulation SYMBOL SIDE TYPE QTY",
		Short: "按交易规则与当前价模拟一笔订单",
		Args:  cobra.ExactArgs(4),
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, args []string) error {
			side, err := parseSide(args[1])
			if err != nil {
				return err
			}
			typ, ok := exchange.ParseOrderType(args[2])
			if !ok {
				return fmt.Errorf("不支持的订单类型: %q", args[2])
			}
			qty, err := parsePositive("数量", args[3])
			if err != nil {
				return err
			}
			rep, err := a.Simulate(cmd.Context(), exchange.OrderRequest{
				Symbol: args[0], Side: side, Type: typ, Quantity: qty,
				Price: price, StopPrice: stopPrice, StopLimitPrice: stopLimit,
			})
			if err != nil {
				return err
			}
			if err := c.emit(cmd, rep, func() string { return render.Report(rep) }); err != nil {
				return err
			}
			return rep.Err()
		}),
	}
	sim.Flags().Float64Var(&price, "price", 0, "限价 / OCO 止盈价")
	sim.Flags().Float64Var(&stopPrice, "stop-price", 0, "止损触发价")
	sim.Flags().Float64Var(&stopLimit, "stop-limit", 0, "OCO 止损限价")

	bal := &cobra.Command{
		Use:   "balance-check ASSET",
		Short: "单个资产的有效余额",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			e, err := a.BalanceCheck(cmd.Context(), strings.ToUpper(args[0]))
			if err != nil {
				return err
			}
			return c.emit(cmd, e, func() string {
				return render.KeyValue("有效余额 "+e.Asset, [][2]string{
					{"总额", qtyText(e.Total)},
					{"挂单占用", qtyText(e.Committed)},
					{"可用", qtyText(e.Available)},
				})
			})
		}),
	}

	recs := &cobra.Command{
		Use:   "ai-recommendations JSON|@FILE",
		Short: "评估 AI 给出的建议列表",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			raw := args[0]
			if strings.HasPrefix(raw, "@") {
				buf, err := os.ReadFile(strings.TrimPrefix(raw, "@"))
				if err != nil {
					return err
				}
				raw = string(buf)
			}
			res, err := a.ReviewJSON(cmd.Context(), raw)
			if err != nil {
				return err
			}
			if err := c.emit(cmd, res, func() string { return render.Review(res) }); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("建议未通过评估：得分 %d/100（%s）", res.Score, res.Label)
			}
			return nil
		}),
	}

	cmd.AddCommand(sim, bal, recs)
	return cmd
}
