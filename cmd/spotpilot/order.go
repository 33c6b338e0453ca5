package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/render"
)

// placed 被拦截时先输出校验报告，再返回错误
func (c *cli) placed(cmd *cobra.Command, p app.Placement, err error) error {
	if err != nil {
		if !c.json && len(p.Report.Issues) > 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), render.Report(p.Report))
		}
		return err
	}
	return c.emit(cmd, p, func() string {
		var b strings.Builder
		if len(p.Report.Issues) > 0 {
			b.WriteString(render.Report(p.Report) + "\n")
		}
		if p.OCO != nil {
			b.WriteString(render.OCOResult(*p.OCO))
		} else if p.Order != nil {
			b.WriteString(render.OrderResult(*p.Order))
		}
		return b.String()
	})
}

func (c *cli) orderCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "order", Short: "下单与撤单（下单前一律本地校验）"}

	market := &cobra.Command{
		Use:   "place-market SYMBOL SIDE QTY",
		Short: "市价单",
		Args:  cobra.ExactArgs(3),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			side, err := parseSide(args[1])
			if err != nil {
				return err
			}
			qty, err := parsePositive("数量", args[2])
			if err != nil {
				return err
			}
			p, err := a.PlaceMarket(cmd.Context(), args[0], side, qty)
			return c.placed(cmd, p, err)
		}),
	}

	var allowImmediate bool
	limit := &cobra.Command{
		Use:   "place-limit SYMBOL SIDE QTY PRICE",
		Short: "限价单；默认拒绝会立即成交的价格",
		Args:  cobra.ExactArgs(4),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			side, err := parseSide(args[1])
			if err != nil {
				return err
			}
			qty, err := parsePositive("数量", args[2])
			if err != nil {
				return err
			}
			price, err := parsePositive("价格", args[3])
			if err != nil {
				return err
			}
			p, err := a.PlaceLimit(cmd.Context(), args[0], side, qty, price, allowImmediate)
			return c.placed(cmd, p, err)
		}),
	}
	limit.Flags().BoolVar(&allowImmediate, "allow-immediate", false, "允许作为吃单立即成交")

	var stopLimit float64
	oco := &cobra.Command{
		Use:   "place-oco SYMBOL QTY PRICE STOP",
		Short: "卖出 OCO：PRICE 为止盈价，STOP 为止损触发价",
		Args:  cobra.ExactArgs(4),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			vals := make([]float64, 3)
			for i, name := range []string{"数量", "止盈价", "止损价"} {
				v, err := parsePositive(name, args[i+1])
				if err != nil {
					return err
				}
				vals[i] = v
			}
			p, err := a.PlaceOCO(cmd.Context(), args[0], vals[0], vals[1], vals[2], stopLimit)
			return c.placed(cmd, p, err)
		}),
	}
	oco.Flags().Float64Var(&stopLimit, "stop-limit", 0, "止损限价，默认等于 STOP")

	stop := &cobra.Command{
		Use:   "place-stop-limit SYMBOL SIDE QTY PRICE STOP",
		Short: "止损限价单",
		Args:  cobra.ExactArgs(5),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			side, err := parseSide(args[1])
			if err != nil {
				return err
			}
			vals := make([]float64, 3)
			for i, name := range []string{"数量", "限价", "触发价"} {
				v, err := parsePositive(name, args[i+2])
				if err != nil {
					return err
				}
				vals[i] = v
			}
			p, err := a.PlaceStopLimit(cmd.Context(), args[0], side, vals[0], vals[1], vals[2])
			return c.placed(cmd, p, err)
		}),
	}

	cancel := &cobra.Command{
		Use:   "cancel order|oco SYMBOL ID",
		Short: "撤销单笔订单或整个 OCO 列表",
		Args:  cobra.ExactArgs(3),
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, args []string) error {
			id, err := parseID(args[2])
			if err != nil {
				return err
			}
			switch strings.ToLower(args[0]) {
			case "order":
				res, err := a.CancelOrder(cmd.Context(), args[1], id)
				if err != nil {
					return err
				}
				return c.emit(cmd, res, func() string { return render.OrderResult(res) })
			case "oco":
				res, err := a.CancelOCO(cmd.Context(), args[1], id)
				if err != nil {
					return err
				}
				return c.emit(cmd, res, func() string { return render.OCOResult(res) })
			}
			return fmt.Errorf("撤单类型只能是 order 或 oco: %q", args[0])
		}),
	}

	var jSymbol string
	var jLimit int
	journal := &cobra.Command{
		Use:   "journal",
		Short: "本地下单日志（含被拦截的请求）",
		Args:  cobra.NoArgs,
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, _ []string) error {
			recs, err := a.Journal(cmd.Context(), jSymbol, jLimit)
			if err != nil {
				return err
			}
			return c.emit(cmd, recs, func() string { return render.Journal(recs) })
		}),
	}
	journal.Flags().StringVar(&jSymbol, "symbol", "", "只看某个交易对")
	journal.Flags().IntVar(&jLimit, "limit", 50, "最多返回条数")

	cmd.AddCommand(market, limit, oco, stop, cancel, journal)
	return cmd
}
