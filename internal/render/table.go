// Package render 把命令结果渲染为终端表格。
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"spotpilot/internal/balance"
	"spotpilot/internal/exchange"
	"spotpilot/internal/indicators"
	"spotpilot/internal/pkg/jsonutil"
	"spotpilot/internal/pkg/format"
	ptext "spotpilot/internal/pkg/text"
	"spotpilot/internal/protection"
	"spotpilot/internal/prompt"
	"spotpilot/internal/review"
	"spotpilot/internal/store"
	"spotpilot/internal/validator"
)

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if title != "" {
		t.SetTitle("%s", title)
	}
	return t
}

// BlockTable 渲染单列表格，标题作为表头，内容放入一行
func BlockTable(title, content string) string {
	t := newTable("")
	t.AppendHeader(table.Row{title})
	t.AppendRow(table.Row{content})
	return t.Render()
}

// KeyValue 两列属性表
func KeyValue(title string, pairs [][2]string) string {
	t := newTable(title)
	for _, p := range pairs {
		t.AppendRow(table.Row{p[0], p[1]})
	}
	return t.Render()
}

func qty(v float64) string { return format.Float(v, 8) }

func Portfolio(p balance.Portfolio) string {
	t := newTable("账户资产")
	t.AppendHeader(table.Row{"资产", "可用", "冻结", "总量", "价格", "价值", "占比"})
	for _, a := range p.Assets {
		t.AppendRow(table.Row{a.Asset, qty(a.Free), qty(a.Locked), qty(a.Total), format.Price(a.Price), format.USD(a.Value), format.Pct(a.AllocationPct)})
	}
	t.AppendFooter(table.Row{"合计", "", "", "", "", format.USD(p.TotalValue), ""})
	t.SetColumnConfigs(numericColumns(2, 3, 4, 5, 6, 7))
	out := t.Render()
	if len(p.Unpriced) > 0 {
		out += "\n无报价资产: " + strings.Join(p.Unpriced, ", ")
	}
	return out
}

func numericColumns(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		out = append(out, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	return out
}

func Orders(orders []exchange.Order) string {
	if len(orders) == 0 {
		return "无挂单"
	}
	t := newTable(fmt.Sprintf("挂单 (%d)", len(orders)))
	t.AppendHeader(table.Row{"交易对", "订单ID", "OCO", "方向", "类型", "价格", "触发价", "数量", "已成交", "时间"})
	for _, o := range orders {
		oco := "-"
		if o.IsOCO() {
			oco = fmt.Sprint(o.OrderListID)
		}
		stop := "-"
		if o.StopPrice > 0 {
			stop = format.Price(o.StopPrice)
		}
		t.AppendRow(table.Row{o.Symbol, o.OrderID, oco, o.Side, o.Type, format.Price(o.Price), stop, qty(o.OrigQty), qty(o.ExecutedQty), format.Millis(o.Time)})
	}
	t.SetColumnConfigs(numericColumns(6, 7, 8, 9))
	return t.Render()
}

func Trades(symbol string, trades []exchange.Trade) string {
	if len(trades) == 0 {
		return symbol + " 无成交记录"
	}
	t := newTable(symbol + " 成交记录")
	t.AppendHeader(table.Row{"时间", "方向", "价格", "数量", "成交额", "手续费", "Maker"})
	for _, tr := range trades {
		side := "SELL"
		if tr.IsBuyer {
			side = "BUY"
		}
		t.AppendRow(table.Row{format.Millis(tr.Time), side, format.Price(tr.Price), qty(tr.Qty), format.Float(tr.QuoteQty, 4),
			qty(tr.Commission) + " " + tr.CommissionAsset, tr.IsMaker})
	}
	return t.Render()
}

func Balances(sheet balance.Sheet) string {
	t := newTable("有效余额")
	t.AppendHeader(table.Row{"资产", "可用", "冻结", "总量", "挂单占用", "实际可用"})
	for _, e := range sheet.Sorted() {
		t.AppendRow(table.Row{e.Asset, qty(e.Free), qty(e.Locked), qty(e.Total), qty(e.Committed), qty(e.Available)})
	}
	t.SetColumnConfigs(numericColumns(2, 3, 4, 5, 6))
	return t.Render()
}

func Filters(f exchange.SymbolFilters) string {
	return KeyValue(f.Symbol+" 交易规则", [][2]string{
		{"状态", f.Status},
		{"基础/计价", f.BaseAsset + "/" + f.QuoteAsset},
		{"数量步长", qty(f.StepSize)},
		{"最小/最大数量", qty(f.MinQty) + " / " + qty(f.MaxQty)},
		{"价格步长", qty(f.TickSize)},
		{"最低/最高价", qty(f.MinPrice) + " / " + qty(f.MaxPrice)},
		{"最小名义价值", qty(f.MinNotional)},
		{"最大名义价值", qty(f.MaxNotional)},
		{"买单价格区间", fmt.Sprintf("×%s ~ ×%s", format.Float(f.Percent.BidDown, 4), format.Float(f.Percent.BidUp, 4))},
		{"卖单价格区间", fmt.Sprintf("×%s ~ ×%s", format.Float(f.Percent.AskDown, 4), format.Float(f.Percent.AskUp, 4))},
	})
}

func LotSize(f exchange.SymbolFilters) string {
	return KeyValue(f.Symbol+" LOT_SIZE", [][2]string{
		{"stepSize", qty(f.StepSize)},
		{"minQty", qty(f.MinQty)},
		{"maxQty", qty(f.MaxQty)},
		{"数量小数位", fmt.Sprint(validator.Decimals(f.StepSize))},
	})
}

func Report(rep validator.Report) string {
	req, adj := rep.Request, rep.Adjusted
	pairs := [][2]string{
		{"订单", fmt.Sprintf("%s %s %s", req.Symbol, req.Side, req.Type)},
		{"市场价", format.Price(rep.MarketPrice)},
		{"数量", qty(req.Quantity) + " → " + qty(adj.Quantity)},
	}
	if req.Price > 0 {
		pairs = append(pairs, [2]string{"价格", format.Price(req.Price) + " → " + format.Price(adj.Price)})
	}
	if req.StopPrice > 0 {
		pairs = append(pairs, [2]string{"触发价", format.Price(req.StopPrice) + " → " + format.Price(adj.StopPrice)})
	}
	pairs = append(pairs, [2]string{"名义价值", format.Float(rep.Notional, 4)})
	if rep.Simulation != nil {
		pairs = append(pairs, [2]string{"模拟结果", string(rep.Simulation.Outcome)}, [2]string{"原因", rep.Simulation.Reason})
	}
	status := "通过"
	if !rep.Valid() {
		status = "拦截"
	}
	pairs = append(pairs, [2]string{"结论", status})
	out := KeyValue("订单校验", pairs)
	if len(rep.Issues) == 0 {
		return out
	}
	blocking := rep.Count(validator.SeverityCritical) + rep.Count(validator.SeverityError)
	t := newTable(fmt.Sprintf("问题 (阻断 %d / 警告 %d)", blocking, rep.Count(validator.SeverityWarning)))
	t.AppendHeader(table.Row{"级别", "检查", "说明"})
	for _, is := range rep.Issues {
		t.AppendRow(table.Row{is.Severity, is.Check, is.Message})
	}
	return out + "\n" + t.Render()
}

func Simulation(sim validator.Simulation) string {
	return KeyValue("下单模拟", [][2]string{
		{"结果", string(sim.Outcome)},
		{"数量", qty(sim.Quantity)},
		{"价格", format.Price(sim.Price)},
		{"触发价", format.Price(sim.StopPrice)},
		{"原因", sim.Reason},
	})
}

func Snapshots(snaps []indicators.Snapshot) string {
	periods := map[int]struct{}{}
	for _, s := range snaps {
		for p := range s.EMA {
			periods[p] = struct{}{}
		}
	}
	cols := make([]int, 0, len(periods))
	for p := range periods {
		cols = append(cols, p)
	}
	sort.Ints(cols)

	header := table.Row{"交易对", "价格", "RSI", "状态", "涨跌"}
	for _, p := range cols {
		header = append(header, fmt.Sprintf("EMA%d", p))
	}
	header = append(header, "MACD", "Signal", "Hist", "支撑", "趋势")
	t := newTable("技术指标")
	t.AppendHeader(header)
	for _, s := range snaps {
		row := table.Row{s.Symbol, format.Price(s.Price), format.Float(s.RSI, 2), s.RSIZone(), fmt.Sprintf("%+.2f%%", s.Change)}
		for _, p := range cols {
			if v, ok := s.EMA[p]; ok {
				row = append(row, format.Price(v))
			} else {
				row = append(row, "-")
			}
		}
		supports := make([]string, 0, len(s.Supports))
		for _, v := range s.Supports {
			supports = append(supports, format.Price(v))
		}
		row = append(row, format.Float(s.MACD.MACD, 4), format.Float(s.MACD.Signal, 4), format.Float(s.MACD.Histogram, 4),
			strings.Join(supports, " "), s.Trend)
		t.AppendRow(row)
	}
	return t.Render()
}

func Protection(sum protection.Summary) string {
	if len(sum.Results) == 0 {
		return "没有需要保护的仓位"
	}
	t := newTable(fmt.Sprintf("保护分析 平均 %.1f (%s)", sum.Average, sum.Level))
	t.AppendHeader(table.Row{"资产", "价值", "评分", "级别", "最近距离", "覆盖率", "保护单", "建议"})
	for _, r := range sum.Results {
		nearest := "-"
		if r.Nearest != nil {
			nearest = format.Pct(r.NearestPct)
		}
		t.AppendRow(table.Row{r.Position.Asset, format.USD(r.Position.Value()), r.Score, r.Level, nearest,
			format.Percent(r.Coverage), len(r.Orders), r.Recommendation})
	}
	out := t.Render()
	if len(sum.Unprotected) > 0 {
		out += "\n无保护: " + strings.Join(sum.Unprotected, ", ")
	}
	return out
}

func Review(res review.Result) string {
	pairs := [][2]string{
		{"总分", fmt.Sprintf("%d/100 (%s)", res.Score, res.Label)},
		{"可执行", fmt.Sprint(res.Valid)},
		{"数据新鲜度", fmt.Sprintf("%d/100", res.Freshness)},
	}
	for _, c := range review.Categories {
		pairs = append(pairs, [2]string{string(c), fmt.Sprintf("%d/25", res.Categories[c])})
	}
	out := KeyValue("建议评估", pairs)
	if len(res.Findings) > 0 {
		t := newTable("发现")
		t.AppendHeader(table.Row{"级别", "类别", "扣分", "说明"})
		for _, f := range res.Findings {
			cat := string(f.Category)
			if cat == "" {
				cat = "data_freshness"
			}
			t.AppendRow(table.Row{f.Severity, cat, f.Penalty, ptext.Truncate(f.Message, 80)})
		}
		out += "\n" + t.Render()
	}
	if len(res.Advice) > 0 {
		out += "\n" + BlockTable("建议", strings.Join(res.Advice, "\n"))
	}
	return out
}

func OrderResult(r exchange.OrderResult) string {
	return KeyValue("订单", [][2]string{
		{"交易对", r.Symbol},
		{"订单ID", fmt.Sprint(r.OrderID)},
		{"客户端ID", r.ClientOrderID},
		{"状态", r.Status},
		{"类型", r.Side + " " + r.Type},
		{"价格", format.Price(r.Price)},
		{"数量", qty(r.OrigQty)},
		{"已成交", qty(r.ExecutedQty)},
	})
}

func OCOResult(r exchange.OCOResult) string {
	ids := make([]string, 0, len(r.OrderIDs))
	for _, id := range r.OrderIDs {
		ids = append(ids, fmt.Sprint(id))
	}
	return KeyValue("OCO 订单", [][2]string{
		{"交易对", r.Symbol},
		{"列表ID", fmt.Sprint(r.OrderListID)},
		{"列表客户端ID", r.ListClientOrderID},
		{"状态", r.ListStatus},
		{"子订单", strings.Join(ids, ", ")},
	})
}

func Journal(recs []store.OrderRecord) string {
	if len(recs) == 0 {
		return "无下单日志"
	}
	t := newTable("下单日志")
	t.AppendHeader(table.Row{"时间", "动作", "交易对", "方向", "类型", "数量", "价格", "状态", "订单ID", "错误"})
	for _, r := range recs {
		id := "-"
		if r.ExchangeOrderID != 0 {
			id = fmt.Sprint(r.ExchangeOrderID)
		}
		t.AppendRow(table.Row{r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), r.Action, r.Symbol, r.Side, r.OrderType,
			qty(r.Quantity), format.Price(r.Price), r.Status, id, ptext.Truncate(r.Error, 40)})
	}
	return t.Render()
}

func Artifact(a prompt.Artifact) string {
	return KeyValue("提示词已生成", [][2]string{
		{"ID", a.ID},
		{"类型", string(a.Kind)},
		{"文件", a.Path},
		{"下一步", fmt.Sprintf("将文件内容交给模型，保存回复后执行: spotpilot ai accept %s <回复文件>", a.ID)},
	})
}

func Response(r prompt.Response) string {
	score := "-"
	if r.Score != nil {
		score = fmt.Sprintf("%d/100", *r.Score)
	}
	pairs := [][2]string{
		{"提示词", r.PromptID},
		{"结构化", fmt.Sprint(r.Structured)},
		{"自评分", score},
		{"建议条数", fmt.Sprint(len(r.Recommendations))},
	}
	if r.ParseError != "" {
		pairs = append(pairs, [2]string{"说明", r.ParseError})
	}
	return KeyValue("回复已接收", pairs)
}

// Responses 某个提示词下已接收的回复；最后一条附带建议 JSON
func Responses(promptID string, recs []store.ResponseRecord) string {
	if len(recs) == 0 {
		return "提示词 " + promptID + " 暂无回复"
	}
	t := newTable(fmt.Sprintf("回复 (%d)", len(recs)))
	t.AppendHeader(table.Row{"#", "时间", "自评分", "摘要"})
	for _, r := range recs {
		score := "-"
		if r.Score != nil {
			score = fmt.Sprintf("%d/100", *r.Score)
		}
		summary := strings.Join(strings.Fields(r.Raw), " ")
		t.AppendRow(table.Row{r.ID, r.CreatedAt.UTC().Format("2006-01-02 15:04:05"), score, ptext.Truncate(summary, 60)})
	}
	out := t.Render()
	if last := recs[len(recs)-1]; last.Recommendations != "" {
		out += "\n" + BlockTable("建议 JSON", jsonutil.Pretty(last.Recommendations))
	}
	return out
}
