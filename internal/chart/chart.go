// Package chart 把 K 线与指标渲染为离线 HTML 图表（go-echarts）。
package chart

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"spotpilot/internal/exchange"
	"spotpilot/internal/indicators"
)

const timeLayout = "01-02 15:04"

// Options 图表参数
type Options struct {
	Interval   string
	EMAPeriods []int
	RSIPeriod  int
}

func axis(ks []exchange.Kline) []string {
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = time.UnixMilli(k.OpenTime).UTC().Format(timeLayout)
	}
	return out
}

// NaN 以 "-" 表示，echarts 会留空
func lineData(vals []float64) []opts.LineData {
	out := make([]opts.LineData, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) {
			out[i] = opts.LineData{Value: "-"}
			continue
		}
		out[i] = opts.LineData{Value: v}
	}
	return out
}

func candles(ks []exchange.Kline) []opts.KlineData {
	out := make([]opts.KlineData, len(ks))
	for i, k := range ks {
		// echarts 顺序: open, close, low, high
		out[i] = opts.KlineData{Value: [4]float64{k.Open, k.Close, k.Low, k.High}}
	}
	return out
}

// Render K 线 + EMA 叠加 + RSI 副图
func Render(w io.Writer, symbol string, ks []exchange.Kline, o Options) error {
	symbol = strings.ToUpper(symbol)
	if len(ks) == 0 {
		return fmt.Errorf("%s 没有 K 线数据", symbol)
	}
	if o.RSIPeriod <= 0 {
		o.RSIPeriod = 14
	}
	x := axis(ks)
	closes := exchange.Closes(ks)

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: symbol, Width: "1200px", Height: "520px"}),
		charts.WithTitleOpts(opts.Title{Title: symbol, Subtitle: o.Interval}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	kline.SetXAxis(x).AddSeries(symbol, candles(ks))

	for _, p := range o.EMAPeriods {
		vals, err := indicators.EMASeries(closes, p)
		if err != nil {
			return err
		}
		line := charts.NewLine()
		line.SetXAxis(x).AddSeries(fmt.Sprintf("EMA%d", p), lineData(vals))
		kline.Overlap(line)
	}

	rsiVals, err := indicators.RSISeries(closes, o.RSIPeriod)
	if err != nil {
		return err
	}
	rsi := charts.NewLine()
	rsi.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "1200px", Height: "240px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("RSI(%d)", o.RSIPeriod)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 100}),
	)
	rsi.SetXAxis(x).AddSeries(fmt.Sprintf("RSI%d", o.RSIPeriod), lineData(rsiVals))

	page := components.NewPage()
	page.PageTitle = symbol
	page.AddCharts(kline, rsi)
	return page.Render(w)
}
