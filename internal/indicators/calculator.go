package indicators

import (
	"context"
	"fmt"
	"math"
	"strings"

	"spotpilot/internal/exchange"
	"spotpilot/internal/logger"
)

// Params 指标参数（来自 [analysis] 配置）
type Params struct {
	Interval      string
	Limit         int
	MinDataPoints int
	RSIPeriod     int
	EMAPeriods    []int
	MACDFast      int
	MACDSlow      int
	MACDSignal    int
}

type Trend string

const (
	TrendBullish Trend = "BULLISH"
	TrendBearish Trend = "BEARISH"
	TrendNeutral Trend = "NEUTRAL"
)

// Snapshot 单个交易对的指标快照
type Snapshot struct {
	Symbol   string          `json:"symbol"`
	Interval string          `json:"interval"`
	Points   int             `json:"points"`
	Price    float64         `json:"price"`
	RSI      float64         `json:"rsi"`
	EMA      map[int]float64 `json:"ema"`
	MACD     MACDValue       `json:"macd"`
	Supports []float64       `json:"supports"`
	Trend    Trend           `json:"trend"`
	Change   float64         `json:"change_pct"` // 窗口首尾涨跌幅
	Low      float64         `json:"low"`
	High     float64         `json:"high"`
}

// RSIZone 超买/超卖描述
func (s Snapshot) RSIZone() string {
	switch {
	case s.RSI >= 70:
		return "超买"
	case s.RSI <= 30:
		return "超卖"
	}
	return "中性"
}

// KlineSource 只需要 K 线能力
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Kline, error)
}

type Calculator struct {
	src    KlineSource
	params Params
}

func NewCalculator(src KlineSource, p Params) *Calculator {
	if p.Interval == "" {
		p.Interval = "1h"
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.RSIPeriod <= 0 {
		p.RSIPeriod = 14
	}
	if p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 {
		p.MACDFast, p.MACDSlow, p.MACDSignal = 12, 26, 9
	}
	return &Calculator{src: src, params: p}
}

func (c *Calculator) Params() Params { return c.params }

// Snapshot 拉取 K 线并计算全部指标
func (c *Calculator) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	symbol = strings.ToUpper(symbol)
	ks, err := c.src.Klines(ctx, symbol, c.params.Interval, c.params.Limit)
	if err != nil {
		return Snapshot{}, fmt.Errorf("获取 %s K线失败: %w", symbol, err)
	}
	if len(ks) < c.params.MinDataPoints {
		return Snapshot{}, &InsufficientDataError{Indicator: symbol, Need: c.params.MinDataPoints, Got: len(ks)}
	}
	logger.Debugf("%s %s K线 %d 根", symbol, c.params.Interval, len(ks))
	return c.FromKlines(symbol, ks)
}

// FromKlines 基于已有 K 线计算指标（时间升序）
func (c *Calculator) FromKlines(symbol string, ks []exchange.Kline) (Snapshot, error) {
	closes := exchange.Closes(ks)
	snap := Snapshot{Symbol: symbol, Interval: c.params.Interval, Points: len(closes), EMA: map[int]float64{}}
	if len(closes) == 0 {
		return snap, &InsufficientDataError{Indicator: symbol, Need: 1, Got: 0}
	}
	snap.Price = closes[len(closes)-1]

	var err error
	if snap.RSI, err = RSI(closes, c.params.RSIPeriod); err != nil {
		return snap, err
	}
	for _, p := range c.params.EMAPeriods {
		v, err := EMA(closes, p)
		if err != nil {
			return snap, err
		}
		snap.EMA[p] = v
	}
	if snap.MACD, err = MACD(closes, c.params.MACDFast, c.params.MACDSlow, c.params.MACDSignal); err != nil {
		return snap, err
	}
	snap.Supports = SupportLevels(exchange.Lows(ks), 2, 50)
	snap.Change, snap.Low, snap.High = window(ks)
	snap.Trend = trendOf(snap, c.params.EMAPeriods)
	return snap, nil
}

// 价格位于最短/最长 EMA 同侧且 EMA 排列一致才判定趋势
func trendOf(s Snapshot, periods []int) Trend {
	if len(periods) < 2 {
		return TrendNeutral
	}
	short, long := periods[0], periods[0]
	for _, p := range periods {
		if p < short {
			short = p
		}
		if p > long {
			long = p
		}
	}
	es, el := s.EMA[short], s.EMA[long]
	switch {
	case s.Price > es && es > el && s.MACD.Histogram >= 0:
		return TrendBullish
	case s.Price < es && es < el && s.MACD.Histogram <= 0:
		return TrendBearish
	}
	return TrendNeutral
}

// window 以首根收盘价（缺失时用开盘价）为基准计算涨跌幅
func window(ks []exchange.Kline) (changePct, low, high float64) {
	if len(ks) == 0 {
		return 0, 0, 0
	}
	base := ks[0].Close
	if base == 0 {
		base = ks[0].Open
	}
	if base != 0 {
		changePct = (ks[len(ks)-1].Close - base) / base * 100
	}
	low, high = math.MaxFloat64, -math.MaxFloat64
	for _, k := range ks {
		low = math.Min(low, k.Low)
		high = math.Max(high, k.High)
	}
	return changePct, low, high
}
