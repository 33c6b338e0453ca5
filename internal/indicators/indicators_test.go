package indicators

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/exchange"
)

func series(n int, f func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = f(i)
	}
	return out
}

func TestRSIWilderSmoothing(t *testing.T) {
	v, err := RSI([]float64{1, 2, 1.5}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 66.6666667, v, 1e-6)

	v, err = RSI([]float64{1, 2, 1.5, 2.5}, 2)
	require.NoError(t, err)
	// avgGain=(0.5*1+1)/2=0.75 avgLoss=0.25/2=0.125
	assert.InDelta(t, 85.7142857, v, 1e-6)
}

func TestRSIBounds(t *testing.T) {
	up := series(30, func(i int) float64 { return 100 + float64(i) })
	v, err := RSI(up, 14)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	down := series(30, func(i int) float64 { return 100 - float64(i) })
	v, err = RSI(down, 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestRSIFlatSeriesIsNeutral(t *testing.T) {
	flatSeries := series(20, func(int) float64 { return 42 })
	v, err := RSI(flatSeries, 14)
	require.NoError(t, err)
	assert.Equal(t, NeutralRSI, v)
}

func TestInsufficientData(t *testing.T) {
	_, err := RSI(series(14, func(i int) float64 { return float64(i) }), 14)
	var ide *InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, 15, ide.Need)
	assert.Equal(t, 14, ide.Got)

	_, err = EMA([]float64{1, 2, 3}, 3)
	assert.ErrorAs(t, err, &ide)
	_, err = MACD(series(30, func(i int) float64 { return float64(i) }), 12, 26, 9)
	assert.ErrorAs(t, err, &ide)
}

func TestMovingAverages(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	sma, err := SMA(closes, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sma, 1e-12)

	ema, err := EMA(closes, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, ema, 1e-12)
}

func TestMACDOnRisingSeries(t *testing.T) {
	closes := series(60, func(i int) float64 { return 100 + float64(i)*float64(i)*0.01 })
	m, err := MACD(closes, 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, m.MACD, 0.0)
	assert.InDelta(t, m.MACD-m.Signal, m.Histogram, 1e-9)
}

func TestSupportLevels(t *testing.T) {
	lows := []float64{10, 9, 8, 9, 10, 11, 10, 7.5, 10, 11, 12, 11, 8, 11, 12}
	got := SupportLevels(lows, 2, 50)
	assert.Equal(t, []float64{7.5, 8}, got)
}

type staticKlines []exchange.Kline

func (s staticKlines) Klines(ctx context.Context, symbol, interval string, limit int) ([]exchange.Kline, error) {
	return s, nil
}

func TestCalculatorSnapshot(t *testing.T) {
	ks := make(staticKlines, 100)
	for i := range ks {
		c := 100 + float64(i*i)*0.01
		ks[i] = exchange.Kline{OpenTime: int64(i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c}
	}
	calc := NewCalculator(ks, Params{Interval: "1h", Limit: 100, MinDataPoints: 50, RSIPeriod: 14, EMAPeriods: []int{10, 21, 50}})
	snap, err := calc.Snapshot(context.Background(), "solusdt")
	require.NoError(t, err)
	assert.Equal(t, "SOLUSDT", snap.Symbol)
	assert.InDelta(t, 198.01, snap.Price, 1e-9)
	assert.Equal(t, 100.0, snap.RSI)
	assert.Len(t, snap.EMA, 3)
	assert.Greater(t, snap.EMA[10], snap.EMA[50])
	assert.Equal(t, TrendBullish, snap.Trend)
	assert.Equal(t, "超买", snap.RSIZone())
	assert.InDelta(t, 98.01, snap.Change, 1e-9)
	assert.InDelta(t, 99, snap.Low, 1e-9)
	assert.InDelta(t, 199.01, snap.High, 1e-9)
}

func TestCalculatorRequiresMinDataPoints(t *testing.T) {
	ks := make(staticKlines, 20)
	calc := NewCalculator(ks, Params{MinDataPoints: 50, EMAPeriods: []int{10}})
	_, err := calc.Snapshot(context.Background(), "BTCUSDT")
	var ide *InsufficientDataError
	assert.ErrorAs(t, err, &ide)
}

func TestSeriesWarmup(t *testing.T) {
	up := series(30, func(i int) float64 { return 100 + float64(i) })
	ema, err := EMASeries(up, 10)
	require.NoError(t, err)
	require.Len(t, ema, 30)
	assert.True(t, math.IsNaN(ema[8]))
	assert.False(t, math.IsNaN(ema[9]))
	last, _ := EMA(up, 10)
	assert.InDelta(t, last, ema[29], 1e-9)

	rsi, err := RSISeries(up, 14)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(rsi[13]))
	assert.Equal(t, 100.0, rsi[29])

	flatRSI, err := RSISeries(series(20, func(int) float64 { return 7 }), 14)
	require.NoError(t, err)
	assert.Equal(t, NeutralRSI, flatRSI[19])

	_, err = RSISeries(up[:5], 14)
	var ide *InsufficientDataError
	assert.ErrorAs(t, err, &ide)
}
