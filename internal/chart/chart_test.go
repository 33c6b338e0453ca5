package chart

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/exchange"
)

func klines(n int) []exchange.Kline {
	out := make([]exchange.Kline, n)
	for i := range out {
		c := 100 + float64(i%7)
		out[i] = exchange.Kline{OpenTime: int64(i) * 3600_000, Open: c - 1, High: c + 2, Low: c - 2, Close: c}
	}
	return out
}

func TestRenderPage(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, "solusdt", klines(60), Options{Interval: "1h", EMAPeriods: []int{10, 21}, RSIPeriod: 14})
	require.NoError(t, err)
	html := buf.String()
	assert.Contains(t, html, "SOLUSDT")
	assert.Contains(t, html, "EMA10")
	assert.Contains(t, html, "EMA21")
	assert.Contains(t, html, "RSI14")
}

func TestRenderErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Render(&buf, "SOLUSDT", nil, Options{}))
	assert.Error(t, Render(&buf, "SOLUSDT", klines(10), Options{EMAPeriods: []int{50}}))
}
