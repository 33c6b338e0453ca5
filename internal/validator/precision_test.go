package validator

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/exchange"
)

func solFilters() exchange.SymbolFilters {
	return exchange.SymbolFilters{
		Symbol:      "SOLUSDT",
		BaseAsset:   "SOL",
		QuoteAsset:  "USDT",
		StepSize:    0.001,
		MinQty:      0.001,
		MaxQty:      9000000,
		TickSize:    0.01,
		MinPrice:    0.01,
		MaxPrice:    10000,
		MinNotional: 5,
		Percent:     exchange.DefaultPercentPrice,
	}
}

func TestRoundToStepScenario(t *testing.T) {
	got, err := RoundToStep(3.8679, 0.001)
	require.NoError(t, err)
	assert.Equal(t, 3.867, got)
}

func TestRoundToStepNeverExceedsValue(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	steps := []float64{1, 0.1, 0.01, 0.001, 0.00001, 0.5, 0.25}
	for i := 0; i < 2000; i++ {
		v := r.Float64() * 1000
		step := steps[i%len(steps)]
		got, err := RoundToStep(v, step)
		require.NoError(t, err)
		assert.LessOrEqual(t, got, v)
		ratio := got / step
		assert.InDelta(t, math.Round(ratio), ratio, 1e-6, "value=%v step=%v got=%v", v, step, got)
		assert.Less(t, v-got, step+1e-9)
	}
}

func TestRoundToStepRejectsBadInput(t *testing.T) {
	var pe *PrecisionError
	_, err := RoundToStep(1, 0)
	assert.ErrorAs(t, err, &pe)
	_, err = RoundToStep(1, -0.1)
	assert.ErrorAs(t, err, &pe)
	_, err = RoundToStep(-1, 0.1)
	assert.ErrorAs(t, err, &pe)
}

func TestRoundToTickNearest(t *testing.T) {
	got, err := RoundToTick(185.456, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 185.46, got)
	got, err = RoundToTick(185.454, 0.01)
	require.NoError(t, err)
	assert.Equal(t, 185.45, got)
	_, err = RoundToTick(1, 0)
	var pe *PrecisionError
	assert.ErrorAs(t, err, &pe)
}

func TestValidateNotional(t *testing.T) {
	var ne *NotionalError
	assert.ErrorAs(t, ValidateNotional(0.01, 100, 5), &ne)
	assert.InDelta(t, 1.0, ne.Notional, 1e-12)
	assert.NoError(t, ValidateNotional(0.05, 100, 5))
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 500; i++ {
		q, p := r.Float64(), r.Float64()*10
		minN := q*p + 0.01
		assert.ErrorAs(t, ValidateNotional(q, p, minN), &ne)
	}
}

func TestAdjustQuantity(t *testing.T) {
	f := solFilters()
	got, err := AdjustQuantity(6.3689, f)
	require.NoError(t, err)
	assert.Equal(t, 6.368, got)

	var small *QuantityTooSmallError
	_, err = AdjustQuantity(0.0009, f)
	assert.ErrorAs(t, err, &small)

	f.MinQty = 0
	_, err = AdjustQuantity(0.0004, f)
	require.ErrorAs(t, err, &small)
	assert.Zero(t, small.Adjusted)

	f.StepSize = 0
	var pe *PrecisionError
	_, err = AdjustQuantity(1, f)
	assert.ErrorAs(t, err, &pe)
}

func TestAdjustQuantityWithMinQtyOffset(t *testing.T) {
	f := exchange.SymbolFilters{StepSize: 0.1, MinQty: 0.05, TickSize: 0.01}
	got, err := AdjustQuantity(0.37, f)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, got, 1e-12)
}

func TestFormatterOutputsExchangePrecision(t *testing.T) {
	fm := NewFormatter()
	fm.Remember(solFilters())
	q, err := fm.Quantity("solusdt", 3.8679)
	require.NoError(t, err)
	assert.Equal(t, "3.867", q)
	p, err := fm.Price("SOLUSDT", 185.4)
	require.NoError(t, err)
	assert.Equal(t, "185.40", p)
	_, err = fm.Quantity("BTCUSDT", 1)
	assert.Error(t, err)
}

func TestDecimals(t *testing.T) {
	assert.Equal(t, 3, Decimals(0.001))
	assert.Equal(t, 0, Decimals(1))
	assert.Equal(t, 8, Decimals(0.00000001))
}

func TestIsMultiple(t *testing.T) {
	assert.True(t, IsMultiple(170.05, 0.01))
	assert.False(t, IsMultiple(170.005, 0.01))
	assert.False(t, IsMultiple(1, 0))
}
