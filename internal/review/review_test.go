package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/exchange"
)

func solFilters() exchange.SymbolFilters {
	return exchange.SymbolFilters{
		Symbol: "SOLUSDT", BaseAsset: "SOL", QuoteAsset: "USDT",
		StepSize: 0.001, MinQty: 0.001, MaxQty: 9000000,
		TickSize: 0.01, MinPrice: 0.01, MaxPrice: 10000,
		MinNotional: 5, Percent: exchange.DefaultPercentPrice,
	}
}

func market() Market {
	return Market{
		Prices:         map[string]float64{"SOLUSDT": 180},
		RSI:            map[string]float64{"SOLUSDT": 50},
		Filters:        map[string]exchange.SymbolFilters{"SOLUSDT": solFilters()},
		QuoteAvailable: 1000,
	}
}

func findings(r Result, cat Category) []Finding {
	out := []Finding{}
	for _, f := range r.Findings {
		if f.Category == cat {
			out = append(out, f)
		}
	}
	return out
}

func TestParse(t *testing.T) {
	raw := "建议如下：\n[{\"symbol\":\"solusdt\",\"action\":\"buy\",\"quantity\":1,\"price\":175},{\"symbol\":\"SOLUSDT\",\"action\":\"CANCEL\"}]\nSCORE: 80/100"
	recs, err := Parse(raw)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "SOLUSDT", recs[0].Symbol)
	assert.Equal(t, ActionBuy, recs[0].Action)
	assert.Equal(t, []string{"SOLUSDT"}, Symbols(recs))

	_, err = Parse(`[{"symbol":"SOLUSDT","action":"HOLD","quantity":1}]`)
	assert.Error(t, err)
	_, err = Parse(`[{"symbol":"SOLUSDT","action":"OCO","quantity":1,"price":200}]`)
	assert.Error(t, err)
	_, err = Parse(`[{"symbol":"SOLUSDT","action":"SELL"}]`)
	assert.Error(t, err)
	_, err = Parse("没有数组")
	assert.Error(t, err)
}

func TestEvaluateCleanPlan(t *testing.T) {
	recs := []Recommendation{
		{Symbol: "SOLUSDT", Action: ActionBuy, Quantity: 1, Price: 175, ExpectedCurrentPrice: 180},
		{Symbol: "SOLUSDT", Action: ActionOCO, Quantity: 1, Price: 200, StopPrice: 170},
	}
	res := Evaluate(recs, market())
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, "EXCELLENT", res.Label)
	assert.True(t, res.Valid)
	assert.Equal(t, 100, res.Freshness)
	assert.Empty(t, res.Findings)
	for _, c := range Categories {
		assert.Equal(t, 25, res.Categories[c])
	}
}

func TestEvaluateOversoldSellIsError(t *testing.T) {
	m := market()
	m.RSI["SOLUSDT"] = 15
	res := Evaluate([]Recommendation{{Symbol: "SOLUSDT", Action: ActionSell, Quantity: 1, Price: 190}}, m)
	assert.Equal(t, 17, res.Categories[CategoryTechnical])
	assert.False(t, res.Valid)
	require.Len(t, res.Errors(), 1)

	m.RSI["SOLUSDT"] = 25
	res = Evaluate([]Recommendation{{Symbol: "SOLUSDT", Action: ActionSell, Quantity: 1, Price: 190}}, m)
	assert.Equal(t, 22, res.Categories[CategoryTechnical])
	assert.True(t, res.Valid)

	m.RSI["SOLUSDT"] = 90
	res = Evaluate([]Recommendation{{Symbol: "SOLUSDT", Action: ActionBuy, Quantity: 1, Price: 175}}, m)
	assert.Equal(t, 20, res.Categories[CategoryTechnical])
}

func TestEvaluateRiskDeployment(t *testing.T) {
	res := Evaluate([]Recommendation{{Symbol: "BTCUSDT", Action: ActionBuy, Quantity: 0.1, Price: 60000}}, market())
	// 无 OCO -3，动用 >90% -10
	assert.Equal(t, 12, res.Categories[CategoryRisk])
	// 无行情与规则 -2
	assert.Equal(t, 23, res.Categories[CategoryExecution])
	// 无 RSI -3
	assert.Equal(t, 22, res.Categories[CategoryTechnical])
	assert.False(t, res.Valid)

	m := market()
	m.QuoteAvailable = 300
	res = Evaluate([]Recommendation{{Symbol: "SOLUSDT", Action: ActionBuy, Quantity: 1, Price: 175}}, m)
	assert.Equal(t, 20, res.Categories[CategoryRisk])
	assert.True(t, res.Valid)
}

func TestEvaluateStopDistance(t *testing.T) {
	recs := []Recommendation{
		{Symbol: "SOLUSDT", Action: ActionOCO, Quantity: 1, Price: 200, StopPrice: 150},
		{Symbol: "SOLUSDT", Action: ActionOCO, Quantity: 1, Price: 200, StopPrice: 199},
	}
	res := Evaluate(recs, market())
	assert.Len(t, findings(res, CategoryRisk), 2)
	assert.Equal(t, 19, res.Categories[CategoryRisk])
}

func TestEvaluateImmediateFillCostsExecution(t *testing.T) {
	res := Evaluate([]Recommendation{{Symbol: "SOLUSDT", Action: ActionSell, Quantity: 6.368, Price: 170}}, market())
	assert.Equal(t, 20, res.Categories[CategoryExecution])
	assert.False(t, res.Valid)
	errs := res.Errors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "IMMEDIATE_FILL")
}

func TestEvaluateConcentration(t *testing.T) {
	m := market()
	m.Prices["ETHUSDT"] = 3100
	m.RSI["ETHUSDT"] = 50
	recs := []Recommendation{
		{Symbol: "SOLUSDT", Action: ActionBuy, Quantity: 1, Price: 175},
		{Symbol: "SOLUSDT", Action: ActionCancel},
		{Symbol: "SOLUSDT", Action: ActionBuy, Quantity: 1, Price: 176},
	}
	res := Evaluate(recs, m)
	assert.Equal(t, 20, res.Categories[CategoryPortfolio])

	m.QuoteAvailable = 100000
	recs = []Recommendation{
		{Symbol: "SOLUSDT", Action: ActionBuy, Quantity: 1, Price: 175},
		{Symbol: "ETHUSDT", Action: ActionBuy, Quantity: 1, Price: 3000},
	}
	res = Evaluate(recs, m)
	assert.Equal(t, 22, res.Categories[CategoryPortfolio])
}

func TestFreshness(t *testing.T) {
	recs := []Recommendation{
		{Symbol: "SOLUSDT", Action: ActionCancel, ExpectedCurrentPrice: 150},
		{Symbol: "SOLUSDT", Action: ActionCancel, ExpectedCurrentPrice: 190},
	}
	res := Evaluate(recs, market())
	assert.Equal(t, 70, res.Freshness)
	assert.Equal(t, 100, res.Score)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "EXCELLENT", Label(90))
	assert.Equal(t, "GOOD", Label(75))
	assert.Equal(t, "FAIR", Label(60))
	assert.Equal(t, "POOR", Label(59))
}
