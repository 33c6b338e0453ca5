package prompt

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotpilot/internal/balance"
	"spotpilot/internal/exchange"
	"spotpilot/internal/indicators"
	"spotpilot/internal/protection"
	"spotpilot/internal/store"
)

const (
	fixedID = "6f1c2d3e-4b5a-4c7d-8e9f-0a1b2c3d4e5f"
	otherID = "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d"
)

func fixedBuilder() *Builder {
	b := NewBuilder()
	b.newID = func() string { return fixedID }
	b.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }
	return b
}

func sampleInput() Input {
	orders := []exchange.Order{
		{Symbol: "SOLUSDT", OrderID: 11, OrderListID: 7, Side: exchange.SideSell, Type: exchange.TypeLimitMaker, Price: 200, OrigQty: 3},
		{Symbol: "SOLUSDT", OrderID: 12, OrderListID: 7, Side: exchange.SideSell, Type: exchange.TypeStopLossLimit, Price: 169, StopPrice: 170, OrigQty: 3},
		{Symbol: "BTCUSDT", OrderID: 13, OrderListID: -1, Side: exchange.SideBuy, Type: exchange.TypeLimit, Price: 50000, OrigQty: 0.01},
	}
	acct := exchange.Account{Balances: []exchange.Balance{{Asset: "USDT", Free: 1500}, {Asset: "SOL", Free: 1, Locked: 3}}}
	positions := []protection.Position{{Asset: "SOL", Symbol: "SOLUSDT", Quantity: 4, Price: 180}, {Asset: "USDT", Symbol: "USDT", Quantity: 1500, Price: 1}}
	return Input{
		Kind:  KindPortfolio,
		Quote: "USDT",
		Holdings: []Holding{
			{Asset: "USDT", Quantity: 1500, Price: 1, Value: 1500},
			{Asset: "SOL", Quantity: 4, Price: 180, Value: 720},
		},
		Snapshots: []indicators.Snapshot{{Symbol: "SOLUSDT", Price: 180, RSI: 72.3, EMA: map[int]float64{21: 175, 10: 178},
			Supports: []float64{160, 165}, Trend: indicators.TrendBullish}},
		Protection: protection.Portfolio(positions, orders, "USDT", protection.DefaultThresholds),
		Balances:   balance.Compute(acct, orders, "USDT"),
		Orders:     orders,
	}
}

func TestBuildPortfolioPrompt(t *testing.T) {
	art, err := fixedBuilder().Build(sampleInput())
	require.NoError(t, err)
	assert.Equal(t, fixedID, art.ID)
	assert.Equal(t, KindPortfolio, art.Kind)
	assert.Contains(t, art.System, "组合")

	u := art.User
	assert.Contains(t, u, "### 保护分析")
	assert.Contains(t, u, "组合保护评分")
	assert.Contains(t, u, "USDT: $1000.00 可立即使用（$500.00 已被挂单占用）")
	assert.Contains(t, u, "策略阶段: STRATEGIC_ANALYSIS")
	assert.Contains(t, u, "DEFENSIVE")
	assert.Contains(t, u, "主要仓位 (>20%): SOL")
	assert.Contains(t, u, "总价值: $2220.00")
	assert.Contains(t, u, "RSI 72.3 (超买)")
	assert.Contains(t, u, "EMA10 178 EMA21 175")
	assert.Contains(t, u, "支撑 160~165")
	assert.Contains(t, u, "共 3 笔挂单")
	assert.Contains(t, u, "OCO 7")
	assert.Contains(t, u, ScoreLine)
	assert.NotContains(t, u, "### 现有计划")
	assert.Less(t, strings.Index(u, "保护分析"), strings.Index(u, "有效余额"))

	md := art.Markdown()
	assert.Contains(t, md, "prompt_id: "+fixedID)
	assert.Contains(t, md, "2024-03-01T08:00:00Z")
}

func TestBuildKinds(t *testing.T) {
	in := sampleInput()
	in.Kind = KindUpdatePlan
	_, err := fixedBuilder().Build(in)
	assert.Error(t, err)

	in.Plan = "1. SOL 180 附近分批买入"
	art, err := fixedBuilder().Build(in)
	require.NoError(t, err)
	assert.Contains(t, art.User, "### 现有计划\n1. SOL 180 附近分批买入")
	assert.Contains(t, art.User, "CANCEL")

	in.Kind = "weekly"
	_, err = fixedBuilder().Build(in)
	assert.Error(t, err)

	k, err := ParseKind(" Market-Timing ")
	require.NoError(t, err)
	assert.Equal(t, KindMarketTiming, k)
}

func TestStance(t *testing.T) {
	assert.Contains(t, Stance(55), "DEFENSIVE")
	assert.Contains(t, Stance(30.1), "BALANCED")
	assert.Contains(t, Stance(30), "AGGRESSIVE")
}

func TestExtract(t *testing.T) {
	text := "分析……\n```json\n[{\"symbol\":\"SOLUSDT\",\"action\":\"OCO\",\"quantity\":3,\"price\":200,\"stop_price\":170}]\n```\nSCORE: 78/100\n"
	resp := Extract(text)
	assert.True(t, resp.Structured)
	require.Len(t, resp.Recommendations, 1)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 78, *resp.Score)

	resp = Extract("只是一些看法，没有模板")
	assert.False(t, resp.Structured)
	assert.Nil(t, resp.Score)
	assert.NotEmpty(t, resp.ParseError)

	resp = Extract("[1, 2]\nscore: 101/100")
	assert.False(t, resp.Structured)
	assert.Nil(t, resp.Score)
}

func TestHandoffWithJournal(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := store.OpenSQLite(filepath.Join(dir, "j.db"))
	require.NoError(t, err)
	defer db.Close()

	h := NewHandoff(fixedBuilder(), db, filepath.Join(dir, "prompts"))
	art, err := h.Issue(ctx, sampleInput())
	require.NoError(t, err)
	raw, err := os.ReadFile(art.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "## User")

	rec, ok, err := db.GetPrompt(ctx, fixedID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, art.Path, rec.FilePath)

	_, err = h.Accept(ctx, otherID, "text")
	assert.Error(t, err)

	resp, err := h.Accept(ctx, fixedID, "[{\"symbol\":\"SOLUSDT\",\"action\":\"CANCEL\"}]\nSCORE: 60/100")
	require.NoError(t, err)
	assert.True(t, resp.Structured)

	rs, err := db.ListResponses(ctx, fixedID)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, 60, *rs[0].Score)
	assert.Contains(t, rs[0].Recommendations, "CANCEL")
	_, err = os.Stat(filepath.Join(dir, "prompts", fixedID+".response.md"))
	assert.NoError(t, err)

	listed, err := h.Responses(ctx, fixedID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, rs[0].ID, listed[0].ID)
}

func TestHandoffFileOnly(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	h := NewHandoff(fixedBuilder(), nil, dir)
	_, err := h.Issue(ctx, sampleInput())
	require.NoError(t, err)

	resp, err := h.Accept(ctx, fixedID, "纯文字回复")
	require.NoError(t, err)
	assert.False(t, resp.Structured)

	_, err = h.Accept(ctx, otherID, "纯文字回复")
	assert.Error(t, err)
	_, err = h.Accept(ctx, fixedID, "  ")
	assert.Error(t, err)
}

func TestHandoffRejectsPathLikeIDs(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "prompts")
	h := NewHandoff(fixedBuilder(), nil, dir)
	_, err := h.Issue(ctx, sampleInput())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.md"), []byte("外部文件"), 0o644))

	_, err = h.Accept(ctx, "../x", "回复")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "无效的提示词 ID")
	_, err = os.Stat(filepath.Join(root, "x.response.md"))
	assert.True(t, os.IsNotExist(err))

	_, err = h.Responses(ctx, "../x")
	assert.Error(t, err)
}

func TestHandoffResponsesNeedsJournal(t *testing.T) {
	h := NewHandoff(fixedBuilder(), nil, t.TempDir())
	_, err := h.Responses(context.Background(), fixedID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "未开启 journal")
}
