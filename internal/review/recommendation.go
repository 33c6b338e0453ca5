// Package review 对模型给出的交易建议做落地前评估：技术面、风控、可执行性、组合四项各 25 分。
package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"spotpilot/internal/pkg/jsonutil"
)

type Action string

const (
	ActionBuy    Action = "BUY"
	ActionSell   Action = "SELL"
	ActionOCO    Action = "OCO"
	ActionCancel Action = "CANCEL"
)

// Recommendation 单条建议
type Recommendation struct {
	Symbol               string  `json:"symbol"`
	Action               Action  `json:"action"`
	Quantity             float64 `json:"quantity"`
	Price                float64 `json:"price,omitempty"`
	StopPrice            float64 `json:"stop_price,omitempty"`
	Reasoning            string  `json:"reasoning,omitempty"`
	ExpectedCurrentPrice float64 `json:"expected_current_price,omitempty"`
}

// Notional 以建议价格估算的名义价值；无价格时为 0
func (r Recommendation) Notional() float64 { return r.Quantity * r.Price }

func (r Recommendation) validate(i int) error {
	if r.Symbol == "" {
		return fmt.Errorf("第 %d 条建议缺少 symbol", i+1)
	}
	switch r.Action {
	case ActionBuy, ActionSell, ActionOCO:
		if r.Quantity <= 0 {
			return fmt.Errorf("%s %s 数量必须大于 0", r.Symbol, r.Action)
		}
		if r.Action == ActionOCO && (r.Price <= 0 || r.StopPrice <= 0) {
			return fmt.Errorf("%s OCO 需要 price 与 stop_price", r.Symbol)
		}
	case ActionCancel:
	default:
		return fmt.Errorf("%s 未知动作 %q", r.Symbol, r.Action)
	}
	return nil
}

// Parse 解析 JSON 数组；允许数组前后夹带说明文字
func Parse(raw string) ([]Recommendation, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") {
		arr, _, ok := jsonutil.ExtractArray(raw)
		if !ok {
			return nil, fmt.Errorf("未找到 JSON 数组")
		}
		raw = arr
	}
	var recs []Recommendation
	if err := json.Unmarshal([]byte(raw), &recs); err != nil {
		return nil, fmt.Errorf("解析建议失败: %w", err)
	}
	for i := range recs {
		recs[i].Symbol = strings.ToUpper(strings.TrimSpace(recs[i].Symbol))
		recs[i].Action = Action(strings.ToUpper(strings.TrimSpace(string(recs[i].Action))))
		if err := recs[i].validate(i); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

// Symbols 去重后的交易对
func Symbols(recs []Recommendation) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		if _, ok := seen[r.Symbol]; ok {
			continue
		}
		seen[r.Symbol] = struct{}{}
		out = append(out, r.Symbol)
	}
	return out
}
