package validator

import (
	"fmt"

	"spotpilot/internal/pkg/format"
)

// PrecisionError 步长/价格精度元数据非法，属于配置错误，不重试
type PrecisionError struct {
	Field string
	Value float64
	Step  float64
}

func (e *PrecisionError) Error() string {
	if e.Step <= 0 {
		return fmt.Sprintf("%s: 步长非法 (%v)", e.Field, e.Step)
	}
	return fmt.Sprintf("%s: 数值非法 (%v)", e.Field, e.Value)
}

// QuantityTooSmallError 按步长修正后为 0，或低于交易所最小下单量
type QuantityTooSmallError struct {
	Requested float64
	Adjusted  float64
	MinQty    float64
}

func (e *QuantityTooSmallError) Error() string {
	return fmt.Sprintf("数量过小: 请求=%s 修正后=%s 最小=%s",
		format.Float(e.Requested, 8), format.Float(e.Adjusted, 8), format.Float(e.MinQty, 8))
}

// NotionalError 名义价值低于最小值（或高于最大值）
type NotionalError struct {
	Notional float64
	Min      float64
	Max      float64
}

func (e *NotionalError) Error() string {
	if e.Max > 0 && e.Notional > e.Max {
		return fmt.Sprintf("名义价值 %s 超过上限 %s", format.Float(e.Notional, 4), format.Float(e.Max, 4))
	}
	return fmt.Sprintf("名义价值 %s 低于最小值 %s", format.Float(e.Notional, 4), format.Float(e.Min, 4))
}

// ImmediateFillError 订单会立即成交（保护单变成吃单）
type ImmediateFillError struct {
	Symbol string
	Reason string
}

func (e *ImmediateFillError) Error() string {
	return fmt.Sprintf("%s 订单将立即成交: %s", e.Symbol, e.Reason)
}

// FilterError 其他过滤器违规（价格区间、PERCENT_PRICE_BY_SIDE 等）
type FilterError struct {
	Filter  string
	Message string
}

func (e *FilterError) Error() string { return e.Filter + ": " + e.Message }
