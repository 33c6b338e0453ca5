package validator

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"spotpilot/internal/exchange"
)

// RoundToStep 向下取整到 step 的整数倍（不向上取整，避免超额下单）
func RoundToStep(value, step float64) (float64, error) {
	if step <= 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return 0, &PrecisionError{Field: "step_size", Value: value, Step: step}
	}
	if value < 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &PrecisionError{Field: "value", Value: value, Step: step}
	}
	v := decimal.NewFromFloat(value)
	s := decimal.NewFromFloat(step)
	return v.Div(s).Floor().Mul(s).InexactFloat64(), nil
}

// RoundToTick 四舍五入到最近的 tick 整数倍
func RoundToTick(price, tick float64) (float64, error) {
	if tick <= 0 || math.IsNaN(tick) || math.IsInf(tick, 0) {
		return 0, &PrecisionError{Field: "tick_size", Value: price, Step: tick}
	}
	if price < 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, &PrecisionError{Field: "price", Value: price, Step: tick}
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	return p.Div(t).Round(0).Mul(t).InexactFloat64(), nil
}

// IsMultiple 判断 value 是否为 step 的整数倍
func IsMultiple(value, step float64) bool {
	if step <= 0 {
		return false
	}
	return decimal.NewFromFloat(value).Mod(decimal.NewFromFloat(step)).IsZero()
}

// ValidateNotional quantity×price 低于 minNotional 时报错
func ValidateNotional(quantity, price, minNotional float64) error {
	n := decimal.NewFromFloat(quantity).Mul(decimal.NewFromFloat(price))
	if n.LessThan(decimal.NewFromFloat(minNotional)) {
		return &NotionalError{Notional: n.InexactFloat64(), Min: minNotional}
	}
	return nil
}

// AdjustQuantity 按 LOT_SIZE 修正数量：minQty + floor((q-minQty)/step)*step
func AdjustQuantity(qty float64, f exchange.SymbolFilters) (float64, error) {
	if f.StepSize <= 0 {
		return 0, &PrecisionError{Field: "step_size", Value: qty, Step: f.StepSize}
	}
	if qty < 0 {
		return 0, &PrecisionError{Field: "quantity", Value: qty, Step: f.StepSize}
	}
	if f.MinQty > 0 && qty < f.MinQty {
		return 0, &QuantityTooSmallError{Requested: qty, MinQty: f.MinQty}
	}
	// 全程 decimal 计算，避免 float 减法把整步数量压低一档
	step := decimal.NewFromFloat(f.StepSize)
	minQty := decimal.NewFromFloat(f.MinQty)
	steps := decimal.NewFromFloat(qty).Sub(minQty).Div(step).Floor()
	adj := steps.Mul(step).Add(minQty).InexactFloat64()
	if adj <= 0 {
		return 0, &QuantityTooSmallError{Requested: qty, Adjusted: adj, MinQty: f.MinQty}
	}
	return adj, nil
}

// AdjustPrice 按 PRICE_FILTER 修正价格；0 价视为错误
func AdjustPrice(price float64, f exchange.SymbolFilters) (float64, error) {
	if price <= 0 {
		return 0, &PrecisionError{Field: "price", Value: price, Step: f.TickSize}
	}
	adj, err := RoundToTick(price, f.TickSize)
	if err != nil {
		return 0, err
	}
	if adj <= 0 {
		return 0, &PrecisionError{Field: "price", Value: price, Step: f.TickSize}
	}
	return adj, nil
}

// Decimals 由步长推导小数位（0.001 → 3）
func Decimals(step float64) int {
	if step <= 0 {
		return 8
	}
	s := decimal.NewFromFloat(step).String()
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// Formatter 按交易对缓存元数据并输出交易所可接受的数量/价格字符串
type Formatter struct {
	mu      sync.RWMutex
	filters map[string]exchange.SymbolFilters
}

func NewFormatter() *Formatter {
	return &Formatter{filters: make(map[string]exchange.SymbolFilters)}
}

func (f *Formatter) Remember(sf exchange.SymbolFilters) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters[strings.ToUpper(sf.Symbol)] = sf
}

func (f *Formatter) lookup(symbol string) (exchange.SymbolFilters, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	sf, ok := f.filters[strings.ToUpper(symbol)]
	if !ok {
		return exchange.SymbolFilters{}, fmt.Errorf("未加载 %s 的交易规则", symbol)
	}
	return sf, nil
}

func (f *Formatter) Quantity(symbol string, qty float64) (string, error) {
	sf, err := f.lookup(symbol)
	if err != nil {
		return "", err
	}
	adj, err := AdjustQuantity(qty, sf)
	if err != nil {
		return "", err
	}
	return decimal.NewFromFloat(adj).StringFixed(int32(Decimals(sf.StepSize))), nil
}

func (f *Formatter) Price(symbol string, price float64) (string, error) {
	sf, err := f.lookup(symbol)
	if err != nil {
		return "", err
	}
	adj, err := AdjustPrice(price, sf)
	if err != nil {
		return "", err
	}
	return decimal.NewFromFloat(adj).StringFixed(int32(Decimals(sf.TickSize))), nil
}
