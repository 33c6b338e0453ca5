package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Percent 比例 → 百分比字符串（0.256 → 25.6%）
func Percent(val float64) string {
	if val == 0 {
		return "0%"
	}
	return Float(val*100, 2) + "%"
}

// Pct 已经是百分数的值（12.5 → 12.50%）
func Pct(val float64) string {
	return fmt.Sprintf("%.2f%%", val)
}

func Float(val float64, decimals int) string {
	if decimals < 0 {
		decimals = 4
	}
	out := fmt.Sprintf("%.*f", decimals, val)
	if strings.Contains(out, ".") {
		out = strings.TrimRight(strings.TrimRight(out, "0"), ".")
	}
	if out == "" || out == "-0" {
		return "0"
	}
	return out
}

// USD 金额保留两位小数
func USD(val float64) string {
	return fmt.Sprintf("$%.2f", val)
}

// Price 按数量级自适应小数位
func Price(val float64) string {
	abs := math.Abs(val)
	switch {
	case abs >= 1000:
		return Float(val, 2)
	case abs >= 1:
		return Float(val, 4)
	case abs == 0:
		return "0"
	}
	return Float(val, 8)
}

// Millis 毫秒时间戳 → UTC 时间
func Millis(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}

func RangeSummary(bars []float64) (float64, float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, v := range bars {
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	return low, high
}
