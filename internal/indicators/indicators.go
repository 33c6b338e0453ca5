package indicators

import (
	"fmt"
	"math"
	"sort"

	talib "github.com/markcheno/go-talib"
)

// InsufficientDataError 序列长度不足
type InsufficientDataError struct {
	Indicator string
	Need      int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s 数据不足: 需要 %d 个点，实际 %d", e.Indicator, e.Need, e.Got)
}

// NeutralRSI 平盘序列（无涨无跌）的约定值
const NeutralRSI = 50.0

func need(name string, closes []float64, n int) error {
	if len(closes) < n {
		return &InsufficientDataError{Indicator: name, Need: n, Got: len(closes)}
	}
	return nil
}

func flat(closes []float64) bool {
	for i := 1; i < len(closes); i++ {
		if closes[i] != closes[i-1] {
			return false
		}
	}
	return true
}

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	return vals[len(vals)-1]
}

// RSI Wilder 平滑（首段 SMA 作为种子），与 TA-Lib 一致；返回最后一个值
func RSI(closes []float64, period int) (float64, error) {
	if period < 2 {
		return 0, fmt.Errorf("RSI 周期至少为 2，当前 %d", period)
	}
	if err := need("RSI", closes, period+1); err != nil {
		return 0, err
	}
	if flat(closes) {
		return NeutralRSI, nil
	}
	return last(talib.Rsi(closes, period)), nil
}

func SMA(closes []float64, period int) (float64, error) {
	if period < 1 {
		return 0, fmt.Errorf("SMA 周期非法: %d", period)
	}
	if err := need("SMA", closes, period+1); err != nil {
		return 0, err
	}
	return last(talib.Sma(closes, period)), nil
}

// EMA 以前 period 个点的 SMA 为种子
func EMA(closes []float64, period int) (float64, error) {
	if period < 1 {
		return 0, fmt.Errorf("EMA 周期非法: %d", period)
	}
	if err := need("EMA", closes, period+1); err != nil {
		return 0, err
	}
	return last(talib.Ema(closes, period)), nil
}

type MACDValue struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

func MACD(closes []float64, fast, slow, signal int) (MACDValue, error) {
	if fast < 2 || slow <= fast || signal < 1 {
		return MACDValue{}, fmt.Errorf("MACD 参数非法: fast=%d slow=%d signal=%d", fast, slow, signal)
	}
	if err := need("MACD", closes, slow+signal); err != nil {
		return MACDValue{}, err
	}
	m, s, h := talib.Macd(closes, fast, slow, signal)
	return MACDValue{MACD: last(m), Signal: last(s), Histogram: last(h)}, nil
}

// SupportLevels 摆动低点：lows[i] 同时低于左右各 window 根，仅取最近 lookback 根，升序去重
func SupportLevels(lows []float64, window, lookback int) []float64 {
	if window <= 0 {
		window = 2
	}
	if lookback > 0 && len(lows) > lookback {
		lows = lows[len(lows)-lookback:]
	}
	seen := map[float64]struct{}{}
	out := make([]float64, 0)
	for i := window; i < len(lows)-window; i++ {
		ok := true
		for j := i - window; j <= i+window; j++ {
			if j != i && lows[j] <= lows[i] {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		if _, dup := seen[lows[i]]; dup {
			continue
		}
		seen[lows[i]] = struct{}{}
		out = append(out, lows[i])
	}
	sort.Float64s(out)
	return out
}

func warmup(vals []float64, n int) []float64 {
	out := make([]float64, len(vals))
	copy(out, vals)
	for i := 0; i < n && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// EMASeries 与输入等长，前 period-1 个点为 NaN
func EMASeries(closes []float64, period int) ([]float64, error) {
	if period < 1 {
		return nil, fmt.Errorf("EMA 周期非法: %d", period)
	}
	if err := need("EMA", closes, period+1); err != nil {
		return nil, err
	}
	return warmup(talib.Ema(closes, period), period-1), nil
}

// RSISeries 与输入等长，前 period 个点为 NaN
func RSISeries(closes []float64, period int) ([]float64, error) {
	if period < 2 {
		return nil, fmt.Errorf("RSI 周期至少为 2，当前 %d", period)
	}
	if err := need("RSI", closes, period+1); err != nil {
		return nil, err
	}
	if flat(closes) {
		out := make([]float64, len(closes))
		for i := range out {
			out[i] = NeutralRSI
		}
		return warmup(out, period), nil
	}
	return warmup(talib.Rsi(closes, period), period), nil
}
