package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/adshao/go-binance/v2/common"
)

type ErrorKind string

const (
	KindGeneral           ErrorKind = "GENERAL"
	KindInvalidSymbol     ErrorKind = "INVALID_SYMBOL"
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	KindTransport         ErrorKind = "TRANSPORT"
	KindMalformed         ErrorKind = "MALFORMED_RESPONSE"
)

// ExchangeAPIError 网络失败或交易所拒绝；保留交易所原始错误码与信息
type ExchangeAPIError struct {
	Op         string
	Code       int64
	Message    string
	Suggestion string
	Kind       ErrorKind
	Err        error
}

func (e *ExchangeAPIError) Error() string {
	if e.Code != 0 {
		msg := fmt.Sprintf("%s: binance 错误 %d: %s", e.Op, e.Code, e.Message)
		if e.Suggestion != "" {
			msg += "（建议：" + e.Suggestion + "）"
		}
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ExchangeAPIError) Unwrap() error { return e.Err }

var suggestions = map[int64]string{
	-1000: "检查请求格式与参数",
	-1001: "服务端异常，稍后重试",
	-1002: "请求未授权，检查 API 密钥与权限",
	-1003: "请求过于频繁，降低调用频率",
	-1006: "服务暂不可用，稍后重试",
	-1007: "请求超时，订单状态未知，重新提交前先查看挂单",
	-1013: "数量精度不符，检查 LOT_SIZE 规则",
	-1014: "未知订单类型，只使用支持的类型",
	-1015: "timeInForce 取值无效",
	-1016: "方向无效，只能为 BUY 或 SELL",
	-1021: "时间戳无效，校准系统时钟",
	-1022: "签名无效，核对 API Secret 与签名生成",
	-1121: "交易对无效，检查格式及是否上架",
	-2010: "下单被拒绝，检查参数与账户状态",
	-2011: "撤单被拒绝，订单可能已成交或已撤销",
	-2013: "订单不存在，核对订单 ID",
	-2014: "API Key 格式错误，确认密钥是否正确",
	-2015: "API Key、IP 或权限无效，检查 API 设置",
	-2016: "该账户已禁止交易",
	-2018: "账户余额不足以下这笔订单",
	-2019: "保证金不足",
	-2021: "订单会立即成交吃单，调整价格",
	-2022: "订单会立即触发止损条件",
	-2026: "价格相对市价过高",
	-2027: "价格相对市价过低",
	-3008: "该交易对不支持此操作",
	-3010: "该交易对余额不足",
	-3013: "价格精度超出上限",
	-3014: "数量精度超出上限",
	-3015: "数量低于最小值",
	-3019: "名义价值低于最小值",
	-4001: "数量超过可用余额",
	-4011: "挂单数量已达上限",
	-4013: "该市场不存在此交易对",
	-4024: "不满足 PRICE_FILTER",
	-4025: "不满足 LOT_SIZE",
	-4026: "不满足 NOTIONAL",
}

var invalidSymbolCodes = map[int64]struct{}{
	-1121: {}, -1013: {}, -1014: {}, -1015: {}, -1016: {}, -3008: {}, -3013: {}, -3014: {},
	-3015: {}, -3016: {}, -3017: {}, -3018: {}, -3019: {}, -3020: {}, -4013: {}, -4024: {},
	-4025: {}, -4026: {},
}

var insufficientFundsCodes = map[int64]struct{}{
	-2010: {}, -2018: {}, -2019: {}, -3010: {}, -3011: {}, -4001: {}, -4002: {}, -4009: {},
}

func classify(code int64) ErrorKind {
	if _, ok := invalidSymbolCodes[code]; ok {
		return KindInvalidSymbol
	}
	if _, ok := insufficientFundsCodes[code]; ok {
		return KindInsufficientFunds
	}
	return KindGeneral
}

// wrapErr 统一转换 go-binance 返回的错误
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		s, ok := suggestions[apiErr.Code]
		if !ok {
			s = "查阅 Binance API 文档中该错误码的说明"
		}
		return &ExchangeAPIError{
			Op:         op,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			Suggestion: s,
			Kind:       classify(apiErr.Code),
			Err:        err,
		}
	}
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "请求超时（不会自动重试，请先确认挂单状态）: " + msg
	}
	return &ExchangeAPIError{Op: op, Message: msg, Kind: KindTransport, Err: err}
}

func malformed(op, field, raw string) error {
	return &ExchangeAPIError{
		Op:      op,
		Message: fmt.Sprintf("响应字段 %s 非法: %q", field, raw),
		Kind:    KindMalformed,
	}
}
