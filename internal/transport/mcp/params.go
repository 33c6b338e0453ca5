package mcp

import (
	"fmt"
	"strconv"
	"strings"
)

// paramError 缺参或参数非法，映射为 400
type paramError struct {
	Name    string
	Message string
}

func (e *paramError) Error() string { return fmt.Sprintf("参数 %s: %s", e.Name, e.Message) }

func invalid(name, msg string) error { return &paramError{Name: name, Message: msg} }

// params JSON 解码后的 parameters，数字可能是 float64 也可能是字符串
type params map[string]any

func (p params) require(names ...string) error {
	var missing []string
	for _, n := range names {
		v, ok := p[n]
		if !ok || v == nil {
			missing = append(missing, n)
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return &paramError{Name: strings.Join(missing, ","), Message: "缺少必填参数"}
	}
	return nil
}

func (p params) text(name string) string {
	switch v := p[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// number 第二个返回值表示参数是否出现
func (p params) number(name string) (float64, bool, error) {
	switch v := p[name].(type) {
	case nil:
		return 0, false, nil
	case float64:
		return v, true, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, false, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, true, invalid(name, fmt.Sprintf("不是数字: %q", v))
		}
		return f, true, nil
	default:
		return 0, true, invalid(name, fmt.Sprintf("不是数字: %v", v))
	}
}

func (p params) positive(name string) (float64, error) {
	v, ok, err := p.number(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, invalid(name, "缺少必填参数")
	}
	if v <= 0 {
		return 0, invalid(name, "必须大于 0")
	}
	return v, nil
}

func (p params) id(name string) (int64, error) {
	v, ok, err := p.number(name)
	if err != nil {
		return 0, err
	}
	if !ok || v <= 0 || v != float64(int64(v)) {
		return 0, invalid(name, "必须为正整数")
	}
	return int64(v), nil
}

func (p params) flag(name string) bool {
	switch v := p[name].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(v))
		return b
	}
	return false
}
