package jsonutil

import (
	"encoding/json"
	"strings"
)

// Pretty formats JSON string with indentation; returns original on error.
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return raw
	}
	return string(buf)
}

// Marshal 输出带缩进的 JSON（--json 输出使用）
func Marshal(v any) (string, error) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// ExtractArray 提取文本中首个完整 JSON 数组，返回数组与起始下标；忽略字符串内的括号
func ExtractArray(s string) (string, int, bool) {
	start := strings.Index(s, "[")
	for start != -1 {
		if end, ok := matchBracket(s, start); ok {
			candidate := strings.TrimSpace(s[start : end+1])
			if json.Valid([]byte(candidate)) {
				return candidate, start, true
			}
		}
		next := strings.Index(s[start+1:], "[")
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", -1, false
}

func matchBracket(s string, start int) (int, bool) {
	depth := 0
	inStr, esc := false, false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inStr {
			switch {
			case esc:
				esc = false
			case c == '\\':
				esc = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return -1, false
}
