package prompt

import "strings"

// Sections 用户提示词的各段，空段落不输出
type Sections struct {
	Protection string
	Balance    string
	Strategic  string
	Portfolio  string
	Market     string
	Orders     string
	Plan       string
	Rules      string
	Template   string
}

func (s Sections) Render() string {
	blocks := []struct{ title, body string }{
		{"保护分析（给出建议前必读）", s.Protection},
		{"有效余额", s.Balance},
		{"策略背景", s.Strategic},
		{"组合", s.Portfolio},
		{"当前行情", s.Market},
		{"挂单", s.Orders},
		{"现有计划", s.Plan},
		{"规则", s.Rules},
		{"输出格式", s.Template},
	}
	var b strings.Builder
	for _, blk := range blocks {
		body := strings.TrimSpace(blk.body)
		if body == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("### " + blk.title + "\n")
		b.WriteString(body)
	}
	return b.String()
}
