package text

// Truncate 按字符（rune）截断，超长时追加省略号，避免截断多字节字符
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

