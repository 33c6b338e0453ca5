package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPretty(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}", Pretty(`{"a":1}`))
	assert.Equal(t, "not json", Pretty(" not json "))
}

func TestExtractArraySkipsProseBrackets(t *testing.T) {
	text := "分析 [见下文] 如下：\n```json\n[{\"symbol\":\"SOLUSDT\",\"reasoning\":\"range [150, 200]\"}]\n```"
	arr, start, ok := ExtractArray(text)
	require.True(t, ok)
	assert.Equal(t, `[{"symbol":"SOLUSDT","reasoning":"range [150, 200]"}]`, arr)
	assert.Greater(t, start, 0)

	_, _, ok = ExtractArray("没有数组")
	assert.False(t, ok)
}
