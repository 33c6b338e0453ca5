package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel("info")
	})

	SetLevel("warn")
	assert.Equal(t, LevelWarn, Current())
	Infof("hidden %d", 1)
	assert.Empty(t, buf.String())

	Warnf("visible %d", 2)
	assert.Contains(t, buf.String(), "visible 2")
	assert.Contains(t, buf.String(), "WARN")
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })
	SetLevel("  DEBUG ")
	assert.Equal(t, LevelDebug, Current())
	SetLevel("verbose")
	assert.Equal(t, LevelInfo, Current())
}
