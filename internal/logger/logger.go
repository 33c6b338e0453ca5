package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 中文说明：
// 轻量日志封装：对外保持 SetLevel/Debugf/Infof/Warnf/Errorf，底层使用 zap。
// 日志统一写 stderr，stdout 留给命令输出（表格/JSON）。

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu      sync.Mutex
	level   = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	current = LevelInfo
	sugar   = build(os.Stderr)
)

func build(w io.Writer) *zap.SugaredLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), level)
	return zap.New(core).Sugar()
}

// SetOutput 替换输出目标（测试或重定向到文件）。
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	sugar = build(w)
	mu.Unlock()
}

func SetLevel(s string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		current = LevelDebug
		level.SetLevel(zapcore.DebugLevel)
	case "info":
		current = LevelInfo
		level.SetLevel(zapcore.InfoLevel)
	case "warn", "warning":
		current = LevelWarn
		level.SetLevel(zapcore.WarnLevel)
	case "error":
		current = LevelError
		level.SetLevel(zapcore.ErrorLevel)
	default:
		current = LevelInfo
		level.SetLevel(zapcore.InfoLevel)
	}
}

// Current 返回当前级别
func Current() Level {
	mu.Lock()
	defer mu.Unlock()
	return current
}

func get() *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	return sugar
}

func Debugf(format string, v ...any) { get().Debugf(format, v...) }
func Infof(format string, v ...any)  { get().Infof(format, v...) }
func Warnf(format string, v ...any)  { get().Warnf(format, v...) }
func Errorf(format string, v ...any) { get().Errorf(format, v...) }

// Sync 在进程退出前刷新缓冲
func Sync() { _ = get().Sync() }
