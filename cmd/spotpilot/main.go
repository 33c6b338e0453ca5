package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"spotpilot/internal/logger"
)

// 入口程序：每次调用执行一条命令，成功退出码 0，任何校验或交易所错误退出码 1
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(1)
	}
}
