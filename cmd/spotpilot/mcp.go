package main

import (
	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/transport/mcp"
)

func (c *cli) mcpCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "mcp", Short: "HTTP 动作接口，供外部代理调用"}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "启动 POST /mcp 服务，Ctrl+C 停止",
		Args:  cobra.NoArgs,
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, _ []string) error {
			if addr == "" {
				addr = a.Config().MCP.Addr
			}
			return mcp.Serve(cmd.Context(), addr, mcp.NewRouter(a))
		}),
	}
	serve.Flags().StringVar(&addr, "addr", "", "监听地址（默认 mcp.addr）")

	cmd.AddCommand(serve)
	return cmd
}
