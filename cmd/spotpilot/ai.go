package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spotpilot/internal/app"
	"spotpilot/internal/prompt"
	"spotpilot/internal/render"
)

func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		buf, err := io.ReadAll(cmd.InOrStdin())
		return string(buf), err
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (c *cli) issueCmd(use, short string, kind prompt.Kind) *cobra.Command {
	var planFile string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: c.run(true, func(cmd *cobra.Command, a *app.App, _ []string) error {
			plan := ""
			if planFile != "" {
				s, err := readInput(cmd, planFile)
				if err != nil {
					return fmt.Errorf("读取现有计划失败: %w", err)
				}
				plan = strings.TrimSpace(s)
			}
			art, err := a.Prompt(cmd.Context(), kind, plan)
			if err != nil {
				return err
			}
			return c.emit(cmd, art, func() string { return render.Artifact(art) })
		}),
	}
	if kind == prompt.KindUpdatePlan {
		cmd.Flags().StringVar(&planFile, "plan", "", "现有计划文件（- 表示标准输入）")
		_ = cmd.MarkFlagRequired("plan")
	}
	return cmd
}

func (c *cli) aiCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "ai", Short: "两阶段 AI 交接：生成提示词，接收模型回复"}

	accept := &cobra.Command{
		Use:   "accept PROMPT_ID FILE",
		Short: "接收模型回复（FILE 为 - 时读标准输入）",
		Args:  cobra.ExactArgs(2),
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, args []string) error {
			text, err := readInput(cmd, args[1])
			if err != nil {
				return err
			}
			got, err := a.Accept(cmd.Context(), args[0], text)
			if err != nil {
				return err
			}
			return c.emit(cmd, got, func() string {
				out := render.Response(got.Response)
				if got.Review != nil {
					out += "\n" + render.Review(*got.Review)
				}
				return out
			})
		}),
	}

	responses := &cobra.Command{
		Use:   "responses PROMPT_ID",
		Short: "查看提示词已接收的回复（需开启 journal）",
		Args:  cobra.ExactArgs(1),
		RunE: c.run(false, func(cmd *cobra.Command, a *app.App, args []string) error {
			recs, err := a.Responses(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.emit(cmd, recs, func() string { return render.Responses(args[0], recs) })
		}),
	}

	cmd.AddCommand(
		c.issueCmd("analyze-portfolio", "组合分析提示词", prompt.KindPortfolio),
		c.issueCmd("market-timing", "择时提示词", prompt.KindMarketTiming),
		c.issueCmd("update-plan", "基于现有计划的更新提示词", prompt.KindUpdatePlan),
		accept,
		responses,
	)
	return cmd
}
