// Package command 定义 cli 的 cobra 命令
package command

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ndmgate/internal/ndm"
	"ndmgate/internal/parser"
	"ndmgate/internal/pkg"
)

// NewRootCommand 创建根命令
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ndmgate-cli",
		Short: "NDM gateway CLI for testing message parsing",
		Long:  `NDM gateway CLI parses CCSDS KVN messages offline for testing and debugging.`,
	}

	rootCmd.AddCommand(NewParseOneCommand())
	rootCmd.AddCommand(NewTypesCommand())

	return rootCmd
}

// NewParseOneCommand 创建 parseone 子命令: 解析单个 KVN 文件并打印记录包
func NewParseOneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parseone <file>",
		Short: "Parse a single KVN file and print the resulting records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取文件失败: %w", err)
			}

			ctx, err := cliContext()
			if err != nil {
				return err
			}

			rp, err := parser.ParseMessage(ctx, payload)
			if err != nil {
				return fmt.Errorf("解析失败: %w", err)
			}

			out, err := json.MarshalIndent(rp, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	return cmd
}

// NewTypesCommand 创建 types 子命令: 列出当前注册的消息类型
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered message types",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cliContext(); err != nil {
				return err
			}
			for _, t := range ndm.Types() {
				fmt.Println(t)
			}
			return nil
		},
	}
}

// cliContext 装配一个静默日志的上下文, 并加载配置里的模式定义目录
func cliContext() (context.Context, error) {
	ctx := context.Background()
	ctx = pkg.WithLogger(ctx, zap.NewNop())

	config, err := pkg.InitCommon("yaml")
	if err != nil {
		// 没有配置也能跑, 只用内置消息类型
		return ctx, nil
	}
	ctx = pkg.WithConfig(ctx, config)

	if config.Parser.SchemaDir != "" {
		if _, err := ndm.LoadSchemaDir(config.Parser.SchemaDir); err != nil {
			return nil, fmt.Errorf("加载模式定义目录失败: %w", err)
		}
	}
	return ctx, nil
}
