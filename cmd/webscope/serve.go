package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/WebScope/internal/utils"
)

var (
	transport  string
	listenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动MCP服务器 (默认命令)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if transport != "" {
		appConfig.Server.Transport = transport
	}
	if listenAddr != "" {
		appConfig.Server.Addr = listenAddr
	}

	srv, toolkit, err := newServer()
	if err != nil {
		return err
	}
	defer func() {
		toolkit.Close()
		utils.Info("👋 服务器已退出")
	}()

	toolkit.Start()
	appConfig.WatchConfig()
	utils.Infof("已注册 %d 个工具, 输出目录: %s", len(srv.ToolNames()), appConfig.Output.BaseDir)

	switch appConfig.Server.Transport {
	case "sse":
		ctx, stop := signalContext(parent)
		defer stop()
		return srv.ServeSSE(ctx, appConfig.Server.Addr)
	case "stdio":
		return srv.ServeStdio()
	default:
		return fmt.Errorf("不支持的传输方式: %s", appConfig.Server.Transport)
	}
}

func init() {
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&transport, "transport", "", "传输方式 (stdio|sse), 覆盖配置文件")
		cmd.Flags().StringVar(&listenAddr, "addr", "", "sse 传输的监听地址, 覆盖配置文件")
	}
}
