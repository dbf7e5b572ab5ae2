package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/RecoveryAshes/WebScope/internal/core"
	"github.com/RecoveryAshes/WebScope/internal/server"
)

// newToolkit 按已加载的配置和命令行头部组装组件
func newToolkit() (*core.Toolkit, error) {
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	headerManager, err := core.NewHeaderManager(headersFile, headers)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.LoadConfig(); err != nil {
		return nil, fmt.Errorf("加载头部配置失败: %w", err)
	}

	toolkit, err := core.NewToolkit(appConfig, headerManager)
	if err != nil {
		return nil, fmt.Errorf("初始化组件失败: %w", err)
	}
	return toolkit, nil
}

// newServer 创建组件和MCP服务器, 调用方负责 toolkit.Close
func newServer() (*server.Server, *core.Toolkit, error) {
	toolkit, err := newToolkit()
	if err != nil {
		return nil, nil, err
	}
	return server.NewServer(toolkit, Version), toolkit, nil
}

// signalContext Ctrl+C 或 SIGTERM 时取消
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
