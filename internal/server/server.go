// Package server 把各组件注册为MCP工具, 通过stdio或SSE对外提供服务
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	stdlog "log"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/RecoveryAshes/WebScope/internal/core"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// ServerName MCP握手时报告的名称
const ServerName = "WebScope"

// Server MCP服务器
type Server struct {
	mcp     *server.MCPServer
	tk      *core.Toolkit
	version string

	handlers map[string]server.ToolHandlerFunc
}

// NewServer 创建服务器并注册全部工具、资源和提示词
func NewServer(tk *core.Toolkit, version string) *Server {
	s := &Server{
		mcp: server.NewMCPServer(ServerName, version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithPromptCapabilities(false),
			server.WithRecovery(),
			server.WithInstructions("Browser automation, web crawling, HTML parsing, screenshot capture and web page analysis tools."),
		),
		tk:       tk,
		version:  version,
		handlers: make(map[string]server.ToolHandlerFunc),
	}

	s.registerBrowserTools()
	s.registerInspectTools()
	s.registerWebTools()
	s.registerAssetTools()
	s.registerResources()
	s.registerPrompts()

	utils.Debugf("已注册 %d 个工具", len(s.handlers))
	return s
}

// addTool 注册工具并记录处理函数
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.handlers[tool.Name] = handler
	s.mcp.AddTool(tool, handler)
}

// MCPServer 底层的 mcp-go 服务器
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// ToolNames 已注册的工具名, 按字母排序
func (s *Server) ToolNames() []string {
	names := make([]string, 0, len(s.handlers))
	for name := range s.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CallTool 直接调用已注册的工具, 供命令行子命令复用
func (s *Server) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	handler, ok := s.handlers[name]
	if !ok {
		return nil, fmt.Errorf("未知工具: %s", name)
	}
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return handler(ctx, req)
}

// ServeStdio 通过stdin/stdout提供服务, 阻塞到输入结束或收到退出信号
func (s *Server) ServeStdio() error {
	utils.Infof("📡 MCP服务器已启动 (stdio), 版本 %s", s.version)
	errLogger := stdlog.New(utils.Logger, "", 0)
	return server.ServeStdio(s.mcp, server.WithErrorLogger(errLogger))
}

// jsonResult 把结果编码为JSON文本内容
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("结果序列化失败: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// failure 调用方错误返回MCP错误结果, 运行期失败返回错误载荷
func failure(err error) (*mcp.CallToolResult, error) {
	if isCallerError(err) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(models.NewErrorPayload(err))
}

func isCallerError(err error) bool {
	var validationErr *models.ValidationError
	return errors.As(err, &validationErr) || errors.Is(err, models.ErrSessionNotFound)
}
