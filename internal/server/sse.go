package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"

	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const shutdownTimeout = 5 * time.Second

// Router SSE传输与 /healthz 共用的路由
func (s *Server) Router(sse http.Handler) *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if sse != nil {
		router.PathPrefix("/").Handler(sse)
	}
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	memory := s.tk.Monitor.GetMemoryStatus()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          "healthy",
		"version":         s.version,
		"sessions":        s.tk.Sessions.Count(),
		"tools":           len(s.handlers),
		"memory_pressure": memory.MemoryPressure,
	})
}

// baseURL 客户端访问SSE端点使用的地址, 监听地址没有主机名或为通配地址时使用 localhost
func baseURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "http://" + addr
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, port)
}

// ServeSSE 通过HTTP+SSE提供服务, ctx 取消后优雅关闭
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sse := server.NewSSEServer(s.mcp, server.WithBaseURL(baseURL(addr)))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Router(sse),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Infof("📡 MCP服务器已启动 (sse), 监听 %s, 版本 %s", addr, s.version)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("SSE服务器启动失败: %w", err)
	case <-ctx.Done():
	}

	utils.Info("正在关闭SSE服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		utils.Warnf("关闭SSE连接失败: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("关闭HTTP服务器失败: %w", err)
	}
	return nil
}
