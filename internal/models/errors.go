package models

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
)

var (
	// ErrSessionNotFound 会话不存在
	ErrSessionNotFound = errors.New("浏览器会话不存在")
	// ErrSessionLimit 会话数达到上限
	ErrSessionLimit = errors.New("浏览器会话数已达上限")
	// ErrInsufficientResources 系统资源不足, 拒绝启动浏览器
	ErrInsufficientResources = errors.New("系统可用内存不足")
	// ErrElementNotFound 选择器没有匹配到元素
	ErrElementNotFound = errors.New("未找到匹配的元素")
	// ErrBlockedHost 目标主机命中屏蔽规则
	ErrBlockedHost = errors.New("目标主机已被屏蔽")
)

// 错误载荷里 error_type 的取值
const (
	ErrorTypeHTTP        = "HTTPError"
	ErrorTypeTimeout     = "Timeout"
	ErrorTypeConnection  = "ConnectionError"
	ErrorTypeInvalidURL  = "InvalidURL"
	ErrorTypeBrowser     = "BrowserError"
	ErrorTypeNotFound    = "ElementNotFound"
	ErrorTypeBlockedHost = "BlockedHost"
	ErrorTypeValidation  = "ValidationError"
	ErrorTypeRequest     = "RequestException"
)

// ValidationError 参数或请求头校验失败
type ValidationError struct {
	// Field 出错的字段, 如 "name"、"value"、"selector"
	Field string

	// HeaderName 出错的头部名称或参数名
	HeaderName string

	Reason     string
	Suggestion string
}

// Error 实现error接口
func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("参数验证失败 [%s]: %s", e.HeaderName, e.Reason)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (建议: %s)", e.Suggestion)
	}
	return msg
}

// ConfigError 配置文件错误
type ConfigError struct {
	FilePath string
	Cause    error
}

// Error 实现error接口
func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

// Unwrap 支持errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// SessionNotFoundError 指定ID的会话不存在
type SessionNotFoundError struct {
	ID string
}

// Error 实现error接口
func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("Browser session '%s' not found", e.ID)
}

// Is 使 errors.Is(err, ErrSessionNotFound) 成立
func (e *SessionNotFoundError) Is(target error) bool {
	return target == ErrSessionNotFound
}

// ToolError 工具执行过程中可以转换成错误载荷的失败
type ToolError struct {
	Type    string
	Message string
	Cause   error
}

// NewToolError 创建ToolError
func NewToolError(errType, message string, cause error) *ToolError {
	return &ToolError{Type: errType, Message: message, Cause: cause}
}

// Error 实现error接口
func (e *ToolError) Error() string {
	return e.Message
}

// Unwrap 支持errors.Unwrap
func (e *ToolError) Unwrap() error {
	return e.Cause
}

// ErrorPayload 工具返回给调用方的错误载荷
type ErrorPayload struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	ErrorType string `json:"error_type,omitempty"`
}

// NewErrorPayload 把任意错误转换成错误载荷
func NewErrorPayload(err error) ErrorPayload {
	return ErrorPayload{
		Status:    "error",
		Message:   err.Error(),
		ErrorType: ClassifyError(err),
	}
}

// ClassifyError 推断错误类别
func ClassifyError(err error) string {
	var toolErr *ToolError
	if errors.As(err, &toolErr) && toolErr.Type != "" {
		return toolErr.Type
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ErrorTypeValidation
	}

	switch {
	case errors.Is(err, ErrBlockedHost):
		return ErrorTypeBlockedHost
	case errors.Is(err, ErrElementNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeConnection
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ErrorTypeConnection
	}

	return ErrorTypeRequest
}
