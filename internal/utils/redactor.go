package utils

import (
	"net/http"
	"strings"
)

// SensitiveKeywords 敏感头部名称关键字
var SensitiveKeywords = []string{
	"authorization",
	"cookie",
	"token",
	"key",
	"secret",
	"password",
	"credential",
}

// HeaderRedactor 头部脱敏器, 日志里出现的请求头都先经过它
type HeaderRedactor struct {
	sensitiveKeywords []string
}

// NewHeaderRedactor 创建头部脱敏器
func NewHeaderRedactor() *HeaderRedactor {
	return &HeaderRedactor{sensitiveKeywords: SensitiveKeywords}
}

// IsSensitiveHeader 根据头部名称关键字判断是否敏感
func (hr *HeaderRedactor) IsSensitiveHeader(name string) bool {
	nameLower := strings.ToLower(name)
	for _, keyword := range hr.sensitiveKeywords {
		if strings.Contains(nameLower, keyword) {
			return true
		}
	}
	return false
}

// RedactHeaderValue 脱敏单个头部值
func (hr *HeaderRedactor) RedactHeaderValue(name, value string) string {
	if !hr.IsSensitiveHeader(name) {
		return value
	}

	switch {
	case strings.HasPrefix(value, "Bearer "):
		return "Bearer ***"
	case len(value) > 8:
		return value[:4] + "***" + value[len(value)-4:]
	default:
		return "***"
	}
}

// Redact 脱敏整个http.Header, 每个头部只取第一个值
func (hr *HeaderRedactor) Redact(headers http.Header) map[string]string {
	result := make(map[string]string, len(headers))
	for name, values := range headers {
		if len(values) == 0 {
			continue
		}
		result[name] = hr.RedactHeaderValue(name, values[0])
	}
	return result
}

// RedactToString 按名称排序输出 "Name: value, ..." 格式
func (hr *HeaderRedactor) RedactToString(headers http.Header) string {
	redacted := hr.Redact(headers)
	parts := make([]string, 0, len(redacted))
	for _, name := range sortedHeaderNames(headers) {
		if value, ok := redacted[name]; ok {
			parts = append(parts, name+": "+value)
		}
	}
	return strings.Join(parts, ", ")
}
