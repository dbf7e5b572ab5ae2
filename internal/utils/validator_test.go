package utils

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

func TestHeaderValidator_ValidateName(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		expectError bool
	}{
		{"合法名称-字母", "User-Agent", false},
		{"合法名称-数字", "X-Request-ID-123", false},
		{"非法名称-空格", "User Agent", true},
		{"非法名称-下划线", "User_Agent", true},
		{"非法名称-特殊字符", "User@Agent", true},
		{"非法名称-空字符串", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateName(tt.headerName)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateValue(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerValue string
		expectError bool
	}{
		{"合法值-ASCII", "Mozilla/5.0", false},
		{"合法值-空字符串", "", false},
		{"合法值-长字符串", strings.Repeat(" ", 8000), false},
		{"非法值-超长", strings.Repeat("a", MaxHeaderValueLength+1), true},
		{"非法值-控制字符", "value\x00with\x01null", true},
		{"非法值-中文", "中文值", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateValue("X-Test", tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateHeader(t *testing.T) {
	validator := NewHeaderValidator()

	tests := []struct {
		name        string
		headerName  string
		headerValue string
		expectError bool
	}{
		{"合法头部", "User-Agent", "Mozilla/5.0", false},
		{"禁止头部-Host", "Host", "example.com", true},
		{"禁止头部-小写", "connection", "close", true},
		{"禁止头部-Upgrade", "Upgrade", "websocket", true},
		{"合法头部-Cookie", "Cookie", "a=b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateHeader(tt.headerName, tt.headerValue)
			if (err != nil) != tt.expectError {
				t.Errorf("期望错误=%v, 实际错误=%v", tt.expectError, err)
			}
		})
	}
}

func TestHeaderValidator_ValidateMap(t *testing.T) {
	validator := NewHeaderValidator()

	err := validator.ValidateMap(map[string]string{
		"X-Good": "ok",
		"B_Bad":  "x",
		"A_Bad":  "y",
	})
	if err == nil {
		t.Fatal("包含非法名称的映射应该报错")
	}

	var validationErr *models.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("错误类型应为ValidationError, 实际: %T", err)
	}
	if validationErr.HeaderName != "A_Bad" {
		t.Errorf("应按名称排序报告第一个错误, 实际: %s", validationErr.HeaderName)
	}

	if err := validator.ValidateMap(nil); err != nil {
		t.Errorf("空映射不应报错: %v", err)
	}
}

func TestHeaderValidator_Validate(t *testing.T) {
	validator := NewHeaderValidator()

	headers := http.Header{}
	headers.Set("Accept", "text/html")
	if err := validator.Validate(headers); err != nil {
		t.Errorf("合法头部报错: %v", err)
	}

	headers.Set("Transfer-Encoding", "chunked")
	if err := validator.Validate(headers); err == nil {
		t.Error("禁止头部应该报错")
	}
}

func TestHeaderRedactor(t *testing.T) {
	redactor := NewHeaderRedactor()

	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"Bearer令牌", "Authorization", "Bearer abcdef123456", "Bearer ***"},
		{"长密钥", "X-API-Key", "sk-1234567890abcdef", "sk-1***cdef"},
		{"短密钥", "X-Secret", "short", "***"},
		{"Cookie", "Cookie", "session=abcdefghijk", "sess***hijk"},
		{"普通头部", "Accept", "text/html", "text/html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := redactor.RedactHeaderValue(tt.key, tt.value); got != tt.want {
				t.Errorf("RedactHeaderValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeaderRedactor_RedactToString(t *testing.T) {
	redactor := NewHeaderRedactor()

	headers := http.Header{}
	headers.Set("X-Token", "tok")
	headers.Set("Accept", "*/*")

	got := redactor.RedactToString(headers)
	if got != "Accept: */*, X-Token: ***" {
		t.Errorf("RedactToString() = %q", got)
	}
}
