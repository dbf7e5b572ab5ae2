package server

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/models"
)

// stringMap 读取对象参数, 非字符串值按 fmt 格式化
func stringMap(request mcp.CallToolRequest, key string) map[string]string {
	raw, ok := request.GetArguments()[key].(map[string]interface{})
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
			continue
		}
		out[k] = fmt.Sprint(v)
	}
	return out
}

// seconds 读取以秒为单位的数字参数
func seconds(request mcp.CallToolRequest, key string, def float64) time.Duration {
	return time.Duration(request.GetFloat(key, def) * float64(time.Second))
}

// stringSlice 读取字符串数组参数, 丢弃空串
func stringSlice(request mcp.CallToolRequest, key string) []string {
	var out []string
	for _, s := range request.GetStringSlice(key, nil) {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// requireString 读取必填的字符串参数, 缺失时返回 ValidationError
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	value, err := request.RequireString(key)
	if err == nil && value == "" {
		err = fmt.Errorf("参数 %s 不能为空", key)
	}
	if err != nil {
		return "", &models.ValidationError{Field: "argument", HeaderName: key, Reason: err.Error()}
	}
	return value, nil
}

// requireSelector 读取必填的CSS选择器参数并校验语法
func requireSelector(request mcp.CallToolRequest, key string) (string, error) {
	selector, err := requireString(request, key)
	if err != nil {
		return "", err
	}
	if err := analyzer.ValidateSelector(selector); err != nil {
		return "", err
	}
	return selector, nil
}
