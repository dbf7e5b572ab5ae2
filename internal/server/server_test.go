package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RecoveryAshes/WebScope/internal/core"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := core.DefaultConfig()
	require.NoError(t, err)
	cfg.Output.BaseDir = t.TempDir()
	cfg.Search.UseBrowser = false

	headers, err := core.NewHeaderManager(filepath.Join(t.TempDir(), "headers.yaml"), nil)
	require.NoError(t, err)

	tk, err := core.NewToolkit(cfg, headers)
	require.NoError(t, err)
	t.Cleanup(tk.Close)

	return NewServer(tk, "test")
}

func call(t *testing.T, s *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := s.CallTool(context.Background(), name, args)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "第一个内容应为文本")
	return text.Text
}

func decode(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	return payload
}

func TestToolNames(t *testing.T) {
	s := newTestServer(t)

	expected := []string{
		"analyze_component_hierarchy",
		"analyze_page_layout",
		"analyze_responsive_behavior",
		"analyze_website_ui_ux",
		"answer_question_from_web",
		"click_element_and_wait",
		"close_browser",
		"crawl_url",
		"deep_web_search",
		"execute_javascript",
		"fetch_images_from_website",
		"fetch_site_assets",
		"find_clickable_elements",
		"find_selectors",
		"get_page_html",
		"list_sessions",
		"navigate_and_analyze",
		"navigate_to_url",
		"parse_html",
		"start_browser",
		"take_screenshot",
	}
	assert.Equal(t, expected, s.ToolNames())

	_, err := s.CallTool(context.Background(), "no_such_tool", nil)
	assert.Error(t, err)
}

func TestParseHTMLTool(t *testing.T) {
	s := newTestServer(t)
	page := `<html><head><title>Demo</title></head><body>
<a href="/one">One</a><a href="https://example.com/two">Two</a>
<ul><li class="item" data-id="1"> First </li><li class="item">Second</li></ul>
</body></html>`

	t.Run("无选择器返回标题和链接", func(t *testing.T) {
		payload := decode(t, call(t, s, "parse_html", map[string]interface{}{"html": page}))
		assert.Equal(t, "Demo", payload["title"])
		assert.Equal(t, []interface{}{"/one", "https://example.com/two"}, payload["links"])
	})

	t.Run("选择器匹配元素", func(t *testing.T) {
		payload := decode(t, call(t, s, "parse_html", map[string]interface{}{"html": page, "selector": "li.item"}))
		assert.EqualValues(t, 2, payload["count"])
		results := payload["results"].([]interface{})
		first := results[0].(map[string]interface{})
		assert.Equal(t, "First", first["text"])
		assert.Equal(t, "1", first["attrs"].(map[string]interface{})["data-id"])
	})

	t.Run("非法选择器", func(t *testing.T) {
		result := call(t, s, "parse_html", map[string]interface{}{"html": page, "selector": "div["})
		assert.True(t, result.IsError)
	})

	t.Run("缺少html参数", func(t *testing.T) {
		result := call(t, s, "parse_html", map[string]interface{}{})
		assert.True(t, result.IsError)
	})
}

func TestFindSelectorsTool(t *testing.T) {
	s := newTestServer(t)
	page := `<html><body><article class="post"><h1>Launch news</h1><p>Rocket launch today</p></article></body></html>`

	payload := decode(t, call(t, s, "find_selectors", map[string]interface{}{
		"html":             page,
		"content_keywords": []interface{}{"launch", "absent"},
	}))

	containers := payload["common_containers"].(map[string]interface{})
	assert.Contains(t, containers, "articles")

	matches := payload["keyword_matches"].(map[string]interface{})
	assert.Contains(t, matches, "launch")
	assert.NotContains(t, matches, "absent")
}

func TestSessionErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]interface{}
		want string
	}{
		{"关闭不存在的会话", "close_browser", map[string]interface{}{"session_id": "missing"}, "Browser session 'missing' not found"},
		{"截图不存在的会话", "take_screenshot", map[string]interface{}{"session_id": "missing"}, "Browser session 'missing' not found"},
		{"导航缺少url", "navigate_to_url", map[string]interface{}{"session_id": "missing"}, "url"},
		{"不支持的分析类型", "navigate_and_analyze", map[string]interface{}{
			"session_id": "missing", "selector": "a", "analysis_type": "deep",
		}, "analysis_type"},
		{"点击使用非法选择器", "click_element_and_wait", map[string]interface{}{
			"session_id": "missing", "selector": "div[",
		}, "无效的CSS选择器"},
		{"导航分析使用非法选择器", "navigate_and_analyze", map[string]interface{}{
			"session_id": "missing", "selector": "div[",
		}, "无效的CSS选择器"},
		{"点击缺少选择器", "click_element_and_wait", map[string]interface{}{"session_id": "missing"}, "selector"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, s, tt.tool, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), tt.want)
		})
	}
}

func TestListSessionsTool(t *testing.T) {
	s := newTestServer(t)
	payload := decode(t, call(t, s, "list_sessions", nil))
	assert.EqualValues(t, 0, payload["count"])
	assert.Empty(t, payload["sessions"])
}

func TestCrawlURLTool(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, `<html><head><title>Crawl</title></head><body><main><p>%s</p><p>q=%s</p></main></body></html>`,
			r.Header.Get("X-Tool"), r.URL.Query().Get("q"))
	}))
	defer ts.Close()

	s := newTestServer(t)

	t.Run("调用级头部和查询参数", func(t *testing.T) {
		payload := decode(t, call(t, s, "crawl_url", map[string]interface{}{
			"url":     ts.URL,
			"headers": map[string]interface{}{"X-Tool": "tool-header-value"},
			"params":  map[string]interface{}{"q": 42},
		}))
		assert.EqualValues(t, 200, payload["status_code"])
		assert.Equal(t, "Crawl", payload["title"])
		assert.Contains(t, payload["text"], "tool-header-value")
		assert.Contains(t, payload["text"], "q=42")
	})

	t.Run("提取选择器", func(t *testing.T) {
		payload := decode(t, call(t, s, "crawl_url", map[string]interface{}{
			"url":              ts.URL,
			"extract_selector": "main p",
		}))
		assert.EqualValues(t, 2, payload["extracted_count"])
	})

	t.Run("HTTP错误返回错误载荷", func(t *testing.T) {
		result := call(t, s, "crawl_url", map[string]interface{}{"url": ts.URL + "/missing"})
		assert.False(t, result.IsError)
		payload := decode(t, result)
		assert.Equal(t, "error", payload["status"])
		assert.Equal(t, "HTTPError", payload["error_type"])
	})

	t.Run("非法头部", func(t *testing.T) {
		result := call(t, s, "crawl_url", map[string]interface{}{
			"url":     ts.URL,
			"headers": map[string]interface{}{"Bad Header": "x"},
		})
		assert.True(t, result.IsError)
	})
}

func TestInfoResource(t *testing.T) {
	s := newTestServer(t)
	contents, err := s.readInfo(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text := contents[0].(mcp.TextResourceContents)
	assert.Equal(t, InfoURI, text.URI)
	assert.Contains(t, text.Text, "Custom MCP Server with browser access and web analysis capabilities")
	assert.Contains(t, text.Text, "Open browser sessions: 0")
	assert.Contains(t, text.Text, "Version: test")
}

func TestPrompts(t *testing.T) {
	s := newTestServer(t)

	t.Run("browser_automation", func(t *testing.T) {
		req := mcp.GetPromptRequest{}
		req.Params.Arguments = map[string]string{"task": "log in to the dashboard"}
		result, err := s.browserAutomationPrompt(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, result.Messages, 1)
		assert.Equal(t, mcp.RoleUser, result.Messages[0].Role)
		text := result.Messages[0].Content.(mcp.TextContent).Text
		assert.Contains(t, text, "Please automate this browser task: log in to the dashboard")
		assert.Contains(t, text, "close_browser(session_id)")
	})

	t.Run("web_crawler", func(t *testing.T) {
		req := mcp.GetPromptRequest{}
		req.Params.Arguments = map[string]string{"target_url": "https://example.com", "data_to_extract": "prices"}
		result, err := s.webCrawlerPrompt(context.Background(), req)
		require.NoError(t, err)
		text := result.Messages[0].Content.(mcp.TextContent).Text
		assert.Contains(t, text, "I need to crawl https://example.com and extract prices.")
		assert.Contains(t, text, "parse_html(html, selector)")
	})

	t.Run("缺少参数", func(t *testing.T) {
		_, err := s.webCrawlerPrompt(context.Background(), mcp.GetPromptRequest{})
		assert.Error(t, err)
	})
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Router(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.EqualValues(t, 21, body["tools"])
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9000", "http://localhost:9000"},
		{"[::]:9000", "http://localhost:9000"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"example.com:80", "http://example.com:80"},
		{"[::1]:8080", "http://[::1]:8080"},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, baseURL(tt.addr))
		})
	}
}

func TestArgumentHelpers(t *testing.T) {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{
		"headers":   map[string]interface{}{"X-A": "a", "X-N": 3},
		"wait_time": 1.5,
		"list":      []interface{}{"a", "", "b"},
	}

	assert.Equal(t, map[string]string{"X-A": "a", "X-N": "3"}, stringMap(req, "headers"))
	assert.Nil(t, stringMap(req, "params"))
	assert.Equal(t, 1500*time.Millisecond, seconds(req, "wait_time", 5))
	assert.Equal(t, 5*time.Second, seconds(req, "other", 5))
	assert.Equal(t, []string{"a", "b"}, stringSlice(req, "list"))
}
