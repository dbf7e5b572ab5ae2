package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RecoveryAshes/WebScope/internal/browser"
)

// session 按 session_id 参数查找会话
func (s *Server) session(request mcp.CallToolRequest) (*browser.Session, error) {
	id, err := requireString(request, "session_id")
	if err != nil {
		return nil, err
	}
	return s.tk.Sessions.Get(id)
}

func sessionIDParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Browser session ID returned by start_browser"),
	)
}

func (s *Server) registerBrowserTools() {
	s.addTool(mcp.NewTool("start_browser",
		mcp.WithDescription("Start a new Chrome browser session and return its session_id."),
		mcp.WithBoolean("headless",
			mcp.Description("Run the browser without a visible window"),
			mcp.DefaultBool(true),
		),
	), s.handleStartBrowser)

	s.addTool(mcp.NewTool("navigate_to_url",
		mcp.WithDescription("Navigate a browser session to a URL and wait for the page to load."),
		sessionIDParam(),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL to open")),
	), s.handleNavigate)

	s.addTool(mcp.NewTool("take_screenshot",
		mcp.WithDescription("Take a PNG screenshot of the current page of a browser session."),
		sessionIDParam(),
		mcp.WithString("filename", mcp.Description("File name, defaults to screenshot_<unix>.png")),
		mcp.WithBoolean("inline",
			mcp.Description("Also return the image as MCP image content"),
			mcp.DefaultBool(false),
		),
	), s.handleScreenshot)

	s.addTool(mcp.NewTool("close_browser",
		mcp.WithDescription("Close a browser session."),
		sessionIDParam(),
	), s.handleCloseBrowser)

	s.addTool(mcp.NewTool("list_sessions",
		mcp.WithDescription("List the open browser sessions."),
	), s.handleListSessions)

	s.addTool(mcp.NewTool("execute_javascript",
		mcp.WithDescription("Execute JavaScript in the page. The script is a function body and may use return; promises are awaited."),
		sessionIDParam(),
		mcp.WithString("script", mcp.Required(), mcp.Description("JavaScript function body")),
	), s.handleExecuteJavaScript)

	s.addTool(mcp.NewTool("get_page_html",
		mcp.WithDescription("Get the HTML source of the current page (truncated to 10000 characters)."),
		sessionIDParam(),
		mcp.WithBoolean("save_to_file",
			mcp.Description("Also save the full source as page_source_<unix>.html"),
			mcp.DefaultBool(false),
		),
	), s.handlePageHTML)

	s.addTool(mcp.NewTool("click_element_and_wait",
		mcp.WithDescription("Click an element and wait for navigation or page changes."),
		sessionIDParam(),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the element to click")),
		mcp.WithNumber("wait_time", mcp.Description("Seconds to wait after the click"), mcp.DefaultNumber(5)),
		mcp.WithBoolean("take_screenshot",
			mcp.Description("Take a screenshot after the page settles"),
			mcp.DefaultBool(true),
		),
	), s.handleClickAndWait)
}

func (s *Server) handleStartBrowser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	info, err := s.tk.Sessions.Start(ctx, request.GetBool("headless", true))
	if err != nil {
		return failure(err)
	}
	return jsonResult(map[string]interface{}{
		"session_id":   info.SessionID,
		"status":       info.Status,
		"browser_type": info.BrowserType,
	})
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := requireString(request, "url")
	if err != nil {
		return failure(err)
	}
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	result, err := session.Navigate(ctx, target)
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}

func (s *Server) handleScreenshot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	shot, err := session.Screenshot(ctx, request.GetString("filename", ""))
	if err != nil {
		return failure(err)
	}

	result, err := jsonResult(shot)
	if err != nil || !request.GetBool("inline", false) {
		return result, err
	}
	result.Content = append(result.Content, mcp.NewImageContent(base64.StdEncoding.EncodeToString(shot.Bytes), "image/png"))
	return result, nil
}

func (s *Server) handleCloseBrowser(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireString(request, "session_id")
	if err != nil {
		return failure(err)
	}
	if err := s.tk.Sessions.Close(id); err != nil {
		return failure(err)
	}
	return jsonResult(map[string]string{"session_id": id, "status": "closed"})
}

func (s *Server) handleListSessions(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.tk.Sessions.List()
	return jsonResult(map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

func (s *Server) handleExecuteJavaScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	script, err := requireString(request, "script")
	if err != nil {
		return failure(err)
	}
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	value, err := session.ExecuteJavaScript(ctx, script)
	if err != nil {
		return failure(err)
	}
	if _, err := json.Marshal(value); err != nil {
		value = fmt.Sprint(value)
	}
	return jsonResult(map[string]interface{}{"result": value})
}

func (s *Server) handlePageHTML(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	source, err := session.PageSource(ctx, request.GetBool("save_to_file", false))
	if err != nil {
		return failure(err)
	}
	return jsonResult(source)
}

func (s *Server) handleClickAndWait(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := requireSelector(request, "selector")
	if err != nil {
		return failure(err)
	}
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	result, err := session.ClickAndWait(ctx, selector, seconds(request, "wait_time", 5), request.GetBool("take_screenshot", true))
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}
