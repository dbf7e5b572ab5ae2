package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// InfoURI 服务器说明资源
const InfoURI = "home://info"

const serverDescription = `Custom MCP Server with browser access and web analysis capabilities

Available functionality:
- Browser control (start, navigate, click, execute JavaScript, close)
- Web crawling and deep web search
- HTML parsing and selector discovery
- Screenshot capture
- Web page analysis (layout, components, responsive behavior, UI/UX)`

func (s *Server) registerResources() {
	s.mcp.AddResource(mcp.NewResource(InfoURI, "Server information",
		mcp.WithResourceDescription("Description of the server, its tools and its live status"),
		mcp.WithMIMEType("text/plain"),
	), s.readInfo)
}

func (s *Server) readInfo(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      InfoURI,
			MIMEType: "text/plain",
			Text:     s.infoText(),
		},
	}, nil
}

func (s *Server) infoText() string {
	var b strings.Builder
	b.WriteString(serverDescription)
	b.WriteString("\n\nStatus:\n")
	b.WriteString(s.tk.Status())
	fmt.Fprintf(&b, "\nVersion: %s\nTools: %d\n", s.version, len(s.handlers))
	return b.String()
}

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("browser_automation",
		mcp.WithPromptDescription("Plan the automation of a browser task"),
		mcp.WithArgument("task",
			mcp.ArgumentDescription("The task to automate"),
			mcp.RequiredArgument(),
		),
	), s.browserAutomationPrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("web_crawler",
		mcp.WithPromptDescription("Plan the extraction of data from a website"),
		mcp.WithArgument("target_url",
			mcp.ArgumentDescription("The website to crawl"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("data_to_extract",
			mcp.ArgumentDescription("The data to extract"),
			mcp.RequiredArgument(),
		),
	), s.webCrawlerPrompt)
}

func (s *Server) browserAutomationPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	task := request.Params.Arguments["task"]
	if task == "" {
		return nil, fmt.Errorf("缺少参数: task")
	}

	text := fmt.Sprintf(`Please automate this browser task: %s

You can use these tools:
1. start_browser() - to start a new browser session
2. navigate_to_url(session_id, url) - to navigate to a website
3. take_screenshot(session_id, filename) - to capture the screen
4. execute_javascript(session_id, script) - to run JavaScript on the page
5. close_browser(session_id) - to close the browser when done

Please provide a step-by-step plan for automating this task.`, task)

	return userPrompt("Browser automation plan", text), nil
}

func (s *Server) webCrawlerPrompt(_ context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	target := request.Params.Arguments["target_url"]
	data := request.Params.Arguments["data_to_extract"]
	if target == "" || data == "" {
		return nil, fmt.Errorf("缺少参数: target_url 和 data_to_extract 均为必填")
	}

	text := fmt.Sprintf(`I need to crawl %s and extract %s.

You can use these tools:
1. crawl_url(url) - to fetch the content of a webpage
2. parse_html(html, selector) - to extract specific elements using CSS selectors

Provide a step-by-step approach to extract the requested data.`, target, data)

	return userPrompt("Web crawling plan", text), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return mcp.NewGetPromptResult(description, []mcp.PromptMessage{
		mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(text)),
	})
}
