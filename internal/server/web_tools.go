package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/crawlers"
	"github.com/RecoveryAshes/WebScope/internal/models"
)

func (s *Server) registerWebTools() {
	s.addTool(mcp.NewTool("crawl_url",
		mcp.WithDescription("Fetch a URL over HTTP and return its content, optionally extracting elements by CSS selector."),
		mcp.WithString("url", mcp.Required(), mcp.Description("URL to fetch")),
		mcp.WithObject("headers", mcp.Description("Extra request headers, overriding the configured ones")),
		mcp.WithObject("params", mcp.Description("Query string parameters")),
		mcp.WithNumber("max_content_length",
			mcp.Description("Maximum number of characters of content to return"),
			mcp.DefaultNumber(crawlers.DefaultMaxContentLength),
		),
		mcp.WithString("extract_selector", mcp.Description("CSS selector of the elements to extract")),
	), s.handleCrawlURL)

	s.addTool(mcp.NewTool("find_selectors",
		mcp.WithDescription("Suggest CSS selectors for common content containers and locate elements containing keywords."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML source")),
		mcp.WithArray("content_keywords",
			mcp.Description("Keywords (regular expressions) to locate in text"),
			mcp.Items(map[string]interface{}{"type": "string"}),
		),
	), s.handleFindSelectors)

	s.addTool(mcp.NewTool("parse_html",
		mcp.WithDescription("Parse HTML: without a selector return the title and links, with a selector return the matching elements."),
		mcp.WithString("html", mcp.Required(), mcp.Description("HTML source")),
		mcp.WithString("selector", mcp.Description("CSS selector"), mcp.DefaultString("")),
	), s.handleParseHTML)

	defaults := models.DefaultAnalysisOptions()
	s.addTool(mcp.NewTool("analyze_website_ui_ux",
		mcp.WithDescription("Open a website in a dedicated browser and analyze its UI/UX: layout, components, colours, typography and UX patterns."),
		mcp.WithString("url", mcp.Required(), mcp.Description("Website URL")),
		mcp.WithBoolean("take_screenshot", mcp.DefaultBool(defaults.TakeScreenshot)),
		mcp.WithBoolean("analyze_components", mcp.DefaultBool(defaults.AnalyzeComponents)),
		mcp.WithBoolean("analyze_colors",
			mcp.Description("Extract the colour palette from the screenshot"),
			mcp.DefaultBool(defaults.AnalyzeColors),
		),
		mcp.WithBoolean("analyze_typography", mcp.DefaultBool(defaults.AnalyzeTypography)),
		mcp.WithBoolean("analyze_layout", mcp.DefaultBool(defaults.AnalyzeLayout)),
		mcp.WithNumber("wait_time",
			mcp.Description("Seconds to wait after the page loads"),
			mcp.DefaultNumber(defaults.WaitTime.Seconds()),
		),
		mcp.WithBoolean("analyze_advanced",
			mcp.Description("Include live layout, component hierarchy and responsive analyses"),
			mcp.DefaultBool(defaults.AnalyzeAdvanced),
		),
	), s.handleAnalyzeUIUX)

	s.addTool(mcp.NewTool("deep_web_search",
		mcp.WithDescription("Search the web, visit the result pages and extract the paragraphs relevant to the query."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query")),
		mcp.WithNumber("max_pages", mcp.DefaultNumber(crawlers.DefaultSearchPages)),
		mcp.WithString("search_engine",
			mcp.Enum(string(models.EngineGoogle), string(models.EngineBing), string(models.EngineDuckDuckGo)),
			mcp.DefaultString(string(s.tk.Searcher.DefaultEngine())),
		),
		mcp.WithNumber("depth",
			mcp.Description("Crawl depth; above 1 follows relevant links from result pages"),
			mcp.DefaultNumber(crawlers.DefaultSearchDepth),
		),
		mcp.WithBoolean("extract_relevant_content", mcp.DefaultBool(true)),
	), s.handleDeepSearch)

	s.addTool(mcp.NewTool("answer_question_from_web",
		mcp.WithDescription("Search the web for a question and return the best candidate answers with a confidence score."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer")),
		mcp.WithNumber("max_pages", mcp.DefaultNumber(crawlers.DefaultAnswerPages)),
		mcp.WithNumber("search_depth", mcp.DefaultNumber(crawlers.DefaultSearchDepth)),
	), s.handleAnswerQuestion)
}

func (s *Server) handleCrawlURL(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := requireString(request, "url")
	if err != nil {
		return failure(err)
	}
	result, err := s.tk.Fetcher.Fetch(ctx, models.FetchRequest{
		URL:              target,
		Headers:          stringMap(request, "headers"),
		Params:           stringMap(request, "params"),
		MaxContentLength: request.GetInt("max_content_length", crawlers.DefaultMaxContentLength),
		ExtractSelector:  request.GetString("extract_selector", ""),
	})
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}

func (s *Server) handleFindSelectors(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := requireString(request, "html")
	if err != nil {
		return failure(err)
	}
	doc, err := analyzer.Parse(source)
	if err != nil {
		return failure(err)
	}
	return jsonResult(analyzer.FindSelectors(doc, stringSlice(request, "content_keywords")))
}

func (s *Server) handleParseHTML(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := requireString(request, "html")
	if err != nil {
		return failure(err)
	}
	doc, err := analyzer.Parse(source)
	if err != nil {
		return failure(err)
	}
	result, err := analyzer.ParseHTML(doc, request.GetString("selector", ""))
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}

func (s *Server) handleAnalyzeUIUX(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target, err := requireString(request, "url")
	if err != nil {
		return failure(err)
	}

	defaults := models.DefaultAnalysisOptions()
	opts := models.AnalysisOptions{
		TakeScreenshot:    request.GetBool("take_screenshot", defaults.TakeScreenshot),
		AnalyzeComponents: request.GetBool("analyze_components", defaults.AnalyzeComponents),
		AnalyzeColors:     request.GetBool("analyze_colors", defaults.AnalyzeColors),
		AnalyzeTypography: request.GetBool("analyze_typography", defaults.AnalyzeTypography),
		AnalyzeLayout:     request.GetBool("analyze_layout", defaults.AnalyzeLayout),
		AnalyzeAdvanced:   request.GetBool("analyze_advanced", defaults.AnalyzeAdvanced),
		WaitTime:          seconds(request, "wait_time", defaults.WaitTime.Seconds()),
	}
	if err := opts.Validate(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.tk.UI.Analyze(ctx, target, opts))
}

func (s *Server) handleDeepSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := requireString(request, "query")
	if err != nil {
		return failure(err)
	}
	engine := request.GetString("search_engine", string(s.tk.Searcher.DefaultEngine()))
	report := s.tk.Searcher.Search(ctx, models.SearchRequest{
		Query:                  query,
		MaxPages:               request.GetInt("max_pages", crawlers.DefaultSearchPages),
		Engine:                 models.ParseSearchEngine(engine),
		Depth:                  request.GetInt("depth", crawlers.DefaultSearchDepth),
		ExtractRelevantContent: request.GetBool("extract_relevant_content", true),
	})
	return jsonResult(report)
}

func (s *Server) handleAnswerQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := requireString(request, "question")
	if err != nil {
		return failure(err)
	}
	report := s.tk.Searcher.Answer(ctx, question,
		request.GetInt("max_pages", crawlers.DefaultAnswerPages),
		request.GetInt("search_depth", crawlers.DefaultSearchDepth),
	)
	return jsonResult(report)
}
