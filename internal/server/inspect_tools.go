package server

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/RecoveryAshes/WebScope/internal/core"
	"github.com/RecoveryAshes/WebScope/internal/models"
)

func (s *Server) registerInspectTools() {
	s.addTool(mcp.NewTool("find_clickable_elements",
		mcp.WithDescription("Find visible clickable elements in the viewport, grouped by type, each with a unique CSS selector."),
		sessionIDParam(),
		mcp.WithArray("element_types",
			mcp.Description("Element types to return: links, buttons, inputs, menu_items"),
			mcp.Items(map[string]interface{}{
				"type": "string",
				"enum": models.DefaultClickableTypes,
			}),
		),
	), s.handleFindClickable)

	s.addTool(mcp.NewTool("analyze_page_layout",
		mcp.WithDescription("Analyze the rendered layout: containers, multi-column and sidebar layouts, content and sidebar areas."),
		sessionIDParam(),
	), s.handleAnalyzeLayout)

	s.addTool(mcp.NewTool("analyze_component_hierarchy",
		mcp.WithDescription("Analyze the component hierarchy and page regions (header, content, footer) of the current page."),
		sessionIDParam(),
	), s.handleComponentHierarchy)

	s.addTool(mcp.NewTool("analyze_responsive_behavior",
		mcp.WithDescription("Render the page at mobile, tablet, laptop and desktop sizes and detect layout breakpoints."),
		sessionIDParam(),
	), s.handleResponsive)

	s.addTool(mcp.NewTool("navigate_and_analyze",
		mcp.WithDescription("Click an element, wait for the new page and analyze it."),
		sessionIDParam(),
		mcp.WithString("selector", mcp.Required(), mcp.Description("CSS selector of the element to click")),
		mcp.WithNumber("wait_time", mcp.Description("Seconds to wait after the click"), mcp.DefaultNumber(5)),
		mcp.WithString("analysis_type",
			mcp.Description("Depth of the analysis of the new page"),
			mcp.Enum(core.AnalysisBasic, core.AnalysisLayout, core.AnalysisComponents, core.AnalysisFull),
			mcp.DefaultString(core.AnalysisBasic),
		),
	), s.handleNavigateAndAnalyze)
}

func (s *Server) handleFindClickable(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	report, err := session.FindClickableElements(ctx, stringSlice(request, "element_types"))
	if err != nil {
		return failure(err)
	}
	return jsonResult(report)
}

func (s *Server) handleAnalyzeLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	analysis, err := session.AnalyzeLayout(ctx)
	if err != nil {
		return failure(err)
	}
	return jsonResult(analysis)
}

func (s *Server) handleComponentHierarchy(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	hierarchy, err := session.AnalyzeComponentHierarchy(ctx)
	if err != nil {
		return failure(err)
	}
	return jsonResult(hierarchy)
}

func (s *Server) handleResponsive(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	analysis, err := session.AnalyzeResponsive(ctx)
	if err != nil {
		return failure(err)
	}
	return jsonResult(analysis)
}

func (s *Server) handleNavigateAndAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	selector, err := requireSelector(request, "selector")
	if err != nil {
		return failure(err)
	}
	analysisType := request.GetString("analysis_type", core.AnalysisBasic)
	if !core.ValidAnalysisType(analysisType) {
		return mcp.NewToolResultError("analysis_type must be one of basic, layout, components, full"), nil
	}
	session, err := s.session(request)
	if err != nil {
		return failure(err)
	}
	result, err := core.NavigateAndAnalyze(ctx, session, selector, seconds(request, "wait_time", 5), analysisType)
	if err != nil {
		return failure(err)
	}
	return jsonResult(result)
}
