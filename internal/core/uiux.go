package core

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/browser"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// lazyLoadWait 滚动到页面中部后等待懒加载内容
const lazyLoadWait = 2 * time.Second

// UISession UI分析流程使用的会话操作, *browser.Session 实现此接口
type UISession interface {
	Navigate(ctx context.Context, target string) (*models.NavigationResult, error)
	ScrollToMiddle(ctx context.Context) error
	Screenshot(ctx context.Context, filename string) (*models.ScreenshotResult, error)
	Snapshot(ctx context.Context) (*models.PageSnapshot, error)
	AnalyzeLayout(ctx context.Context) (*models.PageLayoutAnalysis, error)
	AnalyzeComponentHierarchy(ctx context.Context) (*models.ComponentHierarchy, error)
	AnalyzeResponsive(ctx context.Context) (*models.ResponsiveAnalysis, error)
}

// SessionOpener 打开一个用完即关的会话
type SessionOpener interface {
	WithSession(ctx context.Context, headless bool, fn func(UISession) error) error
}

// ManagerOpener 用会话管理器的临时会话实现 SessionOpener
func ManagerOpener(m *browser.Manager) SessionOpener {
	return managerOpener{m: m}
}

type managerOpener struct {
	m *browser.Manager
}

func (o managerOpener) WithSession(ctx context.Context, headless bool, fn func(UISession) error) error {
	return o.m.WithTemporarySession(ctx, headless, func(s *browser.Session) error {
		return fn(s)
	})
}

// UIAnalyzer analyze_website_ui_ux 的执行者
type UIAnalyzer struct {
	opener        SessionOpener
	forceHeadless bool
	reporter      *utils.Reporter
	lazyLoadWait  time.Duration
}

// NewUIAnalyzer 创建UI分析器, reporter 为 nil 时不保存报告
func NewUIAnalyzer(opener SessionOpener, forceHeadless bool, reporter *utils.Reporter) *UIAnalyzer {
	return &UIAnalyzer{
		opener:        opener,
		forceHeadless: forceHeadless,
		reporter:      reporter,
		lazyLoadWait:  lazyLoadWait,
	}
}

// Analyze 在独立的浏览器会话中分析页面的UI/UX结构
// 任何失败都写入报告的 status/message, 会话总是被关闭
func (a *UIAnalyzer) Analyze(ctx context.Context, target string, opts models.AnalysisOptions) *models.UIUXReport {
	report := &models.UIUXReport{
		URL:       target,
		Timestamp: utils.FormatTimestamp(time.Now()),
		Status:    "success",
	}

	started := false
	err := a.opener.WithSession(ctx, a.forceHeadless, func(s UISession) error {
		started = true
		return a.run(ctx, s, target, opts, report)
	})
	if err != nil {
		message := err.Error()
		if !started {
			message = "Failed to start browser: " + message
		}
		utils.Errorf("UI分析失败 [%s]: %s", target, message)
		return &models.UIUXReport{
			URL:       target,
			Timestamp: report.Timestamp,
			Status:    "error",
			Message:   message,
		}
	}

	if a.reporter != nil {
		path, err := a.reporter.SaveJSON(utils.TimestampedName("ui_report", "json"), report)
		if err != nil {
			utils.Warnf("保存UI分析报告失败: %v", err)
		} else {
			report.ReportPath = path
		}
	}
	return report
}

func (a *UIAnalyzer) run(ctx context.Context, s UISession, target string, opts models.AnalysisOptions, report *models.UIUXReport) error {
	if _, err := s.Navigate(ctx, target); err != nil {
		return err
	}
	if err := sleepContext(ctx, opts.WaitTime); err != nil {
		return err
	}
	if err := s.ScrollToMiddle(ctx); err != nil {
		return err
	}
	if err := sleepContext(ctx, a.lazyLoadWait); err != nil {
		return err
	}

	var shot []byte
	if opts.TakeScreenshot {
		result, err := s.Screenshot(ctx, utils.TimestampedName("ui_analysis", "png"))
		if err != nil {
			return err
		}
		report.Screenshot = result.AbsolutePath
		shot = result.Bytes
	}

	page, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	doc, err := analyzer.Parse(page.HTML)
	if err != nil {
		return err
	}

	report.Title = analyzer.Title(doc)
	report.MetaTags = analyzer.MetaTags(doc)

	if opts.AnalyzeAdvanced {
		if report.AdvancedLayoutAnalysis, err = s.AnalyzeLayout(ctx); err != nil {
			return err
		}
		if report.ComponentHierarchy, err = s.AnalyzeComponentHierarchy(ctx); err != nil {
			return err
		}
		if report.ResponsiveAnalysis, err = s.AnalyzeResponsive(ctx); err != nil {
			return err
		}
	}

	if opts.AnalyzeLayout {
		report.LayoutAnalysis = analyzer.Layout(doc)
	}
	if opts.AnalyzeComponents {
		report.ComponentAnalysis = analyzer.Components(doc)
	}
	if opts.AnalyzeColors && opts.TakeScreenshot {
		report.ColorAnalysis = colorAnalysis(shot)
	}
	if opts.AnalyzeTypography {
		report.TypographyAnalysis = analyzer.Typography(doc)
	}

	report.UXPatterns = analyzer.DetectUXPatterns(doc, page.HTML)
	report.PageStructure = analyzer.Structure(doc)

	utils.Infof("🎨 UI分析完成: %s", target)
	return nil
}

// colorAnalysis 调色板, 失败时返回 {"error": ...}
func colorAnalysis(shot []byte) interface{} {
	palette, err := analyzer.Palette(shot, analyzer.PaletteSize)
	if err != nil {
		return map[string]string{"error": err.Error()}
	}
	return palette
}

// NavigateSession navigate_and_analyze 使用的会话操作
type NavigateSession interface {
	ClickAndWait(ctx context.Context, selector string, wait time.Duration, takeScreenshot bool) (*models.ClickResult, error)
	FindClickableElements(ctx context.Context, types []string) (*models.ClickableReport, error)
	AnalyzeLayout(ctx context.Context) (*models.PageLayoutAnalysis, error)
	AnalyzeComponentHierarchy(ctx context.Context) (*models.ComponentHierarchy, error)
	AnalyzeResponsive(ctx context.Context) (*models.ResponsiveAnalysis, error)
}

// 分析类型
const (
	AnalysisBasic      = "basic"
	AnalysisLayout     = "layout"
	AnalysisComponents = "components"
	AnalysisFull       = "full"
)

// ValidAnalysisType 是否为支持的分析类型
func ValidAnalysisType(analysisType string) bool {
	switch analysisType {
	case AnalysisBasic, AnalysisLayout, AnalysisComponents, AnalysisFull:
		return true
	}
	return false
}

// NavigateAndAnalyze 点击元素, 等待页面变化后分析新页面
// 点击失败时返回 navigation_failed, error 只用于会话级故障
func NavigateAndAnalyze(ctx context.Context, s NavigateSession, selector string, wait time.Duration, analysisType string) (*models.NavigateAndAnalyzeResult, error) {
	if !ValidAnalysisType(analysisType) {
		return nil, &models.ValidationError{
			Field:      "analysis_type",
			Reason:     fmt.Sprintf("不支持的分析类型: %s", analysisType),
			Suggestion: "可选 basic, layout, components, full",
		}
	}

	click, err := s.ClickAndWait(ctx, selector, wait, false)
	if err != nil {
		return nil, err
	}
	if click.Status == "error" {
		return &models.NavigateAndAnalyzeResult{
			Status:           "error",
			Message:          click.Message,
			NavigationFailed: true,
		}, nil
	}

	analysis := &models.NavigateAnalysis{
		PageInfo: models.PageInfo{
			URL:         click.NewURL,
			Title:       click.NewTitle,
			PreviousURL: click.OriginalURL,
		},
	}

	if analysisType == AnalysisLayout || analysisType == AnalysisFull {
		if analysis.LayoutAnalysis, err = s.AnalyzeLayout(ctx); err != nil {
			return nil, err
		}
	}
	if analysisType == AnalysisComponents || analysisType == AnalysisFull {
		if analysis.ComponentAnalysis, err = s.AnalyzeComponentHierarchy(ctx); err != nil {
			return nil, err
		}
	}
	if analysisType == AnalysisFull {
		if analysis.ResponsiveAnalysis, err = s.AnalyzeResponsive(ctx); err != nil {
			return nil, err
		}
	}

	if analysis.ClickableElements, err = s.FindClickableElements(ctx, nil); err != nil {
		return nil, err
	}

	return &models.NavigateAndAnalyzeResult{
		Status: "success",
		Navigation: &models.NavigationSummary{
			FromURL:        click.OriginalURL,
			ToURL:          click.NewURL,
			ClickedElement: click.ElementInfo,
		},
		Analysis: analysis,
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
