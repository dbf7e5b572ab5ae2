package core

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const uiPage = `<html><head><title>示例首页</title>
<meta name="description" content="演示页面">
<style>body { font-family: Helvetica, sans-serif; }</style>
</head><body>
<header><nav><a href="/">首页</a><a href="/about">关于</a></nav></header>
<main><h1>欢迎</h1><p>正文</p><form><input type="search"><button>搜索</button></form></main>
<footer>版权</footer>
</body></html>`

// redPNG 纯红色截图
func redPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// fakeUISession 记录调用顺序的会话
type fakeUISession struct {
	html        string
	shot        []byte
	navigateErr error
	calls       []string
}

func (f *fakeUISession) Navigate(_ context.Context, target string) (*models.NavigationResult, error) {
	f.calls = append(f.calls, "navigate")
	if f.navigateErr != nil {
		return nil, f.navigateErr
	}
	return &models.NavigationResult{CurrentURL: target}, nil
}

func (f *fakeUISession) ScrollToMiddle(context.Context) error {
	f.calls = append(f.calls, "scroll")
	return nil
}

func (f *fakeUISession) Screenshot(_ context.Context, filename string) (*models.ScreenshotResult, error) {
	f.calls = append(f.calls, "screenshot")
	return &models.ScreenshotResult{
		Filename:     filename,
		AbsolutePath: filepath.Join("/tmp/shots", filename),
		Status:       "success",
		Bytes:        f.shot,
	}, nil
}

func (f *fakeUISession) Snapshot(context.Context) (*models.PageSnapshot, error) {
	f.calls = append(f.calls, "snapshot")
	return &models.PageSnapshot{HTML: f.html}, nil
}

func (f *fakeUISession) AnalyzeLayout(context.Context) (*models.PageLayoutAnalysis, error) {
	f.calls = append(f.calls, "layout")
	return &models.PageLayoutAnalysis{LayoutType: "single-column"}, nil
}

func (f *fakeUISession) AnalyzeComponentHierarchy(context.Context) (*models.ComponentHierarchy, error) {
	f.calls = append(f.calls, "hierarchy")
	return &models.ComponentHierarchy{}, nil
}

func (f *fakeUISession) AnalyzeResponsive(context.Context) (*models.ResponsiveAnalysis, error) {
	f.calls = append(f.calls, "responsive")
	return &models.ResponsiveAnalysis{}, nil
}

// fakeOpener 模拟会话的启动与关闭
type fakeOpener struct {
	session  *fakeUISession
	startErr error
	headless []bool
	closed   int
}

func (o *fakeOpener) WithSession(_ context.Context, headless bool, fn func(UISession) error) error {
	o.headless = append(o.headless, headless)
	if o.startErr != nil {
		return o.startErr
	}
	defer func() { o.closed++ }()
	return fn(o.session)
}

func newTestUIAnalyzer(opener SessionOpener, forceHeadless bool, reporter *utils.Reporter) *UIAnalyzer {
	a := NewUIAnalyzer(opener, forceHeadless, reporter)
	a.lazyLoadWait = 0
	return a
}

func quickOptions() models.AnalysisOptions {
	opts := models.DefaultAnalysisOptions()
	opts.WaitTime = 0
	return opts
}

func TestUIAnalyzer_Analyze(t *testing.T) {
	t.Run("完整分析", func(t *testing.T) {
		session := &fakeUISession{html: uiPage, shot: redPNG(t)}
		opener := &fakeOpener{session: session}
		report := newTestUIAnalyzer(opener, false, nil).Analyze(context.Background(), "https://example.com", quickOptions())

		if report.Status != "success" {
			t.Fatalf("期望成功, 实际 %s: %s", report.Status, report.Message)
		}
		wantCalls := []string{"navigate", "scroll", "screenshot", "snapshot", "layout", "hierarchy", "responsive"}
		if !reflect.DeepEqual(session.calls, wantCalls) {
			t.Errorf("调用顺序期望 %v, 实际 %v", wantCalls, session.calls)
		}
		if !reflect.DeepEqual(opener.headless, []bool{false}) {
			t.Errorf("UI分析默认使用有界面浏览器, 实际 %v", opener.headless)
		}
		if opener.closed != 1 {
			t.Errorf("会话应被关闭一次, 实际 %d", opener.closed)
		}

		if report.Title != "示例首页" {
			t.Errorf("标题不正确: %s", report.Title)
		}
		if !strings.HasPrefix(filepath.Base(report.Screenshot), "ui_analysis_") {
			t.Errorf("截图文件名不正确: %s", report.Screenshot)
		}
		if _, err := time.Parse("2006-01-02 15:04:05", report.Timestamp); err != nil {
			t.Errorf("时间戳格式不正确: %s", report.Timestamp)
		}
		if len(report.MetaTags) == 0 {
			t.Error("应提取meta标签")
		}

		palette, ok := report.ColorAnalysis.([]models.ColorSwatch)
		if !ok || len(palette) == 0 {
			t.Fatalf("颜色分析应为调色板, 实际 %#v", report.ColorAnalysis)
		}
		if palette[0].Hex != "#ff0000" {
			t.Errorf("主色期望 #ff0000, 实际 %s", palette[0].Hex)
		}

		for name, present := range map[string]bool{
			"advanced_layout_analysis": report.AdvancedLayoutAnalysis != nil,
			"component_hierarchy":      report.ComponentHierarchy != nil,
			"responsive_analysis":      report.ResponsiveAnalysis != nil,
			"layout_analysis":          report.LayoutAnalysis != nil,
			"component_analysis":       report.ComponentAnalysis != nil,
			"typography_analysis":      report.TypographyAnalysis != nil,
			"ux_patterns":              report.UXPatterns != nil,
			"page_structure":           report.PageStructure != nil,
		} {
			if !present {
				t.Errorf("缺少 %s", name)
			}
		}
	})

	t.Run("关闭可选分析", func(t *testing.T) {
		session := &fakeUISession{html: uiPage}
		opts := models.AnalysisOptions{AnalyzeColors: true}
		report := newTestUIAnalyzer(&fakeOpener{session: session}, false, nil).Analyze(context.Background(), "https://example.com", opts)

		if report.Status != "success" {
			t.Fatalf("期望成功, 实际 %s", report.Message)
		}
		wantCalls := []string{"navigate", "scroll", "snapshot"}
		if !reflect.DeepEqual(session.calls, wantCalls) {
			t.Errorf("调用顺序期望 %v, 实际 %v", wantCalls, session.calls)
		}
		if report.Screenshot != "" || report.ColorAnalysis != nil {
			t.Error("没有截图时不做颜色分析")
		}
		if report.LayoutAnalysis != nil || report.ComponentAnalysis != nil || report.TypographyAnalysis != nil {
			t.Error("关闭的分析项不应出现")
		}
		if report.UXPatterns == nil || report.PageStructure == nil {
			t.Error("ux_patterns 与 page_structure 总是存在")
		}
	})

	t.Run("截图无法解码", func(t *testing.T) {
		session := &fakeUISession{html: uiPage, shot: []byte("not an image")}
		report := newTestUIAnalyzer(&fakeOpener{session: session}, false, nil).Analyze(context.Background(), "https://example.com", quickOptions())

		if report.Status != "success" {
			t.Fatalf("颜色分析失败不影响整体结果, 实际 %s", report.Message)
		}
		colors, ok := report.ColorAnalysis.(map[string]string)
		if !ok || colors["error"] == "" {
			t.Errorf("期望 {error}, 实际 %#v", report.ColorAnalysis)
		}
	})

	t.Run("浏览器启动失败", func(t *testing.T) {
		opener := &fakeOpener{startErr: errors.New("chrome not found")}
		report := newTestUIAnalyzer(opener, false, nil).Analyze(context.Background(), "https://example.com", quickOptions())

		if report.Status != "error" {
			t.Fatalf("期望失败")
		}
		if report.Message != "Failed to start browser: chrome not found" {
			t.Errorf("错误信息不正确: %s", report.Message)
		}
	})

	t.Run("导航失败", func(t *testing.T) {
		session := &fakeUISession{navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
		opener := &fakeOpener{session: session}
		report := newTestUIAnalyzer(opener, false, nil).Analyze(context.Background(), "https://nowhere.invalid", quickOptions())

		if report.Status != "error" || report.Message != "net::ERR_NAME_NOT_RESOLVED" {
			t.Errorf("期望导航错误, 实际 %s: %s", report.Status, report.Message)
		}
		if report.Title != "" || report.UXPatterns != nil {
			t.Error("失败的报告不应包含部分结果")
		}
		if opener.closed != 1 {
			t.Error("失败时会话也应关闭")
		}
	})

	t.Run("强制无头", func(t *testing.T) {
		opener := &fakeOpener{session: &fakeUISession{html: uiPage}}
		newTestUIAnalyzer(opener, true, nil).Analyze(context.Background(), "https://example.com", models.AnalysisOptions{})
		if !reflect.DeepEqual(opener.headless, []bool{true}) {
			t.Errorf("期望无头启动, 实际 %v", opener.headless)
		}
	})

	t.Run("保存报告", func(t *testing.T) {
		dir := t.TempDir()
		opener := &fakeOpener{session: &fakeUISession{html: uiPage}}
		report := newTestUIAnalyzer(opener, false, utils.NewReporter(dir)).Analyze(context.Background(), "https://example.com", models.AnalysisOptions{})

		if report.ReportPath == "" {
			t.Fatal("应返回报告路径")
		}
		if !strings.HasPrefix(filepath.Base(report.ReportPath), "ui_report_") {
			t.Errorf("报告文件名不正确: %s", report.ReportPath)
		}
		if _, err := os.Stat(report.ReportPath); err != nil {
			t.Errorf("报告文件不存在: %v", err)
		}
	})

	t.Run("上下文已取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		opts := quickOptions()
		opts.WaitTime = time.Second
		report := newTestUIAnalyzer(&fakeOpener{session: &fakeUISession{html: uiPage}}, false, nil).Analyze(ctx, "https://example.com", opts)
		if report.Status != "error" || report.Message != context.Canceled.Error() {
			t.Errorf("期望取消错误, 实际 %s: %s", report.Status, report.Message)
		}
	})
}

// fakeNavSession 返回预设点击结果的会话
type fakeNavSession struct {
	click    *models.ClickResult
	clickErr error
	calls    []string
}

func (f *fakeNavSession) ClickAndWait(_ context.Context, selector string, _ time.Duration, _ bool) (*models.ClickResult, error) {
	f.calls = append(f.calls, "click:"+selector)
	return f.click, f.clickErr
}

func (f *fakeNavSession) FindClickableElements(context.Context, []string) (*models.ClickableReport, error) {
	f.calls = append(f.calls, "clickable")
	return &models.ClickableReport{TotalClickable: 3}, nil
}

func (f *fakeNavSession) AnalyzeLayout(context.Context) (*models.PageLayoutAnalysis, error) {
	f.calls = append(f.calls, "layout")
	return &models.PageLayoutAnalysis{}, nil
}

func (f *fakeNavSession) AnalyzeComponentHierarchy(context.Context) (*models.ComponentHierarchy, error) {
	f.calls = append(f.calls, "hierarchy")
	return &models.ComponentHierarchy{}, nil
}

func (f *fakeNavSession) AnalyzeResponsive(context.Context) (*models.ResponsiveAnalysis, error) {
	f.calls = append(f.calls, "responsive")
	return &models.ResponsiveAnalysis{}, nil
}

func successfulClick() *models.ClickResult {
	return &models.ClickResult{
		Status:      "success",
		OriginalURL: "https://example.com/",
		NewURL:      "https://example.com/about",
		NewTitle:    "关于我们",
		URLChanged:  true,
		ElementInfo: &models.ElementInfo{TagName: "a", Text: "关于"},
	}
}

func TestNavigateAndAnalyze(t *testing.T) {
	tests := []struct {
		name         string
		analysisType string
		wantCalls    []string
	}{
		{"基础分析", AnalysisBasic, []string{"click:#about", "clickable"}},
		{"布局分析", AnalysisLayout, []string{"click:#about", "layout", "clickable"}},
		{"组件分析", AnalysisComponents, []string{"click:#about", "hierarchy", "clickable"}},
		{"完整分析", AnalysisFull, []string{"click:#about", "layout", "hierarchy", "responsive", "clickable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeNavSession{click: successfulClick()}
			result, err := NavigateAndAnalyze(context.Background(), session, "#about", time.Second, tt.analysisType)
			if err != nil {
				t.Fatalf("意外错误: %v", err)
			}
			if !reflect.DeepEqual(session.calls, tt.wantCalls) {
				t.Errorf("调用期望 %v, 实际 %v", tt.wantCalls, session.calls)
			}

			if result.Status != "success" || result.NavigationFailed {
				t.Fatalf("期望成功, 实际 %+v", result)
			}
			nav := result.Navigation
			if nav.FromURL != "https://example.com/" || nav.ToURL != "https://example.com/about" {
				t.Errorf("导航摘要不正确: %+v", nav)
			}
			if nav.ClickedElement == nil || nav.ClickedElement.TagName != "a" {
				t.Errorf("缺少被点击元素: %+v", nav.ClickedElement)
			}

			info := result.Analysis.PageInfo
			if info.URL != "https://example.com/about" || info.Title != "关于我们" || info.PreviousURL != "https://example.com/" {
				t.Errorf("页面信息不正确: %+v", info)
			}
			if result.Analysis.ClickableElements == nil {
				t.Error("可点击元素总是存在")
			}
		})
	}

	t.Run("点击失败", func(t *testing.T) {
		session := &fakeNavSession{click: &models.ClickResult{
			Status:  "error",
			Message: "Element not found with selector: #missing",
		}}
		result, err := NavigateAndAnalyze(context.Background(), session, "#missing", time.Second, AnalysisFull)
		if err != nil {
			t.Fatalf("点击失败不是会话错误: %v", err)
		}
		if !result.NavigationFailed || result.Status != "error" {
			t.Errorf("期望 navigation_failed, 实际 %+v", result)
		}
		if result.Message != "Element not found with selector: #missing" {
			t.Errorf("错误信息不正确: %s", result.Message)
		}
		if len(session.calls) != 1 {
			t.Errorf("点击失败后不再分析, 实际调用 %v", session.calls)
		}
	})

	t.Run("会话故障", func(t *testing.T) {
		session := &fakeNavSession{clickErr: errors.New("websocket closed")}
		if _, err := NavigateAndAnalyze(context.Background(), session, "a", time.Second, AnalysisBasic); err == nil {
			t.Error("期望返回会话错误")
		}
	})

	t.Run("未知分析类型", func(t *testing.T) {
		session := &fakeNavSession{click: successfulClick()}
		_, err := NavigateAndAnalyze(context.Background(), session, "a", time.Second, "deep")
		var validationErr *models.ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("期望 ValidationError, 实际 %v", err)
		}
		if len(session.calls) != 0 {
			t.Error("参数错误时不应点击")
		}
	})
}
