package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	// pageSourceLimit get_page_html 返回的HTML最大字符数
	pageSourceLimit = 10000
	// elementWaitTimeout 等待元素可交互的上限
	elementWaitTimeout = 10 * time.Second
	pollInterval       = 250 * time.Millisecond
)

// Navigate 跳转到指定URL
func (s *Session) Navigate(ctx context.Context, target string) (*models.NavigationResult, error) {
	result := &models.NavigationResult{}
	err := s.run(ctx, func(p *rod.Page) error {
		if err := navigate(p, target, s.opts.Browser.NavigationWait); err != nil {
			return err
		}
		title, current, err := pageState(p)
		if err != nil {
			return err
		}
		result.Title, result.CurrentURL = title, current
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("session", s.ID).Str("url", result.CurrentURL).Msg("页面导航完成")
	return result, nil
}

// Load 跳转并返回渲染后的页面快照
func (s *Session) Load(ctx context.Context, target string, settle time.Duration) (*models.PageSnapshot, error) {
	snapshot := &models.PageSnapshot{URL: target}
	err := s.run(ctx, func(p *rod.Page) error {
		if err := navigate(p, target, settle); err != nil {
			return err
		}
		return fillSnapshot(p, snapshot)
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Snapshot 当前页面的快照
func (s *Session) Snapshot(ctx context.Context) (*models.PageSnapshot, error) {
	snapshot := &models.PageSnapshot{}
	if err := s.run(ctx, func(p *rod.Page) error { return fillSnapshot(p, snapshot) }); err != nil {
		return nil, err
	}
	snapshot.URL = snapshot.FinalURL
	return snapshot, nil
}

func fillSnapshot(p *rod.Page, snapshot *models.PageSnapshot) error {
	title, current, err := pageState(p)
	if err != nil {
		return err
	}
	html, err := p.HTML()
	if err != nil {
		return fmt.Errorf("读取页面源码失败: %w", err)
	}
	snapshot.Title, snapshot.FinalURL, snapshot.HTML = title, current, html
	return nil
}

// Screenshot 截图并保存, filename 为空时使用 screenshot_<unix>.png
func (s *Session) Screenshot(ctx context.Context, filename string) (*models.ScreenshotResult, error) {
	if filename == "" {
		filename = utils.TimestampedName("screenshot", "png")
	}

	var data []byte
	err := s.run(ctx, func(p *rod.Page) error {
		var err error
		data, err = screenshot(p)
		return err
	})
	if err != nil {
		return nil, err
	}

	path, err := saveFile(s.opts.ScreenshotDir, filename, data)
	if err != nil {
		return nil, err
	}

	return &models.ScreenshotResult{
		Filename:     filename,
		AbsolutePath: path,
		Status:       "success",
		Bytes:        data,
	}, nil
}

// ExecuteJavaScript 执行调用方提供的函数体, 支持 return 与 Promise
func (s *Session) ExecuteJavaScript(ctx context.Context, script string) (interface{}, error) {
	var result interface{}
	err := s.run(ctx, func(p *rod.Page) error {
		res, err := p.Evaluate(&rod.EvalOptions{
			ByValue:      true,
			AwaitPromise: true,
			JS:           wrapUserScript(script),
		})
		if err != nil {
			return models.NewToolError(models.ErrorTypeBrowser, fmt.Sprintf("脚本执行失败: %v", err), err)
		}
		result = res.Value.Val()
		return nil
	})
	return result, err
}

// PageSource 返回页面源码, 可选保存为 page_source_<unix>.html
func (s *Session) PageSource(ctx context.Context, saveToFile bool) (*models.PageSource, error) {
	snapshot, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	source := &models.PageSource{
		URL:           snapshot.FinalURL,
		Title:         snapshot.Title,
		ContentLength: len([]rune(snapshot.HTML)),
	}

	if saveToFile {
		path, err := saveFile(s.opts.PageDir, utils.TimestampedName("page_source", "html"), []byte(snapshot.HTML))
		if err != nil {
			return nil, err
		}
		source.SavedToFile = path
	}

	html, truncated := utils.Truncate(snapshot.HTML, pageSourceLimit)
	if truncated {
		html += "... [truncated]"
	}
	source.HTML, source.Truncated = html, truncated
	return source, nil
}

// ScrollToMiddle 滚动到页面一半高度
func (s *Session) ScrollToMiddle(ctx context.Context) error {
	return s.run(ctx, func(p *rod.Page) error {
		return evalJSON(p, scrollToMiddleScript, nil)
	})
}

// ClickAndWait 点击元素并等待页面响应
// 操作层面的失败写入返回值的 status/message, error 只用于会话级故障
func (s *Session) ClickAndWait(ctx context.Context, selector string, wait time.Duration, takeScreenshot bool) (*models.ClickResult, error) {
	result := &models.ClickResult{Status: "success"}
	var shot []byte

	err := s.run(ctx, func(p *rod.Page) error {
		_, original, err := pageState(p)
		if err != nil {
			return err
		}
		result.OriginalURL = original

		fail := func(err error, message string) error {
			result.Status = "error"
			result.Message = message
			result.ErrorType = models.ClassifyError(err)
			if _, current, stateErr := pageState(p); stateErr == nil {
				result.CurrentURL = current
			}
			return nil
		}

		el, err := p.Timeout(elementWaitTimeout).Element(selector)
		if err != nil {
			return fail(fmt.Errorf("%w: %v", models.ErrElementNotFound, err),
				fmt.Sprintf("Element not found with selector: %s", selector))
		}
		el = el.CancelTimeout()

		if err := el.Timeout(elementWaitTimeout).WaitVisible(); err != nil {
			return fail(err, fmt.Sprintf("Element not clickable: %v", err))
		}
		result.ElementInfo = describeElement(el)

		start := time.Now()
		if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
			return fail(err, fmt.Sprintf("点击元素失败: %v", err))
		}

		current, changed := waitForURLChange(p, original, wait)
		if changed {
			result.NavigationType = models.NavigationURLChange
		} else {
			result.NavigationType = models.NavigationInPageAction
			if err := sleep(p.GetContext(), wait); err != nil {
				return err
			}
		}

		if !waitForReadyState(p, wait) {
			result.Warning = "Page might not have fully loaded within the wait time"
		}
		result.WaitDuration = time.Since(start).Seconds()

		title, now, err := pageState(p)
		if err != nil {
			now, title = current, ""
		}
		result.NewURL, result.NewTitle = now, title
		result.URLChanged = now != original

		if takeScreenshot {
			if data, err := screenshot(p); err == nil {
				shot = data
			} else {
				log.Warn().Err(err).Msg("点击后截图失败")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if shot != nil {
		path, err := saveFile(s.opts.ScreenshotDir, utils.TimestampedName("after_click", "png"), shot)
		if err == nil {
			result.Screenshot = path
		}
	}
	return result, nil
}

func describeElement(el *rod.Element) *models.ElementInfo {
	info := &models.ElementInfo{Attributes: make(map[string]string)}

	if res, err := el.Eval(`() => this.tagName.toLowerCase()`); err == nil {
		info.TagName = res.Value.Str()
	}

	text, err := el.Text()
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		text = "[No text]"
	}
	info.Text = text

	for _, name := range []string{"id", "class", "href", "src"} {
		value, err := el.Attribute(name)
		if err == nil && value != nil && *value != "" {
			info.Attributes[name] = *value
		}
	}
	return info
}

// waitForURLChange 在 wait 内轮询URL是否变化
func waitForURLChange(p *rod.Page, original string, wait time.Duration) (string, bool) {
	deadline := time.Now().Add(wait)
	current := original
	for {
		if _, u, err := pageState(p); err == nil {
			current = u
			if u != original {
				return u, true
			}
		}
		if time.Now().After(deadline) {
			return current, false
		}
		if err := sleep(p.GetContext(), pollInterval); err != nil {
			return current, false
		}
	}
}

// waitForReadyState 在 wait 内等待 document.readyState 变为 complete
func waitForReadyState(p *rod.Page, wait time.Duration) bool {
	deadline := time.Now().Add(wait)
	for {
		var state string
		if err := evalJSON(p, readyStateScript, &state); err == nil && state == "complete" {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		if err := sleep(p.GetContext(), pollInterval); err != nil {
			return false
		}
	}
}

// FindClickableElements 列出视口内可点击的元素
func (s *Session) FindClickableElements(ctx context.Context, types []string) (*models.ClickableReport, error) {
	var candidates []models.ClickableCandidate
	var title, current string

	err := s.run(ctx, func(p *rod.Page) error {
		var err error
		if title, current, err = pageState(p); err != nil {
			return err
		}
		return evalJSON(p, clickableScript, &candidates)
	})
	if err != nil {
		return nil, err
	}

	report := CategorizeClickables(candidates, types)
	report.URL, report.Title = current, title
	return report, nil
}

// BackgroundImageURLs 页面样式中引用的背景图URL
func (s *Session) BackgroundImageURLs(ctx context.Context) ([]string, error) {
	var urls []string
	err := s.run(ctx, func(p *rod.Page) error {
		return evalJSON(p, backgroundImagesScript, &urls)
	})
	return urls, err
}

// CaptureScreenshot 截图但不保存
func (s *Session) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	var data []byte
	err := s.run(ctx, func(p *rod.Page) error {
		var err error
		data, err = screenshot(p)
		return err
	})
	return data, err
}

// saveFile 写入输出目录, 返回绝对路径
func saveFile(dir, name string, data []byte) (string, error) {
	path, err := utils.ResolveOutputPath(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入文件失败 [%s]: %w", filepath.Base(path), err)
	}
	return path, nil
}
