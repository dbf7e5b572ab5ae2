package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// Session 一个Chrome进程及其唯一的标签页
type Session struct {
	ID        string
	Headless  bool
	CreatedAt time.Time

	// mu 串行化页面操作, 可能被长时间持有
	mu     sync.Mutex
	closed bool

	// stateMu 只保护 lastUsed, 会话表遍历时不会等待进行中的操作
	stateMu  sync.Mutex
	lastUsed time.Time

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	opts     *Options
}

// Info 返回会话的对外信息
func (s *Session) Info() models.SessionInfo {
	s.stateMu.Lock()
	lastUsed := s.lastUsed
	s.stateMu.Unlock()

	return models.SessionInfo{
		SessionID:   s.ID,
		Status:      models.SessionStarted,
		BrowserType: models.BrowserType,
		Headless:    s.Headless,
		CreatedAt:   s.CreatedAt,
		LastUsed:    lastUsed,
	}
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return now.Sub(s.lastUsed)
}

func (s *Session) touch() {
	s.stateMu.Lock()
	s.lastUsed = time.Now()
	s.stateMu.Unlock()
}

// run 串行执行会话上的操作, 并把浏览器驱动的panic转换为错误
func (s *Session) run(ctx context.Context, fn func(p *rod.Page) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return models.NewToolError(models.ErrorTypeBrowser, "浏览器会话已关闭", nil)
	}
	s.touch()
	defer s.touch()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("session", s.ID).Msgf("浏览器操作异常: %v", r)
			err = models.NewToolError(models.ErrorTypeBrowser, fmt.Sprintf("浏览器操作异常: %v", r), nil)
		}
	}()

	return fn(s.page.Context(ctx))
}

// shutdown 关闭浏览器并清理用户数据目录
func (s *Session) shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			log.Debug().Err(err).Str("session", s.ID).Msg("关闭浏览器失败, 强制结束进程")
			if s.launcher != nil {
				s.launcher.Kill()
			}
		}
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

// evalJSON 执行函数形式的脚本并把结果解码到out
func evalJSON(p *rod.Page, js string, out interface{}) error {
	res, err := p.Evaluate(&rod.EvalOptions{ByValue: true, AwaitPromise: true, JS: js})
	if err != nil {
		return fmt.Errorf("执行页面脚本失败: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Value.JSON("", "")), out); err != nil {
		return fmt.Errorf("解析脚本结果失败: %w", err)
	}
	return nil
}

// pageState 返回当前标题和URL
func pageState(p *rod.Page) (title, currentURL string, err error) {
	info, err := p.Info()
	if err != nil {
		return "", "", fmt.Errorf("读取页面信息失败: %w", err)
	}
	return info.Title, info.URL, nil
}

// navigate 跳转并等待加载完成
func navigate(p *rod.Page, target string, settle time.Duration) error {
	if err := p.Navigate(target); err != nil {
		return models.NewToolError(models.ErrorTypeBrowser, fmt.Sprintf("页面导航失败: %v", err), err)
	}
	if err := p.WaitLoad(); err != nil {
		return models.NewToolError(models.ErrorTypeBrowser, fmt.Sprintf("等待页面加载失败: %v", err), err)
	}
	return sleep(p.GetContext(), settle)
}

// screenshot 截取当前视口为PNG
func screenshot(p *rod.Page) ([]byte, error) {
	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("截图失败: %w", err)
	}
	return data, nil
}

func setViewport(p *rod.Page, width, height int) error {
	return p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             width,
		Height:            height,
		DeviceScaleFactor: 1,
	})
}

func clearViewport(p *rod.Page) error {
	return proto.EmulationClearDeviceMetricsOverride{}.Call(p)
}

// sleep 可被ctx打断的等待
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
