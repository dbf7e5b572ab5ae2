package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// DefaultUserAgent 浏览器与HTTP请求共用的默认User-Agent
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/134.0.0.0 Safari/537.36"

// Options 会话管理器的运行参数
type Options struct {
	Browser models.BrowserConfig

	// ScreenshotDir 截图默认目录
	ScreenshotDir string
	// PageDir 页面源码默认目录
	PageDir string

	// SettleDelay 响应式检测等操作中每一步的固定等待
	SettleDelay time.Duration
}

// Manager 浏览器会话管理器
// 会话表由读写锁保护, 单个会话内的操作由会话自己的互斥锁串行化
type Manager struct {
	opts    Options
	headers models.HeaderProvider
	monitor *ResourceMonitor

	mu       sync.RWMutex
	sessions map[string]*Session
	// reserved 已预留但尚未登记的名额: 启动中的会话与临时会话
	reserved int
	closed   bool

	reaperCancel context.CancelFunc
}

// NewManager 创建会话管理器
func NewManager(opts Options, headers models.HeaderProvider, monitor *ResourceMonitor) *Manager {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	if opts.ScreenshotDir == "" {
		opts.ScreenshotDir = "."
	}
	if opts.PageDir == "" {
		opts.PageDir = "."
	}
	return &Manager{
		opts:     opts,
		headers:  headers,
		monitor:  monitor,
		sessions: make(map[string]*Session),
	}
}

var errManagerClosed = errors.New("会话管理器已关闭")

// NewSessionID 生成会话ID: session_<unix秒>_<8位随机十六进制>
func NewSessionID(now time.Time) string {
	return fmt.Sprintf("session_%d_%s", now.Unix(), models.ShortID())
}

// Start 启动一个新的Chrome会话并登记
func (m *Manager) Start(ctx context.Context, headless bool) (*models.SessionInfo, error) {
	session, err := m.open(ctx, headless)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.reserved--
	if m.closed {
		m.mu.Unlock()
		session.shutdown()
		return nil, errManagerClosed
	}
	m.sessions[session.ID] = session
	count := len(m.sessions)
	m.mu.Unlock()

	log.Info().Str("session", session.ID).Bool("headless", session.Headless).
		Int("sessions", count).Msg("🌐 浏览器会话已启动")

	info := session.Info()
	return &info, nil
}

// reserve 在会话表锁内占用一个名额, 已登记会话与预留名额合计不超过上限
func (m *Manager) reserve() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errManagerClosed
	}
	if limit := m.opts.Browser.MaxSessions; limit > 0 && len(m.sessions)+m.reserved >= limit {
		return fmt.Errorf("%w (%d)", models.ErrSessionLimit, limit)
	}
	m.reserved++
	return nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.reserved--
	m.mu.Unlock()
}

// open 预留名额并检查资源后启动浏览器, 不登记到会话表
// 成功返回时名额仍被占用, 调用方负责登记或 release
func (m *Manager) open(ctx context.Context, headless bool) (*Session, error) {
	if m.opts.Browser.ForceHeadless {
		headless = true
	}

	if err := m.reserve(); err != nil {
		return nil, err
	}
	session, err := m.launchChecked(ctx, headless)
	if err != nil {
		m.release()
		return nil, err
	}
	return session, nil
}

func (m *Manager) launchChecked(ctx context.Context, headless bool) (*Session, error) {
	if m.monitor != nil {
		if ok, reason := m.monitor.CheckResourceAvailability(); !ok {
			return nil, fmt.Errorf("%w: %s", models.ErrInsufficientResources, reason)
		}
	}

	headers, err := m.sessionHeaders()
	if err != nil {
		return nil, err
	}

	var session *Session
	launch := func() error {
		s, err := m.launch(headless, headers)
		if err != nil {
			log.Warn().Err(err).Msg("浏览器启动失败, 准备重试")
			return err
		}
		session = s
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(2*time.Second), uint64(m.opts.Browser.LaunchRetries)),
		ctx,
	)
	if err := backoff.Retry(launch, policy); err != nil {
		return nil, models.NewToolError(models.ErrorTypeBrowser, fmt.Sprintf("启动浏览器失败: %v", err), err)
	}

	return session, nil
}

// launch 启动Chrome进程并打开一个空白标签页
func (m *Manager) launch(headless bool, headers http.Header) (*Session, error) {
	userAgent := headers.Get("User-Agent")
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	l := launcher.New().
		Headless(headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage").
		Set("ignore-certificate-errors").
		Set("user-agent", userAgent)
	if m.opts.Browser.BinPath != "" {
		l = l.Bin(m.opts.Browser.BinPath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		return nil, fmt.Errorf("启动Chrome失败: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接Chrome失败: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("创建标签页失败: %w", err)
	}

	if extra := extraHeaderPairs(headers); len(extra) > 0 {
		if _, err := page.SetExtraHeaders(extra); err != nil {
			log.Warn().Err(err).Msg("设置自定义请求头失败")
		}
	}

	now := time.Now()
	return &Session{
		ID:        NewSessionID(now),
		Headless:  headless,
		CreatedAt: now,
		lastUsed:  now,
		launcher:  l,
		browser:   b,
		page:      page,
		opts:      &m.opts,
	}, nil
}

func (m *Manager) sessionHeaders() (http.Header, error) {
	if m.headers == nil {
		return http.Header{"User-Agent": []string{DefaultUserAgent}}, nil
	}
	headers, err := m.headers.GetHeaders()
	if err != nil {
		return nil, fmt.Errorf("加载请求头失败: %w", err)
	}
	return headers, nil
}

// extraHeaderPairs 挑出需要通过CDP注入的头部
// User-Agent 走启动参数, Accept/Accept-Encoding 交给浏览器自己协商
func extraHeaderPairs(headers http.Header) []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		switch http.CanonicalHeaderKey(name) {
		case "User-Agent", "Accept", "Accept-Encoding":
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names)*2)
	for _, name := range names {
		pairs = append(pairs, name, headers.Get(name))
	}
	return pairs
}

// Get 查找会话
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	session, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, &models.SessionNotFoundError{ID: id}
	}
	return session, nil
}

// Close 关闭并移除会话
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return &models.SessionNotFoundError{ID: id}
	}

	session.shutdown()
	log.Info().Str("session", id).Msg("浏览器会话已关闭")
	return nil
}

// CloseAll 关闭所有会话并拒绝新会话
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.closed = true
	cancel := m.reaperCancel
	m.reaperCancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	var wg sync.WaitGroup
	for _, session := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.shutdown()
		}(session)
	}
	wg.Wait()

	if len(sessions) > 0 {
		log.Info().Msgf("已关闭 %d 个浏览器会话", len(sessions))
	}
}

// Count 当前会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// snapshot 复制会话表中的会话指针
func (m *Manager) snapshot() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// List 按创建时间排序的会话列表
func (m *Manager) List() []models.SessionInfo {
	sessions := m.snapshot()
	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, session.Info())
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].SessionID < infos[j].SessionID
		}
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// WithTemporarySession 启动一个不登记的临时会话, fn 返回后总是关闭
// 临时会话存活期间占用一个会话名额
func (m *Manager) WithTemporarySession(ctx context.Context, headless bool, fn func(*Session) error) error {
	session, err := m.open(ctx, headless)
	if err != nil {
		return err
	}
	defer m.release()
	defer session.shutdown()

	return fn(session)
}

// StartReaper 定期关闭空闲超时的会话
func (m *Manager) StartReaper(interval time.Duration) {
	timeout := m.opts.Browser.IdleTimeout
	if timeout <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	if m.reaperCancel != nil {
		m.mu.Unlock()
		cancel()
		return
	}
	m.reaperCancel = cancel
	m.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				for _, id := range m.idleSessions(now, timeout) {
					log.Info().Str("session", id).Msg("会话空闲超时, 自动关闭")
					if err := m.Close(id); err != nil && !errors.Is(err, models.ErrSessionNotFound) {
						log.Warn().Err(err).Msg("关闭空闲会话失败")
					}
				}
			}
		}
	}()
}

func (m *Manager) idleSessions(now time.Time, timeout time.Duration) []string {
	var idle []string
	for _, session := range m.snapshot() {
		if session.idleSince(now) > timeout {
			idle = append(idle, session.ID)
		}
	}
	sort.Strings(idle)
	return idle
}
