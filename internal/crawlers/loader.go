package crawlers

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/browser"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// PageLoader 按URL加载页面
type PageLoader interface {
	Load(ctx context.Context, target string) (*models.PageSnapshot, error)
}

// PageInspector 除加载外还能截图和读取样式表背景图的加载器
type PageInspector interface {
	PageLoader
	CaptureScreenshot(ctx context.Context) ([]byte, error)
	BackgroundImageURLs(ctx context.Context) ([]string, error)
}

// LoaderSource 为一次操作提供页面加载器, fn 返回后释放加载器占用的资源
type LoaderSource interface {
	WithLoader(ctx context.Context, fn func(PageLoader) error) error
}

// StaticLoader 基于Colly的静态加载器, 不执行JavaScript
type StaticLoader struct {
	collector *colly.Collector
	headers   models.HeaderProvider
	hosts     *HostFilter
}

// NewStaticLoader 创建静态加载器
func NewStaticLoader(cfg models.FetchConfig, headers models.HeaderProvider, hosts *HostFilter) *StaticLoader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		Timeout: timeout,
	}

	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(browser.DefaultUserAgent),
	)
	c.SetClient(httpClient)
	c.SetRedirectHandler(hosts.CheckRedirect)
	c.SetRequestTimeout(timeout)
	utils.Debugf("静态加载器: HTTP超时设置为 %v, TLS证书验证已禁用", timeout)

	return &StaticLoader{
		collector: c,
		headers:   headers,
		hosts:     hosts,
	}
}

// Load 请求页面并返回原始HTML
func (l *StaticLoader) Load(ctx context.Context, target string) (*models.PageSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := l.hosts.Check(target); err != nil {
		return nil, err
	}

	c := l.collector.Clone()
	var (
		snapshot *models.PageSnapshot
		loadErr  error
	)

	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
			return
		}
		if l.headers == nil {
			return
		}
		headers, err := l.headers.GetHeaders()
		if err != nil {
			utils.Warnf("获取HTTP头部失败: %v", err)
			return
		}
		for name, values := range headers {
			if len(values) > 0 {
				r.Headers.Set(name, values[0])
			}
		}
	})

	c.OnResponse(func(r *colly.Response) {
		finalURL := r.Request.URL.String()
		source := string(decodeBody(finalURL, r.Headers.Get("Content-Encoding"), r.Body))

		title := ""
		if isHTMLContent(r.Headers.Get("Content-Type")) {
			if doc, err := analyzer.Parse(source); err == nil {
				title = analyzer.Title(doc)
			}
		}
		snapshot = &models.PageSnapshot{URL: target, FinalURL: finalURL, Title: title, HTML: source}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 400 {
			loadErr = statusError(r.StatusCode, r.Request.URL.String())
			return
		}
		loadErr = models.NewToolError(models.ClassifyError(err), err.Error(), err)
	})

	if err := c.Visit(target); err != nil && loadErr == nil {
		loadErr = fmt.Errorf("访问页面失败 [%s]: %w", target, err)
	}
	c.Wait()

	switch {
	case loadErr != nil:
		return nil, loadErr
	case snapshot == nil:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("页面没有返回内容: %s", target)
	}
	return snapshot, nil
}

// WithLoader 静态加载器无需额外资源, 直接复用自身
func (l *StaticLoader) WithLoader(_ context.Context, fn func(PageLoader) error) error {
	return fn(l)
}

// BrowserSource 每次操作启动一个临时浏览器会话, 操作结束后关闭
type BrowserSource struct {
	manager *browser.Manager
	settle  time.Duration
}

// NewBrowserSource 创建浏览器加载器来源, settle 为每次导航后的等待时间
func NewBrowserSource(manager *browser.Manager, settle time.Duration) *BrowserSource {
	return &BrowserSource{manager: manager, settle: settle}
}

// WithLoader 实现LoaderSource
func (b *BrowserSource) WithLoader(ctx context.Context, fn func(PageLoader) error) error {
	return b.manager.WithTemporarySession(ctx, true, func(s *browser.Session) error {
		return fn(&sessionLoader{session: s, settle: b.settle})
	})
}

type sessionLoader struct {
	session *browser.Session
	settle  time.Duration
}

func (l *sessionLoader) Load(ctx context.Context, target string) (*models.PageSnapshot, error) {
	return l.session.Load(ctx, target, l.settle)
}

func (l *sessionLoader) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	return l.session.CaptureScreenshot(ctx)
}

func (l *sessionLoader) BackgroundImageURLs(ctx context.Context) ([]string, error) {
	return l.session.BackgroundImageURLs(ctx)
}

// CachedSource 为加载结果加一层带过期时间的LRU缓存
type CachedSource struct {
	inner LoaderSource
	cache *expirable.LRU[string, *models.PageSnapshot]
}

// NewCachedSource 创建缓存来源, size 为缓存页面数, ttl 为单页有效期
func NewCachedSource(inner LoaderSource, size int, ttl time.Duration) *CachedSource {
	return &CachedSource{
		inner: inner,
		cache: expirable.NewLRU[string, *models.PageSnapshot](size, nil, ttl),
	}
}

// WithLoader 实现LoaderSource
func (c *CachedSource) WithLoader(ctx context.Context, fn func(PageLoader) error) error {
	return c.inner.WithLoader(ctx, func(l PageLoader) error {
		return fn(&cachedLoader{inner: l, cache: c.cache})
	})
}

// Len 当前缓存的页面数
func (c *CachedSource) Len() int {
	return c.cache.Len()
}

type cachedLoader struct {
	inner PageLoader
	cache *expirable.LRU[string, *models.PageSnapshot]
}

func (l *cachedLoader) Load(ctx context.Context, target string) (*models.PageSnapshot, error) {
	if snapshot, ok := l.cache.Get(target); ok {
		utils.Debugf("页面缓存命中: %s", target)
		return snapshot, nil
	}

	snapshot, err := l.inner.Load(ctx, target)
	if err != nil {
		return nil, err
	}
	l.cache.Add(target, snapshot)
	return snapshot, nil
}

// errNoInspector 当前加载器不支持截图
var errNoInspector = errors.New("当前页面加载器不支持截图和样式表读取")
