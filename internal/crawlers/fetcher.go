package crawlers

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/RecoveryAshes/WebScope/internal/analyzer"
	"github.com/RecoveryAshes/WebScope/internal/browser"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	// DefaultMaxContentLength crawl_url 默认返回的最大字符数
	DefaultMaxContentLength = 5000
	// maxBodySize 单个响应体读取上限
	maxBodySize    = 50 << 20
	defaultTimeout = 10 * time.Second
)

// suggestedSelectors 选择器未命中时给出的候选
var suggestedSelectors = []string{"article", ".article", ".post", ".post-content", "main", ".content"}

// Fetcher 基于resty的HTTP抓取器
type Fetcher struct {
	client  *resty.Client
	headers models.HeaderProvider
	hosts   *HostFilter
}

// httpResponse 读取并解压后的响应
type httpResponse struct {
	StatusCode  int
	ContentType string
	FinalURL    string
	Body        []byte
}

// NewFetcher 创建抓取器
func NewFetcher(cfg models.FetchConfig, headers models.HeaderProvider, hosts *HostFilter) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRedirectPolicy(
			resty.FlexibleRedirectPolicy(maxRedirects),
			resty.RedirectPolicyFunc(hosts.CheckRedirect),
		).
		SetTLSClientConfig(&tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify})

	if cfg.InsecureSkipVerify {
		utils.Debugf("HTTP抓取器: TLS证书验证已禁用")
	}

	return &Fetcher{
		client:  client,
		headers: headers,
		hosts:   hosts,
	}
}

// requestHeaders 合并调用级头部, 调用级优先
func (f *Fetcher) requestHeaders(overrides map[string]string) (http.Header, error) {
	if f.headers == nil {
		h := make(http.Header)
		h.Set("User-Agent", browser.DefaultUserAgent)
		for name, value := range overrides {
			h.Set(name, value)
		}
		return h, nil
	}
	if len(overrides) == 0 {
		return f.headers.GetHeaders()
	}
	return f.headers.WithOverrides(overrides)
}

// get 发起GET请求并读取解压后的响应体, 不检查状态码
func (f *Fetcher) get(ctx context.Context, target string, headers http.Header, params map[string]string) (*httpResponse, error) {
	if _, err := f.hosts.Check(target); err != nil {
		return nil, err
	}

	req := f.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if len(headers) > 0 {
		req.SetHeaderMultiValues(headers)
	}
	if len(params) > 0 {
		req.SetQueryParams(params)
	}

	resp, err := req.Get(target)
	if err != nil {
		return nil, models.NewToolError(models.ClassifyError(err), err.Error(), err)
	}
	body := resp.RawBody()
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, models.NewToolError(models.ClassifyError(err), fmt.Sprintf("读取响应失败: %v", err), err)
	}

	finalURL := target
	if raw := resp.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL.String()
	}

	return &httpResponse{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		FinalURL:    finalURL,
		Body:        decodeBody(target, resp.Header().Get("Content-Encoding"), data),
	}, nil
}

// statusError 非2xx响应对应的错误
func statusError(code int, target string) error {
	kind := "Client Error"
	if code >= 500 {
		kind = "Server Error"
	}
	msg := fmt.Sprintf("%d %s: %s for url: %s", code, kind, http.StatusText(code), target)
	return models.NewToolError(models.ErrorTypeHTTP, msg, nil)
}

// Fetch 抓取URL并按内容类型整理结果
// 选择器与头部的校验错误以 *models.ValidationError 返回, 其余失败为可转换成错误载荷的错误
func (f *Fetcher) Fetch(ctx context.Context, req models.FetchRequest) (*models.FetchResult, error) {
	if req.MaxContentLength <= 0 {
		req.MaxContentLength = DefaultMaxContentLength
	}
	if req.ExtractSelector != "" {
		if err := analyzer.ValidateSelector(req.ExtractSelector); err != nil {
			return nil, err
		}
	}

	headers, err := f.requestHeaders(req.Headers)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := f.get(ctx, req.URL, headers, req.Params)
	if err != nil {
		utils.Warnf("抓取失败 [%s]: %v", req.URL, err)
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, resp.FinalURL)
	}

	text := string(resp.Body)
	result := &models.FetchResult{
		StatusCode:    resp.StatusCode,
		ContentType:   resp.ContentType,
		URL:           resp.FinalURL,
		ContentLength: utf8.RuneCountInString(text),
	}
	utils.Debugf("抓取完成 [%s]: 状态=%d, 长度=%d, 耗时=%v", resp.FinalURL, resp.StatusCode, result.ContentLength, time.Since(start))

	if !isHTMLContent(resp.ContentType) {
		result.Text, result.Truncated = utils.Truncate(text, req.MaxContentLength)
		return result, nil
	}

	doc, err := analyzer.Parse(text)
	if err != nil {
		return nil, err
	}
	title := analyzer.Title(doc)
	result.Title = &title

	if req.ExtractSelector == "" {
		result.Text, result.Truncated = utils.Truncate(text, req.MaxContentLength)
		result.PageElements = pageElements(doc)
		return result, nil
	}

	matches := doc.Find(req.ExtractSelector)
	count := matches.Length()
	result.ExtractedCount = &count
	if count == 0 {
		result.Text = fmt.Sprintf("No elements found matching selector: %s", req.ExtractSelector)
		result.SuggestedSelectors = analyzer.CountSelectors(doc.Selection, suggestedSelectors)
		return result, nil
	}

	parts := make([]string, 0, count)
	matches.Each(func(_ int, s *goquery.Selection) {
		if outer, err := goquery.OuterHtml(s); err == nil {
			parts = append(parts, outer)
		}
	})
	result.Text, result.Truncated = utils.Truncate(strings.Join(parts, "\n"), req.MaxContentLength)
	return result, nil
}

// pageElements 常见内容元素的数量
func pageElements(doc *goquery.Document) map[string]int {
	return map[string]int{
		"Articles":     doc.Find("article").Length(),
		"Main content": doc.Find("main").Length(),
		"Headings":     doc.Find("h1, h2, h3").Length(),
		"Paragraphs":   doc.Find("p").Length(),
		"Links":        doc.Find("a").Length(),
		"Images":       doc.Find("img").Length(),
	}
}

// Download 以默认头部下载资源, 返回状态码与内容, 不检查状态码
func (f *Fetcher) Download(ctx context.Context, target string, timeout time.Duration) (*httpResponse, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	headers, err := f.requestHeaders(nil)
	if err != nil {
		return nil, err
	}
	return f.get(ctx, target, headers, nil)
}
