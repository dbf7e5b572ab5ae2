package crawlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gobwas/glob"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

// maxRedirects 单次请求允许跟随的重定向次数
const maxRedirects = 10

// HostFilter 按glob模式屏蔽目标主机
type HostFilter struct {
	patterns []string
	globs    []glob.Glob
}

// NewHostFilter 编译屏蔽模式, 如 "*.doubleclick.net", * 可以跨越多级子域名
func NewHostFilter(patterns []string) (*HostFilter, error) {
	f := &HostFilter{}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("屏蔽主机模式无效 [%s]: %w", pattern, err)
		}
		f.patterns = append(f.patterns, pattern)
		f.globs = append(f.globs, g)
	}
	return f, nil
}

// Blocked 主机名命中任一模式时返回该模式
func (f *HostFilter) Blocked(host string) (string, bool) {
	if f == nil {
		return "", false
	}
	host = strings.ToLower(host)
	for i, g := range f.globs {
		if g.Match(host) {
			return f.patterns[i], true
		}
	}
	return "", false
}

// Check 校验URL并检查主机是否被屏蔽
func (f *HostFilter) Check(target string) (*url.URL, error) {
	parsed, err := url.Parse(target)
	if err != nil {
		return nil, models.NewToolError(models.ErrorTypeInvalidURL, fmt.Sprintf("Invalid URL '%s': %v", target, err), err)
	}
	switch parsed.Scheme {
	case "http", "https":
	case "":
		return nil, models.NewToolError(models.ErrorTypeInvalidURL,
			fmt.Sprintf("Invalid URL '%s': No scheme supplied. Perhaps you meant https://%s?", target, target), nil)
	default:
		return nil, models.NewToolError(models.ErrorTypeInvalidURL,
			fmt.Sprintf("Invalid URL '%s': unsupported scheme %q", target, parsed.Scheme), nil)
	}
	if parsed.Hostname() == "" {
		return nil, models.NewToolError(models.ErrorTypeInvalidURL, fmt.Sprintf("Invalid URL '%s': No host supplied", target), nil)
	}

	if pattern, blocked := f.Blocked(parsed.Hostname()); blocked {
		return nil, fmt.Errorf("%w: %s (规则 %s)", models.ErrBlockedHost, parsed.Hostname(), pattern)
	}
	return parsed, nil
}

// CheckRedirect 符合 http.Client.CheckRedirect 的签名, 每一跳重定向都重新检查屏蔽规则
func (f *HostFilter) CheckRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("重定向次数超过 %d 次", maxRedirects)
	}
	_, err := f.Check(req.URL.String())
	return err
}
