package core

import (
	"net/http"
	"sync"

	"github.com/RecoveryAshes/WebScope/internal/browser"
	"github.com/RecoveryAshes/WebScope/internal/config"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// HeaderManager 管理HTTP请求头部的生命周期
// 实现 HeaderProvider 接口, 浏览器会话与HTTP抓取共用
type HeaderManager struct {
	defaults http.Header // 系统默认头部
	config   http.Header // 配置文件头部
	cli      http.Header // 命令行头部

	validator    *utils.HeaderValidator
	redactor     *utils.HeaderRedactor
	configLoader *config.HeaderConfigLoader

	mu     sync.Mutex
	loaded bool
}

// NewHeaderManager 创建头部管理器
// configFile 为空时使用 configs/headers.yaml, 命令行头部格式为 "Name: Value"
func NewHeaderManager(configFile string, cliHeaders []string) (*HeaderManager, error) {
	hm := &HeaderManager{
		defaults:     DefaultHeaders(),
		config:       make(http.Header),
		cli:          make(http.Header),
		validator:    utils.NewHeaderValidator(),
		redactor:     utils.NewHeaderRedactor(),
		configLoader: config.NewHeaderConfigLoader(configFile),
	}

	if len(cliHeaders) > 0 {
		parsed, err := models.CliHeaders(cliHeaders).Parse()
		if err != nil {
			return nil, err
		}
		hm.cli = parsed
	}

	return hm, nil
}

// DefaultHeaders 系统默认头部
func DefaultHeaders() http.Header {
	return http.Header{
		"User-Agent":      []string{browser.DefaultUserAgent},
		"Accept":          []string{"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": []string{"en-US,en;q=0.9"},
	}
}

// LoadConfig 加载头部配置文件, 只加载一次
func (hm *HeaderManager) LoadConfig() error {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if hm.loaded {
		return nil
	}

	headerConfig, err := hm.configLoader.LoadConfig()
	if err != nil {
		utils.Errorf("加载HTTP头部配置失败: %v", err)
		return err
	}

	hm.config = make(http.Header)
	for name, value := range headerConfig.Headers {
		hm.config.Set(name, value)
	}
	hm.loaded = true

	if len(headerConfig.Headers) > 0 {
		utils.Debugf("成功加载%d个HTTP头部配置: %s", len(headerConfig.Headers), hm.redactor.RedactToString(hm.config))
	}
	return nil
}

// Validate 按 默认 → 配置 → 命令行 的顺序验证头部
func (hm *HeaderManager) Validate() error {
	layers := []struct {
		name    string
		headers http.Header
	}{
		{"默认", hm.defaults},
		{"配置文件", hm.config},
		{"命令行", hm.cli},
	}

	for _, layer := range layers {
		if err := hm.validator.Validate(layer.headers); err != nil {
			utils.Errorf("%s头部验证失败: %v", layer.name, err)
			return err
		}
	}
	return nil
}

// GetMergedHeaders 按优先级合并头部 (default < config < cli)
func (hm *HeaderManager) GetMergedHeaders() http.Header {
	result := make(http.Header)
	for _, layer := range []http.Header{hm.defaults, hm.config, hm.cli} {
		for name, values := range layer {
			result[name] = append([]string(nil), values...)
		}
	}
	return result
}

// GetSafeHeaders 返回脱敏后的头部, 用于日志与 doctor 输出
func (hm *HeaderManager) GetSafeHeaders() map[string]string {
	return hm.redactor.Redact(hm.GetMergedHeaders())
}

// GetHeaders 实现 HeaderProvider 接口
func (hm *HeaderManager) GetHeaders() (http.Header, error) {
	if err := hm.LoadConfig(); err != nil {
		return nil, err
	}
	if err := hm.Validate(); err != nil {
		return nil, err
	}
	return hm.GetMergedHeaders(), nil
}

// WithOverrides 实现 HeaderProvider 接口
// 调用级头部先单独校验, 再覆盖合并结果中的同名头部
func (hm *HeaderManager) WithOverrides(overrides map[string]string) (http.Header, error) {
	if err := hm.validator.ValidateMap(overrides); err != nil {
		return nil, err
	}

	headers, err := hm.GetHeaders()
	if err != nil {
		return nil, err
	}
	for name, value := range overrides {
		headers.Set(name, value)
	}
	return headers, nil
}
