package models

import (
	"fmt"
	"time"
)

// BrowserConfig 浏览器会话配置
type BrowserConfig struct {
	Headless        bool          `mapstructure:"headless" json:"headless"`                     // start_browser 默认无头
	ForceHeadless   bool          `mapstructure:"force_headless" json:"force_headless"`         // 强制所有会话无头 (含UI分析)
	BinPath         string        `mapstructure:"bin_path" json:"bin_path"`                     // Chrome可执行文件, 为空时自动查找
	MaxSessions     int           `mapstructure:"max_sessions" json:"max_sessions"`             // 同时存在的会话上限
	LaunchRetries   int           `mapstructure:"launch_retries" json:"launch_retries"`         // 启动失败重试次数
	NavigationWait  time.Duration `mapstructure:"navigation_wait" json:"navigation_wait"`       // 导航后额外等待
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" json:"idle_timeout"`             // 空闲会话回收, 0 表示不回收
	MinFreeMemoryMB int           `mapstructure:"min_free_memory_mb" json:"min_free_memory_mb"` // 启动新会话所需的最小可用内存
}

// Validate 验证配置
func (c *BrowserConfig) Validate() error {
	if c.MaxSessions < 1 || c.MaxSessions > 64 {
		return fmt.Errorf("浏览器会话上限必须在1-64之间")
	}
	if c.LaunchRetries < 0 || c.LaunchRetries > 10 {
		return fmt.Errorf("启动重试次数必须在0-10之间")
	}
	if c.NavigationWait < 0 || c.NavigationWait > time.Minute {
		return fmt.Errorf("导航等待时间必须在0-60秒之间")
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("空闲超时不能为负数")
	}
	return nil
}

// FetchConfig HTTP抓取配置
type FetchConfig struct {
	Timeout            time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxContentLength   int           `mapstructure:"max_content_length" json:"max_content_length"`
	BlockedHosts       []string      `mapstructure:"blocked_hosts" json:"blocked_hosts"` // glob模式, 如 "*.doubleclick.net"
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" json:"insecure_skip_verify"`
}

// Validate 验证配置
func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 || c.Timeout > 5*time.Minute {
		return fmt.Errorf("请求超时必须在0-300秒之间")
	}
	if c.MaxContentLength < 1 {
		return fmt.Errorf("最大内容长度必须大于0")
	}
	return nil
}

// SearchConfig 搜索与爬取配置
type SearchConfig struct {
	DefaultEngine string        `mapstructure:"default_engine" json:"default_engine"`
	UseBrowser    bool          `mapstructure:"use_browser" json:"use_browser"` // false时使用静态加载器
	PageWait      time.Duration `mapstructure:"page_wait" json:"page_wait"`     // 搜索结果页加载后的等待
	CacheSize     int           `mapstructure:"cache_size" json:"cache_size"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl" json:"cache_ttl"`
}

// Validate 验证配置
func (c *SearchConfig) Validate() error {
	switch c.DefaultEngine {
	case "google", "bing", "ddg", "duckduckgo":
	default:
		return fmt.Errorf("不支持的搜索引擎: %s", c.DefaultEngine)
	}
	if c.CacheSize < 1 {
		return fmt.Errorf("页面缓存容量必须大于0")
	}
	return nil
}

// AssetsConfig 资源下载配置
type AssetsConfig struct {
	Concurrency int           `mapstructure:"concurrency" json:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	RenderWait  time.Duration `mapstructure:"render_wait" json:"render_wait"`
	LockTimeout time.Duration `mapstructure:"lock_timeout" json:"lock_timeout"`
}

// Validate 验证配置
func (c *AssetsConfig) Validate() error {
	if c.Concurrency < 1 || c.Concurrency > 32 {
		return fmt.Errorf("下载并发数必须在1-32之间")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("下载超时必须大于0")
	}
	return nil
}
