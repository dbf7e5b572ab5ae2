package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// EnvPrefix 环境变量前缀, 如 WEBSCOPE_BROWSER_HEADLESS=false
const EnvPrefix = "WEBSCOPE"

// Config 应用程序配置
type Config struct {
	Server  ServerConfig         `mapstructure:"server"`
	Browser models.BrowserConfig `mapstructure:"browser"`
	Fetch   models.FetchConfig   `mapstructure:"fetch"`
	Search  models.SearchConfig  `mapstructure:"search"`
	Assets  models.AssetsConfig  `mapstructure:"assets"`
	Output  OutputConfig         `mapstructure:"output"`
	Logging LoggingConfig        `mapstructure:"logging"`

	v *viper.Viper
}

// ServerConfig MCP传输配置
type ServerConfig struct {
	Transport string `mapstructure:"transport"` // stdio | sse
	Addr      string `mapstructure:"addr"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	BaseDir     string `mapstructure:"base_dir"`
	SaveReports bool   `mapstructure:"save_reports"`
}

// ScreenshotDir 截图目录
func (o OutputConfig) ScreenshotDir() string { return filepath.Join(o.BaseDir, "screenshots") }

// PageDir 页面源码目录
func (o OutputConfig) PageDir() string { return filepath.Join(o.BaseDir, "pages") }

// ReportDir 分析报告目录
func (o OutputConfig) ReportDir() string { return filepath.Join(o.BaseDir, "reports") }

// LoadConfig 加载配置文件
// 配置文件不存在时使用默认值, 环境变量优先于配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, &models.ConfigError{FilePath: configPath, Cause: err}
		}
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".webscope"))
		}
	}

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, &models.ConfigError{FilePath: configPath, Cause: fmt.Errorf("读取配置文件失败: %w", err)}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	config.v = v

	return &config, nil
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}
}

func defaultValues() map[string]interface{} {
	return map[string]interface{}{
		"server.transport": "stdio",
		"server.addr":      "127.0.0.1:8080",

		"browser.headless":           true,
		"browser.force_headless":     false,
		"browser.bin_path":           "",
		"browser.max_sessions":       4,
		"browser.launch_retries":     2,
		"browser.navigation_wait":    2 * time.Second,
		"browser.idle_timeout":       30 * time.Minute,
		"browser.min_free_memory_mb": 512,

		"fetch.timeout":              30 * time.Second,
		"fetch.max_content_length":   5000,
		"fetch.blocked_hosts":        []string{},
		"fetch.insecure_skip_verify": false,

		"search.default_engine": "google",
		"search.use_browser":    true,
		"search.page_wait":      2 * time.Second,
		"search.cache_size":     64,
		"search.cache_ttl":      10 * time.Minute,

		"assets.concurrency":  4,
		"assets.timeout":      10 * time.Second,
		"assets.render_wait":  3 * time.Second,
		"assets.lock_timeout": 30 * time.Second,

		"output.base_dir":     "output",
		"output.save_reports": false,

		"logging.level":                "info",
		"logging.log_dir":              "logs",
		"logging.rotation.max_size":    10,
		"logging.rotation.max_backups": 3,
		"logging.rotation.max_age":     28,
		"logging.rotation.compress":    true,
	}
}

// DefaultConfig 返回全部默认值组成的配置
func DefaultConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析默认配置失败: %w", err)
	}
	config.v = v
	return &config, nil
}

// Validate 验证各部分配置
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case "stdio", "sse":
	default:
		return fmt.Errorf("不支持的传输方式: %s (可选 stdio, sse)", c.Server.Transport)
	}
	if c.Server.Transport == "sse" && c.Server.Addr == "" {
		return fmt.Errorf("sse 传输需要监听地址")
	}

	checks := []struct {
		section string
		fn      func() error
	}{
		{"browser", c.Browser.Validate},
		{"fetch", c.Fetch.Validate},
		{"search", c.Search.Validate},
		{"assets", c.Assets.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("配置 [%s] 无效: %w", check.section, err)
		}
	}

	if c.Output.BaseDir == "" {
		return fmt.Errorf("输出目录不能为空")
	}
	return nil
}

// LogConfig 转换为日志系统配置
func (c *Config) LogConfig() utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
	}
}

// ConfigFile 实际读取的配置文件, 未找到时为空
func (c *Config) ConfigFile() string {
	if c.v == nil {
		return ""
	}
	return c.v.ConfigFileUsed()
}

// WatchConfig 监听配置文件变化, 实时应用日志级别
// 其余配置项在重启后生效
func (c *Config) WatchConfig() {
	if c.ConfigFile() == "" {
		return
	}

	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		level := c.v.GetString("logging.level")
		if level == c.Logging.Level {
			return
		}
		c.Logging.Level = level
		applied := utils.SetLevel(level)
		utils.Infof("🔄 配置文件已更新, 日志级别切换为 %s", applied)
	})
	c.v.WatchConfig()
	utils.Debugf("开始监听配置文件: %s", c.ConfigFile())
}
