package core

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("默认配置应该合法: %v", err)
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"传输方式", cfg.Server.Transport, "stdio"},
		{"无头模式", cfg.Browser.Headless, true},
		{"会话上限", cfg.Browser.MaxSessions, 4},
		{"空闲回收", cfg.Browser.IdleTimeout, 30 * time.Minute},
		{"请求超时", cfg.Fetch.Timeout, 30 * time.Second},
		{"最大内容长度", cfg.Fetch.MaxContentLength, 5000},
		{"默认搜索引擎", cfg.Search.DefaultEngine, "google"},
		{"缓存有效期", cfg.Search.CacheTTL, 10 * time.Minute},
		{"下载并发数", cfg.Assets.Concurrency, 4},
		{"输出目录", cfg.Output.BaseDir, "output"},
		{"日志级别", cfg.Logging.Level, "info"},
		{"日志轮转大小", cfg.Logging.Rotation.MaxSize, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !reflect.DeepEqual(tt.got, tt.want) {
				t.Errorf("期望 %v, 实际 %v", tt.want, tt.got)
			}
		})
	}

	if cfg.ConfigFile() != "" {
		t.Errorf("默认配置不应关联文件, 实际 %s", cfg.ConfigFile())
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("配置文件覆盖默认值", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `browser:
  max_sessions: 8
  navigation_wait: 500ms
fetch:
  timeout: 15s
  blocked_hosts:
    - "*.doubleclick.net"
    - ads.example.com
output:
  base_dir: /tmp/webscope
  save_reports: true
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if cfg.Browser.MaxSessions != 8 {
			t.Errorf("会话上限期望 8, 实际 %d", cfg.Browser.MaxSessions)
		}
		if cfg.Browser.NavigationWait != 500*time.Millisecond {
			t.Errorf("导航等待期望 500ms, 实际 %v", cfg.Browser.NavigationWait)
		}
		if cfg.Fetch.Timeout != 15*time.Second {
			t.Errorf("请求超时期望 15s, 实际 %v", cfg.Fetch.Timeout)
		}
		want := []string{"*.doubleclick.net", "ads.example.com"}
		if !reflect.DeepEqual(cfg.Fetch.BlockedHosts, want) {
			t.Errorf("屏蔽主机期望 %v, 实际 %v", want, cfg.Fetch.BlockedHosts)
		}
		if !cfg.Output.SaveReports {
			t.Error("save_reports 应为 true")
		}
		if got := cfg.Output.ReportDir(); got != filepath.Join("/tmp/webscope", "reports") {
			t.Errorf("报告目录不正确: %s", got)
		}
		// 未出现在文件中的项保持默认值
		if cfg.Search.CacheSize != 64 {
			t.Errorf("缓存容量期望默认值 64, 实际 %d", cfg.Search.CacheSize)
		}
		if cfg.ConfigFile() != path {
			t.Errorf("ConfigFile 期望 %s, 实际 %s", path, cfg.ConfigFile())
		}
	})

	t.Run("环境变量优先于配置文件", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("search:\n  default_engine: ddg\n"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("WEBSCOPE_SEARCH_DEFAULT_ENGINE", "bing")
		t.Setenv("WEBSCOPE_BROWSER_HEADLESS", "false")

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if cfg.Search.DefaultEngine != "bing" {
			t.Errorf("搜索引擎期望 bing, 实际 %s", cfg.Search.DefaultEngine)
		}
		if cfg.Browser.Headless {
			t.Error("环境变量应关闭无头模式")
		}
	})

	t.Run("YAML格式错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("browser:\n  max_sessions: [1\n"), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := LoadConfig(path)
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("期望 ConfigError, 实际 %v", err)
		}
	})

	t.Run("指定的文件不存在", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("指定的配置文件不存在时应返回错误")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{"默认配置", func(c *Config) {}, ""},
		{"sse传输", func(c *Config) { c.Server.Transport = "sse" }, ""},
		{"未知传输方式", func(c *Config) { c.Server.Transport = "grpc" }, "不支持的传输方式"},
		{"sse缺少地址", func(c *Config) { c.Server.Transport = "sse"; c.Server.Addr = "" }, "监听地址"},
		{"会话上限为0", func(c *Config) { c.Browser.MaxSessions = 0 }, "[browser]"},
		{"请求超时为0", func(c *Config) { c.Fetch.Timeout = 0 }, "[fetch]"},
		{"未知搜索引擎", func(c *Config) { c.Search.DefaultEngine = "yahoo" }, "[search]"},
		{"下载并发过大", func(c *Config) { c.Assets.Concurrency = 100 }, "[assets]"},
		{"输出目录为空", func(c *Config) { c.Output.BaseDir = "" }, "输出目录"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := DefaultConfig()
			if err != nil {
				t.Fatal(err)
			}
			tt.modify(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("期望合法, 实际错误: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("期望包含 %q 的错误, 实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.yaml")

	if err := WriteDefaultConfig(path, false); err != nil {
		t.Fatalf("写出配置骨架失败: %v", err)
	}

	t.Run("骨架可以被重新加载", func(t *testing.T) {
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("加载骨架失败: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("骨架配置应该合法: %v", err)
		}

		defaults, err := DefaultConfig()
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Browser.IdleTimeout != defaults.Browser.IdleTimeout {
			t.Errorf("空闲回收期望 %v, 实际 %v", defaults.Browser.IdleTimeout, cfg.Browser.IdleTimeout)
		}
		if cfg.Logging.Rotation != defaults.Logging.Rotation {
			t.Errorf("日志轮转期望 %+v, 实际 %+v", defaults.Logging.Rotation, cfg.Logging.Rotation)
		}
	})

	t.Run("已存在时拒绝覆盖", func(t *testing.T) {
		if err := WriteDefaultConfig(path, false); err == nil {
			t.Error("文件已存在时应返回错误")
		}
		if err := WriteDefaultConfig(path, true); err != nil {
			t.Errorf("force 时应覆盖: %v", err)
		}
	})

	t.Run("骨架包含说明", func(t *testing.T) {
		data, err := DefaultConfigYAML()
		if err != nil {
			t.Fatal(err)
		}
		text := string(data)
		for _, want := range []string{"WEBSCOPE_", "browser:", "idle_timeout: 30m0s", "default_engine: google"} {
			if !strings.Contains(text, want) {
				t.Errorf("骨架缺少 %q", want)
			}
		}
	})
}
