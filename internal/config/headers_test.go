package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/WebScope/internal/models"
)

func TestHeaderConfigLoader_LoadConfig(t *testing.T) {
	t.Run("首次运行自动生成模板", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "configs", "headers.yaml")
		loader := NewHeaderConfigLoader(path)

		cfg, err := loader.LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		if cfg.Headers == nil || len(cfg.Headers) != 0 {
			t.Errorf("模板中的头部都是注释, 期望空映射, 实际 %v", cfg.Headers)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("模板未生成: %v", err)
		}
		if string(data) != Template() {
			t.Error("生成的文件内容应与内置模板一致")
		}
	})

	t.Run("读取已有配置", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.yaml")
		content := "headers:\n  User-Agent: \"Test Bot/1.0\"\n  X-Custom: \"test value\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := NewHeaderConfigLoader(path).LoadConfig()
		if err != nil {
			t.Fatalf("加载配置失败: %v", err)
		}
		// viper 将键名转换为小写
		if got := cfg.Headers["user-agent"]; got != "Test Bot/1.0" {
			t.Errorf("期望 user-agent='Test Bot/1.0', 实际='%s'", got)
		}
		if got := cfg.Headers["x-custom"]; got != "test value" {
			t.Errorf("期望 x-custom='test value', 实际='%s'", got)
		}
	})

	t.Run("YAML格式错误", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.yaml")
		content := "headers:\n  User-Agent: \"Test Bot\n  X-Custom: missing quote\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := NewHeaderConfigLoader(path).LoadConfig()
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("期望 ConfigError, 实际 %v", err)
		}
		if cfgErr.FilePath != path {
			t.Errorf("错误中的文件路径不正确: %s", cfgErr.FilePath)
		}
	})

	t.Run("文件过大", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "headers.yaml")
		big := "headers:\n  X-Big: \"" + strings.Repeat("a", MaxConfigFileSize) + "\"\n"
		if err := os.WriteFile(path, []byte(big), 0644); err != nil {
			t.Fatal(err)
		}

		_, err := NewHeaderConfigLoader(path).LoadConfig()
		var cfgErr *models.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("期望 ConfigError, 实际 %v", err)
		}
	})
}

func TestNewHeaderConfigLoader(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"空路径使用默认值", "", DefaultConfigFile},
		{"指定路径", "/tmp/h.yaml", "/tmp/h.yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewHeaderConfigLoader(tt.path).Path(); got != tt.want {
				t.Errorf("期望 %s, 实际 %s", tt.want, got)
			}
		})
	}
}
