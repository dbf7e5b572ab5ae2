package core

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const configHeader = `# WebScope 配置文件
# 所有配置项都可以用环境变量覆盖, 如 WEBSCOPE_BROWSER_HEADLESS=false
# 时间使用 Go duration 格式, 如 30s, 10m
`

// DefaultConfigYAML 生成带默认值的配置文件骨架
func DefaultConfigYAML() ([]byte, error) {
	root := make(map[string]interface{})
	for key, value := range defaultValues() {
		if d, ok := value.(time.Duration); ok {
			value = d.String()
		}

		parts := strings.Split(key, ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			child, ok := node[part].(map[string]interface{})
			if !ok {
				child = make(map[string]interface{})
				node[part] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("生成配置骨架失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteDefaultConfig 写出配置骨架, 文件已存在且未指定 force 时报错
func WriteDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("配置文件已存在: %s (使用 --force 覆盖)", path)
	}

	data, err := DefaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
