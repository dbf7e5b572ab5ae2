package main

import (
	"fmt"
	"net/url"

	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// ValidateAnalyzeFlags 验证 analyze 命令的参数
func ValidateAnalyzeFlags(targetURL, urlFile string, waitTime, batchDelay int) error {
	if targetURL == "" && urlFile == "" {
		return fmt.Errorf("需要提供URL或 --url-file")
	}
	if targetURL != "" && urlFile != "" {
		return fmt.Errorf("URL与 --url-file 不能同时使用")
	}
	if targetURL != "" {
		if err := utils.ValidateURL(targetURL); err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
	}

	if waitTime < 0 || waitTime > 120 {
		return fmt.Errorf("等待时间必须在0-120秒之间,当前值: %d", waitTime)
	}
	if batchDelay < 0 || batchDelay > 3600 {
		return fmt.Errorf("批量延迟必须在0-3600秒之间,当前值: %d", batchDelay)
	}
	return nil
}

// ValidateImageFlags 验证 images 命令的参数
func ValidateImageFlags(targetURL, saveDir string, maxImages int) error {
	if err := utils.ValidateURL(targetURL); err != nil {
		return fmt.Errorf("无效的目标URL: %w", err)
	}
	if saveDir == "" {
		return fmt.Errorf("保存目录不能为空")
	}
	if maxImages < 1 || maxImages > 1000 {
		return fmt.Errorf("图片数量必须在1-1000之间,当前值: %d", maxImages)
	}
	return nil
}

// NormalizeURL 规范化URL, 没有协议时补 https
func NormalizeURL(urlStr string) (string, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		urlStr = "https://" + urlStr
		parsed, err = url.Parse(urlStr)
		if err != nil {
			return "", err
		}
	}

	return parsed.String(), nil
}
