package models

import (
	"strings"

	"github.com/google/uuid"
)

// generateID 生成唯一ID
func generateID() string {
	return uuid.New().String()
}

// ShortID 生成8位十六进制短ID, 用作会话ID后缀
func ShortID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
}
