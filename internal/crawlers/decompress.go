package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/andybalholm/brotli"

	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// decompressResponse 根据Content-Encoding头部解压响应体
// 支持 gzip、deflate、br, 多重编码按逆序逐层解开
// gzip 数据缺少魔数时视为已被传输层解压, 原样返回
func decompressResponse(contentEncoding string, body []byte) ([]byte, error) {
	encodings := strings.Split(contentEncoding, ",")
	for i := len(encodings) - 1; i >= 0; i-- {
		decoded, err := decodeOnce(strings.ToLower(strings.TrimSpace(encodings[i])), body)
		if err != nil {
			return nil, err
		}
		body = decoded
	}
	return body, nil
}

func decodeOnce(encoding string, body []byte) ([]byte, error) {
	switch encoding {
	case "gzip", "x-gzip":
		if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
			return body, nil
		}
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("gzip解压失败: %w", err)
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("gzip读取失败: %w", err)
		}
		return decompressed, nil

	case "deflate":
		reader := flate.NewReader(bytes.NewReader(body))
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("deflate读取失败: %w", err)
		}
		return decompressed, nil

	case "br":
		decompressed, err := io.ReadAll(brotli.NewReader(bytes.NewReader(body)))
		if err != nil {
			return nil, fmt.Errorf("brotli读取失败: %w", err)
		}
		return decompressed, nil

	case "", "identity":
		return body, nil

	default:
		utils.Warnf("未知的Content-Encoding: %s", encoding)
		return body, nil
	}
}

// decodeBody 解压响应体, 解压失败时退回原始内容
func decodeBody(target, contentEncoding string, body []byte) []byte {
	if contentEncoding == "" {
		return body
	}
	decoded, err := decompressResponse(contentEncoding, body)
	if err != nil {
		utils.Warnf("解压响应失败 [%s] (编码=%s): %v", target, contentEncoding, err)
		return body
	}
	utils.Debugf("成功解压响应 [%s]: 原始=%d bytes, 解压后=%d bytes", target, len(body), len(decoded))
	return decoded
}

// isHTMLContent Content-Type 是否为HTML
func isHTMLContent(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "html")
}

// imageExtension 从 image/* 类型推断扩展名, jpeg 记为 jpg
func imageExtension(contentType string) (string, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if !strings.Contains(mediaType, "image") {
		return "", false
	}

	ext := mediaType[strings.LastIndex(mediaType, "/")+1:]
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext, ext != ""
}
