package crawlers

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"testing"

	"github.com/andybalholm/brotli"
)

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func deflateBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// TestDecompressResponse 测试按Content-Encoding解压
func TestDecompressResponse(t *testing.T) {
	plain := []byte("<html><head><title>压缩测试</title></head></html>")

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "gzip", encoding: "gzip", body: gzipBytes(t, plain)},
		{name: "大小写和空白", encoding: " GZIP ", body: gzipBytes(t, plain)},
		{name: "deflate", encoding: "deflate", body: deflateBytes(t, plain)},
		{name: "brotli", encoding: "br", body: brotliBytes(t, plain)},
		{name: "多重编码按逆序解开", encoding: "gzip, br", body: brotliBytes(t, gzipBytes(t, plain))},
		{name: "无编码", encoding: "", body: plain},
		{name: "identity", encoding: "identity", body: plain},
		{name: "未知编码原样返回", encoding: "zstd", body: plain},
		{name: "gzip已被传输层解压", encoding: "gzip", body: plain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decompressResponse(tt.encoding, tt.body)
			if err != nil {
				t.Fatalf("decompressResponse() error = %v", err)
			}
			if !bytes.Equal(got, plain) {
				t.Errorf("decompressResponse() = %q, 期望 %q", got, plain)
			}
		})
	}
}

// TestDecodeBodyFallback 解压失败时退回原始内容
func TestDecodeBodyFallback(t *testing.T) {
	raw := []byte{0x1f, 0x8b, 0x00, 0x01}
	got := decodeBody("https://example.com", "gzip", raw)
	if !bytes.Equal(got, raw) {
		t.Errorf("decodeBody() = %v, 期望原始内容 %v", got, raw)
	}
}

// TestIsHTMLContent 测试HTML内容类型判断
func TestIsHTMLContent(t *testing.T) {
	tests := []struct {
		contentType string
		expected    bool
	}{
		{"text/html; charset=utf-8", true},
		{"TEXT/HTML", true},
		{"application/xhtml+xml", true},
		{"application/json", false},
		{"text/plain", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			if got := isHTMLContent(tt.contentType); got != tt.expected {
				t.Errorf("isHTMLContent(%q) = %v, 期望 %v", tt.contentType, got, tt.expected)
			}
		})
	}
}

// TestImageExtension 测试图片扩展名推断
func TestImageExtension(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		src         string
		expected    string
	}{
		{"jpeg记为jpg", "image/jpeg", "https://a.com/x", "jpg"},
		{"png带参数", "image/png; charset=binary", "https://a.com/x.gif", "png"},
		{"非图片类型取URL扩展名", "application/octet-stream", "https://a.com/img/Logo.WEBP?v=1", "webp"},
		{"都没有时默认jpg", "", "https://a.com/img/logo", "jpg"},
		{"路径以点结尾", "text/plain", "https://a.com/img/logo.", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImageExtension(tt.contentType, tt.src); got != tt.expected {
				t.Errorf("ImageExtension() = %q, 期望 %q", got, tt.expected)
			}
		})
	}
}
