package main

import "testing"

func TestValidateAnalyzeFlags(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		urlFile string
		wait    int
		delay   int
		wantErr bool
	}{
		{"单个URL", "https://example.com", "", 5, 1, false},
		{"URL文件", "", "urls.txt", 5, 0, false},
		{"缺少输入", "", "", 5, 1, true},
		{"同时指定", "https://example.com", "urls.txt", 5, 1, true},
		{"非法URL", "ftp://example.com", "", 5, 1, true},
		{"等待时间越界", "https://example.com", "", 121, 1, true},
		{"负延迟", "", "urls.txt", 5, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnalyzeFlags(tt.url, tt.urlFile, tt.wait, tt.delay)
			if (err != nil) != tt.wantErr {
				t.Errorf("期望错误=%v, 实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateImageFlags(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		dir     string
		max     int
		wantErr bool
	}{
		{"正常", "https://example.com", "images", 50, false},
		{"空目录", "https://example.com", "", 50, true},
		{"数量为0", "https://example.com", "images", 0, true},
		{"非法URL", "not a url", "images", 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageFlags(tt.url, tt.dir, tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("期望错误=%v, 实际 %v", tt.wantErr, err)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com/a", "http://example.com/a"},
		{"https://example.com/?q=1", "https://example.com/?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("意外错误: %v", err)
			}
			if got != tt.want {
				t.Errorf("期望 %s, 实际 %s", tt.want, got)
			}
		})
	}
}
