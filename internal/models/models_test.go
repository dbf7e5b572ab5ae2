package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestNewAnalysisTask(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"有效的HTTP URL", "http://example.com", false},
		{"有效的HTTPS URL", "https://example.com/path", false},
		{"无效的协议", "ftp://example.com", true},
		{"无效的URL", "not a url", true},
		{"空URL", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewAnalysisTask(tt.url, DefaultAnalysisOptions())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAnalysisTask() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && task.Status != TaskStatusPending {
				t.Errorf("Status = %v, want %v", task.Status, TaskStatusPending)
			}
		})
	}
}

func TestAnalysisTask_Lifecycle(t *testing.T) {
	task, err := NewAnalysisTask("https://example.com", DefaultAnalysisOptions())
	if err != nil {
		t.Fatalf("NewAnalysisTask() error = %v", err)
	}

	if task.Domain != "example.com" {
		t.Errorf("Domain = %v, want example.com", task.Domain)
	}

	task.Start()
	if task.Status != TaskStatusRunning || task.StartedAt == nil {
		t.Fatalf("Start() 后状态错误: %v", task.Status)
	}

	task.Finish(errors.New("页面加载失败"))
	if task.Status != TaskStatusFailed {
		t.Errorf("Status = %v, want %v", task.Status, TaskStatusFailed)
	}
	if task.ErrorMessage != "页面加载失败" {
		t.Errorf("ErrorMessage = %q", task.ErrorMessage)
	}

	data, err := task.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	var decoded AnalysisTask
	if err := decoded.FromJSON(data); err != nil {
		t.Fatalf("FromJSON() error = %v", err)
	}
	if decoded.ID != task.ID {
		t.Errorf("解码后的ID不匹配: got %v, want %v", decoded.ID, task.ID)
	}
}

func TestAnalysisOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		wait    time.Duration
		wantErr bool
	}{
		{"默认等待", 5 * time.Second, false},
		{"零等待", 0, false},
		{"负数等待", -time.Second, true},
		{"等待过长", 3 * time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultAnalysisOptions()
			opts.WaitTime = tt.wait
			if err := opts.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBatchReport(t *testing.T) {
	batch := NewBatchAnalysisTask("urls.txt", DefaultAnalysisOptions(), time.Second, true)
	batch.TotalURLs = 2

	ok, _ := NewAnalysisTask("https://a.example.com", batch.Options)
	ok.Start()
	ok.Finish(nil)
	failed, _ := NewAnalysisTask("https://b.example.com", batch.Options)
	failed.Start()
	failed.Finish(errors.New("超时"))

	batch.Record(ok)
	batch.Record(failed)

	if batch.SuccessfulURLs != 1 || batch.FailedURLs != 1 {
		t.Fatalf("统计错误: 成功 %d, 失败 %d", batch.SuccessfulURLs, batch.FailedURLs)
	}

	report := NewBatchReport(batch)
	if len(report.Results) != 2 {
		t.Fatalf("报告条目数 = %d, want 2", len(report.Results))
	}
	if report.Results[1].Error != "超时" {
		t.Errorf("失败原因 = %q", report.Results[1].Error)
	}
}

func TestClassCount_JSON(t *testing.T) {
	data, err := json.Marshal([]ClassCount{{Class: "row", Count: 3}})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `[["row",3]]` {
		t.Errorf("序列化结果 = %s", data)
	}

	var decoded []ClassCount
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded[0].Class != "row" || decoded[0].Count != 3 {
		t.Errorf("反序列化结果 = %+v", decoded[0])
	}

	if err := json.Unmarshal([]byte(`[["row"]]`), &decoded); err == nil {
		t.Error("长度不为2的数组应该报错")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"工具错误", NewToolError(ErrorTypeHTTP, "404", nil), ErrorTypeHTTP},
		{"校验错误", &ValidationError{Field: "selector", Reason: "语法错误"}, ErrorTypeValidation},
		{"屏蔽主机", fmt.Errorf("请求失败: %w", ErrBlockedHost), ErrorTypeBlockedHost},
		{"元素不存在", fmt.Errorf("点击失败: %w", ErrElementNotFound), ErrorTypeNotFound},
		{"超时", fmt.Errorf("导航失败: %w", context.DeadlineExceeded), ErrorTypeTimeout},
		{"其他错误", errors.New("未知"), ErrorTypeRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewErrorPayload(t *testing.T) {
	payload := NewErrorPayload(NewToolError(ErrorTypeTimeout, "请求超时", nil))
	if payload.Status != "error" || payload.ErrorType != ErrorTypeTimeout || payload.Message != "请求超时" {
		t.Errorf("错误载荷 = %+v", payload)
	}
}

func TestCliHeaders_Parse(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		want    map[string]string
		wantErr bool
	}{
		{"单个头部", []string{"X-Token: abc"}, map[string]string{"X-Token": "abc"}, false},
		{"值中包含冒号", []string{"Referer: https://a.com"}, map[string]string{"Referer": "https://a.com"}, false},
		{"缺少冒号", []string{"Invalid"}, nil, true},
		{"名称为空", []string{": value"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CliHeaders(tt.input).Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			for k, v := range tt.want {
				if got.Get(k) != v {
					t.Errorf("%s = %q, want %q", k, got.Get(k), v)
				}
			}
		})
	}
}

func TestParseSearchEngine(t *testing.T) {
	tests := map[string]SearchEngine{
		"google":     EngineGoogle,
		"bing":       EngineBing,
		"ddg":        EngineDuckDuckGo,
		"duckduckgo": EngineDuckDuckGo,
		"yahoo":      EngineGoogle,
		"":           EngineGoogle,
	}
	for input, want := range tests {
		if got := ParseSearchEngine(input); got != want {
			t.Errorf("ParseSearchEngine(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestShortID(t *testing.T) {
	id := ShortID()
	if len(id) != 8 || strings.Contains(id, "-") {
		t.Errorf("ShortID() = %q", id)
	}
}

func TestBrowserConfig_Validate(t *testing.T) {
	valid := BrowserConfig{MaxSessions: 5, LaunchRetries: 2, NavigationWait: 2 * time.Second}
	if err := valid.Validate(); err != nil {
		t.Errorf("有效配置报错: %v", err)
	}

	invalid := valid
	invalid.MaxSessions = 0
	if err := invalid.Validate(); err == nil {
		t.Error("会话上限为0应该报错")
	}
}
