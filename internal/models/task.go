package models

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"   // 待执行
	TaskStatusRunning   TaskStatus = "running"   // 执行中
	TaskStatusCompleted TaskStatus = "completed" // 已完成
	TaskStatusFailed    TaskStatus = "failed"    // 失败
	TaskStatusCancelled TaskStatus = "cancelled" // 已取消
)

// AnalysisOptions analyze_website_ui_ux 的开关
type AnalysisOptions struct {
	TakeScreenshot    bool          `json:"take_screenshot"`
	AnalyzeComponents bool          `json:"analyze_components"`
	AnalyzeColors     bool          `json:"analyze_colors"`
	AnalyzeTypography bool          `json:"analyze_typography"`
	AnalyzeLayout     bool          `json:"analyze_layout"`
	AnalyzeAdvanced   bool          `json:"analyze_advanced"`
	WaitTime          time.Duration `json:"wait_time"`
}

// DefaultAnalysisOptions 全部分析项开启, 页面等待5秒
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		TakeScreenshot:    true,
		AnalyzeComponents: true,
		AnalyzeColors:     true,
		AnalyzeTypography: true,
		AnalyzeLayout:     true,
		AnalyzeAdvanced:   true,
		WaitTime:          5 * time.Second,
	}
}

// Validate 验证配置
func (o *AnalysisOptions) Validate() error {
	if o.WaitTime < 0 || o.WaitTime > 2*time.Minute {
		return fmt.Errorf("等待时间必须在0-120秒之间")
	}
	return nil
}

// AnalysisTask 单个URL的UI分析任务
type AnalysisTask struct {
	ID          string     `json:"id"`
	TargetURL   string     `json:"target_url"`
	Domain      string     `json:"domain"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Options AnalysisOptions `json:"options"`
	Status  TaskStatus      `json:"status"`

	// Duration 执行耗时(秒)
	Duration     float64 `json:"duration"`
	ReportPath   string  `json:"report_path,omitempty"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// NewAnalysisTask 创建新任务
func NewAnalysisTask(targetURL string, options AnalysisOptions) (*AnalysisTask, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("无效的URL: %s", targetURL)
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}

	return &AnalysisTask{
		ID:        generateID(),
		TargetURL: targetURL,
		Domain:    parsed.Host,
		CreatedAt: time.Now(),
		Options:   options,
		Status:    TaskStatusPending,
	}, nil
}

// Start 标记任务开始
func (t *AnalysisTask) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = TaskStatusRunning
}

// Finish 根据执行结果标记任务结束
func (t *AnalysisTask) Finish(err error) {
	now := time.Now()
	t.CompletedAt = &now
	if t.StartedAt != nil {
		t.Duration = now.Sub(*t.StartedAt).Seconds()
	}
	if err != nil {
		t.Status = TaskStatusFailed
		t.ErrorMessage = err.Error()
		return
	}
	t.Status = TaskStatusCompleted
}

// ToJSON 序列化为JSON
func (t *AnalysisTask) ToJSON() ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// FromJSON 从JSON反序列化
func (t *AnalysisTask) FromJSON(data []byte) error {
	return json.Unmarshal(data, t)
}

// BatchAnalysisTask 批量分析任务
type BatchAnalysisTask struct {
	ID          string     `json:"id"`
	URLsFile    string     `json:"urls_file"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Options         AnalysisOptions `json:"options"`
	BatchDelay      time.Duration   `json:"batch_delay"`
	ContinueOnError bool            `json:"continue_on_error"`

	Status TaskStatus `json:"status"`

	TotalURLs      int `json:"total_urls"`
	SuccessfulURLs int `json:"successful_urls"`
	FailedURLs     int `json:"failed_urls"`

	SubTasks []*AnalysisTask `json:"sub_tasks"`
}

// NewBatchAnalysisTask 创建批量任务
func NewBatchAnalysisTask(urlsFile string, options AnalysisOptions, delay time.Duration, continueOnError bool) *BatchAnalysisTask {
	return &BatchAnalysisTask{
		ID:              generateID(),
		URLsFile:        urlsFile,
		CreatedAt:       time.Now(),
		Options:         options,
		BatchDelay:      delay,
		ContinueOnError: continueOnError,
		Status:          TaskStatusPending,
		SubTasks:        make([]*AnalysisTask, 0),
	}
}

// Record 登记一个已结束的子任务
func (b *BatchAnalysisTask) Record(task *AnalysisTask) {
	b.SubTasks = append(b.SubTasks, task)
	if task.Status == TaskStatusCompleted {
		b.SuccessfulURLs++
	} else {
		b.FailedURLs++
	}
}
