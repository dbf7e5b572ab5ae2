package models

import (
	"encoding/json"
	"time"
)

// BatchReport 批量分析报告
type BatchReport struct {
	TaskID    string    `json:"task_id"`
	URLsFile  string    `json:"urls_file"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	TotalURLs      int `json:"total_urls"`
	SuccessfulURLs int `json:"successful_urls"`
	FailedURLs     int `json:"failed_urls"`

	Results []BatchEntry `json:"results"`
}

// BatchEntry 报告中的单个URL
type BatchEntry struct {
	URL        string     `json:"url"`
	TaskID     string     `json:"task_id"`
	Status     TaskStatus `json:"status"`
	Duration   float64    `json:"duration"`
	ReportPath string     `json:"report_path,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// NewBatchReport 根据批量任务生成报告
func NewBatchReport(batch *BatchAnalysisTask) *BatchReport {
	report := &BatchReport{
		TaskID:         batch.ID,
		URLsFile:       batch.URLsFile,
		TotalURLs:      batch.TotalURLs,
		SuccessfulURLs: batch.SuccessfulURLs,
		FailedURLs:     batch.FailedURLs,
		Results:        make([]BatchEntry, 0, len(batch.SubTasks)),
	}
	if batch.StartedAt != nil {
		report.StartTime = *batch.StartedAt
	}
	if batch.CompletedAt != nil {
		report.EndTime = *batch.CompletedAt
		report.Duration = report.EndTime.Sub(report.StartTime).Seconds()
	}

	for _, task := range batch.SubTasks {
		report.Results = append(report.Results, BatchEntry{
			URL:        task.TargetURL,
			TaskID:     task.ID,
			Status:     task.Status,
			Duration:   task.Duration,
			ReportPath: task.ReportPath,
			Error:      task.ErrorMessage,
		})
	}
	return report
}

// ToJSON 序列化为JSON
func (r *BatchReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
