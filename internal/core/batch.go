package core

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// AnalyzeFunc 单个URL的分析, 通常为 UIAnalyzer.Analyze
type AnalyzeFunc func(ctx context.Context, target string, opts models.AnalysisOptions) *models.UIUXReport

// BatchAnalyzer 批量UI分析器
type BatchAnalyzer struct {
	analyze       AnalyzeFunc
	options       models.AnalysisOptions
	batchDelay    time.Duration
	continueOnErr bool
	showProgress  bool
}

// NewBatchAnalyzer 创建批量分析器
func NewBatchAnalyzer(analyze AnalyzeFunc, options models.AnalysisOptions, batchDelay time.Duration, continueOnErr bool) *BatchAnalyzer {
	return &BatchAnalyzer{
		analyze:       analyze,
		options:       options,
		batchDelay:    batchDelay,
		continueOnErr: continueOnErr,
	}
}

// ShowProgress 在stderr显示进度条
func (b *BatchAnalyzer) ShowProgress(show bool) {
	b.showProgress = show
}

// Run 依次分析URL列表
// 上下文取消时返回已完成部分的报告和取消原因
func (b *BatchAnalyzer) Run(ctx context.Context, urlsFile string, urls []string) (*models.BatchReport, error) {
	utils.Infof("🚀 开始批量分析: %d个URL", len(urls))

	batch := models.NewBatchAnalysisTask(urlsFile, b.options, b.batchDelay, b.continueOnErr)
	batch.TotalURLs = len(urls)
	started := time.Now()
	batch.StartedAt = &started
	batch.Status = models.TaskStatusRunning

	var bar *progressbar.ProgressBar
	if b.showProgress {
		bar = utils.NewProgressBar(len(urls), "UI分析")
	}

	var runErr error
	for i, target := range urls {
		if err := ctx.Err(); err != nil {
			batch.Status = models.TaskStatusCancelled
			runErr = err
			break
		}

		utils.Infof("[%d/%d] 分析: %s", i+1, len(urls), target)
		task := b.analyzeOne(ctx, target)
		batch.Record(task)
		if bar != nil {
			_ = bar.Add(1)
		}

		if task.Status == models.TaskStatusFailed {
			utils.Errorf("❌ 分析失败 [%s]: %s", target, task.ErrorMessage)
			if !b.continueOnErr {
				utils.Warn("批量分析中止 (--continue-on-error=false)")
				batch.Status = models.TaskStatusFailed
				break
			}
		}

		if i < len(urls)-1 && b.batchDelay > 0 {
			utils.Debugf("等待 %.0f 秒后处理下一个URL...", b.batchDelay.Seconds())
			if err := sleepContext(ctx, b.batchDelay); err != nil {
				batch.Status = models.TaskStatusCancelled
				runErr = err
				break
			}
		}
	}

	if bar != nil {
		_ = bar.Finish()
	}

	completed := time.Now()
	batch.CompletedAt = &completed
	if batch.Status == models.TaskStatusRunning {
		batch.Status = models.TaskStatusCompleted
	}

	report := models.NewBatchReport(batch)
	printSummary(report)
	return report, runErr
}

// analyzeOne 分析单个URL, 非法URL直接记为失败
func (b *BatchAnalyzer) analyzeOne(ctx context.Context, target string) *models.AnalysisTask {
	task, err := models.NewAnalysisTask(target, b.options)
	if err != nil {
		now := time.Now()
		return &models.AnalysisTask{
			ID:           uuid.New().String(),
			TargetURL:    target,
			CreatedAt:    now,
			CompletedAt:  &now,
			Options:      b.options,
			Status:       models.TaskStatusFailed,
			ErrorMessage: err.Error(),
		}
	}

	task.Start()
	report := b.analyze(ctx, target, b.options)
	if report.Status == "error" {
		task.Finish(errors.New(report.Message))
	} else {
		task.Finish(nil)
	}
	task.ReportPath = report.ReportPath
	return task
}

// printSummary 打印批量分析摘要
func printSummary(report *models.BatchReport) {
	utils.Info("==================================================")
	utils.Info("📊 批量分析摘要")
	utils.Infof("总URL数: %d", report.TotalURLs)
	utils.Infof("✅ 成功: %d", report.SuccessfulURLs)
	utils.Infof("❌ 失败: %d", report.FailedURLs)
	utils.Infof("⏱️  总耗时: %.2f秒", report.Duration)
	utils.Info("==================================================")

	for _, entry := range report.Results {
		if entry.Status == models.TaskStatusFailed {
			utils.Warnf("  - %s: %s", entry.URL, entry.Error)
		}
	}
}
