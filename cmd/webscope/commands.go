package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/WebScope/internal/core"
	"github.com/RecoveryAshes/WebScope/internal/crawlers"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("WebScope %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "列出已注册的MCP工具",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, toolkit, err := newServer()
		if err != nil {
			return err
		}
		defer toolkit.Close()

		for _, name := range srv.ToolNames() {
			fmt.Println(name)
		}
		return nil
	},
}

// fetch 命令参数
var (
	fetchSelector  string
	fetchMaxLength int
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "抓取URL并输出 crawl_url 的结果",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}

		srv, toolkit, err := newServer()
		if err != nil {
			return err
		}
		defer toolkit.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		callArgs := map[string]interface{}{
			"url":                target,
			"max_content_length": fetchMaxLength,
		}
		if fetchSelector != "" {
			callArgs["extract_selector"] = fetchSelector
		}
		result, err := srv.CallTool(ctx, "crawl_url", callArgs)
		if err != nil {
			return err
		}
		return printToolResult(result)
	},
}

// printToolResult 输出工具结果的文本内容, 错误结果转换为命令错误
func printToolResult(result *mcp.CallToolResult) error {
	for _, content := range result.Content {
		text, ok := content.(mcp.TextContent)
		if !ok {
			continue
		}
		if result.IsError {
			return fmt.Errorf("%s", text.Text)
		}
		fmt.Println(text.Text)
	}
	return nil
}

// analyze 命令参数
var (
	urlFile         string
	analyzeWait     int
	noScreenshot    bool
	noAdvanced      bool
	batchDelay      int
	continueOnError bool
	showProgress    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "对单个URL或URL列表执行UI/UX分析",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var targetURL string
		if len(args) == 1 {
			normalized, err := NormalizeURL(args[0])
			if err != nil {
				return fmt.Errorf("无效的目标URL: %w", err)
			}
			targetURL = normalized
		}
		if err := ValidateAnalyzeFlags(targetURL, urlFile, analyzeWait, batchDelay); err != nil {
			return err
		}

		toolkit, err := newToolkit()
		if err != nil {
			return err
		}
		defer toolkit.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		opts := models.DefaultAnalysisOptions()
		opts.WaitTime = time.Duration(analyzeWait) * time.Second
		opts.TakeScreenshot = !noScreenshot
		opts.AnalyzeAdvanced = !noAdvanced

		if targetURL != "" {
			report := toolkit.UI.Analyze(ctx, targetURL, opts)
			if err := printJSON(report); err != nil {
				return err
			}
			if report.Status != "success" {
				return fmt.Errorf("分析失败: %s", report.Message)
			}
			return nil
		}

		urls, err := utils.ReadURLsFromFile(urlFile)
		if err != nil {
			return err
		}

		batch := core.NewBatchAnalyzer(toolkit.UI.Analyze, opts, time.Duration(batchDelay)*time.Second, continueOnError)
		batch.ShowProgress(showProgress)
		report, runErr := batch.Run(ctx, urlFile, urls)
		if report != nil {
			reporter := utils.NewReporter(appConfig.Output.ReportDir())
			path, err := reporter.SaveJSON(utils.TimestampedName("batch_report", "json"), report)
			if err != nil {
				utils.Warnf("保存批量报告失败: %v", err)
			} else {
				utils.Infof("📄 批量报告已保存: %s", path)
			}
		}
		if runErr != nil {
			return fmt.Errorf("批量分析中断: %w", runErr)
		}

		utils.Info("✨ 批量分析任务完成!")
		return nil
	},
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// images 命令参数
var (
	imageSelectors []string
	maxImages      int
	renderPage     bool
)

var imagesCmd = &cobra.Command{
	Use:   "images <url> <save_dir>",
	Short: "下载网页中的图片",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := NormalizeURL(args[0])
		if err != nil {
			return fmt.Errorf("无效的目标URL: %w", err)
		}
		if err := ValidateImageFlags(target, args[1], maxImages); err != nil {
			return err
		}

		toolkit, err := newToolkit()
		if err != nil {
			return err
		}
		defer toolkit.Close()

		ctx, stop := signalContext(cmd.Context())
		defer stop()

		bar := utils.NewProgressBar(-1, "下载图片")
		toolkit.Assets.SetProgress(func() { _ = bar.Add(1) })

		result, err := toolkit.Assets.FetchImages(ctx, models.ImageFetchRequest{
			URL:       target,
			SaveDir:   args[1],
			Selectors: imageSelectors,
			MaxImages: maxImages,
			Render:    renderPage,
		})
		_ = bar.Finish()
		if err != nil {
			return err
		}
		if result.Status != "success" {
			return fmt.Errorf("下载图片失败: %s", result.ErrorMessage)
		}

		var total int64
		for _, image := range result.SavedImages {
			total += image.Size
		}
		fmt.Println("\n==================================================")
		fmt.Println("📊 图片下载统计")
		fmt.Println("==================================================")
		fmt.Printf("🔍 发现图片: %d\n", result.TotalFound)
		fmt.Printf("✅ 保存成功: %d\n", result.TotalSaved)
		fmt.Printf("❌ 保存失败: %d\n", result.TotalFailed)
		fmt.Printf("📦 总大小: %s\n", humanize.Bytes(uint64(total)))
		fmt.Println("==================================================")
		for _, failed := range result.FailedImages {
			utils.Warnf("失败: %s %s", failed.OriginalURL, failed.Reason)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchSelector, "selector", "s", "", "提取元素的CSS选择器")
	fetchCmd.Flags().IntVar(&fetchMaxLength, "max-length", crawlers.DefaultMaxContentLength, "返回内容的最大字符数")

	analyzeCmd.Flags().StringVarP(&urlFile, "url-file", "f", "", "包含URL列表的文件路径")
	analyzeCmd.Flags().IntVarP(&analyzeWait, "wait", "w", 5, "页面加载后等待时间(秒)")
	analyzeCmd.Flags().BoolVar(&noScreenshot, "no-screenshot", false, "不截图 (同时跳过调色板分析)")
	analyzeCmd.Flags().BoolVar(&noAdvanced, "no-advanced", false, "跳过实时布局、组件层级和响应式分析")
	analyzeCmd.Flags().IntVar(&batchDelay, "batch-delay", 1, "批量处理URL间延迟(秒)")
	analyzeCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "遇到错误继续处理")
	analyzeCmd.Flags().BoolVar(&showProgress, "progress", true, "显示进度条")

	imagesCmd.Flags().StringSliceVar(&imageSelectors, "selector", nil, "图片或其容器的CSS选择器, 可多次指定")
	imagesCmd.Flags().IntVar(&maxImages, "max", crawlers.DefaultMaxImages, "最多处理的图片数")
	imagesCmd.Flags().BoolVar(&renderPage, "render", true, "使用浏览器渲染页面")
}
