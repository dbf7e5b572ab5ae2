package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/WebScope/internal/core"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// HTTP头部参数
	headers        []string // 自定义HTTP请求头
	headersFile    string   // 头部配置文件
	validateConfig bool     // 验证配置文件

	// 加载后的配置
	appConfig *core.Config
)

var rootCmd = &cobra.Command{
	Use:   "webscope",
	Short: "浏览器自动化与网页分析的MCP工具服务器",
	Long: `WebScope - 浏览器自动化与网页分析的MCP工具服务器

通过MCP协议向智能体提供以下能力:
  • Chrome浏览器会话控制 (导航、点击、截图、执行脚本)
  • 网页抓取与深度搜索
  • HTML解析与选择器推荐
  • UI/UX、布局、组件与响应式分析
  • 图片与站点资源下载

使用示例:
  # 通过stdio提供MCP服务 (默认)
  webscope

  # 通过HTTP+SSE提供服务
  webscope serve --transport sse --addr 127.0.0.1:8080

  # 携带自定义头部
  webscope -H "User-Agent: MyBot/1.0" -H "Authorization: Bearer token"

  # 验证配置文件
  webscope --validate-config

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := config.LogConfig()
		if logLevel != "" {
			logConfig.Level = logLevel
		}
		if verbose {
			logConfig.Level = "debug"
		}
		config.Logging.Level = logConfig.Level

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		if verbose {
			utils.Info("详细模式已启用")
		}
		if file := config.ConfigFile(); file != "" {
			utils.Debugf("使用配置文件: %s", file)
		}

		appConfig = config
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateConfig {
			return runValidateConfig()
		}
		return runServe(cmd.Context())
	},
}

// runValidateConfig 校验主配置与头部配置, 打印生效的头部(脱敏)
func runValidateConfig() error {
	utils.Info("🔍 验证配置...")
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("配置验证失败: %w", err)
	}

	headerManager, err := core.NewHeaderManager(headersFile, headers)
	if err != nil {
		return fmt.Errorf("创建HTTP头部管理器失败: %w", err)
	}
	if err := headerManager.LoadConfig(); err != nil {
		return fmt.Errorf("加载头部配置失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return fmt.Errorf("头部配置验证失败: %w", err)
	}

	safeHeaders := headerManager.GetSafeHeaders()
	utils.Info("✅ 配置验证通过!")
	utils.Infof("当前有效的HTTP头部 (%d个):", len(safeHeaders))
	for name, value := range safeHeaders {
		utils.Infof("  %s: %s", name, value)
	}
	return nil
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// HTTP头部参数
	rootCmd.PersistentFlags().StringSliceVarP(&headers, "header", "H", []string{}, "自定义HTTP头部,格式: 'Name: Value',可多次指定")
	rootCmd.PersistentFlags().StringVar(&headersFile, "headers-file", "", "HTTP头部配置文件 (默认 configs/headers.yaml)")
	rootCmd.PersistentFlags().BoolVar(&validateConfig, "validate-config", false, "验证配置文件正确性")

	rootCmd.AddCommand(serveCmd, versionCmd, toolsCmd, fetchCmd, analyzeCmd, imagesCmd, doctorCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
