package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/spf13/cobra"

	"github.com/RecoveryAshes/WebScope/internal/browser"
	"github.com/RecoveryAshes/WebScope/internal/core"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

// check 一项环境检查的结果
type check struct {
	name   string
	ok     bool
	detail string
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "检查运行环境 (Chrome、内存、配置、日志目录)",
	RunE: func(cmd *cobra.Command, args []string) error {
		checks := []check{
			checkChrome(),
			checkMemory(),
			checkConfig(),
			checkWritableDir("日志目录", appConfig.Logging.LogDir),
			checkWritableDir("输出目录", appConfig.Output.BaseDir),
		}

		failed := 0
		fmt.Println("==================================================")
		fmt.Println("🩺 环境检查")
		fmt.Println("==================================================")
		for _, c := range checks {
			mark := "✅"
			if !c.ok {
				mark = "❌"
				failed++
			}
			fmt.Printf("%s %-8s %s\n", mark, c.name, c.detail)
		}
		fmt.Println("==================================================")

		if failed > 0 {
			return fmt.Errorf("%d 项检查未通过", failed)
		}
		return nil
	},
}

func checkChrome() check {
	if bin := appConfig.Browser.BinPath; bin != "" {
		if _, err := os.Stat(bin); err != nil {
			return check{"Chrome", false, fmt.Sprintf("配置的路径不可用: %v", err)}
		}
		return check{"Chrome", true, bin}
	}
	if path, found := launcher.LookPath(); found {
		return check{"Chrome", true, path}
	}
	return check{"Chrome", false, "未找到本地浏览器, 首次启动会话时将自动下载"}
}

func checkMemory() check {
	monitor := browser.NewResourceMonitor(browser.ResourceMonitorConfig{
		MinFreeMemory:    uint64(appConfig.Browser.MinFreeMemoryMB) * 1024 * 1024,
		MaxSessionsLimit: appConfig.Browser.MaxSessions,
	})
	status := monitor.GetMemoryStatus()
	canCreate, reason := monitor.CheckResourceAvailability()
	detail := fmt.Sprintf("总计 %s, 可用 %s (%s), 建议最多 %d 个会话",
		humanize.IBytes(status.TotalMemory), humanize.IBytes(status.AvailableMemory),
		status.MemoryPressure, monitor.CalculateMaxSessions())
	if !canCreate {
		detail += ": " + reason
	}
	return check{"内存", canCreate, detail}
}

func checkConfig() check {
	source := appConfig.ConfigFile()
	if source == "" {
		source = "未找到配置文件, 使用默认值"
	}
	if err := appConfig.Validate(); err != nil {
		return check{"配置", false, err.Error()}
	}
	if _, err := core.NewHeaderManager(headersFile, headers); err != nil {
		return check{"配置", false, err.Error()}
	}
	return check{"配置", true, source}
}

func checkWritableDir(name, dir string) check {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return check{name, false, err.Error()}
	}
	tmp, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return check{name, false, fmt.Sprintf("不可写: %v", err)}
	}
	tmp.Close()
	_ = os.Remove(tmp.Name())

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return check{name, true, abs}
}

// config 命令
var forceConfig bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "配置文件相关操作",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "生成带默认值的配置文件",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join("configs", "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if err := core.WriteDefaultConfig(path, forceConfig); err != nil {
			return err
		}
		utils.Infof("✅ 配置文件已生成: %s", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceConfig, "force", false, "覆盖已存在的配置文件")
	configCmd.AddCommand(configInitCmd)
}
