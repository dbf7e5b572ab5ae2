package core

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RecoveryAshes/WebScope/internal/browser"
	"github.com/RecoveryAshes/WebScope/internal/crawlers"
	"github.com/RecoveryAshes/WebScope/internal/models"
	"github.com/RecoveryAshes/WebScope/internal/utils"
)

const (
	monitorInterval = 5 * time.Second
	reaperInterval  = time.Minute
)

// Toolkit 所有工具共用的组件
type Toolkit struct {
	Config  *Config
	Headers models.HeaderProvider

	Monitor  *browser.ResourceMonitor
	Sessions *browser.Manager
	Hosts    *crawlers.HostFilter
	Fetcher  *crawlers.Fetcher
	Searcher *crawlers.Searcher
	Assets   *crawlers.AssetFetcher
	UI       *UIAnalyzer
}

// NewToolkit 按配置组装各组件
func NewToolkit(cfg *Config, headers models.HeaderProvider) (*Toolkit, error) {
	hosts, err := crawlers.NewHostFilter(cfg.Fetch.BlockedHosts)
	if err != nil {
		return nil, err
	}

	monitor := browser.NewResourceMonitor(browser.ResourceMonitorConfig{
		MinFreeMemory:    uint64(cfg.Browser.MinFreeMemoryMB) * 1024 * 1024,
		MaxSessionsLimit: cfg.Browser.MaxSessions,
	})

	sessions := browser.NewManager(browser.Options{
		Browser:       cfg.Browser,
		ScreenshotDir: cfg.Output.ScreenshotDir(),
		PageDir:       cfg.Output.PageDir(),
	}, headers, monitor)

	fetcher := crawlers.NewFetcher(cfg.Fetch, headers, hosts)
	static := crawlers.NewStaticLoader(cfg.Fetch, headers, hosts)
	rendered := crawlers.NewBrowserSource(sessions, cfg.Search.PageWait)

	var searchSource crawlers.LoaderSource = static
	if cfg.Search.UseBrowser {
		searchSource = rendered
	}
	searchSource = crawlers.NewCachedSource(searchSource, cfg.Search.CacheSize, cfg.Search.CacheTTL)

	assetsCfg := cfg.Assets
	if assetsCfg.RenderWait <= 0 {
		assetsCfg.RenderWait = cfg.Search.PageWait
	}

	var reporter *utils.Reporter
	if cfg.Output.SaveReports {
		reporter = utils.NewReporter(cfg.Output.ReportDir())
	}

	return &Toolkit{
		Config:   cfg,
		Headers:  headers,
		Monitor:  monitor,
		Sessions: sessions,
		Hosts:    hosts,
		Fetcher:  fetcher,
		Searcher: crawlers.NewSearcher(searchSource, cfg.Search.DefaultEngine),
		Assets:   crawlers.NewAssetFetcher(fetcher, rendered, static, assetsCfg),
		UI:       NewUIAnalyzer(ManagerOpener(sessions), cfg.Browser.ForceHeadless, reporter),
	}, nil
}

// Start 启动资源监控与空闲会话回收
func (t *Toolkit) Start() {
	t.Monitor.StartMonitoring(monitorInterval)
	t.Sessions.StartReaper(reaperInterval)

	status := t.Monitor.GetMemoryStatus()
	utils.Infof("💻 系统内存: 总计 %s, 可用 %s, 最多 %d 个浏览器会话",
		humanize.IBytes(status.TotalMemory), humanize.IBytes(status.AvailableMemory), t.Monitor.CalculateMaxSessions())
}

// Close 关闭所有会话并停止监控
func (t *Toolkit) Close() {
	t.Sessions.CloseAll()
	t.Monitor.StopMonitoring()
}

// Status home://info 中的运行状态
func (t *Toolkit) Status() string {
	status := t.Monitor.GetMemoryStatus()
	return fmt.Sprintf("Open browser sessions: %d\nSystem memory: %s total, %s available (%s)",
		t.Sessions.Count(),
		humanize.IBytes(status.TotalMemory),
		humanize.IBytes(status.AvailableMemory),
		status.MemoryPressure)
}
