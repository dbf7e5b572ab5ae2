package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// ResourceMonitor 系统资源监控器
// 职责: 采样系统内存和CPU, 决定是否允许再启动一个浏览器进程
type ResourceMonitor struct {
	config ResourceMonitorConfig

	// sampleMemory 读取系统内存, 测试中可替换
	sampleMemory func() (*mem.VirtualMemoryStat, error)

	mu          sync.RWMutex
	lastMemory  MemoryStatus
	lastCPU     float64
	lastSampled time.Time

	cancelFunc context.CancelFunc
	isRunning  bool
}

// ResourceMonitorConfig 资源监控器配置
type ResourceMonitorConfig struct {
	MinFreeMemory     uint64 // 启动新浏览器所需的最小可用内存(字节)
	CPULoadThreshold  int    // CPU负载阈值(%), >=200 视为关闭CPU检查
	SessionMemoryCost uint64 // 单个浏览器会话的估算内存(字节)
	MaxSessionsLimit  int    // 会话数的绝对上限
}

// MemoryStatus 内存状态信息
type MemoryStatus struct {
	TotalMemory     uint64  `json:"total_memory"`
	AvailableMemory uint64  `json:"available_memory"`
	UsedPercent     float64 `json:"used_percent"`
	MemoryPressure  string  `json:"memory_pressure"`
}

// String 人类可读的内存摘要
func (s MemoryStatus) String() string {
	return fmt.Sprintf("可用 %s / 总计 %s (%s)",
		humanize.Bytes(s.AvailableMemory), humanize.Bytes(s.TotalMemory), s.MemoryPressure)
}

// NewResourceMonitor 创建资源监控器实例
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	if config.SessionMemoryCost == 0 {
		config.SessionMemoryCost = 300 * 1024 * 1024
	}
	if config.CPULoadThreshold == 0 {
		config.CPULoadThreshold = 200
	}

	rm := &ResourceMonitor{
		config:       config,
		sampleMemory: mem.VirtualMemory,
	}
	rm.refreshMemory()

	log.Info().Msgf("系统内存: %s", rm.GetMemoryStatus())
	return rm
}

// StartMonitoring 启动后台采样, 重复调用无副作用
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	rm.cancelFunc = cancel
	rm.isRunning = true

	go rm.monitoringLoop(ctx, interval)
}

func (rm *ResourceMonitor) monitoringLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.refreshMemory()

			usage := rm.sampleCPU()
			rm.mu.Lock()
			rm.lastCPU = usage
			rm.mu.Unlock()
		}
	}
}

// sampleCPU 采样所有核心的平均CPU使用率
func (rm *ResourceMonitor) sampleCPU() float64 {
	percentages, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		log.Warn().Err(err).Msg("获取CPU使用率失败")
		return 0
	}
	if len(percentages) == 0 {
		return 0
	}
	return percentages[0]
}

func (rm *ResourceMonitor) refreshMemory() {
	status := MemoryStatus{MemoryPressure: "unknown"}

	vm, err := rm.sampleMemory()
	if err != nil {
		log.Warn().Err(err).Msg("获取系统内存失败")
	} else {
		status = MemoryStatus{
			TotalMemory:     vm.Total,
			AvailableMemory: vm.Available,
			UsedPercent:     vm.UsedPercent,
			MemoryPressure:  memoryPressure(vm.Available),
		}
	}

	rm.mu.Lock()
	rm.lastMemory = status
	rm.lastSampled = time.Now()
	rm.mu.Unlock()
}

// StopMonitoring 停止资源监控
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.isRunning && rm.cancelFunc != nil {
		rm.cancelFunc()
		rm.isRunning = false
		rm.cancelFunc = nil
	}
}

// GetMemoryStatus 返回最近一次采样的内存状态
func (rm *ResourceMonitor) GetMemoryStatus() MemoryStatus {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.lastMemory
}

// CheckResourceAvailability 检查是否允许再启动一个浏览器
// 内存读取失败时放行, 不因监控故障阻塞功能
func (rm *ResourceMonitor) CheckResourceAvailability() (canCreate bool, reason string) {
	rm.mu.RLock()
	stale := time.Since(rm.lastSampled) > 5*time.Second
	rm.mu.RUnlock()
	if stale {
		rm.refreshMemory()
	}

	rm.mu.RLock()
	status := rm.lastMemory
	cpuUsage := rm.lastCPU
	rm.mu.RUnlock()

	if status.TotalMemory > 0 && status.AvailableMemory < rm.config.MinFreeMemory {
		log.Warn().Msgf("可用内存不足(当前%s), 拒绝启动浏览器", humanize.Bytes(status.AvailableMemory))
		return false, fmt.Sprintf("内存不足(当前%s, 至少需要%s)",
			humanize.Bytes(status.AvailableMemory), humanize.Bytes(rm.config.MinFreeMemory))
	}

	if rm.config.CPULoadThreshold < 200 && cpuUsage > float64(rm.config.CPULoadThreshold) {
		return false, fmt.Sprintf("CPU负载过高(当前%.1f%%)", cpuUsage)
	}

	return true, ""
}

// CalculateMaxSessions 根据可用内存估算还能容纳的会话数
func (rm *ResourceMonitor) CalculateMaxSessions() int {
	status := rm.GetMemoryStatus()

	result := rm.config.MaxSessionsLimit
	if status.TotalMemory > 0 {
		byMemory := 0
		if status.AvailableMemory > rm.config.MinFreeMemory {
			byMemory = int((status.AvailableMemory - rm.config.MinFreeMemory) / rm.config.SessionMemoryCost)
		}
		if byMemory < result {
			result = byMemory
		}
	}
	if result < 1 {
		result = 1
	}
	return result
}

// memoryPressure 内存压力等级
func memoryPressure(available uint64) string {
	mb := available / (1024 * 1024)
	switch {
	case mb < 200:
		return "emergency"
	case mb < 300:
		return "critical"
	case mb < 500:
		return "warning"
	default:
		return "normal"
	}
}
