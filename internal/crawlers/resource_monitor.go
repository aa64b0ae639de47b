package crawlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// 内存压力等级
const (
	PressureNormal    = "normal"
	PressureWarning   = "warning"
	PressureCritical  = "critical"
	PressureEmergency = "emergency"
)

// ResourceMonitorConfig 资源监控配置(字节)
type ResourceMonitorConfig struct {
	WarningThreshold   uint64 // 可用内存低于该值时告警
	CriticalThreshold  uint64
	EmergencyThreshold uint64
}

// DefaultResourceMonitorConfig 默认阈值: 500MB / 300MB / 200MB
func DefaultResourceMonitorConfig() ResourceMonitorConfig {
	return ResourceMonitorConfig{
		WarningThreshold:   500 * 1024 * 1024,
		CriticalThreshold:  300 * 1024 * 1024,
		EmergencyThreshold: 200 * 1024 * 1024,
	}
}

// ResourceMonitor 系统资源监控器
// 浏览器是整个运行中最大的内存消耗者,长时间运行时在条目之间检查内存压力
type ResourceMonitor struct {
	config ResourceMonitorConfig

	mu   sync.RWMutex
	last models.ResourceSnapshot

	cancel context.CancelFunc
}

// NewResourceMonitor 创建资源监控器并立即采样一次
func NewResourceMonitor(config ResourceMonitorConfig) *ResourceMonitor {
	rm := &ResourceMonitor{config: config}
	rm.sample(0)
	return rm
}

// StartMonitoring 启动后台周期采样,重复调用无效
func (rm *ResourceMonitor) StartMonitoring(interval time.Duration) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	rm.cancel = cancel
	go rm.loop(ctx, interval)
}

// StopMonitoring 停止后台采样
func (rm *ResourceMonitor) StopMonitoring() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if rm.cancel != nil {
		rm.cancel()
		rm.cancel = nil
	}
}

func (rm *ResourceMonitor) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rm.sample(100 * time.Millisecond)
		}
	}
}

// sample 读取系统内存和CPU使用率
func (rm *ResourceMonitor) sample(cpuWindow time.Duration) {
	snap := models.ResourceSnapshot{MemoryPressure: PressureNormal}

	if vm, err := mem.VirtualMemory(); err != nil {
		utils.Debugf("获取系统内存失败: %v", err)
	} else {
		snap.TotalMemory = vm.Total
		snap.AvailableMemory = vm.Available
		snap.MemoryPressure = rm.pressure(vm.Available)
	}

	if cpuWindow > 0 {
		if pct, err := cpu.Percent(cpuWindow, false); err != nil {
			utils.Debugf("获取CPU使用率失败: %v", err)
		} else if len(pct) > 0 {
			snap.CPUPercent = pct[0]
		}
	}

	rm.mu.Lock()
	if cpuWindow == 0 {
		snap.CPUPercent = rm.last.CPUPercent
	}
	rm.last = snap
	rm.mu.Unlock()
}

func (rm *ResourceMonitor) pressure(available uint64) string {
	switch {
	case available < rm.config.EmergencyThreshold:
		return PressureEmergency
	case available < rm.config.CriticalThreshold:
		return PressureCritical
	case available < rm.config.WarningThreshold:
		return PressureWarning
	default:
		return PressureNormal
	}
}

// Snapshot 最近一次采样结果
func (rm *ResourceMonitor) Snapshot() models.ResourceSnapshot {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.last
}

// CheckPressure 立即重新采样内存,压力非正常时返回原因
func (rm *ResourceMonitor) CheckPressure() (ok bool, reason string) {
	rm.sample(0)
	snap := rm.Snapshot()
	if snap.MemoryPressure == PressureNormal {
		return true, ""
	}
	return false, fmt.Sprintf("可用内存不足(当前%dMB,等级%s)", snap.AvailableMemory/(1024*1024), snap.MemoryPressure)
}
