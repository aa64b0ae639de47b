package crawlers

import (
	"testing"
	"time"
)

func TestResourceMonitor_Pressure(t *testing.T) {
	rm := NewResourceMonitor(DefaultResourceMonitorConfig())
	const mb = 1024 * 1024

	tests := []struct {
		available uint64
		expected  string
	}{
		{2048 * mb, PressureNormal},
		{400 * mb, PressureWarning},
		{250 * mb, PressureCritical},
		{100 * mb, PressureEmergency},
	}
	for _, tt := range tests {
		if got := rm.pressure(tt.available); got != tt.expected {
			t.Errorf("pressure(%dMB) = %s, 期望 %s", tt.available/mb, got, tt.expected)
		}
	}
}

func TestResourceMonitor_CheckPressure(t *testing.T) {
	// 阈值为0时任何可用内存都视为正常
	rm := NewResourceMonitor(ResourceMonitorConfig{})
	ok, reason := rm.CheckPressure()
	if !ok {
		t.Errorf("阈值为0时不应报告压力: %s", reason)
	}

	snap := rm.Snapshot()
	if snap.TotalMemory == 0 {
		t.Error("采样后总内存不应为0")
	}
}

func TestResourceMonitor_StartStop(t *testing.T) {
	rm := NewResourceMonitor(DefaultResourceMonitorConfig())
	rm.StartMonitoring(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	rm.StopMonitoring()
	rm.StopMonitoring()
}
