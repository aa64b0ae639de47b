package models

import (
	"encoding/json"
	"time"
)

// RunReport 运行报告
type RunReport struct {
	// 任务信息
	RunID  string    `json:"run_id"`
	Query  string    `json:"query"`
	URL    string    `json:"url"`
	Status RunStatus `json:"status"`

	// 时间信息
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  float64   `json:"duration"` // 秒

	// 统计信息
	Stats RunStats `json:"stats"`

	// 失败条目
	FailedLabels []FailedLabel `json:"failed_labels"`

	// 输出路径
	CheckpointFile string `json:"checkpoint_file"`

	// 资源快照
	Resources *ResourceSnapshot `json:"resources,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// FailedLabel 重试耗尽后被跳过的条目
type FailedLabel struct {
	Label     string `json:"label"`
	ErrorType string `json:"error_type"` // panel_not_opened, stale_label, other
	ErrorMsg  string `json:"error_msg"`
	Attempts  int    `json:"attempts"`
}

// ResourceSnapshot 运行结束时的系统资源快照
type ResourceSnapshot struct {
	TotalMemory     uint64  `json:"total_memory"`     // 字节
	AvailableMemory uint64  `json:"available_memory"` // 字节
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPressure  string  `json:"memory_pressure"`
}

// NewRunReport 根据任务生成报告
func NewRunReport(task *RunTask, checkpointFile string, failed []FailedLabel) *RunReport {
	r := &RunReport{
		RunID:          task.ID,
		Query:          task.Target.Query,
		URL:            task.URL,
		Status:         task.Status,
		Stats:          task.Stats,
		FailedLabels:   failed,
		CheckpointFile: checkpointFile,
		ErrorMessage:   task.ErrorMessage,
	}
	if r.FailedLabels == nil {
		r.FailedLabels = []FailedLabel{}
	}
	if task.StartedAt != nil {
		r.StartTime = *task.StartedAt
	}
	if task.CompletedAt != nil {
		r.EndTime = *task.CompletedAt
	}
	r.Duration = task.Stats.Duration
	return r
}

// ToJSON 序列化为JSON
func (r *RunReport) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// FromJSON 从JSON反序列化
func (r *RunReport) FromJSON(data []byte) error {
	return json.Unmarshal(data, r)
}
