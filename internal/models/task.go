package models

import (
	"time"
)

// RunStatus 运行状态
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"   // 待执行
	RunStatusRunning   RunStatus = "running"   // 执行中
	RunStatusCompleted RunStatus = "completed" // 已完成
	RunStatusFailed    RunStatus = "failed"    // 失败(致命错误)
	RunStatusCancelled RunStatus = "cancelled" // 已取消
)

// RunStats 运行统计
type RunStats struct {
	HarvestedLabels int     `json:"harvested_labels"` // 列表采集到的标签数
	ResumedRecords  int     `json:"resumed_records"`  // 启动时检查点中已有的记录数
	SkippedResumed  int     `json:"skipped_resumed"`  // 因已持久化而跳过的标签数
	PersistedPlaces int     `json:"persisted_places"` // 本次运行新增持久化的地点数
	FailedPlaces    int     `json:"failed_places"`    // 重试耗尽后跳过的地点数
	Attempts        int     `json:"attempts"`         // 打开+提取的总尝试次数
	TotalReviews    int     `json:"total_reviews"`    // 本次运行提取的评论总数
	ScrollSteps     int     `json:"scroll_steps"`     // 列表滚动步数
	Duration        float64 `json:"duration"`         // 总耗时(秒)
}

// RunTask 单个查询的运行任务
type RunTask struct {
	ID          string       `json:"id"` // 运行唯一ID (UUID)
	Target      SearchTarget `json:"target"`
	URL         string       `json:"url"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`

	Status       RunStatus `json:"status"`
	Stats        RunStats  `json:"stats"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// NewRunTask 创建新任务
func NewRunTask(target SearchTarget) (*RunTask, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}

	return &RunTask{
		ID:        generateID(),
		Target:    target,
		URL:       target.URL(),
		CreatedAt: time.Now(),
		Status:    RunStatusPending,
	}, nil
}

// Start 标记任务开始
func (t *RunTask) Start() {
	now := time.Now()
	t.StartedAt = &now
	t.Status = RunStatusRunning
}

// Finish 标记任务结束,err为nil表示正常完成
func (t *RunTask) Finish(status RunStatus, err error) {
	now := time.Now()
	t.CompletedAt = &now
	t.Status = status
	if err != nil {
		t.ErrorMessage = err.Error()
	}
	if t.StartedAt != nil {
		t.Stats.Duration = now.Sub(*t.StartedAt).Seconds()
	}
}
