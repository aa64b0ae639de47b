package crawlers

import (
	"context"
	"fmt"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
)

// ExtractFunc 打开并提取一个条目
type ExtractFunc func(ctx context.Context, label string) (models.Place, error)

// RetryOrchestrator 对单个条目的 打开+提取 整体重试
// 失败的常见原因是中间句柄失效,只有重新打开条目才能恢复,因此不对单个字段重试
type RetryOrchestrator struct {
	attempts int
	pause    time.Duration
}

// NewRetryOrchestrator 创建重试编排器,attempts<=0时使用2次
func NewRetryOrchestrator(attempts int, pause time.Duration) *RetryOrchestrator {
	if attempts <= 0 {
		attempts = 2
	}
	return &RetryOrchestrator{attempts: attempts, pause: pause}
}

// Attempts 最大尝试次数
func (r *RetryOrchestrator) Attempts() int {
	return r.attempts
}

// Do 执行fn直到成功或尝试次数用尽
// 返回实际尝试次数;用尽时错误包装ErrRetriesExhausted和最后一次错误
func (r *RetryOrchestrator) Do(ctx context.Context, label string, fn ExtractFunc) (models.Place, int, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.Place{}, attempt - 1, err
		}

		place, err := r.call(ctx, label, fn)
		if err == nil {
			return place, attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.Place{}, attempt, ctxErr
		}

		lastErr = err
		utils.Warnf("提取失败 [%s] (尝试 %d/%d): %v", label, attempt, r.attempts, err)
		if attempt < r.attempts {
			if err := utils.SleepContext(ctx, r.pause); err != nil {
				return models.Place{}, attempt, err
			}
		}
	}
	return models.Place{}, r.attempts, fmt.Errorf("%w [%s]: %w", ErrRetriesExhausted, label, lastErr)
}

// call 执行一次尝试,浏览器绑定层的panic转换为错误
func (r *RetryOrchestrator) call(ctx context.Context, label string, fn ExtractFunc) (place models.Place, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			utils.Errorf("提取条目时发生panic [%s]: %v", label, rec)
			err = fmt.Errorf("提取条目时发生panic: %v", rec)
		}
	}()
	return fn(ctx, label)
}
