package crawlers

import (
	"context"
	"errors"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
)

// ScrollPolicy 滚动增长循环的策略参数
//
// 高度不再增长被视为"没有更多内容",这对第三方页面只是近似判断;
// 步数上限保证永不稳定的虚拟列表也能结束,纠偏滚动用于应对懒渲染抖动。
type ScrollPolicy struct {
	MaxSteps      int           // 最多滚动次数
	GrowthTimeout time.Duration // 每次滚动后等待高度增长的上限
	NudgeOffset   int           // 等待超时后的纠偏滚动距离(负数向上)
	NudgePause    time.Duration // 纠偏滚动后的停顿
	SettlePause   time.Duration // 每次滚动到底部后的固定停顿
}

// DefaultListScrollPolicy 结果列表的默认策略
func DefaultListScrollPolicy() ScrollPolicy {
	return ScrollPolicy{
		MaxSteps:      5,
		GrowthTimeout: 10 * time.Second,
		NudgeOffset:   -100,
		NudgePause:    2 * time.Second,
	}
}

// DefaultReviewScrollPolicy 评论列表的默认策略
func DefaultReviewScrollPolicy() ScrollPolicy {
	return ScrollPolicy{
		MaxSteps:      30,
		GrowthTimeout: 3 * time.Second,
		NudgeOffset:   -100,
		NudgePause:    time.Second,
		SettlePause:   time.Second,
	}
}

// ContainerFunc 重新解析滚动容器
type ContainerFunc func(ctx context.Context) (browser.Element, error)

// GrowScroll 反复滚动容器到底部,直到高度不再增长或达到步数上限
// 每一步都重新解析容器;句柄失效等瞬时错误消耗一步但不中断循环,
// 只有全部步骤都失败时才返回错误。返回实际执行的步数。
func GrowScroll(ctx context.Context, loc *Locator, resolve ContainerFunc, policy ScrollPolicy) (int, error) {
	if policy.MaxSteps <= 0 {
		policy.MaxSteps = DefaultListScrollPolicy().MaxSteps
	}
	if policy.GrowthTimeout <= 0 {
		policy.GrowthTimeout = loc.Policy().Timeout
	}

	h0, err := measure(ctx, loc, resolve)
	if err != nil {
		return 0, err
	}

	var lastErr error
	progressed := false
	steps := 0
	for steps < policy.MaxSteps {
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		steps++

		c, err := resolve(ctx)
		if err != nil {
			lastErr = err
			utils.Debugf("滚动容器解析失败(第%d步): %v", steps, err)
			continue
		}
		if _, err := c.Eval(browser.ScriptScrollToBottom); err != nil {
			lastErr = err
			utils.Debugf("滚动到底部失败(第%d步): %v", steps, err)
			continue
		}
		if err := utils.SleepContext(ctx, policy.SettlePause); err != nil {
			return steps, err
		}

		err = loc.Until(ctx, policy.GrowthTimeout, func() (bool, error) {
			h, err := height(ctx, resolve)
			if err != nil {
				return false, err
			}
			return h > h0, nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return steps, ctx.Err()
			}
			// 未观察到增长,先纠偏再复查
			utils.Debugf("第%d步未观察到高度增长,执行纠偏滚动", steps)
			nudge(ctx, resolve, policy)
		}

		h1, err := measure(ctx, loc, resolve)
		if err != nil {
			lastErr = err
			continue
		}
		progressed = true
		if h1 <= h0 {
			utils.Debugf("高度不再增长,滚动结束(共%d步)", steps)
			return steps, nil
		}
		h0 = h1
	}

	if !progressed && lastErr != nil {
		return steps, lastErr
	}
	utils.Debugf("达到滚动步数上限(%d)", policy.MaxSteps)
	return steps, nil
}

// ScrollToTop 将容器滚动回顶部
func ScrollToTop(ctx context.Context, resolve ContainerFunc) error {
	c, err := resolve(ctx)
	if err != nil {
		return err
	}
	_, err = c.Eval(browser.ScriptScrollToTop)
	return err
}

// measure 在有界时间内读取容器高度,容忍句柄失效
func measure(ctx context.Context, loc *Locator, resolve ContainerFunc) (int, error) {
	var h int
	err := loc.Until(ctx, loc.Policy().FieldWait, func() (bool, error) {
		v, err := height(ctx, resolve)
		if err != nil {
			return false, err
		}
		h = v
		return true, nil
	})
	return h, err
}

func height(ctx context.Context, resolve ContainerFunc) (int, error) {
	c, err := resolve(ctx)
	if err != nil {
		return 0, err
	}
	v, err := c.Eval(browser.ScriptScrollHeight)
	if err != nil {
		return 0, err
	}
	return v.Int(), nil
}

func nudge(ctx context.Context, resolve ContainerFunc, policy ScrollPolicy) {
	if policy.NudgeOffset == 0 {
		return
	}
	c, err := resolve(ctx)
	if err == nil {
		_, err = c.Eval(browser.ScriptScrollBy, policy.NudgeOffset)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		utils.Debugf("纠偏滚动失败: %v", err)
	}
	_ = utils.SleepContext(ctx, policy.NudgePause)
}
