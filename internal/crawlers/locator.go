package crawlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	rodutils "github.com/go-rod/rod/lib/utils"
)

// WaitPolicy 有界等待参数
type WaitPolicy struct {
	Timeout     time.Duration // 容器、面板等关键元素的等待上限
	FieldWait   time.Duration // 可选字段的等待上限
	Interval    time.Duration // 首次轮询间隔
	MaxInterval time.Duration // 轮询间隔上限(指数退避)
}

// DefaultWaitPolicy 默认等待参数
func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Timeout:     10 * time.Second,
		FieldWait:   2 * time.Second,
		Interval:    100 * time.Millisecond,
		MaxInterval: time.Second,
	}
}

// Locator 按标签解析元素
// 从不缓存句柄: 每次调用都重新查询当前DOM
type Locator struct {
	driver browser.Driver
	wait   WaitPolicy
}

// NewLocator 创建定位器
func NewLocator(driver browser.Driver, wait WaitPolicy) *Locator {
	def := DefaultWaitPolicy()
	if wait.Timeout <= 0 {
		wait.Timeout = def.Timeout
	}
	if wait.FieldWait <= 0 {
		wait.FieldWait = def.FieldWait
	}
	if wait.Interval <= 0 {
		wait.Interval = def.Interval
	}
	if wait.MaxInterval < wait.Interval {
		wait.MaxInterval = wait.Interval
	}
	return &Locator{driver: driver, wait: wait}
}

// Policy 返回等待参数
func (l *Locator) Policy() WaitPolicy {
	return l.wait
}

// Until 轮询cond直到返回true或超时
// cond返回的错误视为瞬时错误(如句柄失效),继续轮询;超时时携带最后一次错误
func (l *Locator) Until(ctx context.Context, timeout time.Duration, cond func() (bool, error)) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastErr error
	sleeper := rodutils.BackoffSleeper(l.wait.Interval, l.wait.MaxInterval, nil)
	err := rodutils.Retry(waitCtx, sleeper, func() (bool, error) {
		ok, err := cond()
		if err != nil {
			lastErr = err
			return false, nil
		}
		return ok, nil
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if lastErr != nil {
		return fmt.Errorf("%w (%v)", ErrWaitTimeout, lastErr)
	}
	return ErrWaitTimeout
}

// Query 立即查询第一个匹配元素,不等待
func (l *Locator) Query(ctx context.Context, selector string) (browser.Element, error) {
	els, err := l.driver.Elements(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrElementNotFound, selector)
	}
	return els[0], nil
}

// WaitFor 等待选择器出现(visible为true时还要求可见)
func (l *Locator) WaitFor(ctx context.Context, selector string, visible bool) (browser.Element, error) {
	return l.waitFor(ctx, l.wait.Timeout, selector, visible)
}

func (l *Locator) waitFor(ctx context.Context, timeout time.Duration, selector string, visible bool) (browser.Element, error) {
	var found browser.Element
	err := l.Until(ctx, timeout, func() (bool, error) {
		el, err := l.Query(ctx, selector)
		if err != nil {
			if errors.Is(err, ErrElementNotFound) {
				return false, nil
			}
			return false, err
		}
		if visible {
			ok, err := el.Visible()
			if err != nil || !ok {
				return false, err
			}
		}
		found = el
		return true, nil
	})
	if err != nil {
		return nil, notFound(err, selector)
	}
	return found, nil
}

// Resolve 解析结果列表中的条目链接
func (l *Locator) Resolve(ctx context.Context, label string) (browser.Element, error) {
	return l.WaitFor(ctx, fmt.Sprintf(selAnchorByLabel, label), false)
}

// ResolvePanel 等待条目的详情面板出现
func (l *Locator) ResolvePanel(ctx context.Context, label string) (browser.Element, error) {
	return l.WaitFor(ctx, fmt.Sprintf(selPanelByLabel, label), false)
}

// ResolveWithin 在详情面板内解析子元素,每次轮询都先重新解析面板
func (l *Locator) ResolveWithin(ctx context.Context, label, query string) (browser.Element, error) {
	return l.resolveUnder(ctx, fmt.Sprintf(selPanelByLabel, label), query)
}

// ResolveChild 解析详情面板的第index个直接div子元素
func (l *Locator) ResolveChild(ctx context.Context, label string, index int) (browser.Element, error) {
	panelSel := fmt.Sprintf(selPanelByLabel, label)
	var found browser.Element
	err := l.Until(ctx, l.wait.FieldWait, func() (bool, error) {
		panel, err := l.Query(ctx, panelSel)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		children, err := panel.Elements(selChildDivs)
		if err != nil {
			return false, err
		}
		if index >= len(children) {
			return false, nil
		}
		found = children[index]
		return true, nil
	})
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("%s > div:nth-of-type(%d)", panelSel, index+1))
	}
	return found, nil
}

// resolveUnder 先解析父元素再在其子树内查询
func (l *Locator) resolveUnder(ctx context.Context, parentSel, query string) (browser.Element, error) {
	var found browser.Element
	err := l.Until(ctx, l.wait.FieldWait, func() (bool, error) {
		parent, err := l.Query(ctx, parentSel)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		els, err := parent.Elements(query)
		if err != nil {
			return false, err
		}
		if len(els) == 0 {
			return false, nil
		}
		found = els[0]
		return true, nil
	})
	if err != nil {
		return nil, notFound(err, parentSel+" "+query)
	}
	return found, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, ErrElementNotFound) {
		return nil
	}
	return err
}

// notFound 将等待超时转换为ErrElementNotFound,取消错误原样返回
func notFound(err error, selector string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s (%v)", ErrElementNotFound, selector, err)
}
