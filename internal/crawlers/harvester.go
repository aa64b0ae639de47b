package crawlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
)

// ListHarvester 结果列表采集器
// 阶段: 定位容器 -> 滚动增长 -> 捕获标签
type ListHarvester struct {
	loc    *Locator
	policy ScrollPolicy

	labels      []string
	scrollSteps int
}

// NewListHarvester 创建列表采集器
func NewListHarvester(loc *Locator, policy ScrollPolicy) *ListHarvester {
	return &ListHarvester{loc: loc, policy: policy}
}

// Labels 最近一次捕获的标签
func (h *ListHarvester) Labels() []string {
	return append([]string(nil), h.labels...)
}

// LastScrollSteps 最近一次采集执行的滚动步数
func (h *ListHarvester) LastScrollSteps() int {
	return h.scrollSteps
}

// AcceptLabel 标签是否可用于后续定位
func AcceptLabel(label string) bool {
	label = strings.TrimSpace(label)
	return label != "" && !strings.Contains(label, models.LocatorBreakingChar)
}

// Harvest 采集查询结果列表中的全部条目标签
// 结果容器未出现是致命错误;捕获阶段的任何错误都会返回,不接受部分结果
func (h *ListHarvester) Harvest(ctx context.Context, query string) ([]string, error) {
	containerSel := fmt.Sprintf(selResultsContainer, query)

	if _, err := h.loc.WaitFor(ctx, containerSel, true); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrResultsNotFound, err)
	}
	utils.Debugf("结果列表已出现: %s", query)

	resolve := func(ctx context.Context) (browser.Element, error) {
		return h.loc.Query(ctx, containerSel)
	}

	steps, err := GrowScroll(ctx, h.loc, resolve, h.policy)
	h.scrollSteps = steps
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		utils.Errorf("滚动结果列表失败: %v", err)
		return nil, fmt.Errorf("滚动结果列表失败: %w", err)
	}
	if err := ScrollToTop(ctx, resolve); err != nil {
		utils.Debugf("滚动回顶部失败: %v", err)
	}

	labels, err := h.CaptureLabels(ctx, containerSel)
	if err != nil {
		utils.Errorf("捕获条目标签失败: %v", err)
		return nil, err
	}
	return labels, nil
}

// CaptureLabels 从结果容器的直接子元素中捕获标签,覆盖之前的捕获结果
func (h *ListHarvester) CaptureLabels(ctx context.Context, containerSel string) ([]string, error) {
	container, err := h.loc.WaitFor(ctx, containerSel, false)
	if err != nil {
		return nil, err
	}
	children, err := container.Children()
	if err != nil {
		return nil, fmt.Errorf("读取结果列表子元素失败: %w", err)
	}

	seen := make(map[string]struct{}, len(children)/2)
	labels := make([]string, 0, len(children)/2)
	excluded := 0
	for i, child := range children {
		if i < entryHeaderChildren || i%2 != 0 {
			continue
		}
		anchors, err := child.Elements(selEntryAnchor)
		if err != nil {
			return nil, fmt.Errorf("读取第%d个条目失败: %w", i, err)
		}
		if len(anchors) == 0 {
			continue
		}
		label, ok, err := anchors[0].Attribute("aria-label")
		if err != nil {
			return nil, fmt.Errorf("读取第%d个条目标签失败: %w", i, err)
		}
		if !ok {
			continue
		}
		if !AcceptLabel(label) {
			excluded++
			utils.Debugf("排除无法定位的标签: %q", label)
			continue
		}
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		labels = append(labels, label)
	}

	if excluded > 0 {
		utils.Warnf("已排除%d个包含特殊字符的条目", excluded)
	}
	h.labels = labels
	return h.Labels(), nil
}
