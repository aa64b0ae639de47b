package crawlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
)

// ReviewHarvester 评论采集器
// 评论子面板本身也是一个虚拟滚动列表,比结果列表更容易出现句柄失效,
// 因此每一步都重新解析滚动容器
type ReviewHarvester struct {
	loc    *Locator
	policy ScrollPolicy
}

// reviewEntry 页面脚本批量返回的单条评论
type reviewEntry struct {
	Reviewer string `json:"reviewer"`
	Rating   string `json:"rating"`
	Time     string `json:"time"`
	Body     string `json:"body"`
}

// NewReviewHarvester 创建评论采集器
func NewReviewHarvester(loc *Locator, policy ScrollPolicy) *ReviewHarvester {
	return &ReviewHarvester{loc: loc, policy: policy}
}

// Harvest 采集条目的综合评分和全部评论
// 没有评论标签页时返回空值且不报错;评论列表缺失时返回已取得的评分和空列表
func (r *ReviewHarvester) Harvest(ctx context.Context, label string) (string, []models.Review, error) {
	reviews := []models.Review{}

	tab, err := r.loc.ResolveWithin(ctx, label, fmt.Sprintf(selReviewsTab, label))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", reviews, ctxErr
		}
		utils.Debugf("未找到评论标签页 [%s]", label)
		return "", reviews, nil
	}
	if err := tab.Click(); err != nil {
		if _, err := tab.Eval(browser.ScriptClick); err != nil {
			return "", reviews, fmt.Errorf("点击评论标签页失败: %w", err)
		}
	}

	rating, err := r.waitRating(ctx, label)
	if err != nil {
		return "", reviews, err
	}

	resolve := func(ctx context.Context) (browser.Element, error) {
		return r.loc.ResolveChild(ctx, label, reviewsContainerIndex)
	}

	steps, err := GrowScroll(ctx, r.loc, resolve, r.policy)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return rating, reviews, ctxErr
		}
		utils.Warnf("评论列表滚动失败 [%s]: %v", label, err)
	}
	utils.Debugf("评论列表滚动完成 [%s]: %d步", label, steps)

	container, err := resolve(ctx)
	if err != nil {
		utils.Warnf("评论滚动容器未找到 [%s]: %v", label, err)
		return rating, reviews, nil
	}

	expanded := r.expandTruncated(container)
	if expanded > 0 {
		utils.Debugf("已展开%d条截断评论 [%s]", expanded, label)
	}

	list, err := r.reviewList(ctx, resolve)
	if err != nil {
		utils.Warnf("评论列表未找到,仅保留评分 [%s]: %v", label, err)
		return rating, reviews, nil
	}

	v, err := list.Eval(browser.ScriptReviewEntries)
	if err != nil {
		return rating, reviews, fmt.Errorf("批量提取评论失败: %w", err)
	}
	var entries []reviewEntry
	if err := json.Unmarshal([]byte(v.JSON("", "")), &entries); err != nil {
		return rating, reviews, fmt.Errorf("解析评论数据失败: %w", err)
	}

	for _, en := range entries {
		reviews = append(reviews, models.Review{
			ReviewerName:  strings.TrimSpace(en.Reviewer),
			ReviewTime:    strings.TrimSpace(en.Time),
			Rating:        strings.TrimSpace(en.Rating),
			ReviewContent: strings.TrimSpace(en.Body),
		})
	}
	utils.Debugf("评论采集完成 [%s]: 共%d条", label, len(reviews))
	return rating, reviews, nil
}

// waitRating 等待综合评分可见,等待期间节点被替换时重新解析
func (r *ReviewHarvester) waitRating(ctx context.Context, label string) (string, error) {
	panelSel := fmt.Sprintf(selPanelByLabel, label)
	var rating string
	err := r.loc.Until(ctx, r.loc.Policy().Timeout, func() (bool, error) {
		panel, err := r.loc.Query(ctx, panelSel)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		els, err := panel.Elements(selAggregateRating)
		if err != nil || len(els) == 0 {
			return false, err
		}
		visible, err := els[0].Visible()
		if err != nil || !visible {
			return false, err
		}
		text, err := els[0].Text()
		if err != nil {
			return false, err
		}
		rating = strings.TrimSpace(text)
		return true, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("等待综合评分超时: %w", err)
	}
	return rating, nil
}

// expandTruncated 一次性点击所有 "See more" 按钮
func (r *ReviewHarvester) expandTruncated(container browser.Element) int {
	buttons, err := container.Elements(selSeeMore)
	if err != nil {
		utils.Debugf("查询展开按钮失败: %v", err)
		return 0
	}
	clicked := 0
	for _, b := range buttons {
		if _, err := b.Eval(browser.ScriptClick); err != nil {
			utils.Debugf("展开评论失败: %v", err)
			continue
		}
		clicked++
	}
	return clicked
}

// reviewList 评论滚动容器的第8个div子元素
func (r *ReviewHarvester) reviewList(ctx context.Context, resolve ContainerFunc) (browser.Element, error) {
	container, err := resolve(ctx)
	if err != nil {
		return nil, err
	}
	children, err := container.Elements(selChildDivs)
	if err != nil {
		return nil, err
	}
	if len(children) <= reviewListIndex {
		return nil, fmt.Errorf("%w: 容器仅有%d个div子元素", ErrReviewListNotFound, len(children))
	}
	return children[reviewListIndex], nil
}
