package crawlers

import "errors"

// 错误分类
// 致命: ErrResultsNotFound 整个运行终止
// 条目级: ErrPanelNotOpened, ErrStaleLabel 由重试编排器处理,重试耗尽后跳过条目
// 字段级: ErrElementNotFound 以空值替代(包括名称)
var (
	ErrResultsNotFound    = errors.New("搜索结果列表未出现")
	ErrElementNotFound    = errors.New("元素未找到")
	ErrPanelNotOpened     = errors.New("详情面板未打开")
	ErrStaleLabel         = errors.New("条目标签已失效")
	ErrRetriesExhausted   = errors.New("重试次数已用尽")
	ErrWaitTimeout        = errors.New("等待超时")
	ErrReviewListNotFound = errors.New("评论列表未找到")
)
