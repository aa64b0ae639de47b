// Package crawlers 实现地图搜索结果的发现与提取引擎
//
// # 概述
//
// 结果列表是一个虚拟化的无限滚动列表:屏幕外的条目不在DOM中,滚动时节点被创建、
// 回收和替换。引擎通过稳定的标签(条目的aria-label)而不是元素句柄来标识条目,
// 每次使用前重新解析,以容忍页面在操作过程中的变化。
//
// 数据流:
//
//	ListHarvester -> 有序标签 -> RetryOrchestrator -> DetailExtractor (+ ReviewHarvester) -> 记录
//
// # 核心组件
//
// ## Locator
//
// 按标签解析元素,从不缓存句柄。等待操作基于go-rod的utils.Retry与指数退避,
// 轮询中的瞬时错误(句柄失效)不会终止等待。
//
// ## GrowScroll
//
// 滚动到底部 -> 等待高度增长 -> 超时则向上纠偏并复查,直到高度不再增长或达到步数上限。
// 高度不变只是"没有更多内容"的近似判断,步数上限和纠偏参数都是可调策略(ScrollPolicy)。
//
// ## ListHarvester
//
//	loc := NewLocator(driver, DefaultWaitPolicy())
//	harvester := NewListHarvester(loc, DefaultListScrollPolicy())
//	labels, err := harvester.Harvest(ctx, "Cafe X")
//
// 结果容器未出现返回ErrResultsNotFound(致命)。包含单引号的标签被排除。
//
// ## DetailExtractor / ReviewHarvester
//
//	reviews := NewReviewHarvester(loc, DefaultReviewScrollPolicy())
//	extractor := NewDetailExtractor(loc, reviews, nil)
//	place, err := extractor.Extract(ctx, label)
//
// 字段结果使用Field[T]表示: Found、Absent(合法的空值)、Failed。
// 除打开失败和名称为空之外,字段缺失不会产生错误。
//
// ## RetryOrchestrator
//
//	retry := NewRetryOrchestrator(2, time.Second)
//	place, attempts, err := retry.Do(ctx, label, extractor.Extract)
//
// 失败时重新执行整个 打开+提取,用尽后返回ErrRetriesExhausted,调用方跳过该条目继续运行。
//
// # 并发
//
// 所有组件共享同一个浏览器页面,严格顺序执行,不是并发安全的。
// ResourceMonitor除外,它在后台goroutine中采样。
package crawlers
