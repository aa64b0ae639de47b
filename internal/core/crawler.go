package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/schollz/progressbar/v3"
)

// Crawler 单个查询的运行协调器
// 执行流程:
//  1. 读取检查点(损坏则终止)
//  2. 导航到搜索地址
//  3. 采集结果列表标签(列表不出现则终止)
//  4. 按标签顺序逐个 打开+提取,每条成功的记录立即持久化
//  5. 生成运行报告
type Crawler struct {
	config  *Config
	driver  browser.Driver
	task    *models.RunTask
	store   *CheckpointStore
	metrics *Metrics
	monitor *crawlers.ResourceMonitor

	showProgress bool
	failed       []models.FailedLabel
}

// NewCrawler 创建运行协调器
// driver由调用方创建并在多个查询之间共享,Crawler不负责关闭
func NewCrawler(config *Config, driver browser.Driver, query string, metrics *Metrics) (*Crawler, error) {
	task, err := models.NewRunTask(config.SearchTarget(query))
	if err != nil {
		return nil, fmt.Errorf("无效的搜索目标: %w", err)
	}

	return &Crawler{
		config:       config,
		driver:       driver,
		task:         task,
		store:        NewCheckpointStore(config.CheckpointPath(query)),
		metrics:      metrics,
		showProgress: true,
	}, nil
}

// SetResourceMonitor 设置资源监控器,条目之间检查内存压力
func (c *Crawler) SetResourceMonitor(m *crawlers.ResourceMonitor) {
	c.monitor = m
}

// SetProgress 是否显示进度条
func (c *Crawler) SetProgress(show bool) {
	c.showProgress = show
}

// Store 检查点存储
func (c *Crawler) Store() *CheckpointStore {
	return c.store
}

// Run 执行一次完整运行
// 致命错误(检查点损坏、结果列表不出现、持久化失败)返回错误;
// 单个条目重试耗尽只记录并跳过。无论成功与否都返回报告。
func (c *Crawler) Run(ctx context.Context) (*models.RunReport, error) {
	c.task.Start()
	query := c.task.Target.Query
	defer utils.WithRun(c.task.ID, query)()
	utils.Infof("🚀 开始采集: %s", query)
	utils.Infof("🌐 目标地址: %s", c.task.URL)

	err := c.run(ctx)

	switch {
	case err == nil:
		c.task.Finish(models.RunStatusCompleted, nil)
	case errors.Is(err, context.Canceled):
		c.task.Finish(models.RunStatusCancelled, err)
		utils.Warnf("⏹️ 运行已取消,已持久化的记录保持不变")
	default:
		c.task.Finish(models.RunStatusFailed, err)
		utils.Errorf("❌ 运行失败: %v", err)
	}

	report := c.buildReport()
	if c.config.Output.Report {
		if path, saveErr := utils.NewReporter(c.config.ReportsDir()).Save(report); saveErr != nil {
			utils.Warnf("保存运行报告失败: %v", saveErr)
		} else {
			utils.Infof("📝 运行报告: %s", path)
		}
	}

	s := c.task.Stats
	utils.Infof("📊 采集完成: 标签 %d, 新增 %d, 跳过(已存在) %d, 失败 %d, 评论 %d, 耗时 %.1fs",
		s.HarvestedLabels, s.PersistedPlaces, s.SkippedResumed, s.FailedPlaces, s.TotalReviews, s.Duration)
	return report, err
}

func (c *Crawler) run(ctx context.Context) error {
	stats := &c.task.Stats

	existing, err := c.store.Load()
	if err != nil {
		return err
	}
	stats.ResumedRecords = len(existing)
	if len(existing) > 0 {
		utils.Infof("📂 检查点已有 %d 条记录: %s", len(existing), c.store.Path())
	}

	if err := c.driver.Navigate(ctx, c.task.URL); err != nil {
		return fmt.Errorf("打开搜索页面失败: %w", err)
	}

	loc := crawlers.NewLocator(c.driver, c.config.WaitPolicy())
	harvester := crawlers.NewListHarvester(loc, c.config.ListScrollPolicy())

	labels, err := harvester.Harvest(ctx, c.task.Target.Query)
	stats.ScrollSteps = harvester.LastScrollSteps()
	if err != nil {
		return err
	}
	stats.HarvestedLabels = len(labels)
	c.metrics.AddLabels(len(labels))
	utils.Infof("🔍 采集到 %d 个条目", len(labels))

	var reviews *crawlers.ReviewHarvester
	if !c.config.Harvest.SkipReviews {
		reviews = crawlers.NewReviewHarvester(loc, c.config.ReviewScrollPolicy())
	}
	var observer crawlers.FieldObserver
	if c.metrics != nil {
		observer = c.metrics
	}
	extractor := crawlers.NewDetailExtractor(loc, reviews, observer)
	retry := crawlers.NewRetryOrchestrator(c.config.Harvest.Attempts, c.config.Harvest.RetryPause)

	var bar *progressbar.ProgressBar
	if c.showProgress && len(labels) > 0 {
		bar = utils.NewProgressBar(len(labels), "采集地点")
		defer bar.Finish()
	}

	for i, label := range labels {
		if err := ctx.Err(); err != nil {
			return err
		}
		if bar != nil {
			_ = bar.Add(1)
		}

		if c.config.Harvest.Resume && c.store.HasName(label) {
			stats.SkippedResumed++
			c.metrics.IncSkipped("resumed")
			utils.Debugf("跳过已持久化的条目: %s", label)
			continue
		}

		if c.monitor != nil {
			if ok, reason := c.monitor.CheckPressure(); !ok {
				utils.Warnf("⚠️ %s", reason)
			}
		}

		utils.Infof("📍 [%d/%d] 处理条目: %s", i+1, len(labels), label)
		start := time.Now()
		place, attempts, err := retry.Do(ctx, label, extractor.Extract)
		stats.Attempts += attempts
		c.metrics.AddAttempts(attempts)
		c.metrics.ObserveItem(time.Since(start))

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			errType := classifyItemError(err)
			c.failed = append(c.failed, models.FailedLabel{
				Label:     label,
				ErrorType: errType,
				ErrorMsg:  err.Error(),
				Attempts:  attempts,
			})
			stats.FailedPlaces++
			c.metrics.IncSkipped(errType)
			utils.Warnf("⚠️ 跳过条目 [%s]: %v", label, err)
			continue
		}

		if err := c.store.Append(place); err != nil {
			return fmt.Errorf("持久化记录失败: %w", err)
		}
		stats.PersistedPlaces++
		stats.TotalReviews += len(place.Reviews)
		c.metrics.IncPersisted(len(place.Reviews))
		utils.Infof("✅ 已保存: %s (评论 %d 条)", place.Name, len(place.Reviews))
	}
	return nil
}

func (c *Crawler) buildReport() *models.RunReport {
	report := models.NewRunReport(c.task, c.store.Path(), c.failed)
	if c.monitor != nil {
		snap := c.monitor.Snapshot()
		report.Resources = &snap
	}
	return report
}

// classifyItemError 条目失败原因分类
func classifyItemError(err error) string {
	switch {
	case errors.Is(err, crawlers.ErrPanelNotOpened):
		return "panel_not_opened"
	case errors.Is(err, crawlers.ErrStaleLabel):
		return "stale_label"
	default:
		return "other"
	}
}
