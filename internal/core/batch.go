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
)

// BatchCrawler 批量采集器,多个查询共享一个浏览器会话
// 每个查询使用独立的检查点文件 places_<slug>.json
type BatchCrawler struct {
	config  *Config
	driver  browser.Driver
	metrics *Metrics
	monitor *crawlers.ResourceMonitor

	hideProgress bool
}

// BatchResult 单个查询的结果
type BatchResult struct {
	Query       string            `json:"query"`
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Stats       models.RunStats   `json:"stats"`
	Checkpoint  string            `json:"checkpoint"`
	Report      *models.RunReport `json:"-"`
	ProcessedAt time.Time         `json:"processed_at"`
	Duration    float64           `json:"duration"`
}

// BatchSummary 批量采集摘要
type BatchSummary struct {
	TotalQueries    int           `json:"total_queries"`
	SuccessCount    int           `json:"success_count"`
	FailCount       int           `json:"fail_count"`
	PersistedPlaces int           `json:"persisted_places"`
	TotalReviews    int           `json:"total_reviews"`
	TotalDuration   float64       `json:"total_duration"`
	Results         []BatchResult `json:"results"`
}

// NewBatchCrawler 创建批量采集器
func NewBatchCrawler(config *Config, driver browser.Driver, metrics *Metrics) *BatchCrawler {
	return &BatchCrawler{config: config, driver: driver, metrics: metrics}
}

// SetProgress 是否为每个查询显示进度条
func (bc *BatchCrawler) SetProgress(show bool) {
	bc.hideProgress = !show
}

// SetResourceMonitor 设置资源监控器
func (bc *BatchCrawler) SetResourceMonitor(m *crawlers.ResourceMonitor) {
	bc.monitor = m
}

// CrawlBatch 按顺序采集多个查询
// 取消时立即停止并返回已完成部分的摘要;continue_on_error为false时第一个失败的查询终止批量
func (bc *BatchCrawler) CrawlBatch(ctx context.Context, queries []string) (*BatchSummary, error) {
	utils.Infof("🚀 开始批量采集: %d个查询", len(queries))

	summary := &BatchSummary{
		TotalQueries: len(queries),
		Results:      make([]BatchResult, 0, len(queries)),
	}
	startTime := time.Now()

	var runErr error
	for i, query := range queries {
		utils.Infof("==================== [%d/%d] %s ====================", i+1, len(queries), query)

		result := bc.crawlSingleQuery(ctx, query)
		summary.Results = append(summary.Results, result)

		if result.Success {
			summary.SuccessCount++
			summary.PersistedPlaces += result.Stats.PersistedPlaces
			summary.TotalReviews += result.Stats.TotalReviews
		} else {
			summary.FailCount++
			utils.Errorf("❌ 查询失败 [%s]: %s", query, result.Error)
		}

		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if !result.Success && !bc.config.Batch.ContinueOnError {
			utils.Warn("批量采集中止 (continue_on_error=false)")
			runErr = fmt.Errorf("查询失败 [%s]: %s", query, result.Error)
			break
		}

		if i < len(queries)-1 && bc.config.Batch.Delay > 0 {
			utils.Debugf("等待 %.0f 秒后处理下一个查询...", bc.config.Batch.Delay.Seconds())
			if err := utils.SleepContext(ctx, bc.config.Batch.Delay); err != nil {
				runErr = err
				break
			}
		}
	}

	summary.TotalDuration = time.Since(startTime).Seconds()
	bc.printSummary(summary)

	if bc.config.Output.Report {
		name := fmt.Sprintf("batch_%s.json", startTime.Format("20060102_150405"))
		if path, err := utils.NewReporter(bc.config.ReportsDir()).SaveJSON(name, summary); err != nil {
			utils.Warnf("保存批量摘要失败: %v", err)
		} else {
			utils.Infof("📝 批量摘要: %s", path)
		}
	}

	return summary, runErr
}

// crawlSingleQuery 采集单个查询
func (bc *BatchCrawler) crawlSingleQuery(ctx context.Context, query string) BatchResult {
	result := BatchResult{
		Query:       query,
		ProcessedAt: time.Now(),
	}
	startTime := time.Now()

	crawler, err := NewCrawler(bc.config, bc.driver, query, bc.metrics)
	if err != nil {
		result.Error = fmt.Sprintf("创建采集器失败: %v", err)
		result.Duration = time.Since(startTime).Seconds()
		return result
	}
	crawler.SetResourceMonitor(bc.monitor)
	crawler.SetProgress(!bc.hideProgress)
	result.Checkpoint = crawler.Store().Path()

	report, err := crawler.Run(ctx)
	result.Report = report
	if report != nil {
		result.Stats = report.Stats
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			result.Error = "已取消"
		} else {
			result.Error = err.Error()
		}
		result.Duration = time.Since(startTime).Seconds()
		return result
	}

	result.Success = true
	result.Duration = time.Since(startTime).Seconds()
	return result
}

// printSummary 打印批量采集摘要
func (bc *BatchCrawler) printSummary(summary *BatchSummary) {
	utils.Info("==================================================")
	utils.Info("📊 批量采集摘要")
	utils.Info("==================================================")
	utils.Infof("总查询数: %d", summary.TotalQueries)
	utils.Infof("✅ 成功: %d", summary.SuccessCount)
	utils.Infof("❌ 失败: %d", summary.FailCount)
	utils.Infof("📍 新增地点: %d", summary.PersistedPlaces)
	utils.Infof("💬 评论总数: %d", summary.TotalReviews)
	utils.Infof("⏱️  总耗时: %.2f秒", summary.TotalDuration)
	utils.Info("==================================================")

	if summary.FailCount > 0 {
		utils.Warn("失败的查询:")
		for _, result := range summary.Results {
			if !result.Success {
				utils.Warnf("  - %s: %s", result.Query, result.Error)
			}
		}
	}
}
