package core

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser/browsertest"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
)

// testConfig 短等待参数的配置,输出写入临时目录
func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Output.Dir = t.TempDir()
	cfg.Harvest.WaitTimeout = 300 * time.Millisecond
	cfg.Harvest.FieldWait = 30 * time.Millisecond
	cfg.Harvest.PollInterval = 2 * time.Millisecond
	cfg.Harvest.GrowthTimeout = 30 * time.Millisecond
	cfg.Harvest.NudgePause = time.Millisecond
	cfg.Harvest.ReviewGrowthTimeout = 30 * time.Millisecond
	cfg.Harvest.ReviewScrollPause = time.Millisecond
	cfg.Harvest.ReviewMaxScrolls = 10
	cfg.Harvest.RetryPause = 0
	return cfg
}

func place(label string) browsertest.PlaceFixture {
	return browsertest.PlaceFixture{
		Label:   label,
		Name:    label,
		Address: fmt.Sprintf("%s, Thạch Thất, Hà Nội", label),
		Phone:   "024 3333 4444",
		Hours: []models.DayHours{
			{Day: "Monday", Hours: "6 AM–10 PM"},
			{Day: "Tuesday", Hours: "6 AM–10 PM"},
		},
		Photo:  "https://lh5.googleusercontent.com/p/" + label,
		Rating: "4.6",
		Reviews: []models.Review{
			{ReviewerName: "Minh", ReviewTime: "3 days ago", Rating: "5 stars", ReviewContent: "Good egg coffee, quiet upstairs"},
			{ReviewerName: "Lan", ReviewTime: "a week ago", Rating: "4 stars", ReviewContent: "Busy at lunch"},
		},
		ReviewPageSize:  1,
		TruncateReviews: true,
	}
}

func newCrawler(t *testing.T, cfg *Config, d *browsertest.DOM, query string) *Crawler {
	t.Helper()
	c, err := NewCrawler(cfg, d, query, NewMetrics())
	if err != nil {
		t.Fatalf("创建采集器失败: %v", err)
	}
	c.SetProgress(false)
	return c
}

func readCheckpoint(t *testing.T, path string) []models.Place {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取检查点失败: %v", err)
	}
	places, err := models.DecodePlaces(data)
	if err != nil {
		t.Fatalf("解析检查点失败: %v", err)
	}
	return places
}
