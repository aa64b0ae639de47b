package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RecoveryAshes/mapscrawler/internal/browser/browsertest"
	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/stretchr/testify/require"
)

// TestRunEndToEnd 搜索 "Cafe X",两个条目均有完整数据
func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	first, second := place("Cafe X Hoa Lac"), place("Cafe X Lakeside")
	d := browsertest.Install("Cafe X", []browsertest.PlaceFixture{first, second}, 1)

	c := newCrawler(t, cfg, d, "Cafe X")
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, []string{
		"https://www.google.com/maps/search/Cafe%20X/@21.020833,105.511944,14z?hl=en",
	}, d.Navigated)

	require.Equal(t, models.RunStatusCompleted, report.Status)
	require.Equal(t, 2, report.Stats.HarvestedLabels)
	require.Equal(t, 2, report.Stats.PersistedPlaces)
	require.Equal(t, 0, report.Stats.FailedPlaces)
	require.Equal(t, 4, report.Stats.TotalReviews)
	require.Empty(t, report.FailedLabels)

	path := filepath.Join(cfg.Output.Dir, "places_cafe_x.json")
	require.Equal(t, path, report.CheckpointFile)

	places := readCheckpoint(t, path)
	require.Len(t, places, 2)
	for i, want := range []browsertest.PlaceFixture{first, second} {
		got := places[i]
		require.Equal(t, want.Name, got.Name)
		require.Equal(t, want.Address, got.Address)
		require.Equal(t, want.Phone, got.PhoneNumber)
		require.Equal(t, models.BusinessHours(want.Hours), got.BusinessHours)
		require.Equal(t, want.Photo, got.PhotoLink)
		require.Equal(t, want.Rating, got.Rate)
		require.NotEmpty(t, got.Reviews)
		require.Equal(t, want.Reviews, got.Reviews)
	}

	// 报告文件
	reportPath := filepath.Join(cfg.Output.Dir, "reports", "run_"+report.RunID+".json")
	_, err = os.Stat(reportPath)
	require.NoError(t, err)
}

// TestRunIsolatesFailingItem 第二个条目始终打不开,第一和第三个条目照常持久化
func TestRunIsolatesFailingItem(t *testing.T) {
	cfg := testConfig(t)
	a, b, c3 := place("Pho 10"), place("Pho Thin"), place("Pho Gia Truyen")
	b.BrokenOpen = true
	d := browsertest.Install("Pho", []browsertest.PlaceFixture{a, b, c3}, 0)

	c := newCrawler(t, cfg, d, "Pho")
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.RunStatusCompleted, report.Status)

	places := readCheckpoint(t, c.Store().Path())
	require.Len(t, places, 2)
	require.Equal(t, "Pho 10", places[0].Name)
	require.Equal(t, "Pho Gia Truyen", places[1].Name)

	require.Equal(t, 1, report.Stats.FailedPlaces)
	require.Len(t, report.FailedLabels, 1)
	require.Equal(t, "Pho Thin", report.FailedLabels[0].Label)
	require.Equal(t, "panel_not_opened", report.FailedLabels[0].ErrorType)
	require.Equal(t, 2, report.FailedLabels[0].Attempts)
	require.Equal(t, 1+2+1, report.Stats.Attempts)
}

// TestRunPersistsPlaceWithoutName 面板没有标题的条目以空名称持久化,不计为失败
func TestRunPersistsPlaceWithoutName(t *testing.T) {
	cfg := testConfig(t)
	a := place("Pho 10")
	a.NoHeading = true
	d := browsertest.Install("Pho", []browsertest.PlaceFixture{a}, 0)

	c := newCrawler(t, cfg, d, "Pho")
	report, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.Stats.FailedPlaces)

	places := readCheckpoint(t, c.Store().Path())
	require.Len(t, places, 1)
	require.Empty(t, places[0].Name)
	require.Equal(t, a.Address, places[0].Address)
}

// TestRunLogsCarryRunID 文件日志携带运行ID,可与运行报告对应
func TestRunLogsCarryRunID(t *testing.T) {
	cfg := testConfig(t)
	logDir := filepath.Join(cfg.Output.Dir, "logs")
	cfg.Logging.LogDir = logDir
	require.NoError(t, utils.InitLogger(cfg.LogConfig(true)))

	d := browsertest.Install("Pho", []browsertest.PlaceFixture{place("Pho 10")}, 0)
	report, err := newCrawler(t, cfg, d, "Pho").Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(logDir, "mapscrawler.log"))
	require.NoError(t, err)
	var tagged int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if strings.Contains(line, `"run_id":"`+report.RunID+`"`) {
			tagged++
			require.Contains(t, line, `"query":"Pho"`)
		}
	}
	require.Positive(t, tagged)
}

// TestRunResumesFromCheckpoint 第二次运行跳过已持久化的条目,只追加新条目
func TestRunResumesFromCheckpoint(t *testing.T) {
	cfg := testConfig(t)

	d1 := browsertest.Install("Bun Cha", []browsertest.PlaceFixture{place("Bun Cha A"), place("Bun Cha B")}, 0)
	_, err := newCrawler(t, cfg, d1, "Bun Cha").Run(context.Background())
	require.NoError(t, err)

	d2 := browsertest.Install("Bun Cha", []browsertest.PlaceFixture{place("Bun Cha A"), place("Bun Cha B"), place("Bun Cha C")}, 0)
	c := newCrawler(t, cfg, d2, "Bun Cha")
	report, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, report.Stats.ResumedRecords)
	require.Equal(t, 2, report.Stats.SkippedResumed)
	require.Equal(t, 1, report.Stats.PersistedPlaces)

	places := readCheckpoint(t, c.Store().Path())
	require.Len(t, places, 3)
	require.Equal(t, "Bun Cha C", places[2].Name)
}

// TestRunWithoutResumeAppendsAgain 关闭续采时不跳过,但也不删除已有记录
func TestRunWithoutResumeAppendsAgain(t *testing.T) {
	cfg := testConfig(t)
	cfg.Harvest.Resume = false
	cfg.Harvest.SkipReviews = true

	for i := 0; i < 2; i++ {
		d := browsertest.Install("Banh Mi", []browsertest.PlaceFixture{place("Banh Mi 25")}, 0)
		_, err := newCrawler(t, cfg, d, "Banh Mi").Run(context.Background())
		require.NoError(t, err)
	}

	places := readCheckpoint(t, cfg.CheckpointPath("Banh Mi"))
	require.Len(t, places, 2)
	require.Empty(t, places[0].Reviews)
}

// TestRunCorruptCheckpointIsFatal 检查点损坏时不导航直接失败
func TestRunCorruptCheckpointIsFatal(t *testing.T) {
	cfg := testConfig(t)
	path := cfg.CheckpointPath("Cafe X")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "Cafe`), 0644))

	d := browsertest.Install("Cafe X", []browsertest.PlaceFixture{place("Cafe X Hoa Lac")}, 0)
	report, err := newCrawler(t, cfg, d, "Cafe X").Run(context.Background())
	require.ErrorIs(t, err, models.ErrCorruptCheckpoint)
	require.Equal(t, models.RunStatusFailed, report.Status)
	require.Empty(t, d.Navigated)

	// 损坏的文件保持原样
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, `[{"name": "Cafe`, string(data))
}

// TestRunResultsNotFoundIsFatal 结果列表不出现时运行失败且不写检查点
func TestRunResultsNotFoundIsFatal(t *testing.T) {
	cfg := testConfig(t)
	d := browsertest.MustNew(browsertest.ResultsPage("Something else", "A"))

	report, err := newCrawler(t, cfg, d, "Cafe X").Run(context.Background())
	require.ErrorIs(t, err, crawlers.ErrResultsNotFound)
	require.Equal(t, models.RunStatusFailed, report.Status)
	require.NotEmpty(t, report.ErrorMessage)

	_, statErr := os.Stat(cfg.CheckpointPath("Cafe X"))
	require.True(t, os.IsNotExist(statErr))
}

// TestRunCancelled 取消的运行状态为cancelled
func TestRunCancelled(t *testing.T) {
	cfg := testConfig(t)
	d := browsertest.Install("Cafe X", []browsertest.PlaceFixture{place("Cafe X Hoa Lac")}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newCrawler(t, cfg, d, "Cafe X").Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, models.RunStatusCancelled, report.Status)
}

func TestNewCrawlerRejectsInvalidQuery(t *testing.T) {
	cfg := testConfig(t)
	d := browsertest.MustNew(browsertest.ResultsPage("q"))

	for _, q := range []string{"", "Joe's"} {
		if _, err := NewCrawler(cfg, d, q, nil); err == nil {
			t.Errorf("查询词 %q 应被拒绝", q)
		}
	}
}

func TestClassifyItemError(t *testing.T) {
	tests := []struct {
		err      error
		expected string
	}{
		{crawlers.ErrPanelNotOpened, "panel_not_opened"},
		{crawlers.ErrStaleLabel, "stale_label"},
		{os.ErrClosed, "other"},
	}
	for _, tt := range tests {
		if got := classifyItemError(tt.err); got != tt.expected {
			t.Errorf("classifyItemError(%v) = %s, 期望 %s", tt.err, got, tt.expected)
		}
	}
}
