package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.Equal(t, 21.020833, cfg.Search.Latitude)
	require.Equal(t, 105.511944, cfg.Search.Longitude)
	require.Equal(t, 14, cfg.Search.Zoom)
	require.Equal(t, "https://www.google.com/maps", cfg.Search.BaseURL)
	require.Equal(t, 5, cfg.Harvest.MaxScrolls)
	require.Equal(t, 10*time.Second, cfg.Harvest.WaitTimeout)
	require.Equal(t, 2*time.Second, cfg.Harvest.FieldWait)
	require.Equal(t, 2, cfg.Harvest.Attempts)
	require.True(t, cfg.Harvest.Resume)
	require.True(t, cfg.Batch.ContinueOnError)
	require.False(t, cfg.Browser.Headless)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `search:
  zoom: 16
  language: vi
browser:
  headless: true
  headers:
    X-Trace: abc
harvest:
  max_scrolls: 8
  wait_timeout: 15s
output:
  dir: /tmp/places
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 16, cfg.Search.Zoom)
	require.Equal(t, "vi", cfg.Search.Language)
	require.True(t, cfg.Browser.Headless)
	require.Equal(t, "abc", cfg.Browser.Headers["x-trace"])
	require.Equal(t, 8, cfg.Harvest.MaxScrolls)
	require.Equal(t, 15*time.Second, cfg.Harvest.WaitTimeout)
	require.Equal(t, "/tmp/places", cfg.Output.Dir)

	// 未配置的项保留默认值
	require.Equal(t, 21.020833, cfg.Search.Latitude)
	require.Equal(t, 2, cfg.Harvest.Attempts)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MAPSCRAWLER_HARVEST_MAX_SCROLLS", "9")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("harvest:\n  max_scrolls: 3\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 9, cfg.Harvest.MaxScrolls)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search: [unclosed"), 0644))

	_, err := LoadConfig(path)
	var cfgErr *models.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, path, cfgErr.FilePath)
}

func TestMergeCLIFlags(t *testing.T) {
	cfg := DefaultConfig()
	lat, lon := 10.776, 106.700
	headless, noReviews := true, true

	cfg.MergeCLIFlags(CLIFlags{
		Query:      "Bun Bo",
		Latitude:   &lat,
		Longitude:  &lon,
		Zoom:       12,
		Headless:   &headless,
		NoReviews:  &noReviews,
		MaxScrolls: 7,
		Wait:       20 * time.Second,
		Output:     "data",
	})

	require.Equal(t, "Bun Bo", cfg.Search.Query)
	require.Equal(t, 10.776, cfg.Search.Latitude)
	require.Equal(t, 106.700, cfg.Search.Longitude)
	require.Equal(t, 12, cfg.Search.Zoom)
	require.True(t, cfg.Browser.Headless)
	require.True(t, cfg.Harvest.SkipReviews)
	require.Equal(t, 7, cfg.Harvest.MaxScrolls)
	require.Equal(t, 20*time.Second, cfg.Harvest.WaitTimeout)
	require.Equal(t, "data", cfg.Output.Dir)

	// 未指定的参数不覆盖
	require.Equal(t, 2, cfg.Harvest.Attempts)
	require.True(t, cfg.Harvest.Resume)
}

func TestMergeCLIFlagsExplicitZeroCoordinates(t *testing.T) {
	cfg := DefaultConfig()
	zero := 0.0
	cfg.MergeCLIFlags(CLIFlags{Latitude: &zero, Longitude: &zero})
	require.Equal(t, 0.0, cfg.Search.Latitude)
	require.Equal(t, 0.0, cfg.Search.Longitude)
}

func TestCheckpointPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output.Dir = "out"

	require.Equal(t, filepath.Join("out", "places_cafe_x.json"), cfg.CheckpointPath("Cafe X"))
	require.Equal(t, filepath.Join("out", "places_bánh_mì_hội_an.json"), cfg.CheckpointPath("Bánh mì / Hội An"))

	cfg.Output.CheckpointFile = "custom.json"
	require.Equal(t, filepath.Join("out", "custom.json"), cfg.CheckpointPath("Cafe X"))

	cfg.Output.CheckpointFile = "/abs/places.json"
	require.Equal(t, "/abs/places.json", cfg.CheckpointPath("Cafe X"))
}

func TestDerivedPolicies(t *testing.T) {
	cfg := DefaultConfig()

	wait := cfg.WaitPolicy()
	require.Equal(t, cfg.Harvest.WaitTimeout, wait.Timeout)
	require.Equal(t, cfg.Harvest.PollInterval*10, wait.MaxInterval)

	list := cfg.ListScrollPolicy()
	require.Equal(t, 5, list.MaxSteps)
	require.Equal(t, -100, list.NudgeOffset)
	require.Zero(t, list.SettlePause)

	reviews := cfg.ReviewScrollPolicy()
	require.Equal(t, 30, reviews.MaxSteps)
	require.Equal(t, time.Second, reviews.SettlePause)

	// 零值回退到默认评论策略
	cfg.Harvest.ReviewMaxScrolls = 0
	cfg.Harvest.ReviewGrowthTimeout = 0
	cfg.Harvest.ReviewScrollPause = 0
	require.Equal(t, crawlers.DefaultReviewScrollPolicy(), cfg.ReviewScrollPolicy())

	require.Equal(t,
		"https://www.google.com/maps/search/Cafe%20X/@21.020833,105.511944,14z?hl=en",
		cfg.SearchTarget("Cafe X").URL())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"默认配置", func(*Config) {}, false},
		{"滚动次数为0", func(c *Config) { c.Harvest.MaxScrolls = 0 }, true},
		{"尝试次数为0", func(c *Config) { c.Harvest.Attempts = 0 }, true},
		{"等待超时为0", func(c *Config) { c.Harvest.WaitTimeout = 0 }, true},
		{"输出目录为空", func(c *Config) { c.Output.Dir = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLogConfigFromDefaults(t *testing.T) {
	cfg := DefaultConfig()
	lc := cfg.LogConfig(true)

	want := utils.DefaultLogConfig()
	want.NoColor = true
	require.Equal(t, want, lc)
}
