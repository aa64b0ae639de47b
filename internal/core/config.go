package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/spf13/viper"
)

// Config 应用程序配置
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Browser BrowserConfig `mapstructure:"browser"`
	Harvest HarvestConfig `mapstructure:"harvest"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SearchConfig 搜索目标配置
type SearchConfig struct {
	Query     string  `mapstructure:"query"`
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
	Zoom      int     `mapstructure:"zoom"`
	BaseURL   string  `mapstructure:"base_url"`
	Language  string  `mapstructure:"language"`
}

// BrowserConfig 浏览器配置
type BrowserConfig struct {
	Headless    bool              `mapstructure:"headless"`
	Bin         string            `mapstructure:"bin"`
	UserDataDir string            `mapstructure:"user_data_dir"`
	Stealth     bool              `mapstructure:"stealth"`
	NoSandbox   bool              `mapstructure:"no_sandbox"`
	UserAgent   string            `mapstructure:"user_agent"`
	OpTimeout   time.Duration     `mapstructure:"op_timeout"`
	SlowMotion  time.Duration     `mapstructure:"slow_motion"`
	Headers     map[string]string `mapstructure:"headers"`
}

// HarvestConfig 采集策略配置
type HarvestConfig struct {
	WaitTimeout   time.Duration `mapstructure:"wait_timeout"`
	FieldWait     time.Duration `mapstructure:"field_wait"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxScrolls    int           `mapstructure:"max_scrolls"`
	GrowthTimeout time.Duration `mapstructure:"growth_timeout"`
	NudgeOffset   int           `mapstructure:"nudge_offset"`
	NudgePause    time.Duration `mapstructure:"nudge_pause"`

	ReviewMaxScrolls    int           `mapstructure:"review_max_scrolls"`
	ReviewScrollPause   time.Duration `mapstructure:"review_scroll_pause"`
	ReviewGrowthTimeout time.Duration `mapstructure:"review_growth_timeout"`
	SkipReviews         bool          `mapstructure:"skip_reviews"`

	Attempts   int           `mapstructure:"attempts"`
	RetryPause time.Duration `mapstructure:"retry_pause"`
	Resume     bool          `mapstructure:"resume"`
}

// BatchConfig 批量模式配置
type BatchConfig struct {
	Delay           time.Duration `mapstructure:"delay"`
	ContinueOnError bool          `mapstructure:"continue_on_error"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	Dir            string `mapstructure:"dir"`
	CheckpointFile string `mapstructure:"checkpoint_file"` // 为空时按查询词生成 places_<slug>.json
	Report         bool   `mapstructure:"report"`
	ReportDir      string `mapstructure:"report_dir"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level    string         `mapstructure:"level"`
	LogDir   string         `mapstructure:"log_dir"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig 日志轮转配置
type RotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

// MetricsConfig 指标配置,Addr为空时不启动HTTP端点
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath("./configs")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mapscrawler"))
		}
	}

	// 环境变量覆盖: MAPSCRAWLER_HARVEST_MAX_SCROLLS=10
	v.SetEnvPrefix("MAPSCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
		}
		// 配置文件不存在,使用默认值
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, &models.ConfigError{FilePath: v.ConfigFileUsed(), Cause: err}
	}

	return &config, nil
}

// DefaultConfig 仅包含默认值的配置
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("默认配置无法解析: %v", err))
	}
	return &config
}

// setDefaults 设置默认配置值
func setDefaults(v *viper.Viper) {
	// 搜索默认值
	v.SetDefault("search.latitude", 21.020833)
	v.SetDefault("search.longitude", 105.511944)
	v.SetDefault("search.zoom", 14)
	v.SetDefault("search.base_url", "https://www.google.com/maps")
	v.SetDefault("search.language", "en")

	// 浏览器默认值(默认有界面,便于观察)
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.stealth", true)
	v.SetDefault("browser.no_sandbox", false)
	v.SetDefault("browser.op_timeout", 10*time.Second)
	v.SetDefault("browser.slow_motion", 0)
	v.SetDefault("browser.headers", map[string]string{})

	// 采集策略默认值
	v.SetDefault("harvest.wait_timeout", 10*time.Second)
	v.SetDefault("harvest.field_wait", 2*time.Second)
	v.SetDefault("harvest.poll_interval", 100*time.Millisecond)
	v.SetDefault("harvest.max_scrolls", 5)
	v.SetDefault("harvest.growth_timeout", 10*time.Second)
	v.SetDefault("harvest.nudge_offset", -100)
	v.SetDefault("harvest.nudge_pause", 2*time.Second)
	v.SetDefault("harvest.review_max_scrolls", 30)
	v.SetDefault("harvest.review_scroll_pause", time.Second)
	v.SetDefault("harvest.review_growth_timeout", 3*time.Second)
	v.SetDefault("harvest.skip_reviews", false)
	v.SetDefault("harvest.attempts", 2)
	v.SetDefault("harvest.retry_pause", time.Second)
	v.SetDefault("harvest.resume", true)

	// 批量模式默认值
	v.SetDefault("batch.delay", 0)
	v.SetDefault("batch.continue_on_error", true)

	// 输出默认值
	v.SetDefault("output.dir", "output")
	v.SetDefault("output.checkpoint_file", "")
	v.SetDefault("output.report", true)
	v.SetDefault("output.report_dir", "reports")

	// 日志默认值
	logDefaults := utils.DefaultLogConfig()
	v.SetDefault("logging.level", logDefaults.Level)
	v.SetDefault("logging.log_dir", logDefaults.LogDir)
	v.SetDefault("logging.rotation.max_size", logDefaults.MaxSize)
	v.SetDefault("logging.rotation.max_backups", logDefaults.MaxBackups)
	v.SetDefault("logging.rotation.max_age", logDefaults.MaxAge)
	v.SetDefault("logging.rotation.compress", logDefaults.Compress)

	v.SetDefault("metrics.addr", "")
}

// CLIFlags 命令行参数,nil/零值表示未指定
type CLIFlags struct {
	Query      string
	Latitude   *float64
	Longitude  *float64
	Zoom       int
	Headless   *bool
	MaxScrolls int
	Attempts   int
	Output     string
	Checkpoint string
	NoReviews  *bool
	Resume     *bool
	Wait       time.Duration
	Browser    string
	LogLevel   string
	Metrics    string
}

// MergeCLIFlags 合并命令行参数到配置,命令行参数优先于配置文件
func (c *Config) MergeCLIFlags(f CLIFlags) {
	if f.Query != "" {
		c.Search.Query = f.Query
	}
	if f.Latitude != nil {
		c.Search.Latitude = *f.Latitude
	}
	if f.Longitude != nil {
		c.Search.Longitude = *f.Longitude
	}
	if f.Zoom > 0 {
		c.Search.Zoom = f.Zoom
	}
	if f.Headless != nil {
		c.Browser.Headless = *f.Headless
	}
	if f.Browser != "" {
		c.Browser.Bin = f.Browser
	}
	if f.MaxScrolls > 0 {
		c.Harvest.MaxScrolls = f.MaxScrolls
	}
	if f.Attempts > 0 {
		c.Harvest.Attempts = f.Attempts
	}
	if f.Wait > 0 {
		c.Harvest.WaitTimeout = f.Wait
	}
	if f.NoReviews != nil {
		c.Harvest.SkipReviews = *f.NoReviews
	}
	if f.Resume != nil {
		c.Harvest.Resume = *f.Resume
	}
	if f.Output != "" {
		c.Output.Dir = f.Output
	}
	if f.Checkpoint != "" {
		c.Output.CheckpointFile = f.Checkpoint
	}
	if f.LogLevel != "" {
		c.Logging.Level = f.LogLevel
	}
	if f.Metrics != "" {
		c.Metrics.Addr = f.Metrics
	}
}

// SearchTarget 组装搜索目标
func (c *Config) SearchTarget(query string) models.SearchTarget {
	return models.SearchTarget{
		BaseURL:   c.Search.BaseURL,
		Query:     query,
		Latitude:  c.Search.Latitude,
		Longitude: c.Search.Longitude,
		Zoom:      c.Search.Zoom,
		Language:  c.Search.Language,
	}
}

// WaitPolicy 有界等待参数
func (c *Config) WaitPolicy() crawlers.WaitPolicy {
	return crawlers.WaitPolicy{
		Timeout:     c.Harvest.WaitTimeout,
		FieldWait:   c.Harvest.FieldWait,
		Interval:    c.Harvest.PollInterval,
		MaxInterval: c.Harvest.PollInterval * 10,
	}
}

// ListScrollPolicy 结果列表滚动策略
func (c *Config) ListScrollPolicy() crawlers.ScrollPolicy {
	return crawlers.ScrollPolicy{
		MaxSteps:      c.Harvest.MaxScrolls,
		GrowthTimeout: c.Harvest.GrowthTimeout,
		NudgeOffset:   c.Harvest.NudgeOffset,
		NudgePause:    c.Harvest.NudgePause,
	}
}

// ReviewScrollPolicy 评论列表滚动策略,未配置(零值)的项使用默认值
func (c *Config) ReviewScrollPolicy() crawlers.ScrollPolicy {
	def := crawlers.DefaultReviewScrollPolicy()
	p := crawlers.ScrollPolicy{
		MaxSteps:      c.Harvest.ReviewMaxScrolls,
		GrowthTimeout: c.Harvest.ReviewGrowthTimeout,
		NudgeOffset:   c.Harvest.NudgeOffset,
		NudgePause:    c.Harvest.ReviewScrollPause,
		SettlePause:   c.Harvest.ReviewScrollPause,
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = def.MaxSteps
	}
	if p.GrowthTimeout <= 0 {
		p.GrowthTimeout = def.GrowthTimeout
	}
	if p.NudgePause <= 0 {
		p.NudgePause = def.NudgePause
	}
	if p.SettlePause <= 0 {
		p.SettlePause = def.SettlePause
	}
	return p
}

// LogConfig 日志系统参数
func (c *Config) LogConfig(noColor bool) utils.LogConfig {
	return utils.LogConfig{
		Level:      c.Logging.Level,
		LogDir:     c.Logging.LogDir,
		MaxSize:    c.Logging.Rotation.MaxSize,
		MaxBackups: c.Logging.Rotation.MaxBackups,
		MaxAge:     c.Logging.Rotation.MaxAge,
		Compress:   c.Logging.Rotation.Compress,
		NoColor:    noColor,
	}
}

// BrowserOptions 浏览器启动参数
func (c *Config) BrowserOptions() browser.Options {
	return browser.Options{
		Headless:    c.Browser.Headless,
		Bin:         c.Browser.Bin,
		UserDataDir: c.Browser.UserDataDir,
		NoSandbox:   c.Browser.NoSandbox,
		Stealth:     c.Browser.Stealth,
		UserAgent:   c.Browser.UserAgent,
		OpTimeout:   c.Browser.OpTimeout,
		SlowMotion:  c.Browser.SlowMotion,
	}
}

// CheckpointPath 查询对应的检查点文件路径
func (c *Config) CheckpointPath(query string) string {
	name := c.Output.CheckpointFile
	if name == "" {
		name = models.CheckpointFilename(query)
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Output.Dir, name)
}

// ReportsDir 运行报告目录
func (c *Config) ReportsDir() string {
	if filepath.IsAbs(c.Output.ReportDir) {
		return c.Output.ReportDir
	}
	return filepath.Join(c.Output.Dir, c.Output.ReportDir)
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Harvest.MaxScrolls < 1 {
		return fmt.Errorf("max_scrolls必须大于0,当前值: %d", c.Harvest.MaxScrolls)
	}
	if c.Harvest.Attempts < 1 {
		return fmt.Errorf("attempts必须大于0,当前值: %d", c.Harvest.Attempts)
	}
	if c.Harvest.WaitTimeout <= 0 {
		return fmt.Errorf("wait_timeout必须大于0")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("输出目录不能为空")
	}
	return nil
}
