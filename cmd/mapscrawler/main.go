package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/core"
	"github.com/RecoveryAshes/mapscrawler/internal/crawlers"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile  string
	logLevel    string
	headers     []string
	noWait      bool
	metricsAddr string

	// 搜索参数
	query      string
	latitude   float64
	longitude  float64
	zoom       int
	headless   bool
	browserBin string

	// 采集参数
	maxScrolls int
	attempts   int
	waitTime   time.Duration
	noReviews  bool
	resume     bool
	outputDir  string
	checkpoint string

	// 批量参数
	queryFile       string
	batchDelay      time.Duration
	continueOnError bool

	// 导出参数
	exportInput  string
	exportOutput string
	exportFormat string
)

// appConfig 在PersistentPreRunE中加载并合并命令行参数
var appConfig *core.Config

var rootCmd = &cobra.Command{
	Use:   "mapscrawler",
	Short: "Google Maps 地点与评论采集工具",
	Long: `mapscrawler - Google Maps 地点与评论采集工具

在给定的地理视口内搜索查询词,逐个打开结果列表中的地点,提取:
  • 名称、地址、电话、营业时间、照片
  • 综合评分和全部评论
每条成功的记录立即追加到检查点文件,中断后重新运行会跳过已保存的地点。

示例:
  mapscrawler -q "Cafe" --lat 21.020833 --lon 105.511944 --zoom 14
  mapscrawler batch -f queries.txt --headless
  mapscrawler export -q "Cafe"

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}
		config.MergeCLIFlags(cliFlags(cmd))
		appConfig = config

		if err := utils.InitLogger(config.LogConfig(!isatty.IsTerminal(os.Stdout.Fd()))); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if appConfig.Search.Query == "" {
			return cmd.Help()
		}
		if err := ValidateConfig(appConfig); err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		return withSession(appConfig, func(driver browser.Driver, metrics *core.Metrics, monitor *crawlers.ResourceMonitor) error {
			crawler, err := core.NewCrawler(appConfig, driver, appConfig.Search.Query, metrics)
			if err != nil {
				return err
			}
			crawler.SetResourceMonitor(monitor)

			report, err := crawler.Run(ctx)
			if err != nil {
				return err
			}
			utils.Infof("✨ 采集完成! 检查点: %s", report.CheckpointFile)
			return nil
		})
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "按查询文件批量采集,每个查询一个检查点",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ValidateQueryFile(queryFile); err != nil {
			return err
		}
		if err := ValidateConfig(appConfig); err != nil {
			return err
		}
		if cmd.Flags().Changed("delay") {
			appConfig.Batch.Delay = batchDelay
		}
		if cmd.Flags().Changed("continue-on-error") {
			appConfig.Batch.ContinueOnError = continueOnError
		}

		queries, err := utils.ReadQueriesFromFile(queryFile)
		if err != nil {
			return err
		}

		ctx, stop := signalContext()
		defer stop()

		return withSession(appConfig, func(driver browser.Driver, metrics *core.Metrics, monitor *crawlers.ResourceMonitor) error {
			bc := core.NewBatchCrawler(appConfig, driver, metrics)
			bc.SetResourceMonitor(monitor)

			summary, err := bc.CrawlBatch(ctx, queries)
			if err != nil {
				return fmt.Errorf("批量采集失败: %w", err)
			}
			if summary.FailCount > 0 {
				utils.Warnf("⚠️ %d 个查询失败", summary.FailCount)
			}
			utils.Info("✨ 批量采集任务完成!")
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "将检查点导出为CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportFormat != "csv" {
			return fmt.Errorf("不支持的导出格式: %s (有效值: csv)", exportFormat)
		}

		input := exportInput
		if input == "" {
			if appConfig.Search.Query == "" {
				return fmt.Errorf("请通过 --input 指定检查点文件,或通过 -q 指定查询词")
			}
			input = appConfig.CheckpointPath(appConfig.Search.Query)
		}

		_, _, err := utils.ExportCheckpointCSV(input, exportOutput)
		return err
	},
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "检查运行环境: 浏览器、配置、请求头部、输出目录",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDoctor(appConfig)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mapscrawler %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
	},
}

func init() {
	// 全局参数
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "配置文件路径")
	pf.StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")
	pf.StringSliceVarP(&headers, "header", "H", []string{}, "额外请求头部,格式: 'Name: Value',可多次指定")
	pf.BoolVar(&noWait, "no-wait", false, "致命错误后不等待回车直接退出")
	pf.StringVar(&metricsAddr, "metrics", "", "Prometheus指标监听地址 (如 :9090)")
	pf.StringVarP(&query, "query", "q", "", "搜索查询词")
	pf.Float64Var(&latitude, "lat", 0, "视口中心纬度 (默认取配置)")
	pf.Float64Var(&longitude, "lon", 0, "视口中心经度 (默认取配置)")
	pf.IntVar(&zoom, "zoom", 0, "缩放级别 1-21 (默认取配置)")
	pf.BoolVar(&headless, "headless", false, "无头浏览器模式")
	pf.StringVar(&browserBin, "browser", "", "Chrome/Chromium可执行文件路径")
	pf.IntVar(&maxScrolls, "max-scrolls", 0, "结果列表最大滚动次数")
	pf.IntVar(&attempts, "attempts", 0, "每个地点的最大尝试次数")
	pf.DurationVar(&waitTime, "wait", 0, "等待元素出现的超时 (如 10s)")
	pf.BoolVar(&noReviews, "no-reviews", false, "不采集评论")
	pf.BoolVar(&resume, "resume", true, "跳过检查点中已保存的地点")
	pf.StringVarP(&outputDir, "output", "o", "", "输出目录")
	pf.StringVar(&checkpoint, "checkpoint", "", "检查点文件名 (默认 places_<查询词>.json)")

	// 批量参数
	batchCmd.Flags().StringVarP(&queryFile, "file", "f", "", "查询文件,每行一个查询词")
	batchCmd.Flags().DurationVar(&batchDelay, "delay", 0, "查询之间的延迟 (如 5s)")
	batchCmd.Flags().BoolVar(&continueOnError, "continue-on-error", true, "查询失败时继续处理下一个")

	// 导出参数
	exportCmd.Flags().StringVarP(&exportInput, "input", "i", "", "检查点文件路径")
	exportCmd.Flags().StringVar(&exportOutput, "out", "", "导出文件路径 (默认与检查点同名.csv)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "导出格式")

	rootCmd.AddCommand(batchCmd, exportCmd, doctorCmd, versionCmd)
}

// cliFlags 收集显式指定的命令行参数
func cliFlags(cmd *cobra.Command) core.CLIFlags {
	changed := cmd.Flags().Changed
	f := core.CLIFlags{
		Query:      query,
		Zoom:       zoom,
		MaxScrolls: maxScrolls,
		Attempts:   attempts,
		Wait:       waitTime,
		Output:     outputDir,
		Checkpoint: checkpoint,
		Browser:    browserBin,
		LogLevel:   logLevel,
		Metrics:    metricsAddr,
	}
	if changed("lat") {
		f.Latitude = &latitude
	}
	if changed("lon") {
		f.Longitude = &longitude
	}
	if changed("headless") {
		f.Headless = &headless
	}
	if changed("no-reviews") {
		f.NoReviews = &noReviews
	}
	if changed("resume") {
		f.Resume = &resume
	}
	return f
}

// signalContext Ctrl+C/SIGTERM取消运行,已持久化的记录保持不变
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			utils.Warnf("收到中断信号: %v, 正在停止...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// session 浏览器会话,测试中可替换为内存实现
type session interface {
	browser.Driver
	Close() error
}

var (
	launchSession = func(opts browser.Options, hp models.HeaderProvider) (session, error) {
		s, err := browser.Launch(opts, hp)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	acknowledge = waitForAck
	ackOnce     sync.Once
)

// acknowledgeOnce 一次进程内最多询问一次
func acknowledgeOnce() {
	ackOnce.Do(acknowledge)
}

// withSession 启动浏览器、指标端点和资源监控,执行fn后全部关闭
// fn返回致命错误时先等待操作者确认再关闭浏览器,窗口保持可检查
func withSession(cfg *core.Config, fn func(browser.Driver, *core.Metrics, *crawlers.ResourceMonitor) error) error {
	headerManager, err := core.NewHeaderManager(cfg.Browser.Headers, headers)
	if err != nil {
		return fmt.Errorf("解析请求头部失败: %w", err)
	}
	if err := headerManager.Validate(); err != nil {
		return err
	}

	metrics := core.NewMetrics()
	server := core.StartMetricsServer(cfg.Metrics.Addr, metrics)
	defer server.Shutdown()

	monitor := crawlers.NewResourceMonitor(crawlers.DefaultResourceMonitorConfig())
	monitor.StartMonitoring(5 * time.Second)
	defer monitor.StopMonitoring()

	utils.Info("🌐 启动浏览器...")
	sess, err := launchSession(cfg.BrowserOptions(), headerManager)
	if err != nil {
		return err
	}
	defer sess.Close()

	err = fn(sess, metrics, monitor)
	if err != nil && !errors.Is(err, context.Canceled) {
		// 错误已由采集器记录到日志
		acknowledgeOnce()
	}
	return err
}

// waitForAck 致命错误后等待操作者确认,避免窗口一闪而过
func waitForAck() {
	if noWait || !isatty.IsTerminal(os.Stdin.Fd()) {
		return
	}
	fmt.Fprint(os.Stderr, "Press Enter to exit...")
	_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		if !errors.Is(err, context.Canceled) {
			// 浏览器会话内的错误已在关闭前确认过
			acknowledgeOnce()
		}
		os.Exit(1)
	}
}
