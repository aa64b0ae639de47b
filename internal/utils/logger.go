package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	mainLogName  = "mapscrawler.log"
	errorLogName = "mapscrawler_error.log"

	// 运行上下文字段,与 reports/run_<id>.json 对应
	fieldRunID = "run_id"
	fieldQuery = "query"
)

// LogConfig 日志配置
type LogConfig struct {
	Level      string
	LogDir     string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // 天
	Compress   bool
	NoColor    bool // 非终端环境关闭控制台着色
}

// DefaultLogConfig 默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		LogDir:     "logs",
		MaxSize:    10,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}
}

// rootLog 由InitLogger创建;runLog在rootLog基础上附加当前运行的字段
// 未初始化时两者均为零值,所有输出被丢弃
var (
	logMu   sync.RWMutex
	rootLog zerolog.Logger
	runLog  zerolog.Logger
)

func (c LogConfig) rotating(name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(c.LogDir, name),
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

// InitLogger 初始化日志系统
// 控制台只显示消息本身;主日志记录全部级别并携带运行字段,错误日志只记录error及以上
func InitLogger(config LogConfig) error {
	if err := os.MkdirAll(config.LogDir, 0755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	console := zerolog.ConsoleWriter{
		Out:           os.Stdout,
		TimeFormat:    time.RFC3339,
		NoColor:       config.NoColor,
		FieldsExclude: []string{fieldRunID, fieldQuery},
	}
	w := zerolog.MultiLevelWriter(
		console,
		config.rotating(mainLogName),
		&FilteredWriter{Writer: config.rotating(errorLogName), MinLevel: zerolog.ErrorLevel},
	)

	// 经由emit多出两层调用
	l := zerolog.New(w).With().
		Timestamp().
		CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 2).
		Logger()

	logMu.Lock()
	rootLog, runLog = l, l
	logMu.Unlock()
	log.Logger = l

	Debugf("日志系统初始化完成: level=%s dir=%s", level, config.LogDir)
	return nil
}

// WithRun 之后的日志携带运行ID和查询词,返回的函数恢复之前的日志器
// 批量模式下各查询顺序执行,每次运行开始时调用一次
func WithRun(runID, query string) (restore func()) {
	logMu.Lock()
	prev := runLog
	runLog = rootLog.With().Str(fieldRunID, runID).Str(fieldQuery, query).Logger()
	logMu.Unlock()

	return func() {
		logMu.Lock()
		runLog = prev
		logMu.Unlock()
	}
}

// FilteredWriter 只写入MinLevel及以上级别的日志
type FilteredWriter struct {
	Writer   io.Writer
	MinLevel zerolog.Level
}

// Write 无级别信息的写入被丢弃
func (w *FilteredWriter) Write(p []byte) (int, error) {
	return len(p), nil
}

func (w *FilteredWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < w.MinLevel {
		return len(p), nil
	}
	return w.Writer.Write(p)
}

func emit(level zerolog.Level, err error, msg string) {
	logMu.RLock()
	l := runLog
	logMu.RUnlock()

	e := l.WithLevel(level)
	if err != nil {
		e = e.Err(err)
	}
	e.Msg(msg)
}

// Info 等快捷方法写入当前运行的日志器
func Info(msg string) { emit(zerolog.InfoLevel, nil, msg) }

func Warn(msg string) { emit(zerolog.WarnLevel, nil, msg) }

func Debug(msg string) { emit(zerolog.DebugLevel, nil, msg) }

func Error(err error, msg string) { emit(zerolog.ErrorLevel, err, msg) }

func Infof(format string, args ...any) { emit(zerolog.InfoLevel, nil, fmt.Sprintf(format, args...)) }

func Warnf(format string, args ...any) { emit(zerolog.WarnLevel, nil, fmt.Sprintf(format, args...)) }

func Debugf(format string, args ...any) { emit(zerolog.DebugLevel, nil, fmt.Sprintf(format, args...)) }

func Errorf(format string, args ...any) { emit(zerolog.ErrorLevel, nil, fmt.Sprintf(format, args...)) }
