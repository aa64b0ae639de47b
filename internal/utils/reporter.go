package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/natefinch/atomic"
	"github.com/schollz/progressbar/v3"
)

// Reporter 运行报告生成器
type Reporter struct {
	reportsDir string
}

// NewReporter 创建报告生成器
func NewReporter(reportsDir string) *Reporter {
	return &Reporter{reportsDir: reportsDir}
}

// Path 报告文件路径: run_<id>.json
func (r *Reporter) Path(runID string) string {
	return filepath.Join(r.reportsDir, fmt.Sprintf("run_%s.json", runID))
}

// Save 保存运行报告
func (r *Reporter) Save(report *models.RunReport) (string, error) {
	if err := os.MkdirAll(r.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}

	path := r.Path(report.RunID)
	data, err := report.ToJSON()
	if err != nil {
		return "", fmt.Errorf("序列化报告失败: %w", err)
	}
	if err := atomic.WriteFile(path, bytesReader(data)); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// SaveJSON 保存任意JSON文档(批量汇总等)
func (r *Reporter) SaveJSON(filename string, data interface{}) (string, error) {
	if err := os.MkdirAll(r.reportsDir, 0755); err != nil {
		return "", fmt.Errorf("创建报告目录失败: %w", err)
	}
	path := filepath.Join(r.reportsDir, filename)

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化JSON失败: %w", err)
	}
	if err := atomic.WriteFile(path, bytesReader(jsonData)); err != nil {
		return "", fmt.Errorf("写入报告文件失败: %w", err)
	}

	Debugf("保存报告: %s", path)
	return path, nil
}

// LoadReport 读取运行报告
func LoadReport(path string) (*models.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取报告失败: %w", err)
	}
	var report models.RunReport
	if err := report.FromJSON(data); err != nil {
		return nil, fmt.Errorf("解析报告失败: %w", err)
	}
	return &report, nil
}

// NewProgressBar 创建进度条
func NewProgressBar(max int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(max,
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}
