package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/natefinch/atomic"
)

// CSVHeader 导出文件的表头
var CSVHeader = []string{"name", "address", "phone_number", "photo_link", "rate", "business_hours", "review_count"}

// JoinHours 营业时间按行顺序拼接为 "Monday: 7 AM–5 PM; Tuesday: ..."
func JoinHours(h models.BusinessHours) string {
	parts := make([]string, 0, len(h))
	for _, d := range h {
		parts = append(parts, d.Day+": "+d.Hours)
	}
	return strings.Join(parts, "; ")
}

// WritePlacesCSV 每个地点一行
func WritePlacesCSV(w io.Writer, places []models.Place) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}
	for _, p := range places {
		record := []string{
			p.Name,
			p.Address,
			p.PhoneNumber,
			p.PhotoLink,
			p.Rate,
			JoinHours(p.BusinessHours),
			strconv.Itoa(len(p.Reviews)),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("写入CSV记录失败 [%s]: %w", p.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCheckpointCSV 读取检查点并导出为CSV,返回导出的记录数
// dst为空时写到检查点同目录的同名.csv文件
func ExportCheckpointCSV(src, dst string) (string, int, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", 0, fmt.Errorf("读取检查点失败: %w", err)
	}
	places, err := models.DecodePlaces(data)
	if err != nil {
		return "", 0, fmt.Errorf("解析检查点失败 [%s]: %w", src, err)
	}

	if dst == "" {
		dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".csv"
	}
	if dir := filepath.Dir(dst); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", 0, fmt.Errorf("创建导出目录失败: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := WritePlacesCSV(&buf, places); err != nil {
		return "", 0, err
	}
	if err := atomic.WriteFile(dst, &buf); err != nil {
		return "", 0, fmt.Errorf("写入导出文件失败 [%s]: %w", dst, err)
	}

	Infof("📤 已导出 %d 条记录: %s", len(places), dst)
	return dst, len(places), nil
}
