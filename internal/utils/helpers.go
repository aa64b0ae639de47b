package utils

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// ReadQueriesFromFile 从文件中读取查询词列表
// 每行一个查询词,跳过空行和#注释行,重复的查询词只保留第一次出现
func ReadQueriesFromFile(filepath string) ([]string, error) {
	file, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("打开查询文件失败: %w", err)
	}
	defer file.Close()

	queries := make([]string, 0)
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.Contains(line, "'") {
			Warnf("跳过包含单引号的查询词 (行 %d): %s", lineNum, line)
			continue
		}

		if _, dup := seen[line]; dup {
			Debugf("跳过重复的查询词 (行 %d): %s", lineNum, line)
			continue
		}
		seen[line] = struct{}{}
		queries = append(queries, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取查询文件失败: %w", err)
	}

	if len(queries) == 0 {
		return nil, fmt.Errorf("查询文件中没有有效的查询词")
	}

	Infof("从文件加载了 %d 个查询词", len(queries))
	return queries, nil
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// SleepContext 等待d或ctx取消,d<=0时立即返回ctx的状态
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
