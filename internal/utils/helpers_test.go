package utils

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestReadQueriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.txt")
	content := "# 河内咖啡\nCafe X\n\n  Pho  \nJoe's Diner\nCafe X\nBun Cha\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入查询文件失败: %v", err)
	}

	queries, err := ReadQueriesFromFile(path)
	if err != nil {
		t.Fatalf("读取查询文件失败: %v", err)
	}

	want := []string{"Cafe X", "Pho", "Bun Cha"}
	if !reflect.DeepEqual(queries, want) {
		t.Errorf("ReadQueriesFromFile() = %v, 期望 %v", queries, want)
	}
}

func TestReadQueriesFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := ReadQueriesFromFile(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("文件不存在时应该返回错误")
	}

	onlyComments := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(onlyComments, []byte("# nothing\n\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadQueriesFromFile(onlyComments); err == nil {
		t.Error("没有有效查询词时应该返回错误")
	}
}

func TestSleepContext(t *testing.T) {
	if err := SleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("正常等待不应返回错误: %v", err)
	}
	if err := SleepContext(context.Background(), 0); err != nil {
		t.Fatalf("零时长不应返回错误: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := SleepContext(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望context.Canceled, 实际: %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("取消后应立即返回")
	}
	if err := SleepContext(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("零时长也应返回取消错误, 实际: %v", err)
	}
}
