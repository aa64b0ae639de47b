package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/RecoveryAshes/mapscrawler/internal/core"
)

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*core.Config)
		wantErr bool
	}{
		{"默认配置", func(*core.Config) {}, false},
		{"有效查询词", func(c *core.Config) { c.Search.Query = "Cafe X" }, false},
		{"查询词包含单引号", func(c *core.Config) { c.Search.Query = "Joe's" }, true},
		{"缩放级别越界", func(c *core.Config) { c.Search.Zoom = 30 }, true},
		{"纬度越界", func(c *core.Config) { c.Search.Latitude = -100 }, true},
		{"尝试次数为0", func(c *core.Config) { c.Harvest.Attempts = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := core.DefaultConfig()
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateQueryFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "queries.txt")
	if err := os.WriteFile(file, []byte("Cafe\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := ValidateQueryFile(file); err != nil {
		t.Errorf("有效文件不应返回错误: %v", err)
	}
	for _, bad := range []string{"", dir, filepath.Join(dir, "missing.txt")} {
		if err := ValidateQueryFile(bad); err == nil {
			t.Errorf("ValidateQueryFile(%q) 应该返回错误", bad)
		}
	}
}

func TestWritableDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	if err := writableDir(dir); err != nil {
		t.Fatalf("writableDir() error = %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("探测文件应被删除, 剩余 %d 个", len(entries))
	}
}
