package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/core"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
)

// ValidateConfig 验证合并命令行参数后的配置
func ValidateConfig(cfg *core.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Search.Query != "" {
		if err := models.ValidateQuery(cfg.Search.Query); err != nil {
			return err
		}
	}
	return cfg.SearchTarget("check").Validate()
}

// ValidateQueryFile 验证查询文件路径
func ValidateQueryFile(path string) error {
	if path == "" {
		return fmt.Errorf("查询文件路径不能为空 (使用 -f 指定)")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("查询文件不可用: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("查询文件路径是目录: %s", path)
	}
	return nil
}

// runDoctor 逐项检查运行环境,任何一项失败都返回错误
func runDoctor(cfg *core.Config) error {
	failed := 0
	check := func(name string, err error) {
		if err != nil {
			failed++
			utils.Errorf("❌ %s: %v", name, err)
			return
		}
		utils.Infof("✅ %s", name)
	}

	check("配置", ValidateConfig(cfg))

	bin := cfg.Browser.Bin
	if bin == "" {
		if path, ok := browser.LookPath(); ok {
			bin = path
		}
	}
	if bin == "" {
		check("浏览器", fmt.Errorf("未找到Chrome/Chromium,首次运行时将自动下载,或通过 --browser 指定"))
	} else if _, err := os.Stat(bin); err != nil {
		check("浏览器", fmt.Errorf("%s 不可用: %w", bin, err))
	} else {
		check("浏览器 ("+bin+")", nil)
	}

	hm, err := core.NewHeaderManager(cfg.Browser.Headers, headers)
	if err == nil {
		err = hm.Validate()
	}
	check("请求头部", err)
	if err == nil {
		for name, value := range hm.GetSafeHeaders() {
			utils.Infof("    %s: %s", name, value)
		}
	}

	check("输出目录 ("+cfg.Output.Dir+")", writableDir(cfg.Output.Dir))

	if failed > 0 {
		return fmt.Errorf("%d 项检查未通过", failed)
	}
	utils.Info("✨ 运行环境检查通过")
	return nil
}

func writableDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
