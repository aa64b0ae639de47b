package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
)

// Options 浏览器启动参数
type Options struct {
	Headless    bool          // 无头模式
	Bin         string        // 浏览器可执行文件路径,为空时自动查找/下载
	UserDataDir string        // 用户数据目录
	NoSandbox   bool          // 容器环境下需要关闭沙箱
	Stealth     bool          // 使用go-rod/stealth创建页面
	UserAgent   string        // 覆盖User-Agent,为空则保持默认
	OpTimeout   time.Duration // 单个元素操作(点击/滚动)的超时
	SlowMotion  time.Duration // 每个输入操作之间的延迟,便于观察
}

// RodSession 基于go-rod的浏览器会话,实现Driver接口
// 一个会话只持有一个页面,所有组件顺序地共享该页面
type RodSession struct {
	browser *rod.Browser
	page    *rod.Page
	opts    Options
}

// LookPath 查找本机可用的Chrome/Chromium
func LookPath() (string, bool) {
	return launcher.LookPath()
}

// Launch 启动浏览器并创建页面
func Launch(opts Options, headers models.HeaderProvider) (*RodSession, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}

	l := launcher.New().
		Headless(opts.Headless).
		Leakless(false).
		Set("start-maximized").
		Set("disable-blink-features", "AutomationControlled").
		Set("no-first-run").
		Set("no-default-browser-check")

	if opts.NoSandbox {
		l = l.NoSandbox(true)
	}
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		l = l.Bin(path)
	}
	if opts.UserDataDir != "" {
		if err := os.MkdirAll(opts.UserDataDir, 0755); err != nil {
			utils.Warnf("创建用户数据目录失败 [%s]: %v", opts.UserDataDir, err)
		} else {
			l = l.UserDataDir(opts.UserDataDir)
		}
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if opts.SlowMotion > 0 {
		b = b.SlowMotion(opts.SlowMotion)
	}
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}
	utils.Debugf("浏览器已启动: %s", controlURL)

	var page *rod.Page
	if opts.Stealth {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	s := &RodSession{browser: b, page: page, opts: opts}
	if err := s.applyHeaders(headers); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// applyHeaders 将额外请求头部和User-Agent应用到页面
func (s *RodSession) applyHeaders(headers models.HeaderProvider) error {
	if s.opts.UserAgent != "" {
		if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.opts.UserAgent}); err != nil {
			return fmt.Errorf("设置User-Agent失败: %w", err)
		}
	}

	if headers == nil {
		return nil
	}
	h, err := headers.GetHeaders()
	if err != nil {
		return fmt.Errorf("获取请求头部失败: %w", err)
	}

	dict := make([]string, 0, len(h)*2)
	for name, values := range h {
		// User-Agent由SetUserAgent管理,Accept-Encoding交给浏览器协商
		if name == "User-Agent" || name == "Accept-Encoding" {
			continue
		}
		if len(values) > 0 {
			dict = append(dict, name, values[0])
		}
	}
	if len(dict) == 0 {
		return nil
	}
	if _, err := s.page.SetExtraHeaders(dict); err != nil {
		return fmt.Errorf("设置请求头部失败: %w", err)
	}
	utils.Debugf("已应用%d个额外请求头部", len(dict)/2)
	return nil
}

// Close 关闭浏览器
func (s *RodSession) Close() error {
	if s.browser == nil {
		return nil
	}
	err := s.browser.Close()
	s.browser = nil
	utils.Debugf("浏览器已关闭")
	return err
}

// Navigate 实现Driver
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("导航失败 [%s]: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("等待页面加载失败 [%s]: %w", url, err)
	}
	return nil
}

// Elements 实现Driver
func (s *RodSession) Elements(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("查询失败 [%s]: %w", selector, err)
	}
	return s.wrap(els), nil
}

// Eval 实现Driver
func (s *RodSession) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("执行脚本失败: %w", err)
	}
	return res.Value, nil
}

func (s *RodSession) wrap(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, timeout: s.opts.OpTimeout})
	}
	return out
}

// rodElement 包装*rod.Element
type rodElement struct {
	el      *rod.Element
	timeout time.Duration
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Property(name string) (string, error) {
	v, err := e.el.Property(name)
	if err != nil {
		return "", err
	}
	if v.Nil() {
		return "", nil
	}
	return v.Str(), nil
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Elements(selector string) ([]Element, error) {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil, err
	}
	return e.wrap(els), nil
}

func (e *rodElement) Children() ([]Element, error) {
	return e.Elements(":scope > *")
}

func (e *rodElement) Eval(js string, args ...any) (gson.JSON, error) {
	res, err := e.el.Eval(js, args...)
	if err != nil {
		return gson.JSON{}, err
	}
	return res.Value, nil
}

func (e *rodElement) Click() error {
	return e.el.Timeout(e.timeout).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScrollIntoView() error {
	return e.el.Timeout(e.timeout).ScrollIntoView()
}

func (e *rodElement) Visible() (bool, error) {
	return e.el.Visible()
}

func (e *rodElement) wrap(els rod.Elements) []Element {
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el, timeout: e.timeout})
	}
	return out
}
