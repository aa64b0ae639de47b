// Package browsertest 提供基于goquery的内存浏览器,实现browser.Driver
//
// DOM由HTML夹具构建,CSS查询由cascadia完成。滚动到底部时按规则追加内容以模拟
// 虚拟列表的增量加载;点击按注册的处理函数修改DOM。被替换出文档的节点对应的句柄
// 在后续操作中返回browser.ErrStaleElement。
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/ysmood/gson"
	"golang.org/x/net/html"
)

// ClickHandler 点击处理函数,在持有DOM锁时调用
// 处理函数内不能再调用SetHTML、Remove等加锁的方法
type ClickHandler func(d *DOM, clicked *goquery.Selection)

type growthRule struct {
	scrollSel string
	targetSel string
	chunks    []string
	next      int
	generate  func(step int) string
}

type clickRule struct {
	selector string
	fn       ClickHandler
}

// DOM 内存浏览器
type DOM struct {
	mu     sync.Mutex
	doc    *goquery.Document
	growth []*growthRule
	clicks []clickRule

	// 记录,供断言使用
	Navigated   []string
	Scrolls     int
	Nudges      int
	ScrolledTop int
	Clicked     []string

	// NavigateErr 非nil时Navigate返回该错误
	NavigateErr error
}

var _ browser.Driver = (*DOM)(nil)

// New 从HTML构建DOM
func New(doc string) (*DOM, error) {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("解析夹具HTML失败: %w", err)
	}
	return &DOM{doc: d}, nil
}

// MustNew 同New,失败时panic
func MustNew(doc string) *DOM {
	d, err := New(doc)
	if err != nil {
		panic(err)
	}
	return d
}

// OnScroll 每次targetSel所在的scrollSel容器滚动到底部时,向targetSel追加下一块内容
// targetSel为空时追加到滚动容器自身
func (d *DOM) OnScroll(scrollSel, targetSel string, chunks ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.growth = append(d.growth, &growthRule{scrollSel: scrollSel, targetSel: targetSel, chunks: chunks})
}

// OnScrollForever 每次滚动都追加新内容,模拟永不稳定的虚拟列表
func (d *DOM) OnScrollForever(scrollSel string, generate func(step int) string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.growth = append(d.growth, &growthRule{scrollSel: scrollSel, generate: generate})
}

// OnClick 注册点击处理函数
func (d *DOM) OnClick(selector string, fn ClickHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clicks = append(d.clicks, clickRule{selector: selector, fn: fn})
}

// SetHTML 替换匹配元素的内容(旧子节点脱离文档)
// ClickHandler已持有锁,处理函数内部应使用replaceHTML
func (d *DOM) SetHTML(selector, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replaceHTML(selector, content)
}

// replaceHTML 调用方必须持有d.mu
func (d *DOM) replaceHTML(selector, content string) {
	d.doc.Find(selector).SetHtml(content)
}

// Remove 删除匹配元素
func (d *DOM) Remove(selector string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc.Find(selector).Remove()
}

// Count 返回选择器匹配数量
func (d *DOM) Count(selector string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Find(selector).Length()
}

// Navigate 实现browser.Driver
func (d *DOM) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Navigated = append(d.Navigated, url)
	return d.NavigateErr
}

// Elements 实现browser.Driver
func (d *DOM) Elements(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.wrap(d.doc.Find(selector)), nil
}

// Eval 实现browser.Driver,页面级脚本不产生效果
func (d *DOM) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	if err := ctx.Err(); err != nil {
		return gson.JSON{}, err
	}
	return gson.New(nil), nil
}

func (d *DOM) wrap(s *goquery.Selection) []browser.Element {
	out := make([]browser.Element, 0, s.Length())
	for _, n := range s.Nodes {
		out = append(out, &element{dom: d, node: n})
	}
	return out
}

// element 单个节点的句柄
type element struct {
	dom  *DOM
	node *html.Node
}

// live 返回节点对应的Selection,节点已脱离文档时返回ErrStaleElement
// 调用方必须持有dom.mu
func (e *element) live() (*goquery.Selection, error) {
	s := e.dom.doc.FindNodes(e.node)
	if s.Length() == 0 {
		return nil, browser.ErrStaleElement
	}
	return s, nil
}

func (e *element) Attribute(name string) (string, bool, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return "", false, err
	}
	v, ok := s.Attr(name)
	return v, ok, nil
}

func (e *element) Property(name string) (string, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return "", err
	}
	switch name {
	case "textContent", "innerText":
		return s.Text(), nil
	default:
		return s.AttrOr(name, ""), nil
	}
}

func (e *element) Text() (string, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return "", err
	}
	return s.Text(), nil
}

func (e *element) Elements(selector string) ([]browser.Element, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return nil, err
	}
	// cascadia不支持:scope,直接子元素查询单独处理
	if rest, ok := strings.CutPrefix(selector, ":scope > "); ok {
		return e.dom.wrap(s.ChildrenFiltered(rest)), nil
	}
	return e.dom.wrap(s.Find(selector)), nil
}

func (e *element) Children() ([]browser.Element, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return nil, err
	}
	return e.dom.wrap(s.Children()), nil
}

func (e *element) Eval(js string, args ...any) (gson.JSON, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return gson.JSON{}, err
	}

	switch js {
	case browser.ScriptScrollHeight:
		return gson.New(float64(s.Find("*").Length() * 10)), nil
	case browser.ScriptScrollToBottom:
		e.dom.Scrolls++
		e.dom.grow(s)
		return gson.New(nil), nil
	case browser.ScriptScrollToTop:
		e.dom.ScrolledTop++
		return gson.New(nil), nil
	case browser.ScriptScrollBy:
		e.dom.Nudges++
		return gson.New(nil), nil
	case browser.ScriptClick:
		e.dom.click(s)
		return gson.New(nil), nil
	case browser.ScriptReviewEntries:
		return gson.New(extractReviews(s)), nil
	}
	return gson.JSON{}, fmt.Errorf("不支持的脚本: %.40s", js)
}

func (e *element) Click() error {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return err
	}
	if _, hidden := s.Attr("data-hidden"); hidden {
		return errors.New("元素不可交互")
	}
	e.dom.click(s)
	return nil
}

func (e *element) ScrollIntoView() error {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	_, err := e.live()
	return err
}

func (e *element) Visible() (bool, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	s, err := e.live()
	if err != nil {
		return false, err
	}
	_, hidden := s.Attr("data-hidden")
	return !hidden, nil
}

// grow 应用匹配的增长规则
func (d *DOM) grow(scrolled *goquery.Selection) {
	for _, r := range d.growth {
		if !scrolled.Is(r.scrollSel) {
			continue
		}
		target := scrolled
		if r.targetSel != "" {
			target = scrolled.Find(r.targetSel)
		}
		switch {
		case r.generate != nil:
			target.AppendHtml(r.generate(r.next))
			r.next++
		case r.next < len(r.chunks):
			target.AppendHtml(r.chunks[r.next])
			r.next++
		}
	}
}

// click 执行内置行为和注册的处理函数
func (d *DOM) click(s *goquery.Selection) {
	label, _ := s.Attr("aria-label")
	d.Clicked = append(d.Clicked, label)

	// "See more" 按钮: 用完整文本替换截断文本
	if full, ok := s.Attr("data-full"); ok {
		s.Parent().ChildrenFiltered("span").First().SetText(full)
		s.Remove()
		return
	}

	for _, r := range d.clicks {
		if s.Is(r.selector) {
			r.fn(d, s)
		}
	}
}

// extractReviews 按与ScriptReviewEntries相同的结构路径提取评论
func extractReviews(list *goquery.Selection) []any {
	out := []any{}
	list.ChildrenFiltered("div[data-review-id]").Each(func(_ int, entry *goquery.Selection) {
		block := entry.ChildrenFiltered("div").First().
			ChildrenFiltered("div").First().
			ChildrenFiltered("div").Eq(3)
		meta := block.ChildrenFiltered("div").Eq(0)
		body := block.ChildrenFiltered("div").Eq(1).ChildrenFiltered("div").First().ChildrenFiltered("span").First()

		out = append(out, map[string]any{
			"reviewer": entry.AttrOr("aria-label", ""),
			"rating":   meta.ChildrenFiltered("span").Eq(0).AttrOr("aria-label", ""),
			"time":     strings.TrimSpace(meta.ChildrenFiltered("span").Eq(1).Text()),
			"body":     strings.TrimSpace(body.Text()),
		})
	})
	return out
}
