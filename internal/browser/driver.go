// Package browser 定义浏览器自动化能力的最小接口,以及基于go-rod的实现
//
// 上层组件只依赖Driver与Element接口:导航、按选择器查询、执行脚本、点击。
// Element句柄是短暂的,虚拟列表会回收/替换DOM节点,调用方不应跨越等待点保存句柄,
// 而是每次使用前通过稳定的标签(aria-label)重新解析。
package browser

import (
	"context"
	"errors"

	"github.com/ysmood/gson"
)

// ErrStaleElement 句柄对应的DOM节点已被移除或替换
var ErrStaleElement = errors.New("元素句柄已失效")

// Driver 浏览器会话(单页面)
type Driver interface {
	// Navigate 导航到URL并等待页面加载
	Navigate(ctx context.Context, url string) error

	// Elements 在整个文档上执行CSS查询,不等待
	Elements(ctx context.Context, selector string) ([]Element, error)

	// Eval 在页面上下文执行脚本,js为函数表达式,args按位置传入
	Eval(ctx context.Context, js string, args ...any) (gson.JSON, error)
}

// Element 元素句柄
type Element interface {
	// Attribute 读取属性,属性不存在时ok为false
	Attribute(name string) (value string, ok bool, err error)

	// Property 读取DOM属性(如 textContent, src)并转为字符串
	Property(name string) (string, error)

	// Text 元素可见文本
	Text() (string, error)

	// Elements 在元素子树内执行CSS查询(后代)
	Elements(selector string) ([]Element, error)

	// Children 直接子元素
	Children() ([]Element, error)

	// Eval 以元素为this执行脚本,js形如 `() => this.scrollHeight`
	Eval(js string, args ...any) (gson.JSON, error)

	Click() error
	ScrollIntoView() error
	Visible() (bool, error)
}
