package crawlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
)

// FieldObserver 接收每个字段的提取结果,用于统计
type FieldObserver interface {
	ObserveField(field string, state FieldState)
}

// DetailExtractor 详情提取器
// 不在条目之间保存任何状态,每次调用都按标签重新解析元素
type DetailExtractor struct {
	loc      *Locator
	reviews  *ReviewHarvester
	observer FieldObserver
}

// NewDetailExtractor 创建详情提取器,reviews为nil时不采集评论
func NewDetailExtractor(loc *Locator, reviews *ReviewHarvester, observer FieldObserver) *DetailExtractor {
	return &DetailExtractor{loc: loc, reviews: reviews, observer: observer}
}

// Extract 打开条目并按固定顺序提取所有字段
// 名称 -> 地址 -> 电话 -> 营业时间 -> 照片 -> 评分/评论
// 只有打开失败返回错误交给重试编排器;字段缺失时使用空值,名称也不例外
func (e *DetailExtractor) Extract(ctx context.Context, label string) (models.Place, error) {
	if err := e.Open(ctx, label); err != nil {
		return models.Place{}, err
	}

	name := e.Name(ctx, label)
	e.observe("name", label, name.State, name.Err)
	if !name.Ok() {
		if err := ctx.Err(); err != nil {
			return models.Place{}, err
		}
		utils.Warnf("⚠️ 未能提取名称 [%s],记录名称留空", label)
	}

	address := e.Address(ctx, label)
	e.observe("address", label, address.State, address.Err)

	phone := e.Phone(ctx, label)
	e.observe("phone", label, phone.State, phone.Err)

	hours := e.Hours(ctx, label)
	e.observe("business_hours", label, hours.State, hours.Err)

	photo := e.Photo(ctx, label)
	e.observe("photo", label, photo.State, photo.Err)

	if err := ctx.Err(); err != nil {
		return models.Place{}, err
	}

	place := models.Place{
		Name:          name.OrEmpty(),
		Address:       address.OrEmpty(),
		PhoneNumber:   phone.OrEmpty(),
		BusinessHours: hours.OrEmpty(),
		PhotoLink:     photo.OrEmpty(),
	}

	if e.reviews != nil {
		rating, reviews, err := e.reviews.Harvest(ctx, label)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return models.Place{}, ctxErr
			}
			utils.Warnf("评论采集不完整 [%s]: %v", label, err)
		}
		place.Rate = rating
		place.Reviews = reviews
		state := FieldFound
		if rating == "" {
			state = FieldAbsent
		}
		e.observe("rating", label, state, nil)
	}

	place.Normalize()
	return place, nil
}

// Open 点击条目并等待其详情面板出现
func (e *DetailExtractor) Open(ctx context.Context, label string) error {
	anchor, err := e.loc.Resolve(ctx, label)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", ErrStaleLabel, label, err)
	}

	if err := anchor.ScrollIntoView(); err != nil {
		utils.Debugf("滚动到条目失败 [%s]: %v", label, err)
	}
	if err := anchor.Click(); err != nil {
		// 元素被遮挡或不可交互时退回脚本点击
		utils.Debugf("点击条目失败,改用脚本点击 [%s]: %v", label, err)
		if _, err := anchor.Eval(browser.ScriptClick); err != nil {
			return fmt.Errorf("点击条目失败 [%s]: %w", label, err)
		}
	}

	if _, err := e.loc.ResolvePanel(ctx, label); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %s: %v", ErrPanelNotOpened, label, err)
	}
	return nil
}

// Name 面板中第一个标题的文本
// 标题可能先于文本渲染,在字段等待时间内轮询直到文本非空
func (e *DetailExtractor) Name(ctx context.Context, label string) Field[string] {
	headingSel := fmt.Sprintf(selPanelByLabel, label) + " " + selHeading
	var name string
	err := e.loc.Until(ctx, e.loc.Policy().FieldWait, func() (bool, error) {
		h, err := e.loc.Query(ctx, headingSel)
		if err != nil {
			return false, ignoreNotFound(err)
		}
		text, err := h.Text()
		if err != nil {
			return false, err
		}
		name = strings.TrimSpace(text)
		return name != "", nil
	})
	if err == nil {
		return Found(name)
	}
	if errors.Is(err, ErrWaitTimeout) {
		return Absent[string]()
	}
	return Failed[string](err)
}

// Address 信息区中 "Address: " 前缀按钮的无障碍名称
func (e *DetailExtractor) Address(ctx context.Context, label string) Field[string] {
	query := fmt.Sprintf(selInformation, label) + " " + selAddressButton
	return e.prefixedLabel(ctx, label, query, prefixAddress)
}

// Phone 面板中 "Phone: " 前缀按钮的无障碍名称
func (e *DetailExtractor) Phone(ctx context.Context, label string) Field[string] {
	return e.prefixedLabel(ctx, label, selPhoneButton, prefixPhone)
}

func (e *DetailExtractor) prefixedLabel(ctx context.Context, label, query, prefix string) Field[string] {
	el, err := e.loc.ResolveWithin(ctx, label, query)
	if err != nil {
		return fieldError[string](err)
	}
	v, ok, err := el.Attribute("aria-label")
	if err != nil {
		return Failed[string](err)
	}
	if !ok {
		return Absent[string]()
	}
	_, rest, found := strings.Cut(strings.TrimSpace(v), prefix)
	if !found || strings.TrimSpace(rest) == "" {
		return Absent[string]()
	}
	return Found(strings.TrimSpace(rest))
}

// Hours 展开的一周营业时间表
// 日期取第一个单元格的文本,时间取第二个单元格的无障碍名称(窄不换行空格替换为普通空格)
// 任一字段缺失的行被跳过;整个表格不存在时返回空映射
func (e *DetailExtractor) Hours(ctx context.Context, label string) Field[models.BusinessHours] {
	container, err := e.loc.ResolveWithin(ctx, label, selHoursContainer)
	if err != nil {
		return fieldError[models.BusinessHours](err)
	}
	rows, err := container.Elements(selTableRow)
	if err != nil {
		return Failed[models.BusinessHours](err)
	}

	hours := models.BusinessHours{}
	for _, row := range rows {
		cells, err := row.Elements(selTableCell)
		if err != nil {
			return Failed[models.BusinessHours](err)
		}
		if len(cells) < 2 {
			continue
		}
		day, err := cells[0].Property("textContent")
		if err != nil {
			return Failed[models.BusinessHours](err)
		}
		value, _, err := cells[1].Attribute("aria-label")
		if err != nil {
			return Failed[models.BusinessHours](err)
		}
		day = strings.TrimSpace(day)
		value = strings.TrimSpace(strings.ReplaceAll(value, "\u202f", " "))
		if day == "" || value == "" {
			continue
		}
		hours.Set(day, value)
	}
	return Found(hours)
}

// Photo 面板中第一张异步解码图片的完整地址
func (e *DetailExtractor) Photo(ctx context.Context, label string) Field[string] {
	el, err := e.loc.ResolveWithin(ctx, label, selAsyncImage)
	if err != nil {
		return fieldError[string](err)
	}
	src, err := el.Property("src")
	if err != nil {
		return Failed[string](err)
	}
	if src = strings.TrimSpace(src); src == "" {
		return Absent[string]()
	}
	return Found(src)
}

func (e *DetailExtractor) observe(field, label string, state FieldState, err error) {
	switch state {
	case FieldAbsent:
		utils.Debugf("字段缺失 [%s] %s", label, field)
	case FieldFailed:
		utils.Debugf("字段提取失败 [%s] %s: %v", label, field, err)
	}
	if e.observer != nil {
		e.observer.ObserveField(field, state)
	}
}

// fieldError 未找到视为缺失,其余为失败
func fieldError[T any](err error) Field[T] {
	if errors.Is(err, ErrElementNotFound) {
		return Absent[T]()
	}
	return Failed[T](err)
}
