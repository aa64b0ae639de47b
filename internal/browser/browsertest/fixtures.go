package browsertest

import (
	"fmt"
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/RecoveryAshes/mapscrawler/internal/models"
)

// PlaceFixture 一个地点的夹具数据
type PlaceFixture struct {
	Label   string
	Name    string
	Address string
	Phone   string
	Hours   []models.DayHours
	Photo   string
	Rating  string
	Reviews []models.Review

	ReviewPageSize  int  // 每次滚动加载的评论数,0表示全部一次加载
	TruncateReviews bool // 评论正文截断并附带 "See more" 按钮
	NoReviewsTab    bool // 没有评论标签页
	NoReviewList    bool // 评论标签页缺少列表
	BrokenOpen      bool // 点击后详情面板不出现
	FailOpens       int  // 前N次点击不打开面板
	NoHeading       bool // 面板没有标题
	ExtraSiblings   bool // 面板和评论容器中夹杂非div元素
}

var attr = html.EscapeString

// ListEntry 结果列表中的一个条目
func ListEntry(label string) string {
	return fmt.Sprintf(`<div class="entry"><div><a aria-label="%s" href="#"></a><span>%s</span></div></div>`, attr(label), html.EscapeString(label))
}

// EntryChunk 条目与分隔元素交替排列,与结果列表的真实结构一致
func EntryChunk(labels ...string) string {
	var b strings.Builder
	for _, l := range labels {
		b.WriteString(ListEntry(l))
		b.WriteString(`<div class="sep"></div>`)
	}
	return b.String()
}

// ResultsFeed 结果列表容器: 头部两个非条目子元素,其后条目与分隔交替
func ResultsFeed(query string, labels ...string) string {
	return fmt.Sprintf(`<div role="feed" aria-label="Results for %s"><div class="header"></div><div class="header-sep"></div>%s</div>`,
		attr(query), EntryChunk(labels...))
}

// ResultsPage 搜索结果页,包含一个结果列表和详情面板宿主
func ResultsPage(query string, labels ...string) string {
	return Page(ResultsFeed(query, labels...))
}

// Page 用给定内容和详情面板宿主组成完整页面
func Page(content ...string) string {
	return `<html><body>` + strings.Join(content, "") + `<div id="detail"></div></body></html>`
}

// ResultsSelector 结果列表容器选择器
func ResultsSelector(query string) string {
	return fmt.Sprintf(`div[aria-label='Results for %s']`, query)
}

// PanelHTML 详情面板
// 子元素: 0 头部(照片、名称、评论标签), 1 信息区, 2 评论滚动容器
func (p PlaceFixture) PanelHTML() string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div role="main" aria-label="%s">`, attr(p.Label))
	if p.ExtraSiblings {
		b.WriteString(`<span class="toolbar"></span>`)
	}
	b.WriteString(`<div class="header">`)
	if p.Photo != "" {
		fmt.Fprintf(&b, `<button><img decoding="async" src="%s"></button>`, attr(p.Photo))
	}
	if !p.NoHeading {
		fmt.Fprintf(&b, `<h1>%s</h1>`, html.EscapeString(p.Name))
	}
	if !p.NoReviewsTab {
		fmt.Fprintf(&b, `<button role="tab" aria-label="Reviews for %s">Reviews</button>`, attr(p.Label))
	}
	b.WriteString(`</div>`)

	fmt.Fprintf(&b, `<div aria-label="Information for %s">`, attr(p.Label))
	if p.Address != "" {
		fmt.Fprintf(&b, `<button aria-label="Address: %s"></button>`, attr(p.Address))
	}
	if p.Phone != "" {
		fmt.Fprintf(&b, `<button aria-label="Phone: %s"></button>`, attr(p.Phone))
	}
	if len(p.Hours) > 0 {
		b.WriteString(`<div aria-label="Monday, Open. Hide open hours for the week"><table><tbody>`)
		for _, h := range p.Hours {
			fmt.Fprintf(&b, `<tr><td><div>%s</div></td><td aria-label="%s"><span>%s</span></td></tr>`,
				html.EscapeString(h.Day), attr(h.Hours), html.EscapeString(h.Hours))
		}
		b.WriteString(`</tbody></table></div>`)
	}
	b.WriteString(`</div>`)

	if p.ExtraSiblings {
		b.WriteString(`<hr>`)
	}
	b.WriteString(`<div class="scroll"></div></div>`)
	return b.String()
}

// ReviewsTabHTML 评论标签页内容: 0 评分, 1-6 占位, 7 评论列表
func (p PlaceFixture) ReviewsTabHTML(initial []models.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="summary"><div class="fontDisplayLarge">%s</div></div>`, html.EscapeString(p.Rating))
	for i := 0; i < 6; i++ {
		b.WriteString(`<div class="filler"></div>`)
		if p.ExtraSiblings && i == 2 {
			b.WriteString(`<button aria-label="Sort reviews"></button>`)
		}
	}
	if !p.NoReviewList {
		b.WriteString(`<div class="reviews">`)
		b.WriteString(ReviewEntries(0, initial, p.TruncateReviews))
		b.WriteString(`</div>`)
	}
	return b.String()
}

// ReviewEntries 评论条目,offset用于生成唯一的data-review-id
func ReviewEntries(offset int, reviews []models.Review, truncate bool) string {
	var b strings.Builder
	for i, r := range reviews {
		body := html.EscapeString(r.ReviewContent)
		more := ""
		if truncate && len([]rune(r.ReviewContent)) > 10 {
			body = html.EscapeString(string([]rune(r.ReviewContent)[:10])) + "…"
			more = fmt.Sprintf(`<button aria-label="See more" data-full="%s">More</button>`, attr(r.ReviewContent))
		}
		fmt.Fprintf(&b, `<div data-review-id="r%d" aria-label="%s"><div><div>`+
			`<div class="avatar"></div><div class="name"></div><div class="actions"></div>`+
			`<div><div><span role="img" aria-label="%s"></span><span>%s</span></div>`+
			`<div><div><span>%s</span>%s</div></div></div>`+
			`</div></div></div>`,
			offset+i, attr(r.ReviewerName), attr(r.Rating), html.EscapeString(r.ReviewTime), body, more)
	}
	return b.String()
}

// panelSelector 面板选择器
func panelSelector(label string) string {
	return fmt.Sprintf(`div[aria-label='%s']`, label)
}

// Install 构建完整的结果页并注册交互行为
// 初始显示pageSize个条目,其余每次滚动加载pageSize个
func Install(query string, places []PlaceFixture, pageSize int) *DOM {
	labels := make([]string, 0, len(places))
	for _, p := range places {
		labels = append(labels, p.Label)
	}
	if pageSize <= 0 || pageSize > len(labels) {
		pageSize = len(labels)
	}

	d := MustNew(ResultsPage(query, labels[:pageSize]...))

	var chunks []string
	for i := pageSize; i < len(labels); i += pageSize {
		end := i + pageSize
		if end > len(labels) {
			end = len(labels)
		}
		chunks = append(chunks, EntryChunk(labels[i:end]...))
	}
	if len(chunks) > 0 {
		d.OnScroll(ResultsSelector(query), "", chunks...)
	}

	for _, p := range places {
		d.InstallPlace(p)
	}
	return d
}

// InstallPlace 为单个地点注册打开面板、评论标签页和评论滚动加载行为
func (d *DOM) InstallPlace(p PlaceFixture) {
	if strings.Contains(p.Label, "'") {
		// 选择器无法引用该标签,保持条目不可打开
		return
	}

	failures := p.FailOpens
	d.OnClick(fmt.Sprintf(`a[aria-label='%s']`, p.Label), func(d *DOM, _ *goquery.Selection) {
		if p.BrokenOpen {
			return
		}
		if failures > 0 {
			failures--
			return
		}
		d.replaceHTML("#detail", p.PanelHTML())
	})

	if p.NoReviewsTab {
		return
	}

	initial, rest := p.Reviews, []models.Review(nil)
	if p.ReviewPageSize > 0 && p.ReviewPageSize < len(p.Reviews) {
		initial, rest = p.Reviews[:p.ReviewPageSize], p.Reviews[p.ReviewPageSize:]
	}

	scrollSel := panelSelector(p.Label) + ` > div.scroll`
	d.OnClick(fmt.Sprintf(`button[aria-label='Reviews for %s']`, p.Label), func(d *DOM, _ *goquery.Selection) {
		d.replaceHTML(scrollSel, p.ReviewsTabHTML(initial))
	})

	var chunks []string
	offset := len(initial)
	for len(rest) > 0 {
		n := p.ReviewPageSize
		if n > len(rest) {
			n = len(rest)
		}
		chunks = append(chunks, ReviewEntries(offset, rest[:n], p.TruncateReviews))
		offset += n
		rest = rest[n:]
	}
	if len(chunks) > 0 {
		d.OnScroll(scrollSel, "div.reviews", chunks...)
	}
}
