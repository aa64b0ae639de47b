package crawlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/RecoveryAshes/mapscrawler/internal/browser"
	"github.com/RecoveryAshes/mapscrawler/internal/browser/browsertest"
	"github.com/stretchr/testify/require"
)

// TestHarvestLoadsAllPages 滚动加载全部分页,标签按列表顺序输出
func TestHarvestLoadsAllPages(t *testing.T) {
	var places []browsertest.PlaceFixture
	for _, l := range []string{"Cafe A", "Cafe B", "Cafe C", "Cafe D", "Cafe E"} {
		places = append(places, fullPlace(l))
	}
	d := browsertest.Install("Cafe", places, 2)

	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(10))
	labels, err := h.Harvest(context.Background(), "Cafe")
	require.NoError(t, err)
	require.Equal(t, []string{"Cafe A", "Cafe B", "Cafe C", "Cafe D", "Cafe E"}, labels)

	// 两次增长 + 一次无增长
	require.Equal(t, 3, h.LastScrollSteps())
	require.Equal(t, 1, d.Nudges, "无增长时应执行一次纠偏滚动")
	require.Equal(t, 1, d.ScrolledTop, "采集结束后应滚动回顶部")
}

// TestHarvestLabelsUniqueAndOrdered 重复条目只保留第一次出现,重复捕获不追加
func TestHarvestLabelsUniqueAndOrdered(t *testing.T) {
	d := browsertest.MustNew(browsertest.ResultsPage("q", "B", "A", "B", "C", "A"))
	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(3))

	labels, err := h.Harvest(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A", "C"}, labels)

	again, err := h.CaptureLabels(context.Background(), browsertest.ResultsSelector("q"))
	require.NoError(t, err)
	require.Equal(t, labels, again)
	require.Equal(t, labels, h.Labels())
}

// TestHarvestExcludesApostropheLabels 含单引号的标签不会出现在结果中
func TestHarvestExcludesApostropheLabels(t *testing.T) {
	d := browsertest.MustNew(browsertest.ResultsPage("q", "Cafe A", "Joe's Diner", "Cafe B"))
	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(3))

	labels, err := h.Harvest(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"Cafe A", "Cafe B"}, labels)
	for _, l := range labels {
		require.NotContains(t, l, "'")
	}
}

// TestHarvestSkipsHeaderAndSpacerChildren 只有第3个及之后的偶数位子元素被视为条目
func TestHarvestSkipsHeaderAndSpacerChildren(t *testing.T) {
	page := `<html><body><div aria-label="Results for q">` +
		`<div><a aria-label="Sponsored"></a></div>` +
		`<div><a aria-label="Header"></a></div>` +
		`<div><a aria-label="First"></a></div>` +
		`<div><a aria-label="Spacer"></a></div>` +
		`<div><a aria-label="Second"></a></div>` +
		`<div></div>` +
		`<div><span>no anchor</span></div>` +
		`</div></body></html>`
	d := browsertest.MustNew(page)
	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(2))

	labels, err := h.Harvest(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, []string{"First", "Second"}, labels)
}

// TestHarvestTerminatesOnEndlessList 永不稳定的列表在步数上限处结束
func TestHarvestTerminatesOnEndlessList(t *testing.T) {
	d := browsertest.MustNew(browsertest.ResultsPage("q", "seed"))
	d.OnScrollForever(browsertest.ResultsSelector("q"), func(step int) string {
		return browsertest.EntryChunk(fmt.Sprintf("generated %d", step))
	})

	const maxSteps = 4
	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(maxSteps))

	labels, err := h.Harvest(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, maxSteps, h.LastScrollSteps())
	require.Equal(t, maxSteps, d.Scrolls)
	require.Len(t, labels, maxSteps+1)
}

// TestHarvestMissingContainerIsFatal 结果容器不出现时返回致命错误
func TestHarvestMissingContainerIsFatal(t *testing.T) {
	d := browsertest.MustNew(`<html><body><div aria-label="Results for other"></div></body></html>`)
	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(3))

	labels, err := h.Harvest(context.Background(), "q")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrResultsNotFound))
	require.Nil(t, labels)
}

// TestHarvestCancelled 取消的上下文直接返回
func TestHarvestCancelled(t *testing.T) {
	d := browsertest.MustNew(browsertest.ResultsPage("q", "A"))
	h := NewListHarvester(NewLocator(d, testWaitPolicy()), testScrollPolicy(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.Harvest(ctx, "q")
	require.ErrorIs(t, err, context.Canceled)
}

func TestAcceptLabel(t *testing.T) {
	tests := []struct {
		label    string
		expected bool
	}{
		{"Cafe X", true},
		{"Phở Hà Nội", true},
		{"Joe's", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		if got := AcceptLabel(tt.label); got != tt.expected {
			t.Errorf("AcceptLabel(%q) = %v, 期望 %v", tt.label, got, tt.expected)
		}
	}
}

// TestGrowScrollFailsWhenContainerNeverResolves 容器始终无法解析时返回错误
func TestGrowScrollFailsWhenContainerNeverResolves(t *testing.T) {
	d := browsertest.MustNew(`<html><body></body></html>`)
	loc := NewLocator(d, testWaitPolicy())
	resolve := func(ctx context.Context) (browser.Element, error) {
		return nil, browser.ErrStaleElement
	}

	steps, err := GrowScroll(context.Background(), loc, resolve, testScrollPolicy(3))
	require.Error(t, err)
	require.Equal(t, 0, steps)
}

// TestGrowScrollToleratesStaleContainer 失效的容器句柄只消耗步数,重新解析后继续增长
func TestGrowScrollToleratesStaleContainer(t *testing.T) {
	ctx := context.Background()
	d := browsertest.MustNew(`<html><body><div id="host"><div class="list"><p>1</p><p>2</p></div></div></body></html>`)
	loc := NewLocator(d, testWaitPolicy())

	old, err := loc.Query(ctx, "div.list")
	require.NoError(t, err)
	d.SetHTML("#host", `<div class="list"><p>1</p><p>2</p></div>`)
	_, err = old.Eval(browser.ScriptScrollHeight)
	require.ErrorIs(t, err, browser.ErrStaleElement)

	d.OnScroll("div.list", "", "<p>3</p>")

	// 交替返回失效句柄和新解析的句柄
	calls := 0
	resolve := func(ctx context.Context) (browser.Element, error) {
		calls++
		if calls%2 == 0 {
			return old, nil
		}
		return loc.Query(ctx, "div.list")
	}

	steps, err := GrowScroll(ctx, loc, resolve, testScrollPolicy(6))
	require.NoError(t, err)
	require.Equal(t, 4, steps)
	require.Equal(t, 3, d.Count("div.list p"))
}
