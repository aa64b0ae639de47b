package crawlers

// 页面结构选择器
// 包含%s的选择器以条目标签格式化,标签中不得含有单引号
const (
	selResultsContainer = `div[aria-label='Results for %s']`
	selEntryAnchor      = `a[aria-label]`
	selAnchorByLabel    = `a[aria-label='%s']`
	selPanelByLabel     = `div[aria-label='%s']`
	selInformation      = `div[aria-label='Information for %s']`
	selAddressButton    = `button[aria-label^='Address:']`
	selPhoneButton      = `button[aria-label^='Phone:']`
	selHoursContainer   = `div[aria-label*='Hide open hours for the week']`
	selTableRow         = `table tr`
	selTableCell        = `td`
	selAsyncImage       = `img[decoding='async']`
	selHeading          = `h1`
	selReviewsTab       = `button[aria-label='Reviews for %s']`
	selAggregateRating  = `div.fontDisplayLarge`
	selSeeMore          = `button[aria-label='See more']`
	selChildDivs        = `:scope > div`
)

const (
	prefixAddress = "Address: "
	prefixPhone   = "Phone: "

	// 结果列表前两个子元素为头部,其后条目与分隔元素交替出现
	entryHeaderChildren = 2

	// 以下位置只计div子元素
	// 面板第3个div为评论滚动容器
	reviewsContainerIndex = 2

	// 评论滚动容器第8个div为评论列表
	reviewListIndex = 7
)
