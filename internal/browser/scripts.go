package browser

// 页面内脚本
// 均为函数表达式,通过Element.Eval执行时this绑定到目标元素
const (
	// ScriptScrollHeight 读取容器内容高度
	ScriptScrollHeight = `() => this.scrollHeight`

	// ScriptScrollToBottom 将容器滚动到底部
	ScriptScrollToBottom = `() => this.scrollTo(0, this.scrollHeight)`

	// ScriptScrollToTop 将容器滚动回顶部
	ScriptScrollToTop = `() => this.scrollTo(0, 0)`

	// ScriptScrollBy 容器相对滚动(负数向上)
	ScriptScrollBy = `(offset) => this.scrollBy(0, offset)`

	// ScriptClick 脚本点击,不要求元素可交互
	ScriptClick = `() => this.click()`

	// ScriptReviewEntries 批量提取评论列表中的所有条目
	// 每个条目返回 {reviewer, rating, time, body},缺失的子字段为空字符串
	ScriptReviewEntries = `() => {
		var pick = function (root, path) {
			try {
				return root.querySelector(path);
			} catch (e) {
				return null;
			}
		};
		var out = [];
		var entries = this.querySelectorAll(':scope > div[data-review-id]');
		for (var i = 0; i < entries.length; i++) {
			var e = entries[i];
			var block = pick(e, ':scope > div > div > div:nth-of-type(4)');
			var rating = block ? pick(block, ':scope > div:nth-of-type(1) > span:nth-of-type(1)') : null;
			var when = block ? pick(block, ':scope > div:nth-of-type(1) > span:nth-of-type(2)') : null;
			var body = block ? pick(block, ':scope > div:nth-of-type(2) > div > span') : null;
			out.push({
				reviewer: e.getAttribute('aria-label') || '',
				rating: rating ? (rating.getAttribute('aria-label') || '') : '',
				time: when ? (when.textContent || '').trim() : '',
				body: body ? (body.textContent || '').trim() : ''
			});
		}
		return out;
	}`
)
