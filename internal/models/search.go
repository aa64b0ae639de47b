package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// LocatorBreakingChar 会破坏属性选择器引号的字符
// 含有该字符的标签和查询词无法被可靠地重新定位
const LocatorBreakingChar = "'"

// SearchTarget 搜索目标(查询词 + 地理视口)
type SearchTarget struct {
	BaseURL   string  `json:"base_url"`
	Query     string  `json:"query"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
	Language  string  `json:"language"`
}

// URL 组装导航地址: {base}/search/{term}/@{lat},{lon},{zoom}z?hl={lang}
func (t SearchTarget) URL() string {
	return BuildSearchURL(t.BaseURL, t.Query, t.Latitude, t.Longitude, t.Zoom, t.Language)
}

// Validate 验证搜索目标
func (t SearchTarget) Validate() error {
	if err := ValidateURL(t.BaseURL); err != nil {
		return fmt.Errorf("无效的基础URL: %w", err)
	}
	if err := ValidateQuery(t.Query); err != nil {
		return err
	}
	if t.Latitude < -90 || t.Latitude > 90 {
		return fmt.Errorf("纬度必须在-90到90之间,当前值: %v", t.Latitude)
	}
	if t.Longitude < -180 || t.Longitude > 180 {
		return fmt.Errorf("经度必须在-180到180之间,当前值: %v", t.Longitude)
	}
	if t.Zoom < 1 || t.Zoom > 21 {
		return fmt.Errorf("缩放级别必须在1-21之间,当前值: %d", t.Zoom)
	}
	return nil
}

// BuildSearchURL 组装搜索地址,查询词做路径转义
func BuildSearchURL(base, query string, lat, lon float64, zoom int, lang string) string {
	if lang == "" {
		lang = "en"
	}
	return fmt.Sprintf("%s/search/%s/@%s,%s,%dz?hl=%s",
		strings.TrimRight(base, "/"),
		url.PathEscape(query),
		strconv.FormatFloat(lat, 'f', -1, 64),
		strconv.FormatFloat(lon, 'f', -1, 64),
		zoom,
		url.QueryEscape(lang),
	)
}

// ValidateQuery 验证查询词
// 结果容器按 "Results for {query}" 定位,查询词同样不能包含引号
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("查询词不能为空")
	}
	if strings.Contains(query, LocatorBreakingChar) {
		return fmt.Errorf("查询词不能包含字符 %q: %s", LocatorBreakingChar, query)
	}
	return nil
}
