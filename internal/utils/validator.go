package utils

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
)

// MaxHeaderValueLength 头部值最大长度 (8KB)
const MaxHeaderValueLength = 8192

// BrowserManagedHeaders 由浏览器自己维护的头部,通过额外头部覆盖会破坏页面加载
var BrowserManagedHeaders = []string{
	"Host",
	"Content-Length",
	"Transfer-Encoding",
	"Connection",
	"Cookie",
}

var (
	headerNameRe  = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	headerValueRe = regexp.MustCompile(`^[\x20-\x7E\t]*$`)
)

// HeaderValidator 校验浏览器额外请求头部
type HeaderValidator struct {
	managed map[string]bool
}

// NewHeaderValidator 创建校验器
func NewHeaderValidator() *HeaderValidator {
	managed := make(map[string]bool, len(BrowserManagedHeaders))
	for _, h := range BrowserManagedHeaders {
		managed[strings.ToLower(h)] = true
	}
	return &HeaderValidator{managed: managed}
}

// ValidateName 头部名称只允许字母、数字和连字符
func (hv *HeaderValidator) ValidateName(name string) error {
	switch {
	case name == "":
		return &models.ValidationError{Field: "name", Reason: "头部名称不能为空"}
	case !headerNameRe.MatchString(name):
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "头部名称包含非法字符",
			Suggestion: "仅使用字母、数字和连字符,如 'Accept-Language'",
		}
	}
	return nil
}

// ValidateValue 头部值必须是可打印ASCII且不超过MaxHeaderValueLength
func (hv *HeaderValidator) ValidateValue(name, value string) error {
	if len(value) > MaxHeaderValueLength {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     fmt.Sprintf("头部值过长: %d 字节 (最大 %d)", len(value), MaxHeaderValueLength),
		}
	}
	if !headerValueRe.MatchString(value) {
		return &models.ValidationError{
			Field:      "value",
			HeaderName: name,
			Reason:     "头部值包含非法字符",
			Suggestion: "移除控制字符和非ASCII字符",
		}
	}
	return nil
}

// ValidateHeader 校验单个头部
func (hv *HeaderValidator) ValidateHeader(name, value string) error {
	if hv.IsForbidden(name) {
		return &models.ValidationError{
			Field:      "name",
			HeaderName: name,
			Reason:     "该头部由浏览器管理,不允许覆盖",
			Suggestion: fmt.Sprintf("移除 '%s'", name),
		}
	}
	if err := hv.ValidateName(name); err != nil {
		return err
	}
	return hv.ValidateValue(name, value)
}

// IsForbidden 是否为浏览器管理的头部(不区分大小写)
func (hv *HeaderValidator) IsForbidden(name string) bool {
	return hv.managed[strings.ToLower(name)]
}

// Validate 返回第一个非法头部的错误
func (hv *HeaderValidator) Validate(headers http.Header) error {
	for name, values := range headers {
		for _, value := range values {
			if err := hv.ValidateHeader(name, value); err != nil {
				return err
			}
		}
	}
	return nil
}
