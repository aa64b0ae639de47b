package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// CliHeaders 命令行 -H 传入的 "Name: Value" 列表
type CliHeaders []string

// Parse 解析为http.Header,同名头部后出现的覆盖先出现的
func (ch CliHeaders) Parse() (http.Header, error) {
	result := make(http.Header, len(ch))
	for i, s := range ch {
		name, value, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: 缺少冒号分隔符,应为 'Name: Value'", i+1)
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("参数 --header 第%d项格式错误: %w", i+1, errEmptyHeaderName)
		}
		result.Set(name, strings.TrimSpace(value))
	}
	return result, nil
}

var errEmptyHeaderName = errors.New("头部名称不能为空")

// HeaderProvider 浏览器页面的额外请求头部来源
// GetHeaders返回的头部已按 默认 < 配置 < 命令行 合并并通过校验
type HeaderProvider interface {
	GetHeaders() (http.Header, error)
}

// ValidationError 单个头部校验失败
type ValidationError struct {
	Field      string // "name" 或 "value"
	HeaderName string
	Reason     string
	Suggestion string
}

func (e *ValidationError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("头部验证失败 [%s]: %s", e.HeaderName, e.Reason)
	}
	return fmt.Sprintf("头部验证失败 [%s]: %s (建议: %s)", e.HeaderName, e.Reason, e.Suggestion)
}

// ConfigError 配置文件读取或解析失败
type ConfigError struct {
	FilePath string
	Cause    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("配置文件错误 [%s]: %v", e.FilePath, e.Cause)
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}
