package crawlers

import "fmt"

// FieldState 字段提取结果状态
type FieldState int

const (
	FieldAbsent FieldState = iota // 页面上不存在该字段,是合法的空值
	FieldFound                    // 成功提取
	FieldFailed                   // 定位或读取出错
)

func (s FieldState) String() string {
	switch s {
	case FieldFound:
		return "found"
	case FieldAbsent:
		return "absent"
	case FieldFailed:
		return "failed"
	}
	return fmt.Sprintf("FieldState(%d)", int(s))
}

// Field 单个字段的提取结果
// 字段缺失是一个值而不是错误,调用方无需通过捕获"未找到"来判断空值
type Field[T any] struct {
	Value T
	State FieldState
	Err   error
}

// Found 构造成功结果
func Found[T any](v T) Field[T] {
	return Field[T]{Value: v, State: FieldFound}
}

// Absent 构造缺失结果
func Absent[T any]() Field[T] {
	return Field[T]{State: FieldAbsent}
}

// Failed 构造失败结果
func Failed[T any](err error) Field[T] {
	return Field[T]{State: FieldFailed, Err: err}
}

// Ok 是否成功提取
func (f Field[T]) Ok() bool {
	return f.State == FieldFound
}

// OrEmpty 成功时返回值,否则返回零值
func (f Field[T]) OrEmpty() T {
	if f.State == FieldFound {
		return f.Value
	}
	var zero T
	return zero
}
