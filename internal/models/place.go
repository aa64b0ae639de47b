package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Review 单条评论
// Rating 保留页面渲染的原始文本(如 "5 stars"),不解析为数字
type Review struct {
	ReviewerName  string `json:"reviewer_name"`  // 评论者(取自评论条目的aria-label)
	ReviewTime    string `json:"review_time"`    // 相对时间文本(如 "2 weeks ago")
	Rating        string `json:"rating"`         // 评分文本
	ReviewContent string `json:"review_content"` // 评论正文,无正文时为空
}

// Place 单个地点的提取结果
// 除Name外所有字段缺失时使用空值哨兵;名称非空的部分结果仍然是有效结果
type Place struct {
	Name          string        `json:"name"`
	Address       string        `json:"address"`
	BusinessHours BusinessHours `json:"business_hours"`
	PhoneNumber   string        `json:"phone_number"`
	PhotoLink     string        `json:"photo_link"`
	Rate          string        `json:"rate"`
	Reviews       []Review      `json:"reviews"`
}

// Normalize 将nil集合替换为空集合,保证序列化结果为 {} / [] 而不是 null
func (p *Place) Normalize() {
	if p.BusinessHours == nil {
		p.BusinessHours = BusinessHours{}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
}

// IsEmpty 名称为空表示提取失败
func (p *Place) IsEmpty() bool {
	return p.Name == ""
}

// DayHours 某一天的营业时间
type DayHours struct {
	Day   string
	Hours string
}

// BusinessHours 有序的 星期 -> 营业时间 映射
// 序列化为JSON对象,键顺序与页面表格行顺序一致
type BusinessHours []DayHours

// Get 返回某天的营业时间
func (h BusinessHours) Get(day string) (string, bool) {
	for _, d := range h {
		if d.Day == day {
			return d.Hours, true
		}
	}
	return "", false
}

// Set 设置某天的营业时间,已存在时原位覆盖
func (h *BusinessHours) Set(day, hours string) {
	for i := range *h {
		if (*h)[i].Day == day {
			(*h)[i].Hours = hours
			return
		}
	}
	*h = append(*h, DayHours{Day: day, Hours: hours})
}

// MarshalJSON 实现json.Marshaler,保持行顺序
func (h BusinessHours) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(d.Day)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(d.Hours)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON 实现json.Unmarshaler,按文档中的键顺序还原
func (h *BusinessHours) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*h = BusinessHours{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("营业时间必须是JSON对象,实际为: %v", tok)
	}

	result := BusinessHours{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		day, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("营业时间键必须是字符串: %v", keyTok)
		}
		var hours string
		if err := dec.Decode(&hours); err != nil {
			return fmt.Errorf("营业时间 [%s] 解析失败: %w", day, err)
		}
		result.Set(day, hours)
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*h = result
	return nil
}
