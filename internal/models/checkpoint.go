package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrCorruptCheckpoint 检查点文件存在但内容无法解析
var ErrCorruptCheckpoint = errors.New("检查点文件已损坏")

// CheckpointFilename 根据查询词生成检查点文件名
func CheckpointFilename(query string) string {
	return fmt.Sprintf("places_%s.json", Slugify(query))
}

// EncodePlaces 将地点序列序列化为单个JSON数组文档
func EncodePlaces(places []Place) ([]byte, error) {
	out := make([]Place, len(places))
	for i, p := range places {
		p.Normalize()
		out[i] = p
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecodePlaces 从JSON数组文档反序列化
// 空文档(或仅含空白)视为空序列;内容存在但无法解析时返回ErrCorruptCheckpoint
func DecodePlaces(data []byte) ([]Place, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []Place{}, nil
	}

	var places []Place
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCheckpoint, err)
	}
	if places == nil {
		places = []Place{}
	}
	for i := range places {
		places[i].Normalize()
	}
	return places, nil
}
