package core

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RecoveryAshes/mapscrawler/internal/models"
	"github.com/RecoveryAshes/mapscrawler/internal/utils"
	"github.com/natefinch/atomic"
)

// CheckpointStore 检查点存储
// 磁盘上的记录序列唯一的写入者;每次追加都完整地 读取-追加-重写,
// 重写通过临时文件+重命名完成,磁盘上永远不会出现写了一半的文档
type CheckpointStore struct {
	path    string
	records []models.Place
}

// NewCheckpointStore 创建检查点存储
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Path 检查点文件路径
func (s *CheckpointStore) Path() string {
	return s.path
}

// Load 读取检查点
// 文件不存在或为空时返回空序列;内容存在但无法解析时返回错误(致命)
func (s *CheckpointStore) Load() ([]models.Place, error) {
	records, err := s.read()
	if err != nil {
		return nil, err
	}
	s.records = records
	return s.Records(), nil
}

func (s *CheckpointStore) read() ([]models.Place, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Place{}, nil
		}
		return nil, fmt.Errorf("读取检查点失败 [%s]: %w", s.path, err)
	}
	records, err := models.DecodePlaces(data)
	if err != nil {
		return nil, fmt.Errorf("解析检查点失败 [%s]: %w", s.path, err)
	}
	return records, nil
}

// Append 追加一条记录并立即持久化
func (s *CheckpointStore) Append(place models.Place) error {
	records, err := s.read()
	if err != nil {
		return err
	}
	records = append(records, place)

	data, err := models.EncodePlaces(records)
	if err != nil {
		return fmt.Errorf("序列化检查点失败: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建检查点目录失败: %w", err)
		}
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("写入检查点失败 [%s]: %w", s.path, err)
	}

	s.records = records
	utils.Debugf("检查点已更新: %s (%d条记录)", s.path, len(records))
	return nil
}

// Records 内存中的记录副本
func (s *CheckpointStore) Records() []models.Place {
	out := make([]models.Place, len(s.records))
	copy(out, s.records)
	return out
}

// Len 记录数
func (s *CheckpointStore) Len() int {
	return len(s.records)
}

// HasName 是否已有同名记录(忽略大小写和首尾空白)
func (s *CheckpointStore) HasName(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	for _, r := range s.records {
		if strings.EqualFold(strings.TrimSpace(r.Name), name) {
			return true
		}
	}
	return false
}
