package ingredients

import (
	"fmt"
	"strings"
	"sync"

	"recipe-suggester/internal/pkg/common"

	"go.uber.org/zap"
)

// 信心度分級門檻
const (
	HighConfidence   = 0.75
	MediumConfidence = 0.5
)

// ConfidenceLevel 依信心度分級，使用者新增的食材回傳空字串
func ConfidenceLevel(confidence *float64) string {
	if confidence == nil {
		return ""
	}
	switch c := *confidence; {
	case c >= HighConfidence:
		return "high"
	case c >= MediumConfidence:
		return "medium"
	default:
		return "low"
	}
}

// Buffer 尚未送出的食材清單，不會被保存
type Buffer struct {
	mu    sync.Mutex
	items []common.Ingredient
}

// NewBuffer 以既有食材創建
func NewBuffer(items []common.Ingredient) *Buffer {
	b := &Buffer{}
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			continue
		}
		b.items = append(b.items, item)
	}
	return b
}

// Parse 解析 ingredients_json；格式錯誤時回傳空清單，不回傳錯誤
func Parse(payload string) *Buffer {
	if strings.TrimSpace(payload) == "" {
		return NewBuffer(nil)
	}
	var detected common.DetectedIngredients
	if err := common.ParseJSON(payload, &detected); err != nil {
		common.LogWarn("食材資料格式錯誤，使用空清單", zap.Error(err))
		return NewBuffer(nil)
	}
	return NewBuffer(detected.Ingredients)
}

// FromJob 由已完成的偵測任務初始化
func FromJob(job common.Job) *Buffer {
	if job.Status != common.JobStatusCompleted || job.Payload == nil {
		common.LogWarn("偵測任務沒有結果，使用空清單",
			zap.Int64("job_id", job.ID),
			zap.String("status", string(job.Status)),
		)
		return NewBuffer(nil)
	}
	return Parse(*job.Payload)
}

// Add 新增食材，名稱去除空白後為空則忽略
func (b *Buffer) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, common.Ingredient{Name: name})
	return true
}

// Rename 修改指定位置的名稱，保留信心度
func (b *Buffer) Rename(index int, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return common.NewValidationError("ingredient name cannot be empty")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.items) {
		return common.NewValidationError(fmt.Sprintf("ingredient index %d out of range", index))
	}
	b.items[index].Name = name
	return nil
}

// Remove 移除指定位置
func (b *Buffer) Remove(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.items) {
		return common.NewValidationError(fmt.Sprintf("ingredient index %d out of range", index))
	}
	b.items = append(b.items[:index], b.items[index+1:]...)
	return nil
}

// Items 目前清單的複本
func (b *Buffer) Items() []common.Ingredient {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]common.Ingredient, len(b.items))
	for i, item := range b.items {
		if item.Confidence != nil {
			item.Confidence = common.Float64Ptr(*item.Confidence)
		}
		out[i] = item
	}
	return out
}

// Len 食材數量
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}
