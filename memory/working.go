package memory

import (
	"fmt"
	"strings"
	"sync"
)

// workingItem 工作记忆中的一个键值对
type workingItem struct {
	value      any
	importance Importance
}

// Working 任务范围的键值上下文
type Working struct {
	mu    sync.RWMutex
	items map[string]workingItem
}

// NewWorking 创建工作记忆
func NewWorking() *Working {
	return &Working{items: make(map[string]workingItem)}
}

// Set 写入一个键值对及其重要性
func (w *Working) Set(key string, value any, importance Importance) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items[key] = workingItem{value: value, importance: importance}
}

// Get 读取键值；第二返回值报告键是否存在
func (w *Working) Get(key string) (any, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	it, ok := w.items[key]
	if !ok {
		return nil, false
	}
	return it.value, true
}

// Has 报告键是否存在
func (w *Working) Has(key string) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.items[key]
	return ok
}

// Delete 删除键
func (w *Working) Delete(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.items, key)
}

// Clear 清空全部键值对
func (w *Working) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = make(map[string]workingItem)
}

// Len 返回键值对数量
func (w *Working) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.items)
}

// search 按键名或值的字符串表示做子串匹配
func (w *Working) search(query string) []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	q := strings.ToLower(query)
	var out []string
	for key, it := range w.items {
		rendered := fmt.Sprintf("%s: %v", key, it.value)
		if strings.Contains(strings.ToLower(rendered), q) {
			out = append(out, rendered)
		}
	}
	return out
}
