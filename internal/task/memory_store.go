package task

import (
	"context"
	"sort"
	"sync"
	"time"

	xerrors "DeFi-Agent/internal/errors"
)

const defaultListLimit = 50

// MemoryStore 以内存方式保存任务状态。
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	now   func() time.Time
}

// NewMemoryStore 创建 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*Task), now: time.Now}
}

// Create 保存新任务，ID 重复时返回 ErrTaskConflict。
func (m *MemoryStore) Create(_ context.Context, task *Task) error {
	if task == nil || task.ID == "" {
		return xerrors.New(CodeTaskValidation, "任务 ID 不能为空")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[task.ID]; ok {
		return ErrTaskConflict
	}
	now := m.now().Unix()
	if task.CreatedAt == 0 {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = StatusPending
	}
	m.tasks[task.ID] = cloneTask(task)
	return nil
}

// Get 返回任务副本。
func (m *MemoryStore) Get(_ context.Context, id string) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// Claim 将任务状态更新为运行中。
func (m *MemoryStore) Claim(_ context.Context, id string) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	switch task.Status {
	case StatusSucceeded:
		return cloneTask(task), ErrTaskCompleted
	case StatusRunning:
		return cloneTask(task), ErrTaskConflict
	}
	if task.Attempts >= task.MaxRetries {
		return cloneTask(task), ErrTaskExhausted
	}
	task.Status = StatusRunning
	task.Attempts++
	task.LastError = ""
	task.ErrorCode = ""
	task.UpdatedAt = m.now().Unix()
	return cloneTask(task), nil
}

// MarkSucceeded 记录任务成功。
func (m *MemoryStore) MarkSucceeded(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = StatusSucceeded
	task.LastError = ""
	task.ErrorCode = ""
	task.UpdatedAt = m.now().Unix()
	return nil
}

// MarkFailed 标记任务失败。terminal 为 true 时任务不会再被领取。
func (m *MemoryStore) MarkFailed(_ context.Context, id string, code xerrors.Code, lastError string, terminal bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	task.Status = StatusFailed
	task.LastError = lastError
	task.ErrorCode = string(code)
	if terminal && task.Attempts < task.MaxRetries {
		task.Attempts = task.MaxRetries
	}
	task.UpdatedAt = m.now().Unix()
	return nil
}

// List 按更新时间倒序返回最近的任务。
func (m *MemoryStore) List(_ context.Context, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	m.mu.RLock()
	results := make([]*Task, 0, len(m.tasks))
	for _, task := range m.tasks {
		results = append(results, cloneTask(task))
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].UpdatedAt == results[j].UpdatedAt {
			return results[i].ID > results[j].ID
		}
		return results[i].UpdatedAt > results[j].UpdatedAt
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Prune 删除 before 之前已结束的任务。
func (m *MemoryStore) Prune(_ context.Context, before time.Time) (int, error) {
	cutoff := before.Unix()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, task := range m.tasks {
		if task.Finished() && task.UpdatedAt < cutoff {
			delete(m.tasks, id)
			removed++
		}
	}
	return removed, nil
}

// Close 实现 Store 接口。
func (m *MemoryStore) Close() error {
	return nil
}
