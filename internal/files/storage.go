package files

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// Storage 保存上传的对象并返回可公开访问的 URL。
type Storage interface {
	Put(ctx context.Context, key, contentType string, size int64, body io.Reader) (string, error)
}

// Object 是内存存储中的一个对象。
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStorage 把对象保存在进程内存中。
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

// NewMemoryStorage 创建内存存储，baseURL 用于拼接返回的地址。
func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://uploads"
	}
	return &MemoryStorage{baseURL: baseURL, objects: make(map[string]Object)}
}

// Put 实现 Storage。
func (m *MemoryStorage) Put(ctx context.Context, key, contentType string, _ int64, body io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	m.mu.Lock()
	m.objects[key] = Object{ContentType: contentType, Data: buf.Bytes()}
	m.mu.Unlock()
	return m.baseURL + "/" + key, nil
}

// Get 返回已保存的对象。
func (m *MemoryStorage) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}
