package defiagent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

// KV is the storage backend of Persisted.
type KV interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// MemoryKV keeps values in process memory.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return append([]byte(nil), v...), ok, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileKV stores every key in a single JSON object on disk.
type FileKV struct {
	mu   sync.Mutex
	path string
}

// NewFileKV returns a FileKV backed by path. The file is created on first write.
func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) load() (map[string]jsoniter.RawMessage, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]jsoniter.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	values := map[string]jsoniter.RawMessage{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return values, nil
}

func (f *FileKV) save(values map[string]jsoniter.RawMessage) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	return []byte(v), ok, nil
}

func (f *FileKV) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = jsoniter.RawMessage(value)
	return f.save(values)
}

func (f *FileKV) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	delete(values, key)
	return f.save(values)
}

// Persisted holds a state value and mirrors it to a KV under a fixed key.
// Only the fields kept by partialize are written.
type Persisted[T any] struct {
	mu         sync.RWMutex
	key        string
	kv         KV
	state      T
	partialize func(T) T
}

// NewPersisted creates a store with the initial state and hydrates it from kv.
// A nil partialize persists the whole state.
func NewPersisted[T any](kv KV, key string, initial T, partialize func(T) T) (*Persisted[T], error) {
	if partialize == nil {
		partialize = func(v T) T { return v }
	}
	p := &Persisted[T]{key: key, kv: kv, state: initial, partialize: partialize}
	if err := p.hydrate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Persisted[T]) hydrate() error {
	raw, ok, err := p.kv.Get(p.key)
	if err != nil || !ok || len(raw) == 0 {
		return err
	}
	state := p.state
	if err := json.Unmarshal(raw, &state); err != nil {
		return fmt.Errorf("hydrate %s: %w", p.key, err)
	}
	// 旧版本或其他写入方可能存了瞬态字段，加载时同样过滤。
	p.state = p.partialize(state)
	return nil
}

// Get returns the current state.
func (p *Persisted[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Update applies fn to the state and persists the result.
func (p *Persisted[T]) Update(fn func(*T)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.state
	fn(&next)
	raw, err := json.Marshal(p.partialize(next))
	if err != nil {
		return err
	}
	if err := p.kv.Set(p.key, raw); err != nil {
		return err
	}
	p.state = next
	return nil
}

// Clear removes the persisted copy and resets the state to initial.
func (p *Persisted[T]) Clear(initial T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kv.Delete(p.key); err != nil {
		return err
	}
	p.state = initial
	return nil
}
