package chat

import (
	"context"
	"sync"
	"time"
)

// Replay 是某个流已缓冲的帧。Done 表示流已经结束。
type Replay struct {
	Frames [][]byte
	Done   bool
}

// StreamBuffer 保存流式输出的帧，以便断线后重放。
type StreamBuffer interface {
	Append(ctx context.Context, streamID string, frame []byte) error
	Complete(ctx context.Context, streamID string) error
	// Replay 返回已缓冲的帧，流不存在或已过期时返回 nil。
	Replay(ctx context.Context, streamID string) (*Replay, error)
	// Prune 清理过期的流，返回清理数量。
	Prune(ctx context.Context) int
}

const defaultBufferTTL = 10 * time.Minute

type bufferedStream struct {
	frames    [][]byte
	done      bool
	touchedAt time.Time
}

// MemoryBuffer 是进程内的 StreamBuffer，未配置 Redis 时使用。
type MemoryBuffer struct {
	mu      sync.Mutex
	ttl     time.Duration
	streams map[string]*bufferedStream
	now     func() time.Time
}

// NewMemoryBuffer 创建内存缓冲区，ttl 不大于 0 时使用 10 分钟。
func NewMemoryBuffer(ttl time.Duration) *MemoryBuffer {
	if ttl <= 0 {
		ttl = defaultBufferTTL
	}
	return &MemoryBuffer{ttl: ttl, streams: make(map[string]*bufferedStream), now: time.Now}
}

// Append 追加一帧。
func (b *MemoryBuffer) Append(_ context.Context, streamID string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[streamID]
	if !ok || b.expired(s) {
		s = &bufferedStream{}
		b.streams[streamID] = s
	}
	s.frames = append(s.frames, append([]byte(nil), frame...))
	s.touchedAt = b.now()
	return nil
}

// Complete 标记流结束。
func (b *MemoryBuffer) Complete(_ context.Context, streamID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[streamID]
	if !ok {
		s = &bufferedStream{}
		b.streams[streamID] = s
	}
	s.done = true
	s.touchedAt = b.now()
	return nil
}

// Replay 返回帧的副本。
func (b *MemoryBuffer) Replay(_ context.Context, streamID string) (*Replay, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[streamID]
	if !ok || b.expired(s) || len(s.frames) == 0 {
		return nil, nil
	}
	frames := make([][]byte, len(s.frames))
	copy(frames, s.frames)
	return &Replay{Frames: frames, Done: s.done}, nil
}

// Prune 删除过期的流。
func (b *MemoryBuffer) Prune(context.Context) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	removed := 0
	for id, s := range b.streams {
		if b.expired(s) {
			delete(b.streams, id)
			removed++
		}
	}
	return removed
}

func (b *MemoryBuffer) expired(s *bufferedStream) bool {
	return b.now().Sub(s.touchedAt) > b.ttl
}
