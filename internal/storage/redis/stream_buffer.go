package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"DeFi-Agent/internal/chat"
)

const defaultStreamTTL = 10 * time.Minute

// StreamBuffer 将 SSE 帧追加到 stream:<id> 列表，完成后写入 stream:<id>:done 标记。
type StreamBuffer struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewStreamBuffer 创建流缓冲区，ttl 不大于 0 时使用 10 分钟。
func NewStreamBuffer(client redis.Cmdable, ttl time.Duration) *StreamBuffer {
	if ttl <= 0 {
		ttl = defaultStreamTTL
	}
	return &StreamBuffer{client: client, ttl: ttl}
}

func framesKey(streamID string) string { return "stream:" + streamID }
func doneKey(streamID string) string   { return "stream:" + streamID + ":done" }

// Append 追加一帧并刷新过期时间。
func (b *StreamBuffer) Append(ctx context.Context, streamID string, frame []byte) error {
	key := framesKey(streamID)
	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, key, frame)
	pipe.Expire(ctx, key, b.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("Redis 追加流数据失败: %w", err)
	}
	return nil
}

// Complete 标记流已结束。
func (b *StreamBuffer) Complete(ctx context.Context, streamID string) error {
	if err := b.client.Set(ctx, doneKey(streamID), "1", b.ttl).Err(); err != nil {
		return fmt.Errorf("Redis 标记流结束失败: %w", err)
	}
	return nil
}

// Replay 返回已缓冲的帧，流不存在时返回 nil。
func (b *StreamBuffer) Replay(ctx context.Context, streamID string) (*chat.Replay, error) {
	values, err := b.client.LRange(ctx, framesKey(streamID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("Redis 读取流数据失败: %w", err)
	}
	if len(values) == 0 {
		return nil, nil
	}
	done := true
	if err := b.client.Get(ctx, doneKey(streamID)).Err(); err != nil {
		if !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("Redis 读取流状态失败: %w", err)
		}
		done = false
	}
	replay := &chat.Replay{Done: done, Frames: make([][]byte, 0, len(values))}
	for _, value := range values {
		replay.Frames = append(replay.Frames, []byte(value))
	}
	return replay, nil
}

// Prune 依赖 Redis 过期机制，无需主动清理。
func (b *StreamBuffer) Prune(context.Context) int { return 0 }

var _ chat.StreamBuffer = (*StreamBuffer)(nil)
