package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"DeFi-Agent/pkg/logger"
)

// RedisQueueConfig 描述 Redis 队列的参数。
type RedisQueueConfig struct {
	Queue     string
	BlockWait time.Duration
}

// RedisQueue 使用 Redis list 实现任务队列：LPUSH 入队，BRPOP 出队。
type RedisQueue struct {
	client redis.UniversalClient
	queue  string
	wait   time.Duration
}

// NewRedisQueue 基于已有的 Redis 连接创建队列，连接由调用方关闭。
func NewRedisQueue(client redis.UniversalClient, cfg RedisQueueConfig) (*RedisQueue, error) {
	if client == nil {
		return nil, errors.New("未配置 Redis 连接")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "defiagent:jobs"
	}
	wait := cfg.BlockWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &RedisQueue{client: client, queue: queue, wait: wait}, nil
}

// Publish 将任务投递到 Redis。
func (q *RedisQueue) Publish(ctx context.Context, taskID string) error {
	if err := q.client.LPush(ctx, q.queue, taskID).Err(); err != nil {
		return fmt.Errorf("Redis 发布任务失败: %w", err)
	}
	return nil
}

// Consume 通过 BRPOP 获取任务，处理失败时重新投递到队尾。
func (q *RedisQueue) Consume(ctx context.Context, workerCount int, handler Handler) error {
	if workerCount <= 0 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := q.work(ctx, handler); err != nil {
				once.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}()
	}
	wg.Wait()
	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}

func (q *RedisQueue) work(ctx context.Context, handler Handler) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		values, err := q.client.BRPop(ctx, q.wait, q.queue).Result()
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				continue
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, redis.ErrClosed):
				return err
			default:
				return fmt.Errorf("Redis 取任务失败: %w", err)
			}
		}
		if len(values) != 2 {
			continue
		}
		taskID := values[1]
		if handlerErr := handler(ctx, taskID); handlerErr != nil {
			if pushErr := q.client.RPush(ctx, q.queue, taskID).Err(); pushErr != nil {
				logger.L().Error("Redis 重新投递任务失败",
					slog.String("task_id", taskID),
					slog.Any("error", pushErr))
			}
		}
	}
}

// Close 队列不持有连接，Close 为空操作。
func (q *RedisQueue) Close() error {
	return nil
}
