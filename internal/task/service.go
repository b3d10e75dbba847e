package task

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	xerrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/pkg/logger"
)

const defaultMaxRetries = 3

// Service 负责任务的创建与查询。
type Service struct {
	store      Store
	producer   Producer
	maxRetries int
}

// NewService 构造任务服务。
func NewService(store Store, producer Producer, maxRetries int) *Service {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Service{store: store, producer: producer, maxRetries: maxRetries}
}

// Submit 创建一个新的任务并推送到队列。
func (s *Service) Submit(ctx context.Context, kind Kind, payload map[string]any) (*Task, error) {
	if strings.TrimSpace(string(kind)) == "" {
		return nil, xerrors.New(CodeTaskValidation, "任务类型不能为空")
	}
	if s == nil || s.store == nil || s.producer == nil {
		return nil, xerrors.New(CodeTaskValidation, "任务服务未初始化")
	}

	task := &Task{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    clonePayload(payload),
		Status:     StatusPending,
		MaxRetries: s.maxRetries,
	}
	if err := s.store.Create(ctx, task); err != nil {
		return nil, err
	}
	if err := s.producer.Publish(ctx, task.ID); err != nil {
		logger.L().Error("任务入队失败", slog.Any("error", err), slog.String("task_id", task.ID))
		wrapped := xerrors.Wrap(CodeTaskPublish, err, "发布任务到队列失败")
		_ = s.store.MarkFailed(ctx, task.ID, CodeTaskPublish, wrapped.Error(), true)
		return nil, wrapped
	}
	logger.Audit().Info("任务入队成功",
		slog.String("task_id", task.ID),
		slog.String("kind", string(kind)),
		slog.Int("max_retries", task.MaxRetries),
	)
	return task, nil
}

// Get 返回指定任务的状态。
func (s *Service) Get(ctx context.Context, id string) (*Task, error) {
	return s.store.Get(ctx, id)
}

// List 返回最近的任务。
func (s *Service) List(ctx context.Context, limit int) ([]*Task, error) {
	return s.store.List(ctx, limit)
}

// Prune 清理 retention 之前已结束的任务。
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int, error) {
	return s.store.Prune(ctx, time.Now().Add(-retention))
}

// Close 释放资源。
func (s *Service) Close() error {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			return err
		}
	}
	if s.producer != nil {
		return s.producer.Close()
	}
	return nil
}

// WaitUntilCompleted 轮询任务状态，直到任务结束或 ctx 结束。
func (s *Service) WaitUntilCompleted(ctx context.Context, id string, interval time.Duration) (*Task, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		task, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if task.Finished() {
			return task, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
