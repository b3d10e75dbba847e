package task

import (
	"context"
	"time"

	xerrors "DeFi-Agent/internal/errors"
)

// Store 抽象了任务状态的持久化接口。
type Store interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	// Claim 将任务置为运行中并增加尝试次数。
	Claim(ctx context.Context, id string) (*Task, error)
	MarkSucceeded(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, terminal bool) error
	// List 按更新时间倒序返回最近的任务。
	List(ctx context.Context, limit int) ([]*Task, error)
	// Prune 删除 before 之前已结束的任务，返回删除数量。
	Prune(ctx context.Context, before time.Time) (int, error)
	Close() error
}
