package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"DeFi-Agent/internal/chat"
	"DeFi-Agent/pkg/logger"
)

type jobPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int, error)
}

type limiterPruner interface {
	PruneLimiters() int
}

type janitorTargets struct {
	buffer   chat.StreamBuffer
	jobs     jobPruner
	server   limiterPruner
	schedule string
	taskTTL  time.Duration
}

type sweepResult struct {
	streams, limiters, tasks int
}

func (r sweepResult) total() int {
	return r.streams + r.limiters + r.tasks
}

// sweep 执行一轮清理，任务清理失败只记录日志。
func (t janitorTargets) sweep(ctx context.Context, lg *slog.Logger) sweepResult {
	var res sweepResult
	if t.buffer != nil {
		res.streams = t.buffer.Prune(ctx)
	}
	if t.server != nil {
		res.limiters = t.server.PruneLimiters()
	}
	if t.jobs != nil {
		tasks, err := t.jobs.Prune(ctx, t.taskTTL)
		if err != nil {
			lg.Warn("清理任务失败", slog.Any("error", err))
		}
		res.tasks = tasks
	}
	return res
}

// startJanitor 定期清理过期的流缓冲、已结束任务与空闲限流记录。
func startJanitor(ctx context.Context, t janitorTargets) (*cron.Cron, error) {
	lg := logger.Named("janitor")
	c := cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(t.schedule, func() {
		if res := t.sweep(ctx, lg); res.total() > 0 {
			lg.Debug("已清理过期数据",
				slog.Int("streams", res.streams),
				slog.Int("limiters", res.limiters),
				slog.Int("tasks", res.tasks),
			)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}
