package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	xerrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/observability/alerting"
	"DeFi-Agent/pkg/logger"
)

// Executor 执行某一类后台任务。
type Executor interface {
	Execute(ctx context.Context, task *Task) error
}

// ExecutorFunc 将普通函数适配为 Executor。
type ExecutorFunc func(ctx context.Context, task *Task) error

// Execute 实现 Executor。
func (f ExecutorFunc) Execute(ctx context.Context, task *Task) error {
	return f(ctx, task)
}

// Outcome 是一次任务处理的结果标签。
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
)

// Observer 接收任务处理结果，通常用于指标统计。
type Observer func(kind Kind, outcome Outcome)

// Processor 从队列消费任务，并交给按类型注册的执行器。
type Processor struct {
	store       Store
	consumer    Consumer
	producer    Producer
	workerCount int
	logger      *slog.Logger
	observer    Observer
	alerts      alerting.Dispatcher

	mu        sync.RWMutex
	executors map[Kind]Executor
}

// ProcessorOption 定义可选配置。
type ProcessorOption func(*Processor)

// WithProcessorLogger 指定日志输出。
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithWorkerCount 设置消费协程数量。
func WithWorkerCount(workers int) ProcessorOption {
	return func(p *Processor) {
		if workers > 0 {
			p.workerCount = workers
		}
	}
}

// WithObserver 注册任务结果回调。
func WithObserver(observer Observer) ProcessorOption {
	return func(p *Processor) {
		p.observer = observer
	}
}

// WithAlerts 在任务最终失败且错误码要求告警时发送通知。
func WithAlerts(dispatcher alerting.Dispatcher) ProcessorOption {
	return func(p *Processor) {
		p.alerts = dispatcher
	}
}

// NewProcessor 构造 Processor。
func NewProcessor(store Store, consumer Consumer, producer Producer, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:       store,
		consumer:    consumer,
		producer:    producer,
		workerCount: 1,
		executors:   make(map[Kind]Executor),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.logger == nil {
		p.logger = logger.Named("task")
	}
	return p
}

// Register 为指定类型注册执行器，重复注册会覆盖旧的执行器。
func (p *Processor) Register(kind Kind, executor Executor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[kind] = executor
}

func (p *Processor) executor(kind Kind) Executor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.executors[kind]
}

// Start 启动任务处理循环，直到 ctx 结束。
func (p *Processor) Start(ctx context.Context) error {
	if p.consumer == nil || p.store == nil {
		return xerrors.New(CodeTaskValidation, "处理器未初始化")
	}
	return p.consumer.Consume(ctx, p.workerCount, p.handle)
}

func (p *Processor) handle(ctx context.Context, taskID string) error {
	task, err := p.store.Claim(ctx, taskID)
	if err != nil {
		if IsSkippable(err) {
			p.logger.Debug("跳过任务", slog.String("task_id", taskID), slog.String("reason", err.Error()))
			return nil
		}
		p.logger.Error("领取任务失败", slog.Any("error", err), slog.String("task_id", taskID))
		return err
	}

	executor := p.executor(task.Kind)
	if executor == nil {
		err := xerrors.New(CodeNoExecutor, fmt.Sprintf("任务类型 %s 没有注册执行器", task.Kind))
		if storeErr := p.store.MarkFailed(ctx, task.ID, CodeNoExecutor, err.Error(), true); storeErr != nil {
			return storeErr
		}
		p.logger.Error("任务类型未注册", slog.String("task_id", task.ID), slog.String("kind", string(task.Kind)))
		p.observe(task.Kind, OutcomeFailed)
		p.alert(ctx, task, CodeNoExecutor, err.Error())
		return nil
	}

	if execErr := p.execute(ctx, executor, task); execErr != nil {
		return p.handleExecutionFailure(ctx, task, execErr)
	}

	if err := p.store.MarkSucceeded(ctx, task.ID); err != nil {
		p.logger.Error("标记任务成功状态失败", slog.Any("error", err), slog.String("task_id", task.ID))
		return err
	}
	logger.Audit().Info("任务执行成功",
		slog.String("task_id", task.ID),
		slog.String("kind", string(task.Kind)),
		slog.Int("attempts", task.Attempts),
	)
	p.observe(task.Kind, OutcomeSucceeded)
	return nil
}

// execute 调用执行器并把 panic 转换为错误。
func (p *Processor) execute(ctx context.Context, executor Executor, task *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = xerrors.New(CodeTaskProcessing, fmt.Sprintf("执行器 panic: %v", r), xerrors.WithRetryable(false))
		}
	}()
	return executor.Execute(ctx, task)
}

func (p *Processor) handleExecutionFailure(ctx context.Context, task *Task, execErr error) error {
	code := xerrors.CodeOf(execErr)
	if code == xerrors.CodeUnknown {
		code = CodeTaskProcessing
	}
	retryable := xerrors.RetryableError(execErr)
	if _, ok := xerrors.From(execErr); !ok {
		retryable = true
	}
	terminal := !retryable || task.Attempts >= task.MaxRetries

	if storeErr := p.store.MarkFailed(ctx, task.ID, code, execErr.Error(), terminal); storeErr != nil {
		p.logger.Error("标记任务失败状态出错", slog.Any("error", storeErr), slog.String("task_id", task.ID))
		return storeErr
	}
	logger.Audit().Warn("任务执行失败",
		slog.String("task_id", task.ID),
		slog.String("kind", string(task.Kind)),
		slog.Bool("terminal", terminal),
		slog.String("error", execErr.Error()),
		slog.String("error_code", string(code)),
		slog.Int("attempts", task.Attempts),
		slog.Int("max_retries", task.MaxRetries),
	)

	if terminal {
		p.observe(task.Kind, OutcomeFailed)
		switch {
		case retryable:
			p.alert(ctx, task, CodeTaskExhausted, execErr.Error())
		case xerrors.AttributesOf(code).Alert:
			p.alert(ctx, task, code, execErr.Error())
		}
		return nil
	}
	if p.producer == nil {
		return xerrors.New(CodeTaskPublish, "未配置任务生产者")
	}
	if pubErr := p.producer.Publish(ctx, task.ID); pubErr != nil {
		return xerrors.Wrap(CodeTaskPublish, pubErr, fmt.Sprintf("任务 %s 重投失败", task.ID))
	}
	p.logger.Debug("任务已重新排队", slog.String("task_id", task.ID), slog.Int("attempts", task.Attempts))
	p.observe(task.Kind, OutcomeRetried)
	return nil
}

func (p *Processor) observe(kind Kind, outcome Outcome) {
	if p.observer != nil {
		p.observer(kind, outcome)
	}
}

func (p *Processor) alert(ctx context.Context, task *Task, code xerrors.Code, message string) {
	if p.alerts == nil {
		return
	}
	event := alerting.Event{
		Code:       code,
		Message:    message,
		Severity:   xerrors.AttributesOf(code).Severity,
		Kind:       string(task.Kind),
		TaskID:     task.ID,
		Attempts:   task.Attempts,
		MaxRetries: task.MaxRetries,
		OccurredAt: time.Now(),
	}
	if err := p.alerts.Notify(ctx, event); err != nil {
		p.logger.Warn("发送告警失败", slog.Any("error", err), slog.String("task_id", task.ID))
	}
}
