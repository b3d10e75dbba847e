package task

import (
	stdErrors "errors"
	"maps"

	xerrors "DeFi-Agent/internal/errors"
)

// Kind 标识后台任务的类型，处理器据此选择执行器。
type Kind string

// Status 表示任务在生命周期中的状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Task 描述排队执行的后台任务。
type Task struct {
	ID         string         `json:"id"`
	Kind       Kind           `json:"kind"`
	Payload    map[string]any `json:"payload,omitempty"`
	Status     Status         `json:"status"`
	Attempts   int            `json:"attempts"`
	MaxRetries int            `json:"max_retries"`
	LastError  string         `json:"last_error,omitempty"`
	ErrorCode  string         `json:"error_code,omitempty"`
	CreatedAt  int64          `json:"created_at"`
	UpdatedAt  int64          `json:"updated_at"`
}

// String 从 Payload 中读取字符串字段。
func (t *Task) String(key string) string {
	if t == nil || t.Payload == nil {
		return ""
	}
	value, _ := t.Payload[key].(string)
	return value
}

// Finished 判断任务是否已经结束。
func (t *Task) Finished() bool {
	return t.Status == StatusSucceeded || (t.Status == StatusFailed && t.Attempts >= t.MaxRetries)
}

const (
	CodeTaskNotFound   xerrors.Code = "not_found:job"
	CodeTaskConflict   xerrors.Code = "bad_request:job"
	CodeTaskCompleted  xerrors.Code = "completed:job"
	CodeTaskExhausted  xerrors.Code = "exhausted:job"
	CodeTaskValidation xerrors.Code = "invalid:job"
	CodeTaskPublish    xerrors.Code = "offline:job"
	CodeTaskProcessing xerrors.Code = "failed:job"
	CodeNoExecutor     xerrors.Code = "unsupported:job"
)

func init() {
	xerrors.Register(CodeTaskNotFound, xerrors.Attributes{Message: "job not found", Severity: xerrors.SeverityInfo})
	xerrors.Register(CodeTaskConflict, xerrors.Attributes{Message: "job conflict", Severity: xerrors.SeverityWarning})
	xerrors.Register(CodeTaskCompleted, xerrors.Attributes{Message: "job already completed", Severity: xerrors.SeverityInfo})
	xerrors.Register(CodeTaskExhausted, xerrors.Attributes{Message: "job retries exhausted", Severity: xerrors.SeverityCritical, Alert: true})
	xerrors.Register(CodeTaskValidation, xerrors.Attributes{Message: "job validation failed", Severity: xerrors.SeverityInfo})
	xerrors.Register(CodeTaskPublish, xerrors.Attributes{Message: "failed to publish job", Severity: xerrors.SeverityCritical, Retryable: true, Alert: true})
	xerrors.Register(CodeTaskProcessing, xerrors.Attributes{Message: "job execution failed", Severity: xerrors.SeverityWarning, Retryable: true})
	xerrors.Register(CodeNoExecutor, xerrors.Attributes{Message: "no executor registered for job kind", Severity: xerrors.SeverityCritical, Alert: true})
}

var (
	// ErrTaskNotFound 表示指定的任务不存在。
	ErrTaskNotFound = xerrors.New(CodeTaskNotFound, "")
	// ErrTaskConflict 表示任务在当前状态下无法进行所请求的操作。
	ErrTaskConflict = xerrors.New(CodeTaskConflict, "")
	// ErrTaskCompleted 表示任务已经成功完成。
	ErrTaskCompleted = xerrors.New(CodeTaskCompleted, "")
	// ErrTaskExhausted 表示任务的重试次数已经耗尽。
	ErrTaskExhausted = xerrors.New(CodeTaskExhausted, "")
)

// IsSkippable 判断领取任务时的错误是否可以直接忽略。
func IsSkippable(err error) bool {
	return stdErrors.Is(err, ErrTaskNotFound) ||
		stdErrors.Is(err, ErrTaskCompleted) ||
		stdErrors.Is(err, ErrTaskExhausted) ||
		stdErrors.Is(err, ErrTaskConflict)
}

func clonePayload(payload map[string]any) map[string]any {
	if payload == nil {
		return nil
	}
	return maps.Clone(payload)
}

func cloneTask(t *Task) *Task {
	clone := *t
	clone.Payload = clonePayload(t.Payload)
	return &clone
}
