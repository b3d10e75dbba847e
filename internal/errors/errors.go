package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// Code 表示系统内的统一错误码，格式为 "type:surface"。
type Code string

// Type 是错误码的前半部分，决定 HTTP 状态码。
type Type string

// Surface 是错误码的后半部分，描述出错的业务面。
type Surface string

// Severity 描述错误的严重程度，用于日志和审计。
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	TypeBadRequest   Type = "bad_request"
	TypeUnauthorized Type = "unauthorized"
	TypeForbidden    Type = "forbidden"
	TypeNotFound     Type = "not_found"
	TypeRateLimit    Type = "rate_limit"
	TypeOffline      Type = "offline"
)

const (
	SurfaceAPI         Surface = "api"
	SurfaceAuth        Surface = "auth"
	SurfaceChat        Surface = "chat"
	SurfaceStream      Surface = "stream"
	SurfaceDatabase    Surface = "database"
	SurfaceHistory     Surface = "history"
	SurfaceVote        Surface = "vote"
	SurfaceDocument    Surface = "document"
	SurfaceSuggestions Surface = "suggestions"
	SurfaceLink        Surface = "link"
	SurfaceAgent       Surface = "agent"
	SurfaceFile        Surface = "file"
	SurfaceChain       Surface = "chain"
)

// Attributes 为错误码提供默认行为。
type Attributes struct {
	Message   string
	Severity  Severity
	Retryable bool
	Alert     bool
	Status    int
}

const (
	CodeUnknown Code = "unknown:api"

	CodeBadRequestAPI     Code = "bad_request:api"
	CodeBadRequestAuth    Code = "bad_request:auth"
	CodeBadRequestChat    Code = "bad_request:chat"
	CodeBadRequestFile    Code = "bad_request:file"
	CodeUnauthorizedAuth  Code = "unauthorized:auth"
	CodeUnauthorizedChat  Code = "unauthorized:chat"
	CodeForbiddenAuth     Code = "forbidden:auth"
	CodeForbiddenChat     Code = "forbidden:chat"
	CodeForbiddenVote     Code = "forbidden:vote"
	CodeForbiddenDocument Code = "forbidden:document"
	CodeForbiddenSuggest  Code = "forbidden:suggestions"
	CodeNotFoundChat      Code = "not_found:chat"
	CodeNotFoundStream    Code = "not_found:stream"
	CodeNotFoundVote      Code = "not_found:vote"
	CodeNotFoundDocument  Code = "not_found:document"
	CodeNotFoundDatabase  Code = "not_found:database"
	CodeNotFoundLink      Code = "not_found:link"
	CodeNotFoundAgent     Code = "not_found:agent"
	CodeNotFoundChain     Code = "not_found:chain"
	CodeRateLimitChat     Code = "rate_limit:chat"
	CodeRateLimitAPI      Code = "rate_limit:api"
	CodeOfflineChat       Code = "offline:chat"
	CodeOfflineAuth       Code = "offline:auth"
	CodeOfflineChain      Code = "offline:chain"
	CodeBadRequestDB      Code = "bad_request:database"
	CodeOfflineStream     Code = "offline:stream"
)

var (
	registryMu sync.RWMutex
	registry   = map[Code]Attributes{
		CodeUnknown: {
			Message:  "Something went wrong. Please try again later.",
			Severity: SeverityCritical,
			Alert:    true,
			Status:   http.StatusInternalServerError,
		},
		CodeBadRequestAPI: {
			Message:  "The request couldn't be processed. Please check your input and try again.",
			Severity: SeverityInfo,
		},
		CodeBadRequestAuth: {
			Message:  "The authentication request is invalid.",
			Severity: SeverityInfo,
		},
		CodeBadRequestChat: {
			Message:  "The chat request is invalid.",
			Severity: SeverityInfo,
		},
		CodeBadRequestFile: {
			Message:  "The uploaded file is invalid.",
			Severity: SeverityInfo,
		},
		CodeUnauthorizedAuth: {
			Message:  "You need to sign in before continuing.",
			Severity: SeverityInfo,
		},
		CodeUnauthorizedChat: {
			Message:  "You need to sign in to view this chat. Please sign in and try again.",
			Severity: SeverityInfo,
		},
		CodeForbiddenAuth: {
			Message:  "Your account does not have access to this feature.",
			Severity: SeverityWarning,
		},
		CodeForbiddenChat: {
			Message:  "This chat belongs to another user. Please check the chat ID and try again.",
			Severity: SeverityWarning,
		},
		CodeForbiddenVote: {
			Message:  "You can only vote on your own chats.",
			Severity: SeverityWarning,
		},
		CodeForbiddenDocument: {
			Message:  "This document belongs to another user. Please check the document ID and try again.",
			Severity: SeverityWarning,
		},
		CodeForbiddenSuggest: {
			Message:  "You can only read suggestions for your own documents.",
			Severity: SeverityWarning,
		},
		CodeNotFoundChat: {
			Message:  "The requested chat was not found. Please check the chat ID and try again.",
			Severity: SeverityInfo,
		},
		CodeNotFoundStream: {
			Message:  "The requested stream was not found.",
			Severity: SeverityInfo,
		},
		CodeNotFoundVote: {
			Message:  "The chat to vote on was not found.",
			Severity: SeverityInfo,
		},
		CodeNotFoundDocument: {
			Message:  "The requested document was not found. Please check the document ID and try again.",
			Severity: SeverityInfo,
		},
		CodeNotFoundDatabase: {
			Message:  "The requested record was not found.",
			Severity: SeverityInfo,
		},
		CodeNotFoundLink: {
			Message:  "Link not found.",
			Severity: SeverityInfo,
		},
		CodeNotFoundAgent: {
			Message:  "Agent not found.",
			Severity: SeverityInfo,
		},
		CodeNotFoundChain: {
			Message:  "Chain not configured.",
			Severity: SeverityInfo,
		},
		CodeRateLimitChat: {
			Message:  "You have exceeded your maximum number of messages for the day. Please try again later.",
			Severity: SeverityInfo,
		},
		CodeRateLimitAPI: {
			Message:  "Too many requests. Please slow down.",
			Severity: SeverityInfo,
		},
		CodeOfflineChat: {
			Message:   "We're having trouble sending your message. Please check your internet connection and try again.",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     true,
		},
		CodeOfflineAuth: {
			Message:   "Wallet authentication is temporarily unavailable.",
			Severity:  SeverityWarning,
			Retryable: true,
			Alert:     true,
		},
		CodeOfflineChain: {
			Message:   "The blockchain node is unreachable.",
			Severity:  SeverityWarning,
			Retryable: true,
		},
		CodeOfflineStream: {
			Message:   "Timed out waiting for the transaction receipt.",
			Severity:  SeverityWarning,
			Retryable: true,
		},
		CodeBadRequestDB: {
			Message:   "An error occurred while executing a database query.",
			Severity:  SeverityCritical,
			Retryable: true,
			Alert:     true,
		},
	}
)

// Register 允许业务模块在初始化阶段注册新的错误码描述。
func Register(code Code, attr Attributes) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[code] = attr
}

// AttributesOf 返回错误码对应的属性。若未注册则返回 UNKNOWN 的属性。
func AttributesOf(code Code) Attributes {
	if attr, ok := lookup(code); ok {
		return attr
	}
	attr, _ := lookup(CodeUnknown)
	return attr
}

func lookup(code Code) (Attributes, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	attr, ok := registry[code]
	return attr, ok
}

// Split 将错误码拆分为类型与业务面。
func (c Code) Split() (Type, Surface) {
	kind, surface, ok := strings.Cut(string(c), ":")
	if !ok {
		return Type(kind), ""
	}
	return Type(kind), Surface(surface)
}

// Status 返回错误码对应的 HTTP 状态码。
func (c Code) Status() int {
	if attr, ok := lookup(c); ok && attr.Status != 0 {
		return attr.Status
	}
	kind, _ := c.Split()
	switch kind {
	case TypeBadRequest:
		return http.StatusBadRequest
	case TypeUnauthorized:
		return http.StatusUnauthorized
	case TypeForbidden:
		return http.StatusForbidden
	case TypeNotFound:
		return http.StatusNotFound
	case TypeRateLimit:
		return http.StatusTooManyRequests
	case TypeOffline:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Visibility 描述错误信息是否可以直接返回给调用方。
type Visibility int

const (
	VisibilityResponse Visibility = iota
	VisibilityLog
)

// VisibilityOf 数据库错误只记录日志，不向调用方暴露细节。
func VisibilityOf(code Code) Visibility {
	if _, surface := code.Split(); surface == SurfaceDatabase && code != CodeNotFoundDatabase {
		return VisibilityLog
	}
	return VisibilityResponse
}

// Error 是系统内统一的错误类型。
type Error struct {
	code      Code
	message   string
	cause     error
	status    int
	metadata  map[string]string
	retryable *bool
	alert     *bool
	severity  *Severity
}

// Option 定义可选配置。
type Option func(*Error)

// WithMetadata 附加额外信息。
func WithMetadata(key, value string) Option {
	return func(e *Error) {
		if e.metadata == nil {
			e.metadata = make(map[string]string)
		}
		e.metadata[key] = value
	}
}

// WithStatus 覆盖默认的 HTTP 状态码。
func WithStatus(status int) Option {
	return func(e *Error) {
		e.status = status
	}
}

// WithRetryable 指定错误是否可重试。
func WithRetryable(retryable bool) Option {
	return func(e *Error) {
		e.retryable = &retryable
	}
}

// WithAlert 指定错误是否需要告警。
func WithAlert(alert bool) Option {
	return func(e *Error) {
		e.alert = &alert
	}
}

// WithSeverity 覆盖默认严重程度。
func WithSeverity(sev Severity) Option {
	return func(e *Error) {
		e.severity = &sev
	}
}

// New 创建一个新的错误实例。
func New(code Code, message string, opts ...Option) *Error {
	if message == "" {
		message = AttributesOf(code).Message
	}
	e := &Error{code: code, message: message}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Wrap 在已有错误外包裹统一错误类型。
func Wrap(code Code, cause error, message string, opts ...Option) *Error {
	e := New(code, message, opts...)
	e.cause = cause
	return e
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Unwrap 实现 errors.Unwrap。
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is 允许通过 errors.Is 判断是否相同错误码。
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code 返回错误码。
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message 返回错误信息。
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// Cause 返回被包裹的原始错误。
func (e *Error) Cause() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Status 返回 HTTP 状态码。
func (e *Error) Status() int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if e.status != 0 {
		return e.status
	}
	return e.code.Status()
}

// Metadata 返回附加信息。
func (e *Error) Metadata() map[string]string {
	if e == nil || len(e.metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(e.metadata))
	for k, v := range e.metadata {
		clone[k] = v
	}
	return clone
}

// Retryable 判断是否可重试。
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	if e.retryable != nil {
		return *e.retryable
	}
	return AttributesOf(e.code).Retryable
}

// ShouldAlert 判断是否需要告警。
func (e *Error) ShouldAlert() bool {
	if e == nil {
		return false
	}
	if e.alert != nil {
		return *e.alert
	}
	return AttributesOf(e.code).Alert
}

// Severity 返回错误严重程度。
func (e *Error) Severity() Severity {
	if e == nil {
		return SeverityInfo
	}
	if e.severity != nil {
		return *e.severity
	}
	return AttributesOf(e.code).Severity
}

// From 尝试从 error 中解析统一错误类型。
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if stdErrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf 返回错误对应的错误码。
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}

// StatusOf 返回任意 error 对应的 HTTP 状态码。
func StatusOf(err error) int {
	if e, ok := From(err); ok {
		return e.Status()
	}
	return http.StatusInternalServerError
}

// RetryableError 判断任意 error 是否可重试。
func RetryableError(err error) bool {
	if e, ok := From(err); ok {
		return e.Retryable()
	}
	return false
}

// ShouldAlert 判断是否需要触发告警。
func ShouldAlert(err error) bool {
	if e, ok := From(err); ok {
		return e.ShouldAlert()
	}
	return false
}

// SeverityOf 返回错误严重程度。
func SeverityOf(err error) Severity {
	if e, ok := From(err); ok {
		return e.Severity()
	}
	return AttributesOf(CodeUnknown).Severity
}
