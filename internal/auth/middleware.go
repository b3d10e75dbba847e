package auth

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	apperrors "DeFi-Agent/internal/errors"
	loggerpkg "DeFi-Agent/pkg/logger"
)

// MiddlewareConfig 配置身份认证中间件的行为。
type MiddlewareConfig struct {
	// CookieName 是 Authorization 头缺失时读取令牌的 Cookie。
	CookieName string
	// AuditEvent 指定记录审计日志时使用的事件名称。
	AuditEvent string
	// OnError 渲染认证失败响应，为空时返回纯文本 401。
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// TokenFromRequest 依次从 Authorization 头与 Cookie 中读取令牌。
func TokenFromRequest(r *http.Request, cookieName string) (string, error) {
	if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token, nil
			}
		}
	}
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", ErrMissingToken
}

// Middleware 返回一个 HTTP 中间件，用于处理身份认证。
func (s *Service) Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := s.audit
			if logger == nil {
				logger = loggerpkg.Audit()
			}
			token, err := TokenFromRequest(r, cfg.CookieName)
			var subject *Subject
			if err == nil {
				subject, err = s.VerifyToken(token)
			}
			if err != nil {
				logger.Warn("access_denied",
					slog.String("path", r.URL.Path),
					slog.String("method", r.Method),
					slog.Int("status", http.StatusUnauthorized),
					slog.String("error", err.Error()),
				)
				if cfg.OnError != nil {
					cfg.OnError(w, r, apperrors.Wrap(apperrors.CodeUnauthorizedAuth, err, ""))
					return
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}

			start := time.Now()
			aw := &auditWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(aw, r.WithContext(WithSubject(r.Context(), subject)))
			event := cfg.AuditEvent
			if event == "" {
				event = r.URL.Path
			}
			logger.Info("api_request",
				slog.String("event", event),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", aw.status),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
				slog.String("user", subject.ID),
			)
		})
	}
}

// auditWriter 是一个包装了 http.ResponseWriter 的结构体，用于捕获响应状态码。
type auditWriter struct {
	http.ResponseWriter
	status int
}

// WriteHeader 捕获响应状态码并调用底层的 WriteHeader 方法。
func (w *auditWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush 透传给底层 ResponseWriter，保证 SSE 可以逐帧推送。
func (w *auditWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap 供 http.ResponseController 使用。
func (w *auditWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
