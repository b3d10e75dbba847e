package auth

import (
	"context"

	apperrors "DeFi-Agent/internal/errors"
)

type subjectCtxKey struct{}

// WithSubject 把已认证的会话主体挂到请求上下文，nil 主体不做处理。
func WithSubject(ctx context.Context, subject *Subject) context.Context {
	if subject == nil {
		return ctx
	}
	return context.WithValue(ctx, subjectCtxKey{}, subject)
}

// SubjectFromContext 读取上下文中的会话主体，不存在时返回 nil。
func SubjectFromContext(ctx context.Context) *Subject {
	if ctx == nil {
		return nil
	}
	subject, _ := ctx.Value(subjectCtxKey{}).(*Subject)
	return subject
}

// RequireSubject 与 SubjectFromContext 相同，但缺少主体时返回 unauthorized:auth。
func RequireSubject(ctx context.Context) (*Subject, error) {
	if subject := SubjectFromContext(ctx); subject != nil {
		return subject, nil
	}
	return nil, apperrors.New(apperrors.CodeUnauthorizedAuth, "")
}
