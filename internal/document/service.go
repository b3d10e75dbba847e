// Package document 管理产物文档的版本与修改建议。
package document

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/pkg/logger"
)

// Service 实现文档相关操作。
type Service struct {
	repo store.DocumentRepository
	log  *slog.Logger
	now  func() time.Time
}

// NewService 创建文档服务。
func NewService(repo store.DocumentRepository) *Service {
	return &Service{repo: repo, log: logger.Named("document"), now: time.Now}
}

func dbError(err error) error {
	if _, ok := apperrors.From(err); ok {
		return err
	}
	return apperrors.Wrap(apperrors.CodeBadRequestDB, err, "")
}

// ownedVersions 返回文档的全部版本，并校验它们都属于 subject。
func (s *Service) ownedVersions(ctx context.Context, subject *auth.Subject, id string) ([]store.Document, error) {
	versions, err := s.repo.GetDocumentsByID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	for _, v := range versions {
		if v.UserID != subject.ID {
			return nil, apperrors.New(apperrors.CodeForbiddenDocument, "")
		}
	}
	return versions, nil
}

// Get 按创建时间正序返回文档的全部版本。
func (s *Service) Get(ctx context.Context, subject *auth.Subject, id string) ([]dto.Document, error) {
	if dto.IsEmptyIdentifier(id) {
		return nil, apperrors.New(apperrors.CodeBadRequestAPI, "Parameter id is missing")
	}
	versions, err := s.ownedVersions(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFoundDocument, "")
	}
	return toDocuments(versions), nil
}

// Save 为文档追加一个新版本。
func (s *Service) Save(ctx context.Context, subject *auth.Subject, id string, req dto.DocumentRequest) (*dto.Document, error) {
	if dto.IsEmptyIdentifier(id) {
		return nil, apperrors.New(apperrors.CodeBadRequestAPI, "Parameter id is required.")
	}
	if _, err := s.ownedVersions(ctx, subject, id); err != nil {
		return nil, err
	}
	doc := &store.Document{
		ID:        id,
		CreatedAt: s.now(),
		Title:     req.Title,
		Content:   req.Content,
		Kind:      req.Kind,
		UserID:    subject.ID,
	}
	if err := s.repo.SaveDocument(ctx, doc); err != nil {
		return nil, dbError(err)
	}
	s.log.Debug("已保存文档版本", slog.String("document_id", id), slog.String("kind", req.Kind))
	out := toDocument(*doc)
	return &out, nil
}

// DeleteAfter 删除 timestamp 之后创建的版本及其建议，返回被删除的版本。
func (s *Service) DeleteAfter(ctx context.Context, subject *auth.Subject, id, timestamp string) ([]dto.Document, error) {
	if dto.IsEmptyIdentifier(id) {
		return nil, apperrors.New(apperrors.CodeBadRequestAPI, "Parameter id is required.")
	}
	if strings.TrimSpace(timestamp) == "" {
		return nil, apperrors.New(apperrors.CodeBadRequestAPI, "Parameter timestamp is required.")
	}
	ts, err := ParseTimestamp(timestamp)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeBadRequestAPI, err, "Parameter timestamp is invalid.")
	}
	versions, err := s.ownedVersions(ctx, subject, id)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, apperrors.New(apperrors.CodeNotFoundDocument, "")
	}
	deleted, err := s.repo.DeleteDocumentsAfter(ctx, id, ts)
	if err != nil {
		return nil, dbError(err)
	}
	return toDocuments(deleted), nil
}

// Suggestions 返回文档的修改建议。文档不存在时返回空列表。
func (s *Service) Suggestions(ctx context.Context, subject *auth.Subject, documentID string) ([]dto.Suggestion, error) {
	if dto.IsEmptyIdentifier(documentID) {
		return []dto.Suggestion{}, nil
	}
	latest, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, dbError(err)
	}
	if latest == nil {
		return []dto.Suggestion{}, nil
	}
	if latest.UserID != subject.ID {
		return nil, apperrors.New(apperrors.CodeForbiddenSuggest, "")
	}
	suggestions, err := s.repo.GetSuggestionsByDocumentID(ctx, documentID)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]dto.Suggestion, 0, len(suggestions))
	for _, sg := range suggestions {
		out = append(out, dto.Suggestion{
			ID:                sg.ID,
			DocumentID:        sg.DocumentID,
			DocumentCreatedAt: sg.DocumentCreatedAt,
			OriginalText:      sg.OriginalText,
			SuggestedText:     sg.SuggestedText,
			Description:       sg.Description,
			IsResolved:        sg.IsResolved,
			UserID:            sg.UserID,
			CreatedAt:         sg.CreatedAt,
		})
	}
	return out, nil
}

// ParseTimestamp 解析 RFC 3339 时间戳，同时兼容毫秒级 Unix 时间。
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts, nil
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", raw)
	}
	return time.UnixMilli(ms), nil
}

func toDocument(d store.Document) dto.Document {
	return dto.Document{
		ID:        d.ID,
		CreatedAt: d.CreatedAt,
		Title:     d.Title,
		Content:   d.Content,
		Kind:      d.Kind,
		UserID:    d.UserID,
	}
}

func toDocuments(docs []store.Document) []dto.Document {
	out := make([]dto.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDocument(d))
	}
	return out
}
