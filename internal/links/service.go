// Package links 提供链接收藏的增删改查。
package links

import (
	"context"
	"strconv"
	"strings"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

// Service 封装链接仓储。
type Service struct {
	repo store.LinkRepository
}

// NewService 创建链接服务。
func NewService(repo store.LinkRepository) *Service {
	return &Service{repo: repo}
}

// ParseID 解析路径中的链接 ID，非正整数返回 bad_request:api。
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.CodeBadRequestAPI, "Link id must be a positive integer")
	}
	return id, nil
}

func storeError(err error) error {
	if _, ok := apperrors.From(err); ok {
		return err
	}
	return apperrors.Wrap(apperrors.CodeBadRequestDB, err, "")
}

// Create 保存新链接。
func (s *Service) Create(ctx context.Context, req dto.CreateLinkRequest) (*dto.Link, error) {
	link := &store.Link{Title: req.Title, URL: req.URL, Description: req.Description}
	if err := s.repo.CreateLink(ctx, link); err != nil {
		return nil, storeError(err)
	}
	out := toDTO(*link)
	return &out, nil
}

// List 按 ID 顺序返回全部链接。
func (s *Service) List(ctx context.Context) ([]dto.Link, error) {
	items, err := s.repo.ListLinks(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]dto.Link, 0, len(items))
	for _, item := range items {
		out = append(out, toDTO(item))
	}
	return out, nil
}

// Get 查询单个链接。
func (s *Service) Get(ctx context.Context, rawID string) (*dto.Link, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	link, err := s.repo.GetLink(ctx, id)
	if err != nil {
		return nil, storeError(err)
	}
	out := toDTO(*link)
	return &out, nil
}

// Update 部分更新链接，未提供的字段保持不变。
func (s *Service) Update(ctx context.Context, rawID string, req dto.UpdateLinkRequest) (*dto.Link, error) {
	id, err := ParseID(rawID)
	if err != nil {
		return nil, err
	}
	link, err := s.repo.UpdateLink(ctx, id, store.LinkPatch{
		Title:       req.Title,
		URL:         req.URL,
		Description: req.Description,
	})
	if err != nil {
		return nil, storeError(err)
	}
	out := toDTO(*link)
	return &out, nil
}

// Delete 删除链接。
func (s *Service) Delete(ctx context.Context, rawID string) error {
	id, err := ParseID(rawID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLink(ctx, id); err != nil {
		return storeError(err)
	}
	return nil
}

func toDTO(l store.Link) dto.Link {
	return dto.Link{
		ID:          l.ID,
		Title:       l.Title,
		URL:         l.URL,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}
