package chat

import (
	"context"

	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 100
)

func clampLimit(limit int) int {
	switch {
	case limit == 0:
		return defaultHistoryLimit
	case limit < 1:
		return 1
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

// History 返回当前用户的会话列表，按创建时间倒序分页。
func (s *Service) History(ctx context.Context, subject *auth.Subject, q dto.HistoryQuery) (*dto.HistoryPage, error) {
	if q.StartingAfter != "" && q.EndingBefore != "" {
		return nil, apperrors.New(apperrors.CodeBadRequestAPI, "Only one of starting_after or ending_before can be provided.")
	}
	page, err := s.repo.ListChatsByUser(ctx, store.ListChatsParams{
		UserID:        subject.ID,
		Limit:         clampLimit(q.Limit),
		StartingAfter: q.StartingAfter,
		EndingBefore:  q.EndingBefore,
		AgentID:       q.AgentID,
	})
	if err != nil {
		return nil, dbError(err)
	}
	out := &dto.HistoryPage{Chats: make([]dto.Chat, 0, len(page.Chats)), HasMore: page.HasMore}
	for i := range page.Chats {
		out.Chats = append(out.Chats, toChatDTO(&page.Chats[i]))
	}
	return out, nil
}

// DeleteHistory 删除当前用户的全部会话。
func (s *Service) DeleteHistory(ctx context.Context, subject *auth.Subject) (*dto.DeletedCount, error) {
	count, err := s.repo.DeleteAllChatsByUser(ctx, subject.ID)
	if err != nil {
		return nil, dbError(err)
	}
	return &dto.DeletedCount{DeletedCount: count}, nil
}
