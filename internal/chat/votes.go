package chat

import (
	"context"

	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

// Votes 返回会话的投票。ID 无效或会话不存在时返回空列表。
func (s *Service) Votes(ctx context.Context, subject *auth.Subject, chatID string) ([]dto.Vote, error) {
	if dto.IsEmptyIdentifier(chatID) {
		return []dto.Vote{}, nil
	}
	chat, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, dbError(err)
	}
	if chat == nil {
		return []dto.Vote{}, nil
	}
	if chat.UserID != subject.ID {
		return nil, apperrors.New(apperrors.CodeForbiddenVote, "")
	}
	votes, err := s.repo.GetVotesByChatID(ctx, chatID)
	if err != nil {
		return nil, dbError(err)
	}
	out := make([]dto.Vote, 0, len(votes))
	for _, v := range votes {
		out = append(out, dto.Vote{ChatID: v.ChatID, MessageID: v.MessageID, IsUpvoted: v.IsUpvoted})
	}
	return out, nil
}

// Vote 对自己会话中的消息投票，重复投票会覆盖之前的结果。
func (s *Service) Vote(ctx context.Context, subject *auth.Subject, req dto.VoteRequest) (*dto.Success, error) {
	if _, err := s.loadOwnedChat(ctx, subject, req.ChatID, apperrors.CodeNotFoundVote, apperrors.CodeForbiddenVote); err != nil {
		return nil, err
	}
	if err := s.repo.VoteMessage(ctx, store.Vote{
		ChatID:    req.ChatID,
		MessageID: req.MessageID,
		IsUpvoted: req.Type == "up",
	}); err != nil {
		return nil, dbError(err)
	}
	return &dto.Success{Success: true}, nil
}
