package chat

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/llm"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/internal/task"
	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/pkg/logger"
)

// TitleJobKind 是生成会话标题的任务类型。
const TitleJobKind task.Kind = "chat.title"

const maxTitleLength = 80

// submitTitleJob 提交标题生成任务，失败时保留默认标题。
func (s *Service) submitTitleJob(ctx context.Context, chatID string, message dto.UIMessage) {
	if s.jobs == nil {
		return
	}
	text := strings.TrimSpace(message.Text())
	if text == "" {
		return
	}
	if _, err := s.jobs.Submit(ctx, TitleJobKind, map[string]any{"chat_id": chatID, "text": text}); err != nil {
		s.log.Warn("提交标题任务失败", slog.String("chat_id", chatID), slog.Any("error", err))
	}
}

// TitleExecutor 调用标题模型为新会话生成标题。
type TitleExecutor struct {
	llm   llm.Client
	chats store.ChatRepository
	model string
	log   *slog.Logger
}

// NewTitleExecutor 创建标题任务执行器，model 为空时使用客户端默认模型。
func NewTitleExecutor(client llm.Client, chats store.ChatRepository, model string) *TitleExecutor {
	return &TitleExecutor{llm: client, chats: chats, model: model, log: logger.Named("chat.title")}
}

// Execute 实现 task.Executor。模型或存储失败返回可重试错误，由任务处理器重试，
// 重试耗尽后会话保留默认标题。
func (e *TitleExecutor) Execute(ctx context.Context, t *task.Task) error {
	chatID := t.String("chat_id")
	text := t.String("text")
	if chatID == "" || text == "" {
		e.log.Warn("标题任务缺少参数", slog.String("task_id", t.ID))
		return nil
	}
	resp, err := e.llm.Generate(ctx, llm.Request{
		Model:    e.model,
		System:   titlePrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: text}},
	})
	if err != nil {
		e.log.Warn("生成标题失败", slog.String("chat_id", chatID), slog.Any("error", err))
		return apperrors.Wrap(apperrors.CodeOfflineChat, err, "")
	}
	title := normalizeTitle(resp.Text)
	if title == "" {
		return nil
	}
	if err := e.chats.UpdateChatTitle(ctx, chatID, title); err != nil {
		e.log.Warn("更新标题失败", slog.String("chat_id", chatID), slog.Any("error", err))
		if _, ok := apperrors.From(err); ok {
			return err
		}
		return apperrors.Wrap(apperrors.CodeBadRequestDB, err, "")
	}
	return nil
}

// normalizeTitle 去掉引号与换行，并截断到 80 个字符。
func normalizeTitle(raw string) string {
	title := strings.TrimSpace(raw)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.Trim(title, "\"'`")
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}
	return strings.TrimSpace(title)
}

var _ task.Executor = (*TitleExecutor)(nil)
