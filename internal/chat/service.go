package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"DeFi-Agent/internal/agents"
	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/knowledge"
	"DeFi-Agent/internal/llm"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/internal/task"
	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/pkg/logger"
)

const (
	defaultTitle       = "New chat"
	entitlementWindow  = 24 * time.Hour
	resumeWindow       = 15 * time.Second
	resumePollInterval = 200 * time.Millisecond
	errorText          = "Oops, an error occurred!"
)

// Repository 是聊天服务依赖的存储能力。
type Repository interface {
	store.ChatRepository
	store.MessageRepository
	store.VoteRepository
	store.StreamRepository
}

// JobSubmitter 提交后台任务，由 task.Service 实现。
type JobSubmitter interface {
	Submit(ctx context.Context, kind task.Kind, payload map[string]any) (*task.Task, error)
}

// StreamObserver 接收一次流式输出的结果标签。
type StreamObserver func(outcome string)

// Service 聚合会话相关的业务逻辑。
type Service struct {
	repo         Repository
	llm          llm.Client
	agents       *agents.Registry
	jobs         JobSubmitter
	knowledge    knowledge.Provider
	buffer       StreamBuffer
	defaultModel string
	observe      StreamObserver
	log          *slog.Logger
	now          func() time.Time
}

// Option 定义可选配置。
type Option func(*Service)

// WithAgents 配置智能体注册表。
func WithAgents(registry *agents.Registry) Option {
	return func(s *Service) { s.agents = registry }
}

// WithJobs 配置后台任务提交器，用于异步生成标题。
func WithJobs(jobs JobSubmitter) Option {
	return func(s *Service) { s.jobs = jobs }
}

// WithKnowledge 配置参考资料检索，命中的条目会附加到系统提示词。
func WithKnowledge(provider knowledge.Provider) Option {
	return func(s *Service) { s.knowledge = provider }
}

// WithStreamBuffer 替换默认的内存流缓冲区。
func WithStreamBuffer(buffer StreamBuffer) Option {
	return func(s *Service) {
		if buffer != nil {
			s.buffer = buffer
		}
	}
}

// WithDefaultModel 设置 chat-model 对应的模型名称。
func WithDefaultModel(model string) Option {
	return func(s *Service) { s.defaultModel = model }
}

// WithStreamObserver 注册流式输出结果回调。
func WithStreamObserver(observer StreamObserver) Option {
	return func(s *Service) { s.observe = observer }
}

// NewService 创建聊天服务。
func NewService(repo Repository, client llm.Client, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		llm:    client,
		buffer: NewMemoryBuffer(0),
		log:    logger.Named("chat"),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Buffer 返回当前使用的流缓冲区。
func (s *Service) Buffer() StreamBuffer {
	return s.buffer
}

func dbError(err error) error {
	if _, ok := apperrors.From(err); ok {
		return err
	}
	return apperrors.Wrap(apperrors.CodeBadRequestDB, err, "")
}

// loadOwnedChat 读取会话并校验归属，missing 与 forbidden 为对应的错误码。
func (s *Service) loadOwnedChat(ctx context.Context, subject *auth.Subject, id string, missing, forbidden apperrors.Code) (*store.Chat, error) {
	chat, err := s.repo.GetChatByID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if chat == nil {
		return nil, apperrors.New(missing, "")
	}
	if chat.UserID != subject.ID {
		return nil, apperrors.New(forbidden, "")
	}
	return chat, nil
}

// GetChat 返回会话及其消息。他人的私有会话不可见。
func (s *Service) GetChat(ctx context.Context, subject *auth.Subject, id string) (*dto.ChatWithMessages, error) {
	chat, err := s.repo.GetChatByID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if chat == nil {
		return nil, apperrors.New(apperrors.CodeNotFoundChat, "")
	}
	if chat.Visibility == store.VisibilityPrivate && chat.UserID != subject.ID {
		return nil, apperrors.New(apperrors.CodeForbiddenChat, "")
	}
	messages, err := s.repo.GetMessagesByChatID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	return &dto.ChatWithMessages{Chat: toChatDTO(chat), Messages: toUIMessages(messages)}, nil
}

// DeleteChat 删除自己的会话并返回被删除的记录。
func (s *Service) DeleteChat(ctx context.Context, subject *auth.Subject, id string) (*dto.Chat, error) {
	if _, err := s.loadOwnedChat(ctx, subject, id, apperrors.CodeNotFoundChat, apperrors.CodeForbiddenChat); err != nil {
		return nil, err
	}
	deleted, err := s.repo.DeleteChatByID(ctx, id)
	if err != nil {
		return nil, dbError(err)
	}
	if deleted == nil {
		return nil, apperrors.New(apperrors.CodeNotFoundChat, "")
	}
	out := toChatDTO(deleted)
	return &out, nil
}

// DeleteTrailingMessages 删除指定消息及其之后的全部消息。
func (s *Service) DeleteTrailingMessages(ctx context.Context, subject *auth.Subject, messageID string) error {
	message, err := s.repo.GetMessageByID(ctx, messageID)
	if err != nil {
		return dbError(err)
	}
	if message == nil {
		return apperrors.New(apperrors.CodeNotFoundChat, "")
	}
	if _, err := s.loadOwnedChat(ctx, subject, message.ChatID, apperrors.CodeNotFoundChat, apperrors.CodeForbiddenChat); err != nil {
		return err
	}
	deleted, err := s.repo.DeleteMessagesAfter(ctx, message.ChatID, message.CreatedAt)
	if err != nil {
		return dbError(err)
	}
	s.log.Debug("已删除后续消息", slog.String("chat_id", message.ChatID), slog.Int64("count", deleted))
	return nil
}

// UpdateVisibility 修改自己会话的可见性。
func (s *Service) UpdateVisibility(ctx context.Context, subject *auth.Subject, chatID, visibility string) error {
	if visibility != store.VisibilityPrivate && visibility != store.VisibilityPublic {
		return apperrors.New(apperrors.CodeBadRequestAPI, "Visibility must be private or public")
	}
	if _, err := s.loadOwnedChat(ctx, subject, chatID, apperrors.CodeNotFoundChat, apperrors.CodeForbiddenChat); err != nil {
		return err
	}
	if err := s.repo.UpdateChatVisibility(ctx, chatID, visibility); err != nil {
		return dbError(err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func trimmedPtr(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
