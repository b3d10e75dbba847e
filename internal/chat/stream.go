package chat

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"DeFi-Agent/internal/agents"
	"DeFi-Agent/internal/auth"
	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/knowledge"
	"DeFi-Agent/internal/llm"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

// Stream outcomes reported to the StreamObserver.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeDetached  = "detached"
)

// streamWriter 将帧同时写入客户端与缓冲区。客户端断开后只写缓冲区。
type streamWriter struct {
	ctx      context.Context
	streamID string
	out      Emitter
	buffer   StreamBuffer
	log      *slog.Logger
	sent     bool
	detached bool
}

func (w *streamWriter) write(f Frame) {
	data, err := EncodeFrame(f)
	if err != nil {
		w.log.Error("编码流帧失败", slog.Any("error", err), slog.String("type", f.Type))
		return
	}
	if err := w.buffer.Append(w.ctx, w.streamID, data); err != nil {
		w.log.Warn("写入流缓冲失败", slog.Any("error", err), slog.String("stream_id", w.streamID))
	}
	if w.detached || w.out == nil {
		return
	}
	if err := w.out.Send(data); err != nil {
		w.detached = true
		w.log.Info("客户端已断开，继续在后台生成", slog.String("stream_id", w.streamID))
		return
	}
	w.sent = true
}

func (w *streamWriter) complete() {
	if err := w.buffer.Complete(w.ctx, w.streamID); err != nil {
		w.log.Warn("标记流结束失败", slog.Any("error", err), slog.String("stream_id", w.streamID))
	}
}

// Create 保存用户消息并以流的形式输出助手回复。
//
// 在写出第一帧之前发生的错误直接返回，调用方可以据此返回普通的错误响应；
// 之后的错误以 error 帧的形式写出。
func (s *Service) Create(ctx context.Context, subject *auth.Subject, req dto.PostChatRequest, hints RequestHints, out Emitter) error {
	message, ok := req.UserMessage()
	if !ok {
		return apperrors.New(apperrors.CodeBadRequestChat, "")
	}

	count, err := s.repo.CountUserMessagesSince(ctx, subject.ID, s.now().Add(-entitlementWindow))
	if err != nil {
		return dbError(err)
	}
	if count > auth.EntitlementsFor(subject.Type).MaxMessagesPerDay {
		return apperrors.New(apperrors.CodeRateLimitChat, "")
	}

	chat, err := s.repo.GetChatByID(ctx, req.ID)
	if err != nil {
		return dbError(err)
	}
	if chat != nil && chat.UserID != subject.ID {
		return apperrors.New(apperrors.CodeForbiddenChat, "")
	}

	agentID := strings.TrimSpace(req.AgentID)
	if agentID == "" && chat != nil && chat.AgentID != nil {
		agentID = *chat.AgentID
	}
	var agent agents.Agent
	if agentID != "" {
		if agent = s.agents.Get(agentID); agent == nil {
			return apperrors.New(apperrors.CodeNotFoundAgent, "")
		}
	}

	var history []store.Message
	if chat == nil {
		chat = &store.Chat{
			ID:         req.ID,
			CreatedAt:  s.now(),
			Title:      defaultTitle,
			UserID:     subject.ID,
			Visibility: req.Visibility(),
			AgentID:    trimmedPtr(req.AgentID),
		}
		if err := s.repo.SaveChat(ctx, chat); err != nil {
			return dbError(err)
		}
		s.submitTitleJob(ctx, chat.ID, message)
	} else if history, err = s.repo.GetMessagesByChatID(ctx, chat.ID); err != nil {
		return dbError(err)
	}

	conversation := toUIMessages(history)
	if message.Role == string(llm.RoleUser) {
		record, err := fromUIMessage(chat.ID, message, s.now())
		if err != nil {
			return apperrors.Wrap(apperrors.CodeBadRequestChat, err, "")
		}
		if err := s.repo.SaveMessages(ctx, []store.Message{record}); err != nil {
			return dbError(err)
		}
	}
	conversation = append(conversation, message)

	streamID := newID()
	if err := s.repo.CreateStreamID(ctx, streamID, chat.ID); err != nil {
		return dbError(err)
	}

	var agentPrompt, agentContext string
	if agent != nil {
		wallet := req.WalletAddress
		if wallet == "" {
			wallet = subject.WalletAddress
		}
		if agentContext, err = agent.Context(ctx, wallet); err != nil {
			s.log.Warn("获取智能体上下文失败", slog.String("agent_id", agentID), slog.Any("error", err))
		}
		agentPrompt = agent.SystemPrompt()
	}
	if s.knowledge != nil {
		if notes := knowledge.Format(s.knowledge.Query(message.Text(), agentID)); notes != "" {
			agentContext = strings.TrimSpace(agentContext + "\n\n" + notes)
		}
	}
	system := buildSystemPrompt(agentPrompt, agentContext, hints)

	// 客户端断开后继续生成，结果写入缓冲区供 Resume 重放。
	streamCtx := context.WithoutCancel(ctx)
	w := &streamWriter{ctx: streamCtx, streamID: streamID, out: out, buffer: s.buffer, log: s.log}
	assistantID := newID()
	textID := newID()
	started := false
	begin := func() {
		if started {
			return
		}
		started = true
		w.write(Frame{Type: FrameDataID, Data: streamID, Transient: true})
		w.write(Frame{Type: FrameStart, MessageID: assistantID})
		w.write(Frame{Type: FrameStartStep})
		w.write(Frame{Type: FrameTextStart, ID: textID})
	}

	var text strings.Builder
	resp, err := s.llm.Stream(streamCtx, llm.Request{
		Model:    llm.ResolveModel(req.SelectedChatModel, s.defaultModel),
		System:   system,
		Messages: toLLMMessages(conversation),
	}, func(d llm.Delta) error {
		if d.Text == "" {
			return nil
		}
		begin()
		text.WriteString(d.Text)
		w.write(Frame{Type: FrameTextDelta, ID: textID, Delta: d.Text})
		return nil
	})
	if err != nil {
		s.log.Error("生成回复失败", slog.String("chat_id", chat.ID), slog.Any("error", err))
		s.report(OutcomeFailed)
		if !started {
			w.complete()
			return apperrors.Wrap(apperrors.CodeOfflineChat, err, "")
		}
		w.write(Frame{Type: FrameError, ErrorText: errorText})
		w.complete()
		return nil
	}
	begin()

	reply := text.String()
	if reply == "" && resp != nil {
		reply = resp.Text
	}
	assistant, err := fromUIMessage(chat.ID, dto.UIMessage{
		ID:    assistantID,
		Role:  string(llm.RoleAssistant),
		Parts: []dto.Part{{Type: "text", Text: reply}},
	}, s.now())
	if err == nil {
		err = s.repo.SaveMessages(streamCtx, []store.Message{assistant})
	}
	if err != nil {
		s.log.Error("保存助手消息失败", slog.String("chat_id", chat.ID), slog.Any("error", err))
	}

	finishReason := "stop"
	if resp != nil && resp.FinishReason != "" {
		finishReason = resp.FinishReason
	}
	w.write(Frame{Type: FrameTextEnd, ID: textID})
	w.write(Frame{Type: FrameFinishStep})
	w.write(Frame{Type: FrameFinish, FinishReason: finishReason})
	w.complete()

	if w.detached {
		s.report(OutcomeDetached)
	} else {
		s.report(OutcomeCompleted)
	}
	return nil
}

func (s *Service) report(outcome string) {
	if s.observe != nil {
		s.observe(outcome)
	}
}

// Resume 重放会话最近一次的流。流仍在生成时会持续跟随直到结束；
// 流已过期时，若最后一条助手消息在 15 秒内生成，则以 data-appendMessage 帧返回。
func (s *Service) Resume(ctx context.Context, subject *auth.Subject, chatID string, out Emitter) error {
	chat, err := s.repo.GetChatByID(ctx, chatID)
	if err != nil {
		return dbError(err)
	}
	if chat == nil {
		return apperrors.New(apperrors.CodeNotFoundChat, "")
	}
	if chat.Visibility == store.VisibilityPrivate && chat.UserID != subject.ID {
		return apperrors.New(apperrors.CodeForbiddenChat, "")
	}

	requestedAt := s.now()
	streamIDs, err := s.repo.GetStreamIDsByChatID(ctx, chatID)
	if err != nil {
		return dbError(err)
	}
	if len(streamIDs) == 0 {
		return apperrors.New(apperrors.CodeNotFoundStream, "")
	}
	streamID := streamIDs[len(streamIDs)-1]

	replay, err := s.buffer.Replay(ctx, streamID)
	if err != nil {
		s.log.Warn("读取流缓冲失败", slog.String("stream_id", streamID), slog.Any("error", err))
	}
	// 已结束的流不再重放，交给下面的最近消息检查。
	if replay != nil && !replay.Done {
		return s.follow(ctx, streamID, replay, out)
	}

	messages, err := s.repo.GetMessagesByChatID(ctx, chatID)
	if err != nil {
		return dbError(err)
	}
	if len(messages) == 0 {
		return nil
	}
	last := messages[len(messages)-1]
	if last.Role != string(llm.RoleAssistant) || requestedAt.Sub(last.CreatedAt) > resumeWindow {
		return nil
	}
	payload, err := frameJSON.MarshalToString(toUIMessage(last))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequestChat, err, "")
	}
	frame, err := EncodeFrame(Frame{Type: FrameAppendMessage, Data: payload, Transient: true})
	if err != nil {
		return apperrors.Wrap(apperrors.CodeBadRequestChat, err, "")
	}
	return out.Send(frame)
}

// follow 写出已缓冲的帧，并轮询新帧直到流结束。
func (s *Service) follow(ctx context.Context, streamID string, replay *Replay, out Emitter) error {
	sent := 0
	ticker := time.NewTicker(resumePollInterval)
	defer ticker.Stop()
	for {
		for ; sent < len(replay.Frames); sent++ {
			if err := out.Send(replay.Frames[sent]); err != nil {
				return err
			}
		}
		if replay.Done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		next, err := s.buffer.Replay(ctx, streamID)
		if err != nil {
			if stdErrors.Is(err, context.Canceled) {
				return err
			}
			s.log.Warn("读取流缓冲失败", slog.String("stream_id", streamID), slog.Any("error", err))
			continue
		}
		if next == nil {
			return nil
		}
		replay = next
	}
}
