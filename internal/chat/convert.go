package chat

import (
	"encoding/json"
	"strings"
	"time"

	"DeFi-Agent/internal/llm"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/dto"
)

func toChatDTO(c *store.Chat) dto.Chat {
	return dto.Chat{
		ID:         c.ID,
		CreatedAt:  c.CreatedAt,
		Title:      c.Title,
		UserID:     c.UserID,
		Visibility: c.Visibility,
		AgentID:    c.AgentID,
	}
}

func toUIMessage(m store.Message) dto.UIMessage {
	out := dto.UIMessage{
		ID:       m.ID,
		Role:     m.Role,
		Metadata: &dto.MessageMetadata{CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339)},
	}
	if len(m.Parts) > 0 {
		_ = json.Unmarshal(m.Parts, &out.Parts)
	}
	if len(m.Attachments) > 0 {
		_ = json.Unmarshal(m.Attachments, &out.Attachments)
	}
	if out.Parts == nil {
		out.Parts = []dto.Part{}
	}
	return out
}

func toUIMessages(messages []store.Message) []dto.UIMessage {
	out := make([]dto.UIMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, toUIMessage(m))
	}
	return out
}

func fromUIMessage(chatID string, m dto.UIMessage, createdAt time.Time) (store.Message, error) {
	parts, err := json.Marshal(m.Parts)
	if err != nil {
		return store.Message{}, err
	}
	attachments := []byte("[]")
	if len(m.Attachments) > 0 {
		if attachments, err = json.Marshal(m.Attachments); err != nil {
			return store.Message{}, err
		}
	}
	return store.Message{
		ID:          m.ID,
		ChatID:      chatID,
		Role:        m.Role,
		Parts:       parts,
		Attachments: attachments,
		CreatedAt:   createdAt,
	}, nil
}

// toLLMMessages 只保留带文本的用户与助手消息。
func toLLMMessages(messages []dto.UIMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		text := strings.TrimSpace(m.Text())
		if text == "" {
			continue
		}
		switch m.Role {
		case string(llm.RoleUser):
			out = append(out, llm.Message{Role: llm.RoleUser, Content: text})
		case string(llm.RoleAssistant):
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: text})
		}
	}
	return out
}
