package defiagent

import (
	"time"

	"DeFi-Agent/pkg/dto"
)

// ThreadStatus is the lifecycle state of a thread.
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadArchived ThreadStatus = "archived"
	ThreadDeleted  ThreadStatus = "deleted"
)

// ThreadMetadata describes a conversation thread on the client side.
type ThreadMetadata struct {
	Title        string         `json:"title"`
	AgentID      string         `json:"agentId,omitempty"`
	GraphID      string         `json:"graphId,omitempty"`
	AssistantID  string         `json:"assistantId,omitempty"`
	MessageCount int            `json:"messageCount"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Thread is the client view of a chat.
type Thread struct {
	ID        string         `json:"id"`
	Metadata  ThreadMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Status    ThreadStatus   `json:"status"`
}

// ThreadFromChat maps a chat record, and its messages when known, onto a thread.
func ThreadFromChat(chat dto.Chat, messages []dto.UIMessage) Thread {
	meta := ThreadMetadata{Title: chat.Title, MessageCount: len(messages)}
	if chat.AgentID != nil {
		meta.AgentID = *chat.AgentID
		meta.AssistantID = *chat.AgentID
	}
	if chat.Visibility != "" {
		meta.Extra = map[string]any{"visibility": chat.Visibility}
	}
	return Thread{
		ID:        chat.ID,
		Metadata:  meta,
		CreatedAt: chat.CreatedAt,
		UpdatedAt: chat.CreatedAt,
		Status:    ThreadActive,
	}
}
