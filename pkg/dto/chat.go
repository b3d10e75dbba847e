package dto

import (
	"encoding/json"
	"time"
)

// Visibility values accepted for chats.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// ChatParams validates ids received in paths and queries.
type ChatParams struct {
	ID string `json:"id" validate:"required,identifier"`
}

// Part is one element of a UI message. Unknown part types are kept verbatim
// in Extra so they round-trip through storage.
type Part struct {
	Type  string          `json:"type" validate:"required"`
	Text  string          `json:"text,omitempty"`
	Extra json.RawMessage `json:"-"`
}

// MarshalJSON emits the raw part when it was decoded from an unknown shape.
func (p Part) MarshalJSON() ([]byte, error) {
	if len(p.Extra) > 0 {
		return p.Extra, nil
	}
	type plain Part
	return json.Marshal(plain(p))
}

// UnmarshalJSON keeps the original bytes for non-text parts.
func (p *Part) UnmarshalJSON(data []byte) error {
	type plain Part
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Part(decoded)
	if p.Type != "text" {
		p.Extra = append(json.RawMessage(nil), data...)
	}
	return nil
}

// Attachment is a file referenced by a message.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url" validate:"required,url"`
	ContentType string `json:"contentType"`
}

// MessageMetadata is attached to every message sent to the client.
type MessageMetadata struct {
	CreatedAt string `json:"createdAt"`
}

// UIMessage mirrors the chat message shape used by the web client.
type UIMessage struct {
	ID          string           `json:"id" validate:"required,identifier"`
	Role        string           `json:"role" validate:"required,oneof=user assistant system"`
	Parts       []Part           `json:"parts" validate:"required,min=1,dive"`
	Attachments []Attachment     `json:"attachments,omitempty" validate:"omitempty,dive"`
	Metadata    *MessageMetadata `json:"metadata,omitempty"`
}

// Text concatenates the text parts of the message.
func (m UIMessage) Text() string {
	var out string
	for _, part := range m.Parts {
		if part.Type == "text" {
			if out != "" {
				out += "\n"
			}
			out += part.Text
		}
	}
	return out
}

// PostChatRequest is the body of POST /api/chat.
type PostChatRequest struct {
	ID                     string      `json:"id" validate:"required,identifier"`
	Message                *UIMessage  `json:"message,omitempty" validate:"omitempty"`
	Messages               []UIMessage `json:"messages,omitempty" validate:"omitempty,dive"`
	SelectedChatModel      string      `json:"selectedChatModel" validate:"required"`
	SelectedVisibilityType string      `json:"selectedVisibilityType,omitempty" validate:"omitempty,oneof=private public"`
	WalletAddress          string      `json:"walletAddress,omitempty" validate:"omitempty,eth_addr"`
	AgentID                string      `json:"agentId,omitempty"`
}

// UserMessage returns the message the request is sending, preferring the
// single message field over the tail of the messages list.
func (r PostChatRequest) UserMessage() (UIMessage, bool) {
	if r.Message != nil {
		return *r.Message, true
	}
	if n := len(r.Messages); n > 0 {
		return r.Messages[n-1], true
	}
	return UIMessage{}, false
}

// Visibility returns the requested visibility, defaulting to private.
func (r PostChatRequest) Visibility() string {
	if r.SelectedVisibilityType == "" {
		return VisibilityPrivate
	}
	return r.SelectedVisibilityType
}

// VisibilityRequest is the body of PATCH /api/chat/{id}/visibility.
type VisibilityRequest struct {
	Visibility string `json:"visibility" validate:"required,oneof=private public"`
}

// Chat is the wire form of a chat.
type Chat struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	Title      string    `json:"title"`
	UserID     string    `json:"userId"`
	Visibility string    `json:"visibility"`
	AgentID    *string   `json:"agentId"`
}

// ChatWithMessages is returned by GET /api/chat/{id}.
type ChatWithMessages struct {
	Chat     Chat        `json:"chat"`
	Messages []UIMessage `json:"messages"`
}

// HistoryQuery is the query of GET /api/history. A nil AgentID lists every
// chat; a pointer to "" lists chats without an agent.
type HistoryQuery struct {
	Limit         int     `json:"limit"`
	StartingAfter string  `json:"starting_after"`
	EndingBefore  string  `json:"ending_before"`
	AgentID       *string `json:"agentId,omitempty"`
}

// HistoryPage is one page of chats.
type HistoryPage struct {
	Chats   []Chat `json:"chats"`
	HasMore bool   `json:"hasMore"`
}

// DeletedCount reports bulk deletions.
type DeletedCount struct {
	DeletedCount int64 `json:"deletedCount"`
}

// VoteRequest is the body of PATCH /api/vote.
type VoteRequest struct {
	ChatID    string `json:"chatId" validate:"required,identifier"`
	MessageID string `json:"messageId" validate:"required,identifier"`
	Type      string `json:"type" validate:"required,oneof=up down"`
}

// Vote is the wire form of a vote.
type Vote struct {
	ChatID    string `json:"chatId"`
	MessageID string `json:"messageId"`
	IsUpvoted bool   `json:"isUpvoted"`
}

// Success is the generic acknowledgement body.
type Success struct {
	Success bool `json:"success"`
}
