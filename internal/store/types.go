package store

import (
	"encoding/json"
	"time"
)

// Visibility values.
const (
	VisibilityPrivate = "private"
	VisibilityPublic  = "public"
)

// User 表示一个账户，可以是访客、邮箱用户或钱包用户。
type User struct {
	ID            string    `db:"id"`
	Email         string    `db:"email"`
	PasswordHash  string    `db:"password_hash"`
	WalletAddress string    `db:"wallet_address"`
	ReferralCode  string    `db:"referral_code"`
	CreatedAt     time.Time `db:"created_at"`
}

// Chat 是一次会话的元数据。
type Chat struct {
	ID          string    `db:"id"`
	CreatedAt   time.Time `db:"created_at"`
	Title       string    `db:"title"`
	UserID      string    `db:"user_id"`
	Visibility  string    `db:"visibility"`
	AgentID     *string   `db:"agent_id"`
	LastContext *string   `db:"last_context"`
}

// Message 保存一条 UI 消息，Parts 与 Attachments 以 JSON 原样存储。
type Message struct {
	ID          string          `db:"id"`
	ChatID      string          `db:"chat_id"`
	Role        string          `db:"role"`
	Parts       json.RawMessage `db:"parts"`
	Attachments json.RawMessage `db:"attachments"`
	CreatedAt   time.Time       `db:"created_at"`
}

// Vote 记录用户对一条助手消息的评价。
type Vote struct {
	ChatID    string `db:"chat_id"`
	MessageID string `db:"message_id"`
	IsUpvoted bool   `db:"is_upvoted"`
}

// Document 是文档的一个版本，由 (ID, CreatedAt) 唯一确定。
type Document struct {
	ID        string    `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	Kind      string    `db:"kind"`
	UserID    string    `db:"user_id"`
}

// Suggestion 是针对某个文档版本的修改建议。
type Suggestion struct {
	ID                string    `db:"id"`
	DocumentID        string    `db:"document_id"`
	DocumentCreatedAt time.Time `db:"document_created_at"`
	OriginalText      string    `db:"original_text"`
	SuggestedText     string    `db:"suggested_text"`
	Description       string    `db:"description"`
	IsResolved        bool      `db:"is_resolved"`
	UserID            string    `db:"user_id"`
	CreatedAt         time.Time `db:"created_at"`
}

// Stream 记录一次可恢复的流式响应。
type Stream struct {
	ID        string    `db:"id"`
	ChatID    string    `db:"chat_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Link 是链接收藏。
type Link struct {
	ID          int64     `db:"id"`
	Title       string    `db:"title"`
	URL         string    `db:"url"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// LinkPatch 描述部分更新，nil 字段保持不变。
type LinkPatch struct {
	Title       *string
	URL         *string
	Description *string
}

// ListChatsParams 是会话历史分页查询参数。
//
// StartingAfter 与 EndingBefore 都是会话 ID：前者返回比游标更新的会话，后者返回更旧的会话。
// AgentID 为 nil 时不过滤；指向空串时只返回未绑定智能体的会话。
type ListChatsParams struct {
	UserID        string
	Limit         int
	StartingAfter string
	EndingBefore  string
	AgentID       *string
}

// ChatPage 是一页会话。
type ChatPage struct {
	Chats   []Chat
	HasMore bool
}
