package store

import (
	"context"
	"time"
)

// UserRepository 管理账户。
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByWallet(ctx context.Context, walletAddress string) (*User, error)
	CreateUser(ctx context.Context, user *User) error
	SetReferralCode(ctx context.Context, userID, code string) error
}

// ChatRepository 管理会话。
type ChatRepository interface {
	SaveChat(ctx context.Context, chat *Chat) error
	GetChatByID(ctx context.Context, id string) (*Chat, error)
	DeleteChatByID(ctx context.Context, id string) (*Chat, error)
	DeleteAllChatsByUser(ctx context.Context, userID string) (int64, error)
	ListChatsByUser(ctx context.Context, params ListChatsParams) (*ChatPage, error)
	UpdateChatVisibility(ctx context.Context, id, visibility string) error
	UpdateChatTitle(ctx context.Context, id, title string) error
}

// MessageRepository 管理消息。
type MessageRepository interface {
	SaveMessages(ctx context.Context, messages []Message) error
	GetMessagesByChatID(ctx context.Context, chatID string) ([]Message, error)
	GetMessageByID(ctx context.Context, id string) (*Message, error)
	DeleteMessagesAfter(ctx context.Context, chatID string, ts time.Time) (int64, error)
	CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int, error)
}

// VoteRepository 管理投票。
type VoteRepository interface {
	VoteMessage(ctx context.Context, vote Vote) error
	GetVotesByChatID(ctx context.Context, chatID string) ([]Vote, error)
}

// DocumentRepository 管理文档与建议。
type DocumentRepository interface {
	SaveDocument(ctx context.Context, doc *Document) error
	GetDocumentsByID(ctx context.Context, id string) ([]Document, error)
	GetDocumentByID(ctx context.Context, id string) (*Document, error)
	DeleteDocumentsAfter(ctx context.Context, id string, ts time.Time) ([]Document, error)
	SaveSuggestions(ctx context.Context, suggestions []Suggestion) error
	GetSuggestionsByDocumentID(ctx context.Context, documentID string) ([]Suggestion, error)
}

// StreamRepository 管理可恢复流的 ID。
type StreamRepository interface {
	CreateStreamID(ctx context.Context, streamID, chatID string) error
	GetStreamIDsByChatID(ctx context.Context, chatID string) ([]string, error)
}

// LinkRepository 管理链接收藏。
type LinkRepository interface {
	CreateLink(ctx context.Context, link *Link) error
	ListLinks(ctx context.Context) ([]Link, error)
	GetLink(ctx context.Context, id int64) (*Link, error)
	UpdateLink(ctx context.Context, id int64, patch LinkPatch) (*Link, error)
	DeleteLink(ctx context.Context, id int64) error
}

// Repository 聚合全部仓储能力。查询不存在的单条记录时返回 (nil, nil)，
// 链接相关操作例外，会返回 not_found:link。
type Repository interface {
	UserRepository
	ChatRepository
	MessageRepository
	VoteRepository
	DocumentRepository
	StreamRepository
	LinkRepository
	Close() error
}
