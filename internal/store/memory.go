package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "DeFi-Agent/internal/errors"
)

// Memory 是基于 map 的仓储实现，读写由 RWMutex 保护。
type Memory struct {
	mu          sync.RWMutex
	users       map[string]*User
	chats       map[string]*Chat
	messages    map[string]*Message
	votes       map[string]Vote
	documents   []Document
	suggestions []Suggestion
	streams     []Stream
	links       map[int64]*Link
	nextLinkID  int64
	now         func() time.Time
}

// NewMemory 创建一个空的内存仓储。
func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*User),
		chats:      make(map[string]*Chat),
		messages:   make(map[string]*Message),
		votes:      make(map[string]Vote),
		links:      make(map[int64]*Link),
		nextLinkID: 1,
		now:        time.Now,
	}
}

// Close 实现 Repository 接口。
func (m *Memory) Close() error { return nil }

func voteKey(chatID, messageID string) string {
	return chatID + "/" + messageID
}

// GetUserByEmail 按邮箱查询用户。
func (m *Memory) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

// GetUserByWallet 按钱包地址查询用户，地址大小写不敏感。
func (m *Memory) GetUserByWallet(_ context.Context, walletAddress string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.WalletAddress != "" && strings.EqualFold(user.WalletAddress, walletAddress) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, nil
}

// CreateUser 保存新用户。
func (m *Memory) CreateUser(_ context.Context, user *User) error {
	if user == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = m.now()
	}
	clone := *user
	m.users[user.ID] = &clone
	return nil
}

// SetReferralCode 记录用户首次登录时的推荐码。
func (m *Memory) SetReferralCode(_ context.Context, userID, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user, ok := m.users[userID]; ok {
		user.ReferralCode = code
	}
	return nil
}

// SaveChat 保存会话。
func (m *Memory) SaveChat(_ context.Context, chat *Chat) error {
	if chat == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = m.now()
	}
	clone := *chat
	m.chats[chat.ID] = &clone
	return nil
}

// GetChatByID 查询会话，不存在时返回 nil。
func (m *Memory) GetChatByID(_ context.Context, id string) (*Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if chat, ok := m.chats[id]; ok {
		clone := *chat
		return &clone, nil
	}
	return nil, nil
}

// DeleteChatByID 删除会话及其投票、消息和流记录。
func (m *Memory) DeleteChatByID(_ context.Context, id string) (*Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chat, ok := m.chats[id]
	if !ok {
		return nil, nil
	}
	m.deleteChatLocked(id)
	return chat, nil
}

func (m *Memory) deleteChatLocked(id string) {
	for key, vote := range m.votes {
		if vote.ChatID == id {
			delete(m.votes, key)
		}
	}
	for msgID, msg := range m.messages {
		if msg.ChatID == id {
			delete(m.messages, msgID)
		}
	}
	kept := m.streams[:0]
	for _, stream := range m.streams {
		if stream.ChatID != id {
			kept = append(kept, stream)
		}
	}
	m.streams = kept
	delete(m.chats, id)
}

// DeleteAllChatsByUser 删除用户的全部会话并返回删除数量。
func (m *Memory) DeleteAllChatsByUser(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, chat := range m.chats {
		if chat.UserID == userID {
			m.deleteChatLocked(id)
			count++
		}
	}
	return count, nil
}

// ListChatsByUser 按创建时间倒序分页返回用户的会话。
func (m *Memory) ListChatsByUser(_ context.Context, params ListChatsParams) (*ChatPage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cursor *Chat
	switch {
	case params.StartingAfter != "":
		cursor = m.chats[params.StartingAfter]
		if cursor == nil {
			return nil, apperrors.New(apperrors.CodeNotFoundDatabase, "Chat with id "+params.StartingAfter+" not found")
		}
	case params.EndingBefore != "":
		cursor = m.chats[params.EndingBefore]
		if cursor == nil {
			return nil, apperrors.New(apperrors.CodeNotFoundDatabase, "Chat with id "+params.EndingBefore+" not found")
		}
	}

	matched := make([]Chat, 0)
	for _, chat := range m.chats {
		if chat.UserID != params.UserID {
			continue
		}
		if !matchAgent(chat.AgentID, params.AgentID) {
			continue
		}
		if cursor != nil {
			if params.StartingAfter != "" && !chat.CreatedAt.After(cursor.CreatedAt) {
				continue
			}
			if params.EndingBefore != "" && !chat.CreatedAt.Before(cursor.CreatedAt) {
				continue
			}
		}
		matched = append(matched, *chat)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	page := &ChatPage{Chats: matched}
	if params.Limit > 0 && len(matched) > params.Limit {
		page.Chats = matched[:params.Limit]
		page.HasMore = true
	}
	return page, nil
}

func matchAgent(chatAgent, filter *string) bool {
	if filter == nil {
		return true
	}
	if *filter == "" {
		return chatAgent == nil || *chatAgent == ""
	}
	return chatAgent != nil && *chatAgent == *filter
}

// UpdateChatVisibility 修改会话可见性。
func (m *Memory) UpdateChatVisibility(_ context.Context, id, visibility string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chat, ok := m.chats[id]; ok {
		chat.Visibility = visibility
	}
	return nil
}

// UpdateChatTitle 修改会话标题。
func (m *Memory) UpdateChatTitle(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if chat, ok := m.chats[id]; ok {
		chat.Title = title
	}
	return nil
}

// SaveMessages 批量保存消息。
func (m *Memory) SaveMessages(_ context.Context, messages []Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = m.now()
		}
		clone := msg
		m.messages[msg.ID] = &clone
	}
	return nil
}

// GetMessagesByChatID 按创建时间正序返回会话消息。
func (m *Memory) GetMessagesByChatID(_ context.Context, chatID string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Message, 0)
	for _, msg := range m.messages {
		if msg.ChatID == chatID {
			out = append(out, *msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetMessageByID 查询单条消息。
func (m *Memory) GetMessageByID(_ context.Context, id string) (*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if msg, ok := m.messages[id]; ok {
		clone := *msg
		return &clone, nil
	}
	return nil, nil
}

// DeleteMessagesAfter 删除会话中 createdAt >= ts 的消息及其投票。
func (m *Memory) DeleteMessagesAfter(_ context.Context, chatID string, ts time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for id, msg := range m.messages {
		if msg.ChatID != chatID || msg.CreatedAt.Before(ts) {
			continue
		}
		delete(m.votes, voteKey(chatID, id))
		delete(m.messages, id)
		count++
	}
	return count, nil
}

// CountUserMessagesSince 统计用户在 since 之后发送的消息数量。
func (m *Memory) CountUserMessagesSince(_ context.Context, userID string, since time.Time) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, msg := range m.messages {
		if msg.Role != "user" || msg.CreatedAt.Before(since) {
			continue
		}
		if chat, ok := m.chats[msg.ChatID]; ok && chat.UserID == userID {
			count++
		}
	}
	return count, nil
}

// VoteMessage 新增或覆盖投票。
func (m *Memory) VoteMessage(_ context.Context, vote Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[voteKey(vote.ChatID, vote.MessageID)] = vote
	return nil
}

// GetVotesByChatID 返回会话的全部投票。
func (m *Memory) GetVotesByChatID(_ context.Context, chatID string) ([]Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Vote, 0)
	for _, vote := range m.votes {
		if vote.ChatID == chatID {
			out = append(out, vote)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MessageID < out[j].MessageID })
	return out, nil
}

// SaveDocument 保存文档的新版本。
func (m *Memory) SaveDocument(_ context.Context, doc *Document) error {
	if doc == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = m.now()
	}
	m.documents = append(m.documents, *doc)
	return nil
}

// GetDocumentsByID 按创建时间正序返回文档的全部版本。
func (m *Memory) GetDocumentsByID(_ context.Context, id string) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.documentsLocked(id), nil
}

func (m *Memory) documentsLocked(id string) []Document {
	out := make([]Document, 0)
	for _, doc := range m.documents {
		if doc.ID == id {
			out = append(out, doc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// GetDocumentByID 返回文档的最新版本。
func (m *Memory) GetDocumentByID(_ context.Context, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	versions := m.documentsLocked(id)
	if len(versions) == 0 {
		return nil, nil
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

// DeleteDocumentsAfter 删除 ts 之后的文档版本及其建议，返回被删除的版本。
func (m *Memory) DeleteDocumentsAfter(_ context.Context, id string, ts time.Time) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	deleted := make([]Document, 0)
	keptDocs := m.documents[:0]
	for _, doc := range m.documents {
		if doc.ID == id && doc.CreatedAt.After(ts) {
			deleted = append(deleted, doc)
			continue
		}
		keptDocs = append(keptDocs, doc)
	}
	m.documents = keptDocs

	keptSuggestions := m.suggestions[:0]
	for _, s := range m.suggestions {
		if s.DocumentID == id && s.DocumentCreatedAt.After(ts) {
			continue
		}
		keptSuggestions = append(keptSuggestions, s)
	}
	m.suggestions = keptSuggestions
	return deleted, nil
}

// SaveSuggestions 批量保存建议。
func (m *Memory) SaveSuggestions(_ context.Context, suggestions []Suggestion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range suggestions {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = m.now()
		}
		m.suggestions = append(m.suggestions, s)
	}
	return nil
}

// GetSuggestionsByDocumentID 返回文档的全部建议。
func (m *Memory) GetSuggestionsByDocumentID(_ context.Context, documentID string) ([]Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Suggestion, 0)
	for _, s := range m.suggestions {
		if s.DocumentID == documentID {
			out = append(out, s)
		}
	}
	return out, nil
}

// CreateStreamID 记录新的流 ID。
func (m *Memory) CreateStreamID(_ context.Context, streamID, chatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streams = append(m.streams, Stream{ID: streamID, ChatID: chatID, CreatedAt: m.now()})
	return nil
}

// GetStreamIDsByChatID 按创建时间正序返回流 ID。
func (m *Memory) GetStreamIDsByChatID(_ context.Context, chatID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matched := make([]Stream, 0)
	for _, stream := range m.streams {
		if stream.ChatID == chatID {
			matched = append(matched, stream)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})
	ids := make([]string, 0, len(matched))
	for _, stream := range matched {
		ids = append(ids, stream.ID)
	}
	return ids, nil
}

// CreateLink 保存链接并分配自增 ID。
func (m *Memory) CreateLink(_ context.Context, link *Link) error {
	if link == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	link.ID = m.nextLinkID
	m.nextLinkID++
	link.CreatedAt = now
	link.UpdatedAt = now
	clone := *link
	m.links[link.ID] = &clone
	return nil
}

// ListLinks 按 ID 顺序返回全部链接。
func (m *Memory) ListLinks(_ context.Context) ([]Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Link, 0, len(m.links))
	for _, link := range m.links {
		out = append(out, *link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetLink 查询链接。
func (m *Memory) GetLink(_ context.Context, id int64) (*Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	link, ok := m.links[id]
	if !ok {
		return nil, linkNotFound(id)
	}
	clone := *link
	return &clone, nil
}

// UpdateLink 部分更新链接。
func (m *Memory) UpdateLink(_ context.Context, id int64, patch LinkPatch) (*Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[id]
	if !ok {
		return nil, linkNotFound(id)
	}
	if patch.Title != nil {
		link.Title = *patch.Title
	}
	if patch.URL != nil {
		link.URL = *patch.URL
	}
	if patch.Description != nil {
		link.Description = *patch.Description
	}
	link.UpdatedAt = m.now()
	clone := *link
	return &clone, nil
}

// DeleteLink 删除链接。
func (m *Memory) DeleteLink(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return linkNotFound(id)
	}
	delete(m.links, id)
	return nil
}

func linkNotFound(id int64) error {
	return apperrors.New(apperrors.CodeNotFoundLink, "Link #"+strconv.FormatInt(id, 10)+" not found")
}

var _ Repository = (*Memory)(nil)
