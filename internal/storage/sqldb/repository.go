package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/internal/store"
	"DeFi-Agent/pkg/logger"
)

// Repository 是 store.Repository 的 SQL 实现。
type Repository struct {
	db     *sqlx.DB
	driver string
	log    *slog.Logger
	now    func() time.Time
}

// New 基于已有连接构造仓储，驱动名取自 db.DriverName()。
func New(db *sqlx.DB) *Repository {
	return &Repository{
		db:     db,
		driver: db.DriverName(),
		log:    logger.Named("sqldb"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Close 关闭连接池。
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB 暴露底层连接，供健康检查使用。
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

func (r *Repository) postgres() bool {
	return r.driver == DriverPostgres
}

func dbError(err error, message string) error {
	return apperrors.Wrap(apperrors.CodeBadRequestDB, err, message)
}

type messageRow struct {
	ID          string         `db:"id"`
	ChatID      string         `db:"chat_id"`
	Role        string         `db:"role"`
	Parts       types.JSONText `db:"parts"`
	Attachments types.JSONText `db:"attachments"`
	CreatedAt   time.Time      `db:"created_at"`
}

func (m messageRow) toMessage() store.Message {
	return store.Message{
		ID:          m.ID,
		ChatID:      m.ChatID,
		Role:        m.Role,
		Parts:       []byte(m.Parts),
		Attachments: []byte(m.Attachments),
		CreatedAt:   m.CreatedAt,
	}
}

func jsonOrEmpty(raw []byte, empty string) types.JSONText {
	if len(raw) == 0 {
		return types.JSONText(empty)
	}
	return types.JSONText(raw)
}

const (
	userColumns       = `id, email, password_hash, wallet_address, referral_code, created_at`
	chatColumns       = `id, created_at, title, user_id, visibility, agent_id, last_context`
	messageColumns    = `id, chat_id, role, parts, attachments, created_at`
	documentColumns   = `id, created_at, title, content, kind, user_id`
	suggestionColumns = `id, document_id, document_created_at, original_text, suggested_text, description, is_resolved, user_id, created_at`
	linkColumns       = `id, title, url, description, created_at, updated_at`
)

func (r *Repository) getOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	err := r.db.GetContext(ctx, dest, r.db.Rebind(query), args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUserByEmail 按邮箱查询用户。
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	found, err := r.getOne(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	if err != nil {
		return nil, dbError(err, "Failed to get user by email")
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// GetUserByWallet 按钱包地址查询用户。
func (r *Repository) GetUserByWallet(ctx context.Context, walletAddress string) (*store.User, error) {
	var user store.User
	found, err := r.getOne(ctx, &user, `SELECT `+userColumns+` FROM users WHERE LOWER(wallet_address) = ?`, strings.ToLower(walletAddress))
	if err != nil {
		return nil, dbError(err, "Failed to get user by wallet")
	}
	if !found {
		return nil, nil
	}
	return &user, nil
}

// CreateUser 保存新用户。
func (r *Repository) CreateUser(ctx context.Context, user *store.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.now()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO users (`+userColumns+`)
VALUES (:id, :email, :password_hash, :wallet_address, :referral_code, :created_at)`, user)
	if err != nil {
		return dbError(err, "Failed to create user")
	}
	return nil
}

// SetReferralCode 记录推荐码。
func (r *Repository) SetReferralCode(ctx context.Context, userID, code string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE users SET referral_code = ? WHERE id = ?`), code, userID); err != nil {
		return dbError(err, "Failed to update referral code")
	}
	return nil
}

// SaveChat 保存会话。
func (r *Repository) SaveChat(ctx context.Context, chat *store.Chat) error {
	if chat.CreatedAt.IsZero() {
		chat.CreatedAt = r.now()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO chats (`+chatColumns+`)
VALUES (:id, :created_at, :title, :user_id, :visibility, :agent_id, :last_context)`, chat)
	if err != nil {
		return dbError(err, "Failed to save chat")
	}
	return nil
}

// GetChatByID 查询会话。
func (r *Repository) GetChatByID(ctx context.Context, id string) (*store.Chat, error) {
	var chat store.Chat
	found, err := r.getOne(ctx, &chat, `SELECT `+chatColumns+` FROM chats WHERE id = ?`, id)
	if err != nil {
		return nil, dbError(err, "Failed to get chat by id")
	}
	if !found {
		return nil, nil
	}
	return &chat, nil
}

// DeleteChatByID 在事务中删除会话及其投票、消息和流记录。
func (r *Repository) DeleteChatByID(ctx context.Context, id string) (*store.Chat, error) {
	chat, err := r.GetChatByID(ctx, id)
	if err != nil || chat == nil {
		return nil, err
	}
	err = r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM votes WHERE chat_id = ?`,
			`DELETE FROM messages WHERE chat_id = ?`,
			`DELETE FROM streams WHERE chat_id = ?`,
			`DELETE FROM chats WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, tx.Rebind(stmt), id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbError(err, "Failed to delete chat by id")
	}
	return chat, nil
}

// DeleteAllChatsByUser 删除用户全部会话。
func (r *Repository) DeleteAllChatsByUser(ctx context.Context, userID string) (int64, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`SELECT id FROM chats WHERE user_id = ?`), userID); err != nil {
		return 0, dbError(err, "Failed to delete all chats by user id")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{
			`DELETE FROM votes WHERE chat_id IN (?)`,
			`DELETE FROM messages WHERE chat_id IN (?)`,
			`DELETE FROM streams WHERE chat_id IN (?)`,
			`DELETE FROM chats WHERE id IN (?)`,
		} {
			query, args, err := sqlx.In(stmt, ids)
			if err != nil {
				return err
			}
			res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
			if err != nil {
				return err
			}
			if strings.HasPrefix(stmt, "DELETE FROM chats") {
				deleted, _ = res.RowsAffected()
			}
		}
		return nil
	})
	if err != nil {
		return 0, dbError(err, "Failed to delete all chats by user id")
	}
	return deleted, nil
}

// ListChatsByUser 分页查询会话。
func (r *Repository) ListChatsByUser(ctx context.Context, params store.ListChatsParams) (*store.ChatPage, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{params.UserID}
	)
	cursorID, op := params.StartingAfter, ">"
	if cursorID == "" && params.EndingBefore != "" {
		cursorID, op = params.EndingBefore, "<"
	}
	if cursorID != "" {
		var createdAt time.Time
		found, err := r.getOne(ctx, &createdAt, `SELECT created_at FROM chats WHERE id = ?`, cursorID)
		if err != nil {
			return nil, dbError(err, "Failed to get chats by user id")
		}
		if !found {
			return nil, apperrors.New(apperrors.CodeNotFoundDatabase, "Chat with id "+cursorID+" not found")
		}
		where = append(where, "created_at "+op+" ?")
		args = append(args, createdAt)
	}
	if params.AgentID != nil {
		if *params.AgentID == "" {
			where = append(where, "(agent_id IS NULL OR agent_id = '')")
		} else {
			where = append(where, "agent_id = ?")
			args = append(args, *params.AgentID)
		}
	}

	query := `SELECT ` + chatColumns + ` FROM chats WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if params.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(params.Limit+1)
	}
	chats := make([]store.Chat, 0)
	if err := r.db.SelectContext(ctx, &chats, r.db.Rebind(query), args...); err != nil {
		return nil, dbError(err, "Failed to get chats by user id")
	}
	page := &store.ChatPage{Chats: chats}
	if params.Limit > 0 && len(chats) > params.Limit {
		page.Chats = chats[:params.Limit]
		page.HasMore = true
	}
	return page, nil
}

// UpdateChatVisibility 修改会话可见性。
func (r *Repository) UpdateChatVisibility(ctx context.Context, id, visibility string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE chats SET visibility = ? WHERE id = ?`), visibility, id); err != nil {
		return dbError(err, "Failed to update chat visibility by id")
	}
	return nil
}

// UpdateChatTitle 修改会话标题。
func (r *Repository) UpdateChatTitle(ctx context.Context, id, title string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE chats SET title = ? WHERE id = ?`), title, id); err != nil {
		return dbError(err, "Failed to update chat title by id")
	}
	return nil
}

// SaveMessages 在事务中批量保存消息。
func (r *Repository) SaveMessages(ctx context.Context, messages []store.Message) error {
	if len(messages) == 0 {
		return nil
	}
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, msg := range messages {
			if msg.CreatedAt.IsZero() {
				msg.CreatedAt = r.now()
			}
			row := messageRow{
				ID:          msg.ID,
				ChatID:      msg.ChatID,
				Role:        msg.Role,
				Parts:       jsonOrEmpty(msg.Parts, "[]"),
				Attachments: jsonOrEmpty(msg.Attachments, "[]"),
				CreatedAt:   msg.CreatedAt,
			}
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO messages (`+messageColumns+`)
VALUES (:id, :chat_id, :role, :parts, :attachments, :created_at)`, row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbError(err, "Failed to save messages")
	}
	return nil
}

// GetMessagesByChatID 按时间正序返回消息。
func (r *Repository) GetMessagesByChatID(ctx context.Context, chatID string) ([]store.Message, error) {
	var rows []messageRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`SELECT `+messageColumns+` FROM messages WHERE chat_id = ? ORDER BY created_at ASC`), chatID); err != nil {
		return nil, dbError(err, "Failed to get messages by chat id")
	}
	out := make([]store.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toMessage())
	}
	return out, nil
}

// GetMessageByID 查询单条消息。
func (r *Repository) GetMessageByID(ctx context.Context, id string) (*store.Message, error) {
	var row messageRow
	found, err := r.getOne(ctx, &row, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	if err != nil {
		return nil, dbError(err, "Failed to get message by id")
	}
	if !found {
		return nil, nil
	}
	msg := row.toMessage()
	return &msg, nil
}

// DeleteMessagesAfter 删除 createdAt >= ts 的消息及其投票。
func (r *Repository) DeleteMessagesAfter(ctx context.Context, chatID string, ts time.Time) (int64, error) {
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`SELECT id FROM messages WHERE chat_id = ? AND created_at >= ?`), chatID, ts); err != nil {
		return 0, dbError(err, "Failed to delete messages by chat id after timestamp")
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var deleted int64
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := sqlx.In(`DELETE FROM votes WHERE chat_id = ? AND message_id IN (?)`, chatID, ids)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return err
		}
		query, args, err = sqlx.In(`DELETE FROM messages WHERE chat_id = ? AND id IN (?)`, chatID, ids)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return err
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, dbError(err, "Failed to delete messages by chat id after timestamp")
	}
	return deleted, nil
}

// CountUserMessagesSince 统计用户发送的消息数。
func (r *Repository) CountUserMessagesSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(m.id) FROM messages m
INNER JOIN chats c ON m.chat_id = c.id
WHERE c.user_id = ? AND m.created_at >= ? AND m.role = 'user'`), userID, since)
	if err != nil {
		return 0, dbError(err, "Failed to get message count by user id")
	}
	return count, nil
}

// VoteMessage 新增或覆盖投票。
func (r *Repository) VoteMessage(ctx context.Context, vote store.Vote) error {
	query := `INSERT INTO votes (chat_id, message_id, is_upvoted) VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE is_upvoted = VALUES(is_upvoted)`
	if r.postgres() {
		query = `INSERT INTO votes (chat_id, message_id, is_upvoted) VALUES (?, ?, ?)
ON CONFLICT (chat_id, message_id) DO UPDATE SET is_upvoted = EXCLUDED.is_upvoted`
	}
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), vote.ChatID, vote.MessageID, vote.IsUpvoted); err != nil {
		return dbError(err, "Failed to vote message")
	}
	return nil
}

// GetVotesByChatID 返回会话投票。
func (r *Repository) GetVotesByChatID(ctx context.Context, chatID string) ([]store.Vote, error) {
	votes := make([]store.Vote, 0)
	if err := r.db.SelectContext(ctx, &votes, r.db.Rebind(`SELECT chat_id, message_id, is_upvoted FROM votes WHERE chat_id = ?`), chatID); err != nil {
		return nil, dbError(err, "Failed to get votes by chat id")
	}
	return votes, nil
}

// SaveDocument 保存文档新版本。
func (r *Repository) SaveDocument(ctx context.Context, doc *store.Document) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now()
	}
	_, err := r.db.NamedExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
VALUES (:id, :created_at, :title, :content, :kind, :user_id)`, doc)
	if err != nil {
		return dbError(err, "Failed to save document")
	}
	return nil
}

// GetDocumentsByID 返回文档全部版本。
func (r *Repository) GetDocumentsByID(ctx context.Context, id string) ([]store.Document, error) {
	docs := make([]store.Document, 0)
	if err := r.db.SelectContext(ctx, &docs, r.db.Rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ? ORDER BY created_at ASC`), id); err != nil {
		return nil, dbError(err, "Failed to get documents by id")
	}
	return docs, nil
}

// GetDocumentByID 返回最新版本。
func (r *Repository) GetDocumentByID(ctx context.Context, id string) (*store.Document, error) {
	var doc store.Document
	found, err := r.getOne(ctx, &doc, `SELECT `+documentColumns+` FROM documents WHERE id = ? ORDER BY created_at DESC LIMIT 1`, id)
	if err != nil {
		return nil, dbError(err, "Failed to get document by id")
	}
	if !found {
		return nil, nil
	}
	return &doc, nil
}

// DeleteDocumentsAfter 删除 ts 之后的版本与建议。
func (r *Repository) DeleteDocumentsAfter(ctx context.Context, id string, ts time.Time) ([]store.Document, error) {
	deleted := make([]store.Document, 0)
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM suggestions WHERE document_id = ? AND document_created_at > ?`), id, ts); err != nil {
			return err
		}
		if err := tx.SelectContext(ctx, &deleted, tx.Rebind(`SELECT `+documentColumns+` FROM documents WHERE id = ? AND created_at > ? ORDER BY created_at ASC`), id, ts); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM documents WHERE id = ? AND created_at > ?`), id, ts)
		return err
	})
	if err != nil {
		return nil, dbError(err, "Failed to delete documents by id after timestamp")
	}
	return deleted, nil
}

// SaveSuggestions 批量保存建议。
func (r *Repository) SaveSuggestions(ctx context.Context, suggestions []store.Suggestion) error {
	if len(suggestions) == 0 {
		return nil
	}
	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		for _, s := range suggestions {
			if s.CreatedAt.IsZero() {
				s.CreatedAt = r.now()
			}
			if _, err := tx.NamedExecContext(ctx, `INSERT INTO suggestions (`+suggestionColumns+`)
VALUES (:id, :document_id, :document_created_at, :original_text, :suggested_text, :description, :is_resolved, :user_id, :created_at)`, s); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return dbError(err, "Failed to save suggestions")
	}
	return nil
}

// GetSuggestionsByDocumentID 返回文档建议。
func (r *Repository) GetSuggestionsByDocumentID(ctx context.Context, documentID string) ([]store.Suggestion, error) {
	out := make([]store.Suggestion, 0)
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(`SELECT `+suggestionColumns+` FROM suggestions WHERE document_id = ?`), documentID); err != nil {
		return nil, dbError(err, "Failed to get suggestions by document id")
	}
	return out, nil
}

// CreateStreamID 记录流 ID。
func (r *Repository) CreateStreamID(ctx context.Context, streamID, chatID string) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO streams (id, chat_id, created_at) VALUES (?, ?, ?)`), streamID, chatID, r.now()); err != nil {
		return dbError(err, "Failed to create stream id")
	}
	return nil
}

// GetStreamIDsByChatID 按时间正序返回流 ID。
func (r *Repository) GetStreamIDsByChatID(ctx context.Context, chatID string) ([]string, error) {
	ids := make([]string, 0)
	if err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`SELECT id FROM streams WHERE chat_id = ? ORDER BY created_at ASC`), chatID); err != nil {
		return nil, dbError(err, "Failed to get stream ids by chat id")
	}
	return ids, nil
}

// CreateLink 保存链接。
func (r *Repository) CreateLink(ctx context.Context, link *store.Link) error {
	now := r.now()
	link.CreatedAt, link.UpdatedAt = now, now
	if r.postgres() {
		err := r.db.GetContext(ctx, &link.ID, r.db.Rebind(`INSERT INTO links (title, url, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?) RETURNING id`),
			link.Title, link.URL, link.Description, now, now)
		if err != nil {
			return dbError(err, "Failed to create link")
		}
		return nil
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO links (title, url, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		link.Title, link.URL, link.Description, now, now)
	if err != nil {
		return dbError(err, "Failed to create link")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return dbError(err, "Failed to create link")
	}
	link.ID = id
	return nil
}

// ListLinks 按 ID 返回全部链接。
func (r *Repository) ListLinks(ctx context.Context) ([]store.Link, error) {
	links := make([]store.Link, 0)
	if err := r.db.SelectContext(ctx, &links, `SELECT `+linkColumns+` FROM links ORDER BY id ASC`); err != nil {
		return nil, dbError(err, "Failed to list links")
	}
	return links, nil
}

// GetLink 查询链接。
func (r *Repository) GetLink(ctx context.Context, id int64) (*store.Link, error) {
	var link store.Link
	found, err := r.getOne(ctx, &link, `SELECT `+linkColumns+` FROM links WHERE id = ?`, id)
	if err != nil {
		return nil, dbError(err, "Failed to get link")
	}
	if !found {
		return nil, linkNotFound(id)
	}
	return &link, nil
}

// UpdateLink 部分更新链接。
func (r *Repository) UpdateLink(ctx context.Context, id int64, patch store.LinkPatch) (*store.Link, error) {
	sets := []string{"updated_at = ?"}
	args := []any{r.now()}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, *patch.URL)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE links SET `+strings.Join(sets, ", ")+` WHERE id = ?`), args...)
	if err != nil {
		return nil, dbError(err, "Failed to update link")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, linkNotFound(id)
	}
	return r.GetLink(ctx, id)
}

// DeleteLink 删除链接。
func (r *Repository) DeleteLink(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM links WHERE id = ?`), id)
	if err != nil {
		return dbError(err, "Failed to delete link")
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return linkNotFound(id)
	}
	return nil
}

func linkNotFound(id int64) error {
	return apperrors.New(apperrors.CodeNotFoundLink, fmt.Sprintf("Link #%d not found", id))
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

var _ store.Repository = (*Repository)(nil)
