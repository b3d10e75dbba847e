package task

import (
	"context"
	"database/sql"
	stdErrors "errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"

	xerrors "DeFi-Agent/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SQLStore 使用 jobs 表记录任务状态，支持 MySQL 与 PostgreSQL。
// 表结构由 deploy/migrations 中的迁移创建，连接由调用方管理。
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLStore 基于已有连接创建 SQLStore。
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

type jobRow struct {
	ID         string         `db:"id"`
	Kind       string         `db:"kind"`
	Payload    sql.NullString `db:"payload"`
	Status     string         `db:"status"`
	Attempts   int            `db:"attempts"`
	MaxRetries int            `db:"max_retries"`
	LastError  string         `db:"last_error"`
	ErrorCode  string         `db:"error_code"`
	CreatedAt  int64          `db:"created_at"`
	UpdatedAt  int64          `db:"updated_at"`
}

const jobColumns = `id, kind, payload, status, attempts, max_retries, last_error, error_code, created_at, updated_at`

func (r jobRow) toTask() (*Task, error) {
	t := &Task{
		ID:         r.ID,
		Kind:       Kind(r.Kind),
		Status:     Status(r.Status),
		Attempts:   r.Attempts,
		MaxRetries: r.MaxRetries,
		LastError:  r.LastError,
		ErrorCode:  r.ErrorCode,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if r.Payload.Valid && r.Payload.String != "" {
		if err := json.Unmarshal([]byte(r.Payload.String), &t.Payload); err != nil {
			return nil, xerrors.Wrap(CodeTaskValidation, err, "解析任务 payload 失败")
		}
	}
	return t, nil
}

func storageError(err error, msg string) error {
	return xerrors.Wrap(xerrors.CodeBadRequestDB, err, msg)
}

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	if stdErrors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	var pqErr *pq.Error
	return stdErrors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Create 插入新的任务记录。
func (s *SQLStore) Create(ctx context.Context, task *Task) error {
	if task == nil || task.ID == "" {
		return xerrors.New(CodeTaskValidation, "任务 ID 不能为空")
	}
	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return xerrors.Wrap(CodeTaskValidation, err, "编码任务 payload 失败")
	}
	now := s.now().Unix()
	if task.CreatedAt == 0 {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = StatusPending
	}

	stmt := s.db.Rebind(`INSERT INTO jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, '', '', ?, ?)`)
	if _, err := s.db.ExecContext(ctx, stmt,
		task.ID, string(task.Kind), string(payload), string(task.Status),
		task.Attempts, task.MaxRetries, task.CreatedAt, task.UpdatedAt,
	); err != nil {
		if isDuplicate(err) {
			return ErrTaskConflict
		}
		return storageError(err, "插入任务失败")
	}
	return nil
}

// Get 查询指定任务。
func (s *SQLStore) Get(ctx context.Context, id string) (*Task, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, storageError(err, "查询任务失败")
	}
	return row.toTask()
}

// Claim 将任务标记为运行中并返回最新状态。
func (s *SQLStore) Claim(ctx context.Context, id string) (*Task, error) {
	stmt := s.db.Rebind(`UPDATE jobs SET status = ?, attempts = attempts + 1, updated_at = ?, last_error = '', error_code = ''
        WHERE id = ? AND status IN (?, ?) AND attempts < max_retries`)
	res, err := s.db.ExecContext(ctx, stmt, string(StatusRunning), s.now().Unix(), id, string(StatusPending), string(StatusFailed))
	if err != nil {
		return nil, storageError(err, "更新任务状态失败")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, storageError(err, "获取影响行数失败")
	}
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if affected > 0 {
		return task, nil
	}
	switch {
	case task.Status == StatusSucceeded:
		return task, ErrTaskCompleted
	case task.Status != StatusRunning && task.Attempts >= task.MaxRetries:
		return task, ErrTaskExhausted
	default:
		return task, ErrTaskConflict
	}
}

func (s *SQLStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return storageError(err, "更新任务失败")
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// MarkSucceeded 将任务标记为成功。
func (s *SQLStore) MarkSucceeded(ctx context.Context, id string) error {
	return s.update(ctx, `UPDATE jobs SET status = ?, last_error = '', error_code = '', updated_at = ? WHERE id = ?`,
		string(StatusSucceeded), s.now().Unix(), id)
}

// MarkFailed 标记任务失败。terminal 为 true 时把尝试次数推到上限，任务不会再被领取。
func (s *SQLStore) MarkFailed(ctx context.Context, id string, code xerrors.Code, lastError string, terminal bool) error {
	query := `UPDATE jobs SET status = ?, last_error = ?, error_code = ?, updated_at = ? WHERE id = ?`
	if terminal {
		query = `UPDATE jobs SET status = ?, last_error = ?, error_code = ?, updated_at = ?,
        attempts = CASE WHEN attempts < max_retries THEN max_retries ELSE attempts END WHERE id = ?`
	}
	return s.update(ctx, query, string(StatusFailed), lastError, string(code), s.now().Unix(), id)
}

// List 按更新时间倒序返回最近的任务。
func (s *SQLStore) List(ctx context.Context, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var rows []jobRow
	query := s.db.Rebind(`SELECT ` + jobColumns + ` FROM jobs ORDER BY updated_at DESC, id DESC LIMIT ?`)
	if err := s.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, storageError(err, "查询任务列表失败")
	}
	tasks := make([]*Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Prune 删除 before 之前已结束的任务。
func (s *SQLStore) Prune(ctx context.Context, before time.Time) (int, error) {
	query := s.db.Rebind(`DELETE FROM jobs WHERE updated_at < ? AND (status = ? OR (status = ? AND attempts >= max_retries))`)
	res, err := s.db.ExecContext(ctx, query, before.Unix(), string(StatusSucceeded), string(StatusFailed))
	if err != nil {
		return 0, storageError(err, "清理任务失败")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Close 不关闭共享连接。
func (s *SQLStore) Close() error {
	return nil
}
