package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is the subset of [sql.DB] and [sql.Tx] used by [Queries].
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the typed SQL statements for the dashboard schema.
type Queries struct {
	db DBTX
}

// New creates Queries over db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type scanner interface {
	Scan(dest ...any) error
}

func collect[T any](rows *sql.Rows, err error, scan func(scanner) (T, error)) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // rows.Err is checked below
	items := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// insert executes an INSERT and returns the new row ID.
func (q *Queries) insert(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// execOne executes a statement that must affect a row, returning
// [sql.ErrNoRows] if it did not.
func (q *Queries) execOne(ctx context.Context, query string, args ...any) error {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DefaultNoteContent seeds the notes document.
const DefaultNoteContent = "Add tasks here. Jarvis checks on every heartbeat."

// EnsureSingletons inserts the status, notes, and context rows if missing.
func (q *Queries) EnsureSingletons(ctx context.Context, now time.Time) error {
	if _, err := q.db.ExecContext(ctx, `
INSERT OR IGNORE INTO status (id, is_active, current_task, last_activity, updated_at)
VALUES (?1, false, NULL, ?2, ?2)`,
		SingletonID, now); err != nil {
		return err
	}
	if _, err := q.db.ExecContext(ctx, `
INSERT OR IGNORE INTO notes (id, content, updated_at)
VALUES (?1, ?2, ?3)`,
		SingletonID, DefaultNoteContent, now); err != nil {
		return err
	}
	_, err := q.db.ExecContext(ctx, `
INSERT OR IGNORE INTO context (id, used_tokens, max_tokens, percentage, compactions, warning_level, updated_at)
VALUES (?1, 0, 200000, 0, 0, 'ok', ?2)`,
		SingletonID, now)
	return err
}

const statusColumns = `id, is_active, current_task, last_activity, updated_at`

func scanStatus(row scanner) (s Status, err error) {
	err = row.Scan(&s.ID, &s.IsActive, &s.CurrentTask, &s.LastActivity, &s.UpdatedAt)
	return s, err
}

// GetStatus returns the status row.
func (q *Queries) GetStatus(ctx context.Context) (Status, error) {
	return scanStatus(q.db.QueryRowContext(ctx,
		`SELECT `+statusColumns+` FROM status WHERE id = ?1`, SingletonID))
}

// UpdateStatusParams are the arguments to [Queries.UpdateStatus].
type UpdateStatusParams struct {
	IsActive    sql.NullBool
	CurrentTask sql.NullString
	Now         time.Time
}

// UpdateStatus coalesces is_active and overwrites current_task.
func (q *Queries) UpdateStatus(ctx context.Context, arg UpdateStatusParams) (Status, error) {
	if err := q.execOne(ctx, `
UPDATE status SET
    is_active     = COALESCE(?2, is_active),
    current_task  = ?3,
    last_activity = ?4,
    updated_at    = ?4
WHERE id = ?1`,
		SingletonID, arg.IsActive, arg.CurrentTask, arg.Now); err != nil {
		return Status{}, err
	}
	return q.GetStatus(ctx)
}

const taskColumns = `id, title, description, status, created_at, updated_at`

func scanTask(row scanner) (t Task, err error) {
	err = row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// ListTasks returns every task, newest first.
func (q *Queries) ListTasks(ctx context.Context) ([]Task, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC, id DESC`)
	return collect(rows, err, scanTask)
}

// GetTask returns a single task.
func (q *Queries) GetTask(ctx context.Context, id int64) (Task, error) {
	return scanTask(q.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ?1`, id))
}

// CountTasks returns the number of tasks.
func (q *Queries) CountTasks(ctx context.Context) (count int64, err error) {
	err = q.db.QueryRowContext(ctx, `SELECT count(*) FROM tasks`).Scan(&count)
	return count, err
}

// CreateTaskParams are the arguments to [Queries.CreateTask].
type CreateTaskParams struct {
	Title       string
	Description sql.NullString
	Status      string
	Now         time.Time
}

// CreateTask inserts a task.
func (q *Queries) CreateTask(ctx context.Context, arg CreateTaskParams) (Task, error) {
	id, err := q.insert(ctx, `
INSERT INTO tasks (title, description, status, created_at, updated_at)
VALUES (?1, ?2, ?3, ?4, ?4)`,
		arg.Title, arg.Description, arg.Status, arg.Now)
	if err != nil {
		return Task{}, err
	}
	return q.GetTask(ctx, id)
}

// UpdateTaskParams are the arguments to [Queries.UpdateTask]. Invalid
// (null) fields keep their current value.
type UpdateTaskParams struct {
	ID          int64
	Title       sql.NullString
	Description sql.NullString
	Status      sql.NullString
	Now         time.Time
}

// UpdateTask coalesces the provided fields. It returns [sql.ErrNoRows] if the
// task does not exist.
func (q *Queries) UpdateTask(ctx context.Context, arg UpdateTaskParams) (Task, error) {
	if err := q.execOne(ctx, `
UPDATE tasks SET
    title       = COALESCE(?2, title),
    description = COALESCE(?3, description),
    status      = COALESCE(?4, status),
    updated_at  = ?5
WHERE id = ?1`,
		arg.ID, arg.Title, arg.Description, arg.Status, arg.Now); err != nil {
		return Task{}, err
	}
	return q.GetTask(ctx, arg.ID)
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (q *Queries) DeleteTask(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?1`, id)
	return err
}

const logColumns = `id, action, details, created_at`

func scanLogEntry(row scanner) (e LogEntry, err error) {
	err = row.Scan(&e.ID, &e.Action, &e.Details, &e.CreatedAt)
	return e, err
}

// ListLogEntriesParams are the arguments to [Queries.ListLogEntries].
type ListLogEntriesParams struct {
	// BeforeID restricts results to entries older than this ID. Zero means no
	// restriction.
	BeforeID int64
	Limit    int64
}

// ListLogEntries returns entries newest first.
func (q *Queries) ListLogEntries(ctx context.Context, arg ListLogEntriesParams) ([]LogEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT `+logColumns+` FROM action_log
WHERE ?1 = 0 OR id < ?1
ORDER BY id DESC
LIMIT ?2`,
		arg.BeforeID, arg.Limit)
	return collect(rows, err, scanLogEntry)
}

// CreateLogEntryParams are the arguments to [Queries.CreateLogEntry].
type CreateLogEntryParams struct {
	Action  string
	Details sql.NullString
	Now     time.Time
}

// GetLogEntry returns a single log entry.
func (q *Queries) GetLogEntry(ctx context.Context, id int64) (LogEntry, error) {
	return scanLogEntry(q.db.QueryRowContext(ctx,
		`SELECT `+logColumns+` FROM action_log WHERE id = ?1`, id))
}

// CreateLogEntry appends to the action log.
func (q *Queries) CreateLogEntry(ctx context.Context, arg CreateLogEntryParams) (LogEntry, error) {
	id, err := q.insert(ctx, `
INSERT INTO action_log (action, details, created_at)
VALUES (?1, ?2, ?3)`,
		arg.Action, arg.Details, arg.Now)
	if err != nil {
		return LogEntry{}, err
	}
	return q.GetLogEntry(ctx, id)
}

const noteColumns = `id, content, updated_at`

func scanNote(row scanner) (n Note, err error) {
	err = row.Scan(&n.ID, &n.Content, &n.UpdatedAt)
	return n, err
}

// GetNote returns the notes document.
func (q *Queries) GetNote(ctx context.Context) (Note, error) {
	return scanNote(q.db.QueryRowContext(ctx,
		`SELECT `+noteColumns+` FROM notes WHERE id = ?1`, SingletonID))
}

// UpdateNoteParams are the arguments to [Queries.UpdateNote].
type UpdateNoteParams struct {
	Content sql.NullString
	Now     time.Time
}

// UpdateNote overwrites the notes document.
func (q *Queries) UpdateNote(ctx context.Context, arg UpdateNoteParams) (Note, error) {
	if err := q.execOne(ctx, `UPDATE notes SET content = ?2, updated_at = ?3 WHERE id = ?1`,
		SingletonID, arg.Content, arg.Now); err != nil {
		return Note{}, err
	}
	return q.GetNote(ctx)
}

const contextColumns = `id, used_tokens, max_tokens, percentage, compactions, model, session_key, warning_level, updated_at`

func scanContextUsage(row scanner) (c ContextUsage, err error) {
	err = row.Scan(
		&c.ID, &c.UsedTokens, &c.MaxTokens, &c.Percentage, &c.Compactions,
		&c.Model, &c.SessionKey, &c.WarningLevel, &c.UpdatedAt,
	)
	return c, err
}

// GetContextUsage returns the context usage row.
func (q *Queries) GetContextUsage(ctx context.Context) (ContextUsage, error) {
	return scanContextUsage(q.db.QueryRowContext(ctx,
		`SELECT `+contextColumns+` FROM context WHERE id = ?1`, SingletonID))
}

// UpdateContextUsageParams are the arguments to [Queries.UpdateContextUsage].
// Invalid (null) fields keep their current value; WarningLevel is always
// written.
type UpdateContextUsageParams struct {
	UsedTokens   sql.NullInt64
	MaxTokens    sql.NullInt64
	Percentage   sql.NullInt64
	Compactions  sql.NullInt64
	Model        sql.NullString
	SessionKey   sql.NullString
	WarningLevel string
	Now          time.Time
}

// UpdateContextUsage coalesces the provided fields.
func (q *Queries) UpdateContextUsage(ctx context.Context, arg UpdateContextUsageParams) (ContextUsage, error) {
	if err := q.execOne(ctx, `
UPDATE context SET
    used_tokens   = COALESCE(?2, used_tokens),
    max_tokens    = COALESCE(?3, max_tokens),
    percentage    = COALESCE(?4, percentage),
    compactions   = COALESCE(?5, compactions),
    model         = COALESCE(?6, model),
    session_key   = COALESCE(?7, session_key),
    warning_level = ?8,
    updated_at    = ?9
WHERE id = ?1`,
		SingletonID, arg.UsedTokens, arg.MaxTokens, arg.Percentage, arg.Compactions,
		arg.Model, arg.SessionKey, arg.WarningLevel, arg.Now); err != nil {
		return ContextUsage{}, err
	}
	return q.GetContextUsage(ctx)
}

const artifactColumns = `id, title, artifact_type, url, drive_id, course, description, created_at`

func scanArtifact(row scanner) (a Artifact, err error) {
	err = row.Scan(
		&a.ID, &a.Title, &a.ArtifactType, &a.URL, &a.DriveID,
		&a.Course, &a.Description, &a.CreatedAt,
	)
	return a, err
}

// ListArtifacts returns up to limit artifacts, newest first.
func (q *Queries) ListArtifacts(ctx context.Context, limit int64) ([]Artifact, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts ORDER BY created_at DESC, id DESC LIMIT ?1`, limit)
	return collect(rows, err, scanArtifact)
}

// CreateArtifactParams are the arguments to [Queries.CreateArtifact].
type CreateArtifactParams struct {
	Title        string
	ArtifactType string
	URL          sql.NullString
	DriveID      sql.NullString
	Course       sql.NullString
	Description  sql.NullString
	Now          time.Time
}

// GetArtifact returns a single artifact.
func (q *Queries) GetArtifact(ctx context.Context, id int64) (Artifact, error) {
	return scanArtifact(q.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM artifacts WHERE id = ?1`, id))
}

// CreateArtifact inserts an artifact.
func (q *Queries) CreateArtifact(ctx context.Context, arg CreateArtifactParams) (Artifact, error) {
	id, err := q.insert(ctx, `
INSERT INTO artifacts (title, artifact_type, url, drive_id, course, description, created_at)
VALUES (?1, ?2, ?3, ?4, ?5, ?6, ?7)`,
		arg.Title, arg.ArtifactType, arg.URL, arg.DriveID, arg.Course, arg.Description, arg.Now)
	if err != nil {
		return Artifact{}, err
	}
	return q.GetArtifact(ctx, id)
}

// DeleteArtifact removes an artifact. Deleting a missing artifact is not an
// error.
func (q *Queries) DeleteArtifact(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM artifacts WHERE id = ?1`, id)
	return err
}
