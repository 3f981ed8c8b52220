package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/storage/db"
)

// DB is a [Store] backed by a SQLite database.
type DB struct {
	db      *sql.DB
	queries *db.Queries
	now     func() time.Time
}

// DBOption configures a [DB].
type DBOption func(*DB)

// WithClock overrides the time source used for row timestamps.
func WithClock(now func() time.Time) DBOption {
	return func(d *DB) { d.now = now }
}

// NewDB opens and migrates the database at the configured path, then ensures
// the singleton rows exist.
func NewDB(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...DBOption) (*DB, error) {
	handle, err := db.Open(ctx, logger, cfg.DBFilepath)
	if err != nil {
		return nil, err
	}
	store := &DB{
		db:      handle,
		queries: db.New(handle),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	if err = store.Init(ctx); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return store, nil
}

// Init satisfies the [Store] interface.
func (d *DB) Init(ctx context.Context) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seeding transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if err = d.queries.WithTx(tx).EnsureSingletons(ctx, d.timestamp()); err != nil {
		return fmt.Errorf("failed to seed singleton rows: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit singleton rows: %w", err)
	}
	return nil
}

// Close satisfies the [Store] interface.
func (d *DB) Close() error {
	return d.db.Close()
}

// GetStatus satisfies the [Status] interface.
func (d *DB) GetStatus(ctx context.Context) (db.Status, error) {
	status, err := d.queries.GetStatus(ctx)
	return status, notFound(err)
}

// UpdateStatus satisfies the [Status] interface.
func (d *DB) UpdateStatus(ctx context.Context, update StatusUpdate) (db.Status, error) {
	params := db.UpdateStatusParams{
		CurrentTask: nullString(update.CurrentTask),
		Now:         d.timestamp(),
	}
	if update.IsActive != nil {
		params.IsActive = sql.NullBool{Bool: *update.IsActive, Valid: true}
	}
	status, err := d.queries.UpdateStatus(ctx, params)
	return status, notFound(err)
}

// ListTasks satisfies the [Tasks] interface.
func (d *DB) ListTasks(ctx context.Context) ([]db.Task, error) {
	return d.queries.ListTasks(ctx)
}

// CreateTask satisfies the [Tasks] interface.
func (d *DB) CreateTask(ctx context.Context, title string, description *string, status TaskStatus) (db.Task, error) {
	if status == "" {
		status = TaskTodo
	} else if !status.Valid() {
		return db.Task{}, ErrInvalidTaskStatus
	}
	return d.queries.CreateTask(ctx, db.CreateTaskParams{
		Title:       title,
		Description: nullString(description),
		Status:      string(status),
		Now:         d.timestamp(),
	})
}

// UpdateTask satisfies the [Tasks] interface.
func (d *DB) UpdateTask(ctx context.Context, update TaskUpdate) (db.Task, error) {
	params := db.UpdateTaskParams{
		ID:          update.ID,
		Title:       nullString(update.Title),
		Description: nullString(update.Description),
		Now:         d.timestamp(),
	}
	if update.Status != nil {
		if !update.Status.Valid() {
			return db.Task{}, ErrInvalidTaskStatus
		}
		params.Status = sql.NullString{String: string(*update.Status), Valid: true}
	}
	task, err := d.queries.UpdateTask(ctx, params)
	return task, notFound(err)
}

// DeleteTask satisfies the [Tasks] interface.
func (d *DB) DeleteTask(ctx context.Context, id int64) error {
	return d.queries.DeleteTask(ctx, id)
}

// GetNote satisfies the [Notes] interface.
func (d *DB) GetNote(ctx context.Context) (db.Note, error) {
	note, err := d.queries.GetNote(ctx)
	return note, notFound(err)
}

// UpdateNote satisfies the [Notes] interface.
func (d *DB) UpdateNote(ctx context.Context, content string) (db.Note, error) {
	note, err := d.queries.UpdateNote(ctx, db.UpdateNoteParams{
		Content: sql.NullString{String: content, Valid: true},
		Now:     d.timestamp(),
	})
	return note, notFound(err)
}

// ListLogEntries satisfies the [Log] interface.
func (d *DB) ListLogEntries(ctx context.Context, beforeID int64, limit int32) ([]db.LogEntry, error) {
	return d.queries.ListLogEntries(ctx, db.ListLogEntriesParams{
		BeforeID: beforeID,
		Limit:    int64(limit),
	})
}

// CreateLogEntry satisfies the [Log] interface.
func (d *DB) CreateLogEntry(ctx context.Context, action string, details *string) (db.LogEntry, error) {
	return d.queries.CreateLogEntry(ctx, db.CreateLogEntryParams{
		Action:  action,
		Details: nullString(details),
		Now:     d.timestamp(),
	})
}

// ListArtifacts satisfies the [Artifacts] interface.
func (d *DB) ListArtifacts(ctx context.Context, limit int32) ([]db.Artifact, error) {
	return d.queries.ListArtifacts(ctx, int64(limit))
}

// CreateArtifact satisfies the [Artifacts] interface.
func (d *DB) CreateArtifact(ctx context.Context, artifact NewArtifact) (db.Artifact, error) {
	if artifact.Type == "" {
		artifact.Type = ArtifactDocument
	} else if !artifact.Type.Valid() {
		return db.Artifact{}, ErrInvalidArtifactType
	}
	return d.queries.CreateArtifact(ctx, db.CreateArtifactParams{
		Title:        artifact.Title,
		ArtifactType: string(artifact.Type),
		URL:          nullString(artifact.URL),
		DriveID:      nullString(artifact.DriveID),
		Course:       nullString(artifact.Course),
		Description:  nullString(artifact.Description),
		Now:          d.timestamp(),
	})
}

// DeleteArtifact satisfies the [Artifacts] interface.
func (d *DB) DeleteArtifact(ctx context.Context, id int64) error {
	return d.queries.DeleteArtifact(ctx, id)
}

// GetContextUsage satisfies the [Contexts] interface.
func (d *DB) GetContextUsage(ctx context.Context) (db.ContextUsage, error) {
	usage, err := d.queries.GetContextUsage(ctx)
	return usage, notFound(err)
}

// UpdateContextUsage satisfies the [Contexts] interface.
func (d *DB) UpdateContextUsage(ctx context.Context, update ContextUpdate) (db.ContextUsage, error) {
	var pct int64
	if update.Percentage != nil {
		pct = *update.Percentage
	}
	usage, err := d.queries.UpdateContextUsage(ctx, db.UpdateContextUsageParams{
		UsedTokens:   nullInt64(update.UsedTokens),
		MaxTokens:    nullInt64(update.MaxTokens),
		Percentage:   nullInt64(update.Percentage),
		Compactions:  nullInt64(update.Compactions),
		Model:        nullString(update.Model),
		SessionKey:   nullString(update.SessionKey),
		WarningLevel: string(WarningLevelFor(pct)),
		Now:          d.timestamp(),
	})
	return usage, notFound(err)
}

func (d *DB) timestamp() time.Time {
	return d.now().UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

var _ Store = (*DB)(nil)
