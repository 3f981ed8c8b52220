// Package storage provides the state management for the dashboard resources.
package storage

import (
	"context"
	"slices"

	"github.com/jarvisboard/jarvisboard/internal/storage/db"
)

const (
	// ErrNotFound is returned when a resource cannot be found.
	ErrNotFound Error = "not found"
	// ErrInvalidTaskStatus is returned when a task status is not one of the
	// known [TaskStatus] values.
	ErrInvalidTaskStatus Error = "status must be one of todo, in_progress, done, archived"
	// ErrInvalidArtifactType is returned when an artifact type is not one of
	// the known [ArtifactType] values.
	ErrInvalidArtifactType Error = "artifact_type must be one of pdf, document, image, code, other"
	// ErrInternal is returned for any other type of error.
	ErrInternal Error = "internal error"
)

// Error is an error type returned by the storage implementation.
type Error string

// Error satisfies [error].
func (e Error) Error() string { return string(e) }

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Known task states.
const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskArchived   TaskStatus = "archived"
)

// TaskStatuses lists every valid [TaskStatus].
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskTodo, TaskInProgress, TaskDone, TaskArchived}
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool { return slices.Contains(TaskStatuses(), s) }

// ArtifactType classifies an artifact.
type ArtifactType string

// Known artifact types.
const (
	ArtifactPDF      ArtifactType = "pdf"
	ArtifactDocument ArtifactType = "document"
	ArtifactImage    ArtifactType = "image"
	ArtifactCode     ArtifactType = "code"
	ArtifactOther    ArtifactType = "other"
)

// ArtifactTypes lists every valid [ArtifactType].
func ArtifactTypes() []ArtifactType {
	return []ArtifactType{ArtifactPDF, ArtifactDocument, ArtifactImage, ArtifactCode, ArtifactOther}
}

// Valid reports whether t is a known artifact type.
func (t ArtifactType) Valid() bool { return slices.Contains(ArtifactTypes(), t) }

// WarningLevel summarizes how full the agent's context window is.
type WarningLevel string

// Warning levels, from least to most severe.
const (
	WarningOK       WarningLevel = "ok"
	WarningModerate WarningLevel = "moderate"
	WarningHigh     WarningLevel = "high"
	WarningCritical WarningLevel = "critical"
)

// DefaultMaxTokens is the context window size assumed until the agent reports
// one.
const DefaultMaxTokens = 200_000

// WarningLevelFor derives the warning level from a usage percentage.
func WarningLevelFor(percentage int64) WarningLevel {
	switch {
	case percentage >= 90:
		return WarningCritical
	case percentage >= 75:
		return WarningHigh
	case percentage >= 50:
		return WarningModerate
	default:
		return WarningOK
	}
}

// StatusUpdate describes a change to the status row. A nil IsActive leaves the
// stored value untouched; CurrentTask is always overwritten.
type StatusUpdate struct {
	IsActive    *bool
	CurrentTask *string
}

// TaskUpdate describes a partial change to a task. Nil fields are left
// untouched.
type TaskUpdate struct {
	ID          int64
	Title       *string
	Description *string
	Status      *TaskStatus
}

// ContextUpdate describes a partial change to the context usage row. Nil
// fields are left untouched, except that the warning level is always derived
// from Percentage, with nil treated as zero.
type ContextUpdate struct {
	UsedTokens  *int64
	MaxTokens   *int64
	Percentage  *int64
	Compactions *int64
	Model       *string
	SessionKey  *string
}

// NewArtifact is the input for creating an artifact. An empty Type defaults to
// [ArtifactDocument].
type NewArtifact struct {
	Title       string
	Type        ArtifactType
	URL         *string
	DriveID     *string
	Course      *string
	Description *string
}

// Status are the methods on a storage implementation responsible for the
// agent activity indicator.
type Status interface {
	// GetStatus returns the status row. An [ErrNotFound] is returned if the
	// store has not been initialized.
	GetStatus(ctx context.Context) (db.Status, error)
	// UpdateStatus applies the update and touches the activity timestamps.
	UpdateStatus(ctx context.Context, update StatusUpdate) (db.Status, error)
}

// Tasks are the methods on a storage implementation responsible for tasks.
type Tasks interface {
	// ListTasks returns every task, newest first.
	ListTasks(ctx context.Context) ([]db.Task, error)
	// CreateTask inserts a task. An empty status defaults to [TaskTodo]; an
	// unknown one returns [ErrInvalidTaskStatus].
	CreateTask(ctx context.Context, title string, description *string, status TaskStatus) (db.Task, error)
	// UpdateTask applies a partial update. An [ErrNotFound] is returned if the
	// task does not exist.
	UpdateTask(ctx context.Context, update TaskUpdate) (db.Task, error)
	// DeleteTask removes a task. Deleting a missing task is not an error.
	DeleteTask(ctx context.Context, id int64) error
}

// Notes are the methods on a storage implementation responsible for the notes
// document.
type Notes interface {
	// GetNote returns the notes document. An [ErrNotFound] is returned if the
	// store has not been initialized.
	GetNote(ctx context.Context) (db.Note, error)
	// UpdateNote overwrites the notes document.
	UpdateNote(ctx context.Context, content string) (db.Note, error)
}

// Log are the methods on a storage implementation responsible for the action
// log.
type Log interface {
	// ListLogEntries returns up to limit entries older than beforeID, newest
	// first. A zero beforeID starts from the newest entry.
	ListLogEntries(ctx context.Context, beforeID int64, limit int32) ([]db.LogEntry, error)
	// CreateLogEntry appends an entry.
	CreateLogEntry(ctx context.Context, action string, details *string) (db.LogEntry, error)
}

// Artifacts are the methods on a storage implementation responsible for
// artifacts.
type Artifacts interface {
	// ListArtifacts returns up to limit artifacts, newest first.
	ListArtifacts(ctx context.Context, limit int32) ([]db.Artifact, error)
	// CreateArtifact inserts an artifact. An unknown type returns
	// [ErrInvalidArtifactType].
	CreateArtifact(ctx context.Context, artifact NewArtifact) (db.Artifact, error)
	// DeleteArtifact removes an artifact. Deleting a missing artifact is not an
	// error.
	DeleteArtifact(ctx context.Context, id int64) error
}

// Contexts are the methods on a storage implementation responsible for the
// context usage indicator.
type Contexts interface {
	// GetContextUsage returns the context usage row. An [ErrNotFound] is
	// returned if the store has not been initialized.
	GetContextUsage(ctx context.Context) (db.ContextUsage, error)
	// UpdateContextUsage applies a partial update and derives the warning
	// level.
	UpdateContextUsage(ctx context.Context, update ContextUpdate) (db.ContextUsage, error)
}

// Store is the combination interface for every resource.
type Store interface {
	Status
	Tasks
	Notes
	Log
	Artifacts
	Contexts
	// Init idempotently ensures the singleton rows exist.
	Init(ctx context.Context) error
	// Close releases any resources held by the store. An error is returned if
	// the store cannot be cleanly closed.
	Close() error
}
