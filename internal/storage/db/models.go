package db

import (
	"database/sql"
	"time"
)

// Singleton rows share this primary key.
const SingletonID = 1

// Status is the agent activity indicator.
type Status struct {
	ID           int64
	IsActive     bool
	CurrentTask  sql.NullString
	LastActivity time.Time
	UpdatedAt    time.Time
}

// Task is a dashboard task.
type Task struct {
	ID          int64
	Title       string
	Description sql.NullString
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// LogEntry is a row of the action log.
type LogEntry struct {
	ID        int64
	Action    string
	Details   sql.NullString
	CreatedAt time.Time
}

// Note is the free-form notes document.
type Note struct {
	ID        int64
	Content   sql.NullString
	UpdatedAt time.Time
}

// ContextUsage tracks the agent's context window consumption.
type ContextUsage struct {
	ID           int64
	UsedTokens   int64
	MaxTokens    int64
	Percentage   int64
	Compactions  int64
	Model        sql.NullString
	SessionKey   sql.NullString
	WarningLevel string
	UpdatedAt    time.Time
}

// Artifact is a produced document or file reference.
type Artifact struct {
	ID           int64
	Title        string
	ArtifactType string
	URL          sql.NullString
	DriveID      sql.NullString
	Course       sql.NullString
	Description  sql.NullString
	CreatedAt    time.Time
}
