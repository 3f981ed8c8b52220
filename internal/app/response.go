package app

import (
	"database/sql"
	"time"

	"github.com/jarvisboard/jarvisboard/internal/storage"
	"github.com/jarvisboard/jarvisboard/internal/storage/db"
)

type statusResponse struct {
	ID           int64     `json:"id"`
	IsActive     bool      `json:"is_active"`
	CurrentTask  *string   `json:"current_task"`
	LastActivity time.Time `json:"last_activity"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newStatusResponse(s db.Status) statusResponse {
	return statusResponse{
		ID:           s.ID,
		IsActive:     s.IsActive,
		CurrentTask:  nullable(s.CurrentTask),
		LastActivity: s.LastActivity,
		UpdatedAt:    s.UpdatedAt,
	}
}

type taskResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newTaskResponse(t db.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: nullable(t.Description),
		Status:      t.Status,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// taskFields exposes a task to filter expressions. Missing descriptions are
// empty strings so string functions never see null.
func taskFields(t db.Task) map[string]any {
	return map[string]any{
		"id":          t.ID,
		"title":       t.Title,
		"description": t.Description.String,
		"status":      t.Status,
		"created_at":  t.CreatedAt,
		"updated_at":  t.UpdatedAt,
	}
}

type logEntryResponse struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Details   *string   `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

func newLogEntryResponse(e db.LogEntry) logEntryResponse {
	return logEntryResponse{
		ID:        e.ID,
		Action:    e.Action,
		Details:   nullable(e.Details),
		CreatedAt: e.CreatedAt,
	}
}

type noteResponse struct {
	ID        int64      `json:"id,omitempty"`
	Content   string     `json:"content"`
	HTML      *string    `json:"html,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func newNoteResponse(n db.Note) noteResponse {
	return noteResponse{
		ID:        n.ID,
		Content:   n.Content.String,
		UpdatedAt: &n.UpdatedAt,
	}
}

type contextResponse struct {
	ID           int64      `json:"id,omitempty"`
	UsedTokens   int64      `json:"used_tokens"`
	MaxTokens    int64      `json:"max_tokens"`
	Percentage   int64      `json:"percentage"`
	Compactions  int64      `json:"compactions"`
	Model        *string    `json:"model"`
	SessionKey   *string    `json:"session_key"`
	WarningLevel string     `json:"warning_level"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

func newContextResponse(c db.ContextUsage) contextResponse {
	return contextResponse{
		ID:           c.ID,
		UsedTokens:   c.UsedTokens,
		MaxTokens:    c.MaxTokens,
		Percentage:   c.Percentage,
		Compactions:  c.Compactions,
		Model:        nullable(c.Model),
		SessionKey:   nullable(c.SessionKey),
		WarningLevel: c.WarningLevel,
		UpdatedAt:    &c.UpdatedAt,
	}
}

// defaultContextResponse is reported before the agent has sent any usage.
var defaultContextResponse = contextResponse{
	MaxTokens:    storage.DefaultMaxTokens,
	WarningLevel: string(storage.WarningOK),
}

type contextUpdateResponse struct {
	Success      bool   `json:"success"`
	WarningLevel string `json:"warning_level"`
}

type artifactResponse struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	ArtifactType string    `json:"artifact_type"`
	URL          *string   `json:"url"`
	DriveID      *string   `json:"drive_id"`
	Course       *string   `json:"course"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
}

func newArtifactResponse(a db.Artifact) artifactResponse {
	return artifactResponse{
		ID:           a.ID,
		Title:        a.Title,
		ArtifactType: a.ArtifactType,
		URL:          nullable(a.URL),
		DriveID:      nullable(a.DriveID),
		Course:       nullable(a.Course),
		Description:  nullable(a.Description),
		CreatedAt:    a.CreatedAt,
	}
}

func nullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

func mapSlice[In, Out any](in []In, fn func(In) Out) []Out {
	out := make([]Out, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
