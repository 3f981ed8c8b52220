package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/content"
	"github.com/jarvisboard/jarvisboard/internal/filter"
	"github.com/jarvisboard/jarvisboard/internal/pagination"
	"github.com/jarvisboard/jarvisboard/internal/storage"
	"github.com/jarvisboard/jarvisboard/internal/storage/db"
)

// Listing limits.
const (
	defaultLogLimit      = 50
	defaultArtifactLimit = 10
	maxPageSize          = 500

	// NextPageTokenHeader carries the cursor for the next page of a listing.
	NextPageTokenHeader = "X-Next-Page-Token"
)

type handler struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
	auth   Auth
	static fs.FS
}

func (h *handler) register(e *echo.Echo) {
	h.file(e, "/", "index.html")
	h.file(e, loginPath, "login.html")
	h.file(e, "/robots.txt", "robots.txt")
	h.route(e, http.MethodGet, "/healthz", h.healthz)
	h.route(e, http.MethodHead, "/healthz", h.healthz)

	h.route(e, http.MethodPost, "/api/auth", h.login)
	h.route(e, http.MethodDelete, "/api/auth", h.logout)
	h.route(e, http.MethodPost, "/api/init", h.initStore)

	h.route(e, http.MethodGet, "/api/status", h.getStatus)
	h.route(e, http.MethodHead, "/api/status", h.getStatus)
	h.route(e, http.MethodPost, "/api/status", h.updateStatus)

	h.route(e, http.MethodGet, "/api/tasks", h.listTasks)
	h.route(e, http.MethodPost, "/api/tasks", h.createTask)
	h.route(e, http.MethodPut, "/api/tasks", h.updateTask)
	h.route(e, http.MethodDelete, "/api/tasks", h.deleteTask)

	h.route(e, http.MethodGet, "/api/notes", h.getNotes)
	h.route(e, http.MethodPut, "/api/notes", h.updateNotes)

	h.route(e, http.MethodGet, "/api/log", h.listLog)
	h.route(e, http.MethodPost, "/api/log", h.createLogEntry)

	h.route(e, http.MethodGet, "/api/artifacts", h.listArtifacts)
	h.route(e, http.MethodPost, "/api/artifacts", h.createArtifact)
	h.route(e, http.MethodDelete, "/api/artifacts", h.deleteArtifact)

	h.route(e, http.MethodGet, "/api/context", h.getContext)
	h.route(e, http.MethodPut, "/api/context", h.updateContext)

	static := e.Group("/static", h.require(h.auth.Gate.Policy(http.MethodGet, "/static/")))
	static.StaticFS("/", h.static)
}

// route registers fn with the policy the gate assigns to its path.
func (h *handler) route(e *echo.Echo, method, path string, fn echo.HandlerFunc) {
	e.Add(method, path, fn, h.require(h.auth.Gate.Policy(method, path)))
}

// file serves an embedded static file at path under the gate's GET policy.
func (h *handler) file(e *echo.Echo, path, name string) {
	e.FileFS(path, name, h.static, h.require(h.auth.Gate.Policy(http.MethodGet, path)))
}

func (h *handler) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (h *handler) initStore(c echo.Context) error {
	if err := h.store.Init(c.Request().Context()); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	return c.JSON(http.StatusOK, success)
}

func (h *handler) getStatus(c echo.Context) error {
	ctx := c.Request().Context()
	status, err := h.store.GetStatus(ctx)
	if err != nil {
		// the public indicator degrades to inactive rather than erroring
		h.logger.WarnContext(ctx, "failed to read status", slog.Any("error", err))
		now := time.Now().UTC()
		status = db.Status{ID: db.SingletonID, LastActivity: now, UpdatedAt: now}
	}
	return c.JSON(http.StatusOK, newStatusResponse(status))
}

type statusRequest struct {
	IsActive    *bool   `json:"is_active"`
	CurrentTask *string `json:"current_task"`
}

func (h *handler) updateStatus(c echo.Context) error {
	var body statusRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	_, err := h.store.UpdateStatus(c.Request().Context(), storage.StatusUpdate{
		IsActive:    body.IsActive,
		CurrentTask: body.CurrentTask,
	})
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return c.JSON(http.StatusOK, success)
}

func (h *handler) listTasks(c echo.Context) error {
	ctx := c.Request().Context()
	expr, err := filter.Compile(c.QueryParam("filter"))
	if err != nil {
		return err
	}
	tasks, err := h.store.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks, err = filter.Apply(ctx, expr, tasks, taskFields); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mapSlice(tasks, newTaskResponse))
}

type createTaskRequest struct {
	Title       string  `json:"title"       validate:"required"`
	Description *string `json:"description"`
	Status      string  `json:"status"      validate:"omitempty,oneof=todo in_progress done archived"`
}

func (h *handler) createTask(c echo.Context) error {
	var body createTaskRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	task, err := h.store.CreateTask(c.Request().Context(), body.Title, body.Description, storage.TaskStatus(body.Status))
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

type updateTaskRequest struct {
	ID          int64   `json:"id"          validate:"required"`
	Title       *string `json:"title"       validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Status      *string `json:"status"      validate:"omitempty,oneof=todo in_progress done archived"`
}

func (h *handler) updateTask(c echo.Context) error {
	var body updateTaskRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	update := storage.TaskUpdate{
		ID:          body.ID,
		Title:       body.Title,
		Description: body.Description,
	}
	if body.Status != nil {
		status := storage.TaskStatus(*body.Status)
		update.Status = &status
	}
	task, err := h.store.UpdateTask(c.Request().Context(), update)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", body.ID, err)
	}
	return c.JSON(http.StatusOK, newTaskResponse(task))
}

func (h *handler) deleteTask(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return err
	}
	if err = h.store.DeleteTask(c.Request().Context(), id); err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	return c.JSON(http.StatusOK, success)
}

func (h *handler) getNotes(c echo.Context) error {
	note, err := h.store.GetNote(c.Request().Context())
	var res noteResponse
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to get notes: %w", err)
	default:
		res = newNoteResponse(note)
	}

	if c.QueryParam("format") == "html" {
		rendered, err := content.Render([]byte(res.Content))
		if err != nil {
			return fmt.Errorf("failed to render notes: %w", err)
		}
		html := string(rendered)
		res.HTML = &html
	}
	return c.JSON(http.StatusOK, res)
}

// isJSON reports whether ctype names a JSON body. An absent type is
// treated as JSON.
func isJSON(ctype string) bool {
	if ctype == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(ctype)
	return err == nil && mediaType == echo.MIMEApplicationJSON
}

type notesRequest struct {
	Content string `json:"content"`
}

// updateNotes accepts either a JSON {content} body or a raw HTML, Markdown or
// plain text document, which is converted to Markdown.
func (h *handler) updateNotes(c echo.Context) error {
	req := c.Request()
	var text string
	if ctype := req.Header.Get(echo.HeaderContentType); isJSON(ctype) {
		var body notesRequest
		if err := bind(c, &body); err != nil {
			return err
		}
		text = body.Content
	} else {
		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("failed to read notes body: %w", err)
		}
		imported, err := content.Import(ctype, raw)
		if errors.Is(err, content.ErrUnsupportedMediaType) {
			return err
		} else if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid notes document").SetInternal(err)
		}
		text = string(imported)
	}

	if _, err := h.store.UpdateNote(req.Context(), text); err != nil {
		return fmt.Errorf("failed to update notes: %w", err)
	}
	return c.JSON(http.StatusOK, success)
}

func (h *handler) listLog(c echo.Context) error {
	limit, err := queryLimit(c, defaultLogLimit)
	if err != nil {
		return err
	}
	var cursor pagination.LogCursor
	if tkn := c.QueryParam("page_token"); tkn != "" {
		if err = pagination.FromToken(tkn, &cursor); err != nil {
			return err
		}
	}

	entries, err := h.store.ListLogEntries(c.Request().Context(), cursor.BeforeID, limit)
	if err != nil {
		return fmt.Errorf("failed to list log entries: %w", err)
	}
	if len(entries) > 0 && len(entries) == int(limit) {
		next, err := pagination.ToToken(pagination.LogCursor{BeforeID: entries[len(entries)-1].ID})
		if err != nil {
			return fmt.Errorf("failed to build page token: %w", err)
		}
		c.Response().Header().Set(NextPageTokenHeader, next)
	}
	return c.JSON(http.StatusOK, mapSlice(entries, newLogEntryResponse))
}

type logEntryRequest struct {
	Action  string  `json:"action"  validate:"required"`
	Details *string `json:"details"`
}

func (h *handler) createLogEntry(c echo.Context) error {
	var body logEntryRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	entry, err := h.store.CreateLogEntry(c.Request().Context(), body.Action, body.Details)
	if err != nil {
		return fmt.Errorf("failed to create log entry: %w", err)
	}
	return c.JSON(http.StatusOK, newLogEntryResponse(entry))
}

func (h *handler) listArtifacts(c echo.Context) error {
	limit, err := queryLimit(c, defaultArtifactLimit)
	if err != nil {
		return err
	}
	artifacts, err := h.store.ListArtifacts(c.Request().Context(), limit)
	if err != nil {
		return fmt.Errorf("failed to list artifacts: %w", err)
	}
	return c.JSON(http.StatusOK, mapSlice(artifacts, newArtifactResponse))
}

type artifactRequest struct {
	Title        string  `json:"title"         validate:"required"`
	ArtifactType string  `json:"artifact_type" validate:"omitempty,oneof=pdf document image code other"`
	URL          *string `json:"url"           validate:"omitempty,url"`
	DriveID      *string `json:"drive_id"`
	Course       *string `json:"course"`
	Description  *string `json:"description"`
}

func (h *handler) createArtifact(c echo.Context) error {
	var body artifactRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	artifact, err := h.store.CreateArtifact(c.Request().Context(), storage.NewArtifact{
		Title:       body.Title,
		Type:        storage.ArtifactType(body.ArtifactType),
		URL:         body.URL,
		DriveID:     body.DriveID,
		Course:      body.Course,
		Description: body.Description,
	})
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	return c.JSON(http.StatusOK, newArtifactResponse(artifact))
}

func (h *handler) deleteArtifact(c echo.Context) error {
	id, err := queryID(c)
	if err != nil {
		return err
	}
	if err = h.store.DeleteArtifact(c.Request().Context(), id); err != nil {
		return fmt.Errorf("failed to delete artifact %d: %w", id, err)
	}
	return c.JSON(http.StatusOK, success)
}

func (h *handler) getContext(c echo.Context) error {
	usage, err := h.store.GetContextUsage(c.Request().Context())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return c.JSON(http.StatusOK, defaultContextResponse)
	case err != nil:
		return fmt.Errorf("failed to get context usage: %w", err)
	default:
		return c.JSON(http.StatusOK, newContextResponse(usage))
	}
}

type contextRequest struct {
	UsedTokens  *int64  `json:"used_tokens"  validate:"omitempty,gte=0"`
	MaxTokens   *int64  `json:"max_tokens"   validate:"omitempty,gte=0"`
	Percentage  *int64  `json:"percentage"   validate:"omitempty,gte=0"`
	Compactions *int64  `json:"compactions"  validate:"omitempty,gte=0"`
	Model       *string `json:"model"`
	SessionKey  *string `json:"session_key"`
}

func (h *handler) updateContext(c echo.Context) error {
	var body contextRequest
	if err := bind(c, &body); err != nil {
		return err
	}
	usage, err := h.store.UpdateContextUsage(c.Request().Context(), storage.ContextUpdate(body))
	if err != nil {
		return fmt.Errorf("failed to update context usage: %w", err)
	}
	return c.JSON(http.StatusOK, contextUpdateResponse{
		Success:      true,
		WarningLevel: usage.WarningLevel,
	})
}

func queryID(c echo.Context) (int64, error) {
	raw := c.QueryParam("id")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id must be a positive integer")
	}
	return id, nil
}

func queryLimit(c echo.Context, fallback int32) (int32, error) {
	raw := c.QueryParam("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || limit < 1 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
	}
	return int32(min(limit, maxPageSize)), nil
}
