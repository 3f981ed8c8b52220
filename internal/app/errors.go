package app

import (
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/labstack/echo/v4"

	"github.com/jarvisboard/jarvisboard/internal/content"
	"github.com/jarvisboard/jarvisboard/internal/pagination"
	"github.com/jarvisboard/jarvisboard/internal/storage"
)

const (
	msgUnauthorized = "Unauthorized"
	msgInternal     = "Internal server error"
)

type errorResponse struct {
	Error string `json:"error"`
}

// handleError satisfies [echo.HTTPErrorHandler], rendering every error as a
// JSON body. Server errors are logged with their cause but answered with a
// generic message.
func (h *handler) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, msg := http.StatusInternalServerError, msgInternal
	var httpErr *echo.HTTPError
	if errors.As(toHTTPError(err), &httpErr) {
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(c.Request().Context(), "request failed",
			slog.String("uri", c.Request().RequestURI),
			slog.Any("error", err),
		)
		msg = msgInternal
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, errorResponse{Error: msg})
	}
	if err != nil {
		h.logger.ErrorContext(c.Request().Context(), "failed to write error response", slog.Any("error", err))
	}
}

// toHTTPError converts storage, pagination and ConnectRPC errors into
// [echo.HTTPError] values. Errors it does not recognize are returned as-is and
// become a 500.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}

	// Already an HTTP error - pass through
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var tokenErr pagination.TokenError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Not found").SetInternal(err)
	case errors.Is(err, storage.ErrInvalidTaskStatus):
		return echo.NewHTTPError(http.StatusBadRequest, storage.ErrInvalidTaskStatus.Error())
	case errors.Is(err, storage.ErrInvalidArtifactType):
		return echo.NewHTTPError(http.StatusBadRequest, storage.ErrInvalidArtifactType.Error())
	case errors.Is(err, content.ErrUnsupportedMediaType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &tokenErr):
		return echo.NewHTTPError(http.StatusBadRequest, tokenErr.Error()).SetInternal(err)
	}

	// Map ConnectRPC codes to HTTP status codes
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}
	status := connectCodeToHTTPStatus(connectErr.Code())
	switch status {
	case http.StatusInternalServerError:
		return err
	case http.StatusUnauthorized:
		// never reveal which credential check failed
		return echo.NewHTTPError(status, msgUnauthorized).SetInternal(err)
	default:
		return echo.NewHTTPError(status, connectErr.Message()).SetInternal(err)
	}
}

// connectCodeToHTTPStatus maps ConnectRPC error codes to HTTP status codes.
// See: https://connectrpc.com/docs/protocol/#error-codes
func connectCodeToHTTPStatus(code connect.Code) int {
	switch code {
	case connect.CodeInvalidArgument, connect.CodeFailedPrecondition, connect.CodeOutOfRange:
		return http.StatusBadRequest // 400
	case connect.CodeUnauthenticated:
		return http.StatusUnauthorized // 401
	case connect.CodePermissionDenied:
		return http.StatusForbidden // 403
	case connect.CodeNotFound:
		return http.StatusNotFound // 404
	case connect.CodeCanceled:
		return http.StatusRequestTimeout // 408
	case connect.CodeAlreadyExists, connect.CodeAborted:
		return http.StatusConflict // 409
	case connect.CodeResourceExhausted:
		return http.StatusTooManyRequests // 429
	case connect.CodeUnimplemented:
		return http.StatusNotImplemented // 501
	case connect.CodeUnavailable:
		return http.StatusServiceUnavailable // 503
	case connect.CodeDeadlineExceeded:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
