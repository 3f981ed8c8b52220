// Package app contains the dashboard web server: the JSON API and the embedded
// browser UI.
package app

import (
	"embed"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/jarvisboard/jarvisboard/internal/config"
	"github.com/jarvisboard/jarvisboard/internal/sec"
	"github.com/jarvisboard/jarvisboard/internal/storage"
)

//go:embed static
var staticFiles embed.FS

// maxBodySize bounds request bodies, notes documents included.
const maxBodySize = "1M"

// Auth bundles the credential checks used by the server.
type Auth struct {
	Verifier *sec.Verifier
	Tokens   *sec.Tokens
	Gate     *sec.Gate
}

// New creates the dashboard server.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	store storage.Store,
	auth Auth,
) *echo.Echo {
	srv := echo.New()

	srv.HideBanner = true
	srv.HidePort = true
	srv.Logger.SetLevel(log.OFF)
	srv.Debug = cfg.DevMode
	srv.Validator = newRequestValidator()

	h := &handler{
		cfg:    cfg,
		logger: logger,
		store:  store,
		auth:   auth,
		static: echo.MustSubFS(staticFiles, "static"),
	}
	srv.HTTPErrorHandler = h.handleError

	srv.Use(
		middleware.Recover(),
		middleware.RequestID(),
		logRequests(logger),
		middleware.Decompress(),
		middleware.Gzip(),
		middleware.Secure(),
		middleware.BodyLimit(maxBodySize),
		h.authorize,
	)

	h.register(srv)
	return srv
}

func logRequests(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			attrs := []slog.Attr{
				slog.String("id", res.Header().Get(echo.HeaderXRequestID)),
				slog.String("method", req.Method),
				slog.String("uri", req.RequestURI),
				slog.String("route", c.Path()),
				slog.Duration("latency", latency),
				slog.Int("status", res.Status),
			}
			if principal, ok := sec.GetPrincipal(req.Context()); ok {
				attrs = append(attrs, slog.String("auth", string(principal.Method)))
				if principal.TokenID != "" {
					attrs = append(attrs, slog.String("session", principal.TokenID))
				}
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}
			level := slog.LevelDebug
			if res.Status >= 500 { //nolint:mnd // server errors
				level = slog.LevelError
			}
			logger.LogAttrs(req.Context(), level, "request handled", attrs...)
			return nil
		}
	}
}
