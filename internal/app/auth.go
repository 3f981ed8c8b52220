package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jarvisboard/jarvisboard/internal/sec"
)

const (
	loginPath = "/login"
	apiPrefix = "/api/"
)

type loginRequest struct {
	Password string `json:"password"`
}

type successResponse struct {
	Success bool `json:"success"`
}

var success = successResponse{Success: true}

// authorize is the edge check applied to every request, routed or not.
func (h *handler) authorize(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		return h.check(c, h.auth.Gate.Policy(req.Method, req.URL.Path), next)
	}
}

// require re-checks policy inside a route's own chain, so a route stays
// protected regardless of the edge middleware.
func (h *handler) require(policy sec.Policy) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return h.check(c, policy, next)
		}
	}
}

func (h *handler) check(c echo.Context, policy sec.Policy, next echo.HandlerFunc) error {
	req := c.Request()
	principal, err := h.auth.Gate.Authorize(req, policy)
	if err != nil {
		return h.deny(c, err)
	}
	c.SetRequest(req.WithContext(sec.SetPrincipal(req.Context(), principal)))
	return next(c)
}

// deny answers API requests with a 401 and sends browsers to the login page,
// clearing any stale session cookie on the way.
func (h *handler) deny(c echo.Context, err error) error {
	req := c.Request()
	if isAPIPath(req.URL.Path) {
		return toHTTPError(err)
	}
	if _, cerr := req.Cookie(sec.SessionCookie); cerr == nil {
		c.SetCookie(h.sessionCookie("", true))
	}
	return c.Redirect(http.StatusFound, loginPath)
}

func (h *handler) login(c echo.Context) error {
	var body loginRequest
	if err := decodeJSON(c, &body); err != nil || body.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Password required")
	}
	if !h.auth.Verifier.VerifyPassword(body.Password) {
		h.logger.InfoContext(c.Request().Context(), "login rejected",
			slog.String("remote", c.RealIP()))
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid password")
	}

	token, err := h.auth.Tokens.Issue()
	if err != nil {
		return fmt.Errorf("failed to issue session token: %w", err)
	}
	c.SetCookie(h.sessionCookie(token, false))
	return c.JSON(http.StatusOK, success)
}

func (h *handler) logout(c echo.Context) error {
	c.SetCookie(h.sessionCookie("", true))
	return c.JSON(http.StatusOK, success)
}

// sessionCookie builds the session cookie. It is a browser-session cookie with
// no Max-Age; the token inside carries its own expiry.
func (h *handler) sessionCookie(value string, expire bool) *http.Cookie {
	cookie := &http.Cookie{
		Name:     sec.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.Session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if expire {
		cookie.MaxAge = -1
	}
	return cookie
}

func isAPIPath(path string) bool {
	return path == strings.TrimSuffix(apiPrefix, "/") || strings.HasPrefix(path, apiPrefix)
}
