package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/token"
)

// TokenHTTP serves the cookie token endpoints. The token marks a returning
// client and carries no identity.
type TokenHTTP struct {
	Tokens        *token.Manager
	ValidDays     int
	SecureCookies bool
}

func (h *TokenHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tokens.login")

	if ck, err := c.Cookie(token.CookieName); err == nil && h.Tokens.IsValidToken(ctx, ck.Value) {
		return c.String(http.StatusOK, "already logged in")
	}

	value, err := h.Tokens.CreateToken(ctx, h.ValidDays)
	if err != nil {
		l.Error("token_login_failed", "status", 500, "reason", "cannot create token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	maxAge := time.Duration(h.ValidDays) * 24 * time.Hour
	c.SetCookie(createCookie(token.CookieName, value, maxAge, h.SecureCookies))

	l.Info("token_login_successful")
	return c.String(http.StatusOK, "logged in with token: "+value)
}

func (h *TokenHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "tokens.logout")

	ck, err := c.Cookie(token.CookieName)
	if err != nil || !h.Tokens.IsValidToken(ctx, ck.Value) {
		return c.String(http.StatusOK, "You are not logged in")
	}

	if _, err := h.Tokens.InvalidateToken(ctx, ck.Value); err != nil {
		l.Error("token_logout_failed", "status", 500, "reason", "cannot invalidate token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	c.SetCookie(deleteCookie(token.CookieName, h.SecureCookies))

	l.Info("token_logout_successful")
	return c.String(http.StatusOK, "Logout successful!")
}

func (h *TokenHTTP) Home(c echo.Context) error {
	return c.String(http.StatusOK, "Welcome to the Home Page!")
}
