package httpserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshelf/internal/service"
)

var statusBySentinel = []struct {
	err  error
	code int
}{
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrConflict, http.StatusConflict},
	{service.ErrUnauthorized, http.StatusUnauthorized},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrUpstream, http.StatusBadGateway},
}

// serviceError logs err under event and turns it into the HTTP error the
// client sees. Unknown errors become a bare 500.
func serviceError(l *slog.Logger, event string, err error) error {
	for _, s := range statusBySentinel {
		if !errors.Is(err, s.err) {
			continue
		}
		msg := detail(err, s.err)
		if s.code == http.StatusBadGateway {
			l.Error(event, "status", s.code, "reason", "external catalog failed", "error", err)
			return echo.NewHTTPError(s.code, "external catalog unavailable")
		}
		l.Warn(event, "status", s.code, "reason", msg, "error", err)
		return echo.NewHTTPError(s.code, msg)
	}

	l.Error(event, "status", 500, "error", err)
	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
}

// detail returns the text that follows the sentinel in a wrapped message.
func detail(err, sentinel error) string {
	s := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(s, prefix); i >= 0 {
		return s[i+len(prefix):]
	}
	return sentinel.Error()
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}
