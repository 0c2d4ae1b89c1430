package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshelf/internal/gate"
)

// PagesHTTP answers the browser routes with plain text placeholders.
type PagesHTTP struct {
	ContextPath string
}

func (h *PagesHTTP) Root(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.ContextPath+"/login")
}

func (h *PagesHTTP) Login(c echo.Context) error {
	return c.String(http.StatusOK, "Login")
}

func (h *PagesHTTP) Register(c echo.Context) error {
	return c.String(http.StatusOK, "Register")
}

func (h *PagesHTTP) Home(c echo.Context) error {
	if gate.IsAdmin(c) {
		return c.String(http.StatusOK, "Home (admin)")
	}
	return c.String(http.StatusOK, "Home")
}

func (h *PagesHTTP) Settings(c echo.Context) error {
	return c.String(http.StatusOK, "Settings")
}

func (h *PagesHTTP) Admin(c echo.Context) error {
	return c.String(http.StatusOK, "Admin Section")
}

func (h *PagesHTTP) AdminUsers(c echo.Context) error {
	return c.String(http.StatusOK, "Admin Section: Users")
}

func (h *PagesHTTP) Error(code int) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(code, http.StatusText(code))
	}
}
