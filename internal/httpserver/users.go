package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshelf/internal/gate"
	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/service"
	"github.com/Skotchmaster/bookshelf/internal/session"
	"github.com/Skotchmaster/bookshelf/internal/transport"
)

type UserHTTP struct {
	Svc           *service.UserService
	Sessions      *session.Manager
	SecureCookies bool
}

func (h *UserHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "register_failed", "invalid body", err)
	}

	user, err := h.Svc.Register(ctx, service.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		return serviceError(l, "register_failed", err)
	}

	l.Info("register_successful", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *UserHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_failed", "invalid body", err)
	}

	user, sess, err := h.Svc.Login(ctx, req.Email, req.Password, h.currentSessionID(c))
	if err != nil {
		return serviceError(l, "login_failed", err)
	}

	value, err := h.Sessions.Encode(sess)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign session cookie", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	c.SetCookie(sessionCookie(session.CookieName, value, h.SecureCookies))

	l.Info("login_successful", "user_id", user.ID, "is_admin", user.IsAdmin)
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.logout")

	c.SetCookie(deleteCookie(session.CookieName, h.SecureCookies))
	if err := h.Svc.Logout(ctx, h.currentSessionID(c)); err != nil {
		l.Error("logout_failed", "status", 500, "reason", "cannot drop session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}

	l.Info("logout_successful")
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "logged out"})
}

func (h *UserHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.list")

	users, err := h.Svc.List(ctx)
	if err != nil {
		return serviceError(l, "list_users_failed", err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.me")

	id, ok := gate.CurrentUser(c)
	if !ok {
		l.Warn("me_failed", "status", 401, "reason", "no user on context")
		return echo.NewHTTPError(http.StatusUnauthorized, gate.MsgAuthRequired)
	}

	user, err := h.Svc.Get(ctx, id)
	if err != nil {
		return serviceError(l, "me_failed", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.change_password")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "change_password_failed", "invalid user id", err)
	}

	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_password_failed", "invalid body", err)
	}

	actorID, _ := gate.CurrentUser(c)
	actor := service.Actor{UserID: actorID, IsAdmin: gate.IsAdmin(c)}
	if err := h.Svc.ChangePassword(ctx, actor, id, req.OldPassword, req.NewPassword); err != nil {
		return serviceError(l, "change_password_failed", err)
	}

	l.Info("change_password_successful", "user_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "Password updated successfully!"})
}

func (h *UserHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.update")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "update_user_failed", "invalid user id", err)
	}

	var req transport.UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_user_failed", "invalid body", err)
	}

	user, err := h.Svc.UpdateProfile(ctx, id, req.Name, req.Email)
	if err != nil {
		return serviceError(l, "update_user_failed", err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) SetAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.set_admin")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "set_admin_failed", "invalid user id", err)
	}

	var req transport.SetAdminRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_admin_failed", "invalid body", err)
	}

	user, err := h.Svc.SetAdmin(ctx, id, req.IsAdmin)
	if err != nil {
		return serviceError(l, "set_admin_failed", err)
	}

	l.Info("set_admin_successful", "user_id", id, "is_admin", user.IsAdmin)
	return c.JSON(http.StatusOK, user)
}

func (h *UserHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users.delete")

	id, err := parseID(c)
	if err != nil {
		return badRequest(l, "delete_user_failed", "invalid user id", err)
	}

	if err := h.Svc.Delete(ctx, id); err != nil {
		return serviceError(l, "delete_user_failed", err)
	}

	l.Info("delete_user_successful", "user_id", id)
	return c.JSON(http.StatusOK, transport.MessageResponse{Message: "user deleted"})
}

// currentSessionID returns the session id carried by the request cookie, or
// "" when there is none or it does not verify.
func (h *UserHTTP) currentSessionID(c echo.Context) string {
	ck, err := c.Cookie(session.CookieName)
	if err != nil || ck.Value == "" {
		return ""
	}
	id, err := h.Sessions.Decode(ck.Value)
	if err != nil {
		return ""
	}
	return id
}

func parseID(c echo.Context) (uint, error) {
	v, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}
