package gate

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/session"
	"github.com/Skotchmaster/bookshelf/internal/token"
)

const (
	KeyCurrentUser = "currentUser"
	KeyUserID      = "userId"
	KeyIsAdmin     = "isAdmin"
	KeySession     = "session"
)

const (
	MsgAuthRequired  = "authentication required"
	MsgAdminRequired = "admin access required"
	MsgTokenMissing  = "Please login first"
	MsgTokenInvalid  = "Invalid token. Please login again."
)

type Outcome int

const (
	Allow Outcome = iota
	Redirect
	Reject
)

type Decision struct {
	Outcome  Outcome
	Status   int
	Location string
	Message  string
	// Plain rejections answer with a bare text body instead of an error envelope.
	Plain   bool
	Rule    Rule
	Session *session.Session
}

type SessionResolver interface {
	Resolve(ctx context.Context, cookieValue string) (*session.Session, error)
}

type TokenChecker interface {
	IsValidToken(ctx context.Context, value string) bool
}

type Gate struct {
	Rules       []Rule
	ContextPath string
	Sessions    SessionResolver
	Tokens      TokenChecker
}

func New(sessions SessionResolver, tokens TokenChecker, contextPath string) *Gate {
	return &Gate{
		Rules:       DefaultRules(),
		ContextPath: contextPath,
		Sessions:    sessions,
		Tokens:      tokens,
	}
}

func (g *Gate) Decide(r *http.Request) Decision {
	p := Normalize(g.ContextPath, r.URL.Path)
	rule := Classify(g.Rules, r.Method, p)

	if rule.Class == Public {
		return Decision{Outcome: Allow, Rule: rule}
	}
	if rule.Channel == TokenChannel {
		return g.decideToken(r, rule)
	}

	s := g.session(r)
	if s == nil {
		return g.deny(rule, http.StatusUnauthorized, "/login", MsgAuthRequired)
	}
	if rule.Class == AdminOnly && !s.IsAdmin {
		return g.deny(rule, http.StatusForbidden, "/error/403", MsgAdminRequired)
	}
	return Decision{Outcome: Allow, Rule: rule, Session: s}
}

// decideToken only checks that a usable token exists. Tokens carry no identity,
// so admin-only rules cannot be satisfied on this channel.
func (g *Gate) decideToken(r *http.Request, rule Rule) Decision {
	c, err := r.Cookie(token.CookieName)
	if err != nil || c.Value == "" {
		return Decision{Outcome: Reject, Status: http.StatusUnauthorized, Message: MsgTokenMissing, Plain: true, Rule: rule}
	}
	if !g.Tokens.IsValidToken(r.Context(), c.Value) {
		return Decision{Outcome: Reject, Status: http.StatusUnauthorized, Message: MsgTokenInvalid, Plain: true, Rule: rule}
	}
	if rule.Class == AdminOnly {
		return Decision{Outcome: Reject, Status: http.StatusForbidden, Message: MsgAdminRequired, Plain: true, Rule: rule}
	}
	return Decision{Outcome: Allow, Rule: rule}
}

func (g *Gate) session(r *http.Request) *session.Session {
	c, err := r.Cookie(session.CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	s, err := g.Sessions.Resolve(r.Context(), c.Value)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			logging.FromContext(r.Context()).Error("session_lookup_failed", "error", err)
		}
		return nil
	}
	return s
}

func (g *Gate) deny(rule Rule, status int, page, msg string) Decision {
	if rule.Browser {
		return Decision{Outcome: Redirect, Status: http.StatusFound, Location: g.ContextPath + page, Rule: rule}
	}
	return Decision{Outcome: Reject, Status: status, Message: msg, Rule: rule}
}

func (g *Gate) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		d := g.Decide(req)

		switch d.Outcome {
		case Redirect:
			logging.FromContext(req.Context()).Info("gate_redirect", "path", req.URL.Path, "class", d.Rule.Class.String(), "location", d.Location)
			return c.Redirect(d.Status, d.Location)
		case Reject:
			logging.FromContext(req.Context()).Warn("gate_denied", "path", req.URL.Path, "class", d.Rule.Class.String(), "status", d.Status)
			if d.Plain {
				return c.String(d.Status, d.Message)
			}
			return echo.NewHTTPError(d.Status, d.Message)
		}

		if d.Session != nil {
			c.Set(KeySession, d.Session)
			c.Set(KeyCurrentUser, d.Session.UserID)
			c.Set(KeyUserID, d.Session.UserID)
			c.Set(KeyIsAdmin, d.Session.IsAdmin)
			c.SetRequest(req.WithContext(logging.With(req.Context(), "user_id", d.Session.UserID)))
		}
		return next(c)
	}
}

// CurrentUser reports the user id the gate attached to the request.
func CurrentUser(c echo.Context) (uint, bool) {
	id, ok := c.Get(KeyCurrentUser).(uint)
	return id, ok
}

func IsAdmin(c echo.Context) bool {
	v, _ := c.Get(KeyIsAdmin).(bool)
	return v
}
