package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/bookshelf/internal/logging"
	"github.com/Skotchmaster/bookshelf/internal/session"
	"github.com/Skotchmaster/bookshelf/internal/token"
)

type tokenSet map[string]bool

func (s tokenSet) IsValidToken(_ context.Context, v string) bool { return s[v] }

type fixture struct {
	gate     *Gate
	sessions *session.Manager
}

func newFixture(t *testing.T, contextPath string) *fixture {
	t.Helper()
	m := session.NewManager(session.NewMemoryStore(), []byte("gate-secret"))
	return &fixture{
		gate:     New(m, tokenSet{"good": true}, contextPath),
		sessions: m,
	}
}

func (f *fixture) cookie(t *testing.T, isAdmin bool) *http.Cookie {
	t.Helper()
	s, err := f.sessions.Create(context.Background(), 42, isAdmin)
	require.NoError(t, err)
	v, err := f.sessions.Encode(s)
	require.NoError(t, err)
	return &http.Cookie{Name: session.CookieName, Value: v}
}

func request(method, target string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		ctx, in, want string
	}{
		{"", "/", "/"},
		{"", "", "/"},
		{"", "/users/", "/users"},
		{"", "/users//", "/users"},
		{"", "/Users", "/Users"},
		{"/app", "/app", "/"},
		{"/app", "/app/", "/"},
		{"/app", "/app/admin/", "/admin"},
		{"/app", "/application/x", "/application/x"},
		{"/app/", "/app/users", "/users"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Normalize(tc.ctx, tc.in), "ctx=%q in=%q", tc.ctx, tc.in)
	}
}

func TestClassify(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		method, path string
		want         Class
	}{
		{http.MethodPost, "/users", Public},
		{http.MethodPost, "/users/login", Public},
		{http.MethodGet, "/users/login", Public},
		{http.MethodPost, "/users/logout", Public},
		{http.MethodGet, "/users", AdminOnly},
		{http.MethodPatch, "/users/3/admin", AdminOnly},
		{http.MethodDelete, "/users/3", AdminOnly},
		{http.MethodPut, "/users/3/password", Authenticated},
		{http.MethodGet, "/users/me", Authenticated},
		{http.MethodGet, "/admin", AdminOnly},
		{http.MethodGet, "/admin/users", AdminOnly},
		{http.MethodGet, "/administrator", Public},
		{http.MethodGet, "/api/system/info", AdminOnly},
		{http.MethodGet, "/systeminfo", AdminOnly},
		{http.MethodGet, "/systeminfo/x", Public},
		{http.MethodGet, "/books", Public},
		{http.MethodGet, "/books/search", Public},
		{http.MethodPost, "/books", Authenticated},
		{http.MethodDelete, "/books/1", Authenticated},
		{http.MethodGet, "/api/home", Authenticated},
		{http.MethodGet, "/error/403", Public},
		{http.MethodGet, "/Admin", Public},
	}
	for _, tc := range cases {
		got := Classify(rules, tc.method, tc.path)
		assert.Equal(t, tc.want, got.Class, "%s %s", tc.method, tc.path)
	}
}

func TestDecide_PublicWithoutSession(t *testing.T) {
	f := newFixture(t, "")
	for _, req := range []*http.Request{
		request(http.MethodPost, "/users"),
		request(http.MethodPost, "/users/login"),
		request(http.MethodPost, "/users/logout"),
		request(http.MethodGet, "/books"),
	} {
		d := f.gate.Decide(req)
		assert.Equal(t, Allow, d.Outcome, req.URL.Path)
		assert.Nil(t, d.Session)
	}
}

func TestDecide_APIDenials(t *testing.T) {
	f := newFixture(t, "")

	d := f.gate.Decide(request(http.MethodGet, "/users"))
	assert.Equal(t, Reject, d.Outcome)
	assert.Equal(t, http.StatusUnauthorized, d.Status)
	assert.Equal(t, MsgAuthRequired, d.Message)

	d = f.gate.Decide(request(http.MethodGet, "/users", f.cookie(t, false)))
	assert.Equal(t, Reject, d.Outcome)
	assert.Equal(t, http.StatusForbidden, d.Status)
	assert.Equal(t, MsgAdminRequired, d.Message)

	d = f.gate.Decide(request(http.MethodGet, "/users", f.cookie(t, true)))
	assert.Equal(t, Allow, d.Outcome)
	require.NotNil(t, d.Session)
	assert.EqualValues(t, 42, d.Session.UserID)
}

func TestDecide_BrowserRedirects(t *testing.T) {
	f := newFixture(t, "/app")

	d := f.gate.Decide(request(http.MethodGet, "/app/admin/"))
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, http.StatusFound, d.Status)
	assert.Equal(t, "/app/login", d.Location)

	d = f.gate.Decide(request(http.MethodGet, "/app/admin", f.cookie(t, false)))
	assert.Equal(t, Redirect, d.Outcome)
	assert.Equal(t, "/app/error/403", d.Location)

	d = f.gate.Decide(request(http.MethodGet, "/app/admin/users", f.cookie(t, true)))
	assert.Equal(t, Allow, d.Outcome)
}

func TestDecide_AuthenticatedRoutes(t *testing.T) {
	f := newFixture(t, "")

	d := f.gate.Decide(request(http.MethodPut, "/users/42/password"))
	assert.Equal(t, http.StatusUnauthorized, d.Status)

	d = f.gate.Decide(request(http.MethodPut, "/users/42/password", f.cookie(t, false)))
	assert.Equal(t, Allow, d.Outcome)
}

func TestDecide_BadCookieIsNoSession(t *testing.T) {
	f := newFixture(t, "")
	d := f.gate.Decide(request(http.MethodGet, "/users", &http.Cookie{Name: session.CookieName, Value: "forged"}))
	assert.Equal(t, http.StatusUnauthorized, d.Status)
}

func TestDecide_InvalidatedSession(t *testing.T) {
	f := newFixture(t, "")
	s, err := f.sessions.Create(context.Background(), 1, true)
	require.NoError(t, err)
	v, err := f.sessions.Encode(s)
	require.NoError(t, err)
	require.NoError(t, f.sessions.Invalidate(context.Background(), s.ID))

	d := f.gate.Decide(request(http.MethodGet, "/users", &http.Cookie{Name: session.CookieName, Value: v}))
	assert.Equal(t, http.StatusUnauthorized, d.Status)
}

func TestDecide_TokenChannel(t *testing.T) {
	f := newFixture(t, "")

	d := f.gate.Decide(request(http.MethodGet, "/api/home"))
	assert.Equal(t, http.StatusUnauthorized, d.Status)
	assert.Equal(t, MsgTokenMissing, d.Message)
	assert.True(t, d.Plain)

	d = f.gate.Decide(request(http.MethodGet, "/api/home", &http.Cookie{Name: token.CookieName, Value: "bad"}))
	assert.Equal(t, MsgTokenInvalid, d.Message)

	d = f.gate.Decide(request(http.MethodGet, "/api/home", &http.Cookie{Name: token.CookieName, Value: "good"}))
	assert.Equal(t, Allow, d.Outcome)

	// a session does not satisfy the token channel
	d = f.gate.Decide(request(http.MethodGet, "/api/home", f.cookie(t, true)))
	assert.Equal(t, Reject, d.Outcome)
}

func TestMiddleware(t *testing.T) {
	f := newFixture(t, "")
	e := echo.New()
	e.Use(f.gate.Middleware)
	e.GET("/users", func(c echo.Context) error {
		id, ok := CurrentUser(c)
		require.True(t, ok)
		assert.EqualValues(t, 42, c.Get(KeyUserID))
		assert.True(t, IsAdmin(c))
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	})
	e.GET("/admin", func(c echo.Context) error { return c.String(http.StatusOK, "admin") })
	e.GET("/api/home", func(c echo.Context) error { return c.String(http.StatusOK, "home") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodGet, "/users"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgAuthRequired)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodGet, "/users", f.cookie(t, true)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodGet, "/admin", f.cookie(t, false)))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/error/403", rec.Header().Get(echo.HeaderLocation))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodGet, "/api/home"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, MsgTokenMissing, rec.Body.String())
}

func TestMiddleware_AddsUserToRequestLogger(t *testing.T) {
	f := newFixture(t, "")
	var buf bytes.Buffer
	base := logging.NewWithWriter(&buf, "info")

	e := echo.New()
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(logging.IntoContext(c.Request().Context(), base)))
			return next(c)
		}
	})
	e.Use(f.gate.Middleware)
	e.GET("/users/me", func(c echo.Context) error {
		logging.FromContext(c.Request().Context()).Info("handled")
		return c.NoContent(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, request(http.MethodGet, "/users/me", f.cookie(t, false)))
	require.Equal(t, http.StatusOK, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "handled", line["msg"])
	assert.EqualValues(t, 42, line["user_id"])
}
