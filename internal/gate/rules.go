package gate

import (
	"net/http"
	"path"
	"strings"
)

type Class int

const (
	Public Class = iota
	Authenticated
	AdminOnly
)

func (c Class) String() string {
	switch c {
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin_only"
	}
	return "public"
}

type Channel int

const (
	SessionChannel Channel = iota
	TokenChannel
)

// Rule classifies a route family. Method "" matches any method. Prefix rules
// match the pattern itself and everything below it; other patterns may use
// "*" for exactly one path segment.
type Rule struct {
	Method  string
	Pattern string
	Prefix  bool
	Class   Class
	Channel Channel
	Browser bool
}

func (r Rule) Matches(method, p string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if r.Prefix {
		return p == r.Pattern || strings.HasPrefix(p, r.Pattern+"/")
	}
	if strings.Contains(r.Pattern, "*") {
		ok, _ := path.Match(r.Pattern, p)
		return ok
	}
	return p == r.Pattern
}

func DefaultRules() []Rule {
	return []Rule{
		{Pattern: "/users/login", Class: Public},
		{Pattern: "/users/logout", Class: Public},
		{Method: http.MethodPost, Pattern: "/users", Class: Public},
		{Pattern: "/", Class: Public},
		{Pattern: "/login", Class: Public},
		{Pattern: "/register", Class: Public},
		{Pattern: "/error", Prefix: true, Class: Public},

		{Method: http.MethodPut, Pattern: "/users/*/password", Class: Authenticated},
		{Method: http.MethodGet, Pattern: "/users/me", Class: Authenticated},
		{Pattern: "/users", Prefix: true, Class: AdminOnly},
		{Pattern: "/api/system", Prefix: true, Class: AdminOnly},
		{Pattern: "/systeminfo", Class: AdminOnly},
		{Pattern: "/admin", Prefix: true, Class: AdminOnly, Browser: true},
		{Pattern: "/home", Class: Authenticated, Browser: true},
		{Pattern: "/settings", Class: Authenticated, Browser: true},

		{Method: http.MethodPost, Pattern: "/books", Prefix: true, Class: Authenticated},
		{Method: http.MethodPut, Pattern: "/books", Prefix: true, Class: Authenticated},
		{Method: http.MethodDelete, Pattern: "/books", Prefix: true, Class: Authenticated},

		{Pattern: "/api/home", Class: Authenticated, Channel: TokenChannel},
	}
}

// Normalize strips the context path and any trailing slash. Matching stays
// case-sensitive.
func Normalize(contextPath, p string) string {
	contextPath = strings.TrimRight(contextPath, "/")
	if contextPath != "" && (p == contextPath || strings.HasPrefix(p, contextPath+"/")) {
		p = p[len(contextPath):]
	}
	if p == "" {
		return "/"
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			return "/"
		}
	}
	return p
}

// Classify returns the first rule matching the request; unmatched routes are public.
func Classify(rules []Rule, method, p string) Rule {
	for _, r := range rules {
		if r.Matches(method, p) {
			return r
		}
	}
	return Rule{Pattern: p, Class: Public}
}
