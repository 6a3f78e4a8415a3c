package auth

import (
	"net/http"
	"strings"
)

// Rule maps a path to the role it requires. A Path ending in "/" matches
// every path under it. Empty Methods matches any method.
type Rule struct {
	Path    string
	Methods []string
	Role    Role
}

func (r Rule) matches(req *http.Request) bool {
	if strings.HasSuffix(r.Path, "/") {
		if !strings.HasPrefix(req.URL.Path, r.Path) {
			return false
		}
	} else if req.URL.Path != r.Path {
		return false
	}
	if len(r.Methods) == 0 {
		return true
	}
	for _, m := range r.Methods {
		if m == req.Method {
			return true
		}
	}
	return false
}

// Policy resolves the role a request needs. Rules are checked in order and
// the first match wins.
type Policy struct {
	exempt map[string]struct{}
	rules  []Rule
}

// NewPolicy builds a policy from exempt paths and ordered rules.
func NewPolicy(exempt []string, rules ...Rule) Policy {
	set := make(map[string]struct{}, len(exempt))
	for _, path := range exempt {
		set[path] = struct{}{}
	}
	return Policy{exempt: set, rules: rules}
}

// DefaultPolicy is the API's access policy. Computations and reads need a
// viewer; registering entities for polling or resetting it on logout needs an
// operator; anything else
// under /api/ needs an admin.
func DefaultPolicy() Policy {
	return NewPolicy([]string{"/healthz", "/metrics"},
		Rule{Path: "/api/v1/polling/", Methods: []string{http.MethodPost}, Role: RoleOperator},
		Rule{Path: "/api/v1/polling", Methods: []string{http.MethodGet}, Role: RoleViewer},
		Rule{Path: "/api/v1/auth/logout", Role: RoleOperator},
		Rule{Path: "/api/v1/grids/", Role: RoleViewer},
		Rule{Path: "/api/v1/intervals/", Role: RoleViewer},
		Rule{Path: "/api/v1/exports/", Role: RoleViewer},
		Rule{Path: "/api/v1/entities/", Methods: []string{http.MethodGet}, Role: RoleViewer},
		Rule{Path: "/api/", Role: RoleAdmin},
	)
}

// Exempt reports whether the request skips authentication.
func (p Policy) Exempt(r *http.Request) bool {
	_, ok := p.exempt[r.URL.Path]
	return ok
}

// Required returns the role the request needs, or false when no rule applies.
func (p Policy) Required(r *http.Request) (Role, bool) {
	for _, rule := range p.rules {
		if rule.matches(r) {
			return rule.Role, true
		}
	}
	return "", false
}
