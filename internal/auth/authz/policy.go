// Package authz decides whether a caller's role may reach a route. The
// decision is a pure comparison against an ordered rule table.
package authz

import (
	"errors"
	"strings"

	"github.com/aussiebroadwan/tabauth/internal/auth/domain"
)

var (
	ErrUnauthenticated  = errors.New("authz: authentication required")
	ErrInsufficientRole = errors.New("authz: insufficient role")
)

// Rule requires MinRole for requests matching Pattern and Method. An empty
// Method matches any method; MinRole RolePublic admits anonymous callers.
//
// Pattern segments are literals, "{name}" or "*" for exactly one segment,
// or a trailing "**" for any remainder including none.
type Rule struct {
	Pattern string
	Method  string
	MinRole domain.Role

	segments []string
}

// Decision is the outcome of evaluating a request against a Policy.
type Decision struct {
	Allowed  bool
	Required domain.Role
	// Rule is the matched pattern, empty when the default applied.
	Rule string

	anonymous bool
}

// Err maps a Decision to nil, ErrUnauthenticated or ErrInsufficientRole.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.anonymous:
		return ErrUnauthenticated
	default:
		return ErrInsufficientRole
	}
}

// Policy is an ordered rule table. The zero value allows any authenticated
// caller everywhere.
type Policy struct {
	rules []Rule
}

// NewPolicy compiles rules in order. The first matching rule wins.
func NewPolicy(rules ...Rule) *Policy {
	p := &Policy{rules: make([]Rule, 0, len(rules))}
	for _, r := range rules {
		r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
		r.segments = splitPath(r.Pattern)
		p.rules = append(p.rules, r)
	}
	return p
}

// Required returns the minimum role for a request and the pattern that set
// it. Unmatched requests need RoleUser.
func (p *Policy) Required(method, path string) (domain.Role, string) {
	if p != nil {
		method = strings.ToUpper(method)
		segs := splitPath(path)
		for _, r := range p.rules {
			if r.Method != "" && r.Method != method {
				continue
			}
			if match(r.segments, segs) {
				return r.MinRole, r.Pattern
			}
		}
	}
	return domain.MinAssignableRole, ""
}

// Decide evaluates a request. role is nil for anonymous callers.
func (p *Policy) Decide(method, path string, role *domain.Role) Decision {
	required, rule := p.Required(method, path)
	d := Decision{Required: required, Rule: rule}

	if required == domain.RolePublic {
		d.Allowed = true
		return d
	}
	if role == nil {
		d.anonymous = true
		return d
	}
	d.Allowed = role.AtLeast(required)
	return d
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func match(pattern, path []string) bool {
	for i, seg := range pattern {
		if seg == "**" && i == len(pattern)-1 {
			return true
		}
		if i >= len(path) {
			return false
		}
		switch {
		case seg == "*":
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			if path[i] == "" {
				return false
			}
		case seg != path[i]:
			return false
		}
	}
	return len(pattern) == len(path)
}
