// Package policy evaluates role expressions against an authenticated
// principal. Expressions are data: routes map to them through a Table
// instead of role checks scattered through handlers.
//
// Supported grammar, case-insensitive keywords:
//
//	expr  := term { "or" term }
//	term  := "permitAll" | "denyAll" | "hasRole('R')" | "hasAnyRole('R', ...)"
package policy

import (
	"fmt"
	"strings"

	"github.com/99minutos/account-service/internal/core/domain"
)

// Decision is the outcome of an evaluation.
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Expression is a parsed role requirement: an OR over role memberships.
type Expression struct {
	source string
	permit bool
	anyOf  []domain.Role
}

// String returns the expression as written.
func (e Expression) String() string { return e.source }

// Public reports whether the expression admits anonymous callers.
func (e Expression) Public() bool { return e.permit }

var (
	PermitAll = Expression{source: "permitAll", permit: true}
	DenyAll   = Expression{source: "denyAll"}
)

// HasAnyRole builds an expression satisfied by any of roles.
func HasAnyRole(roles ...domain.Role) Expression {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = fmt.Sprintf("hasRole('%s')", r)
	}
	return Expression{source: strings.Join(names, " or "), anyOf: append([]domain.Role(nil), roles...)}
}

// Evaluate decides whether principal satisfies expr. A nil principal is
// anonymous and is denied by every role-gated expression.
func Evaluate(expr Expression, principal *domain.Principal) Decision {
	if expr.permit {
		return Allow
	}
	if principal == nil {
		return Deny
	}
	for _, r := range expr.anyOf {
		if principal.HasRole(r) {
			return Allow
		}
	}
	return Deny
}

// Parse compiles an expression such as
// "hasRole('ROLE_ADMIN') or hasRole('ROLE_CLIENT')".
func Parse(s string) (Expression, error) {
	src := strings.TrimSpace(s)
	if src == "" {
		return Expression{}, fmt.Errorf("policy: empty expression")
	}

	expr := Expression{source: src}
	for _, term := range splitOr(src) {
		switch {
		case strings.EqualFold(term, "permitAll"):
			expr.permit = true
		case strings.EqualFold(term, "denyAll"):
		case hasCall(term, "hasRole"), hasCall(term, "hasAnyRole"):
			args, err := callArgs(term)
			if err != nil {
				return Expression{}, err
			}
			if hasCall(term, "hasRole") && len(args) != 1 {
				return Expression{}, fmt.Errorf("policy: hasRole takes one role in %q", term)
			}
			for _, a := range args {
				r := domain.Role(a)
				if !r.IsValid() {
					return Expression{}, fmt.Errorf("policy: unknown role %q", a)
				}
				expr.anyOf = appendUnique(expr.anyOf, r)
			}
		default:
			return Expression{}, fmt.Errorf("policy: unsupported term %q", term)
		}
	}
	return expr, nil
}

// MustParse is like Parse but panics on error. Use it for static tables.
func MustParse(s string) Expression {
	e, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return e
}

func splitOr(s string) []string {
	fields := strings.Fields(s)
	var (
		terms []string
		cur   []string
	)
	for _, f := range fields {
		if strings.EqualFold(f, "or") || f == "||" {
			terms = append(terms, strings.Join(cur, " "))
			cur = cur[:0]
			continue
		}
		cur = append(cur, f)
	}
	return append(terms, strings.Join(cur, " "))
}

func hasCall(term, name string) bool {
	return len(term) > len(name) &&
		strings.EqualFold(term[:len(name)], name) &&
		strings.HasPrefix(strings.TrimSpace(term[len(name):]), "(")
}

func callArgs(term string) ([]string, error) {
	open := strings.Index(term, "(")
	if open < 0 || !strings.HasSuffix(term, ")") {
		return nil, fmt.Errorf("policy: malformed call %q", term)
	}
	inner := strings.TrimSpace(term[open+1 : len(term)-1])
	if inner == "" {
		return nil, fmt.Errorf("policy: no roles in %q", term)
	}
	parts := strings.Split(inner, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, `'"`)
		if p == "" {
			return nil, fmt.Errorf("policy: empty role in %q", term)
		}
		out = append(out, p)
	}
	return out, nil
}

func appendUnique(roles []domain.Role, r domain.Role) []domain.Role {
	for _, x := range roles {
		if x == r {
			return roles
		}
	}
	return append(roles, r)
}
