// Package access decides whether a caller holding a given role may reach a
// route. Decisions are pure: the HTTP layer supplies the path and role and
// carries out the resulting redirect.
package access

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// Decision is the outcome of evaluating a request against the policy.
type Decision int

const (
	Allow Decision = iota
	RedirectToLogin
	RedirectToUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case RedirectToLogin:
		return "redirect_to_login"
	case RedirectToUnauthorized:
		return "redirect_to_unauthorized"
	default:
		return "unknown"
	}
}

// DefaultPolicy controls what happens to authenticated requests for paths
// that no RouteSpec covers.
type DefaultPolicy string

const (
	// DefaultAllow lets any authenticated role through to unlisted paths.
	DefaultAllow DefaultPolicy = "allow"
	// DefaultDeny sends authenticated callers on unlisted paths to the
	// unauthorized page.
	DefaultDeny DefaultPolicy = "deny"
)

// RouteSpec restricts a path and everything below it to a set of roles.
type RouteSpec struct {
	Pattern string `yaml:"pattern"`
	Roles   []Role `yaml:"roles"`
}

// Policy is the static route table the gate is built from.
type Policy struct {
	PublicPaths    []string      `yaml:"public_paths"`
	PublicPrefixes []string      `yaml:"public_prefixes"`
	Routes         []RouteSpec   `yaml:"routes"`
	Default        DefaultPolicy `yaml:"default_policy"`
}

// ErrInvalidPolicy is returned by NewGate when the route table is malformed.
var ErrInvalidPolicy = errors.New("invalid access policy")

type route struct {
	pattern string
	roles   map[Role]struct{}
}

// Gate evaluates requests against a validated Policy. It holds no mutable
// state after construction and is safe for concurrent use.
type Gate struct {
	publicPaths    map[string]struct{}
	publicPrefixes []string
	routes         []route // longest pattern first
	failOpen       bool
}

// NewGate validates p and builds a Gate from it.
func NewGate(p Policy) (*Gate, error) {
	g := &Gate{
		publicPaths: make(map[string]struct{}, len(p.PublicPaths)),
	}

	switch p.Default {
	case DefaultAllow, "":
		g.failOpen = true
	case DefaultDeny:
		g.failOpen = false
	default:
		return nil, fmt.Errorf("%w: unknown default policy %q", ErrInvalidPolicy, p.Default)
	}

	for _, pp := range p.PublicPaths {
		if !strings.HasPrefix(pp, "/") {
			return nil, fmt.Errorf("%w: public path %q must be absolute", ErrInvalidPolicy, pp)
		}
		g.publicPaths[cleanPath(pp)] = struct{}{}
	}
	for _, prefix := range p.PublicPrefixes {
		if !strings.HasPrefix(prefix, "/") || prefix == "/" {
			return nil, fmt.Errorf("%w: public prefix %q must be absolute and narrower than /", ErrInvalidPolicy, prefix)
		}
		g.publicPrefixes = append(g.publicPrefixes, prefix)
	}

	seen := make(map[string]struct{}, len(p.Routes))
	for _, rs := range p.Routes {
		if rs.Pattern == "" || !strings.HasPrefix(rs.Pattern, "/") {
			return nil, fmt.Errorf("%w: route pattern %q must be absolute", ErrInvalidPolicy, rs.Pattern)
		}
		pattern := cleanPath(rs.Pattern)
		if _, dup := seen[pattern]; dup {
			return nil, fmt.Errorf("%w: duplicate route pattern %q", ErrInvalidPolicy, pattern)
		}
		seen[pattern] = struct{}{}

		if len(rs.Roles) == 0 {
			return nil, fmt.Errorf("%w: route %q has no roles", ErrInvalidPolicy, pattern)
		}
		roles := make(map[Role]struct{}, len(rs.Roles))
		for _, r := range rs.Roles {
			if !r.Valid() {
				return nil, fmt.Errorf("%w: route %q lists invalid role %d", ErrInvalidPolicy, pattern, int(r))
			}
			roles[r] = struct{}{}
		}
		g.routes = append(g.routes, route{pattern: pattern, roles: roles})
	}

	sort.SliceStable(g.routes, func(i, j int) bool {
		return len(g.routes[i].pattern) > len(g.routes[j].pattern)
	})

	return g, nil
}

// FailOpen reports whether authenticated callers may reach unlisted paths.
func (g *Gate) FailOpen() bool {
	return g.failOpen
}

// Evaluate decides whether a caller with role may reach reqPath.
// RoleNone, or any value outside the Role enumeration, counts as
// unauthenticated.
func (g *Gate) Evaluate(reqPath string, role Role) Decision {
	p := cleanPath(reqPath)

	if g.isPublic(p) {
		return Allow
	}

	if !role.Valid() {
		return RedirectToLogin
	}

	rt, ok := g.match(p)
	if !ok {
		if g.failOpen {
			return Allow
		}
		return RedirectToUnauthorized
	}

	if _, permitted := rt.roles[role]; !permitted {
		return RedirectToUnauthorized
	}
	return Allow
}

// AllowedRoles returns the roles permitted on reqPath and whether a route
// covers it at all.
func (g *Gate) AllowedRoles(reqPath string) ([]Role, bool) {
	rt, ok := g.match(cleanPath(reqPath))
	if !ok {
		return nil, false
	}
	out := make([]Role, 0, len(rt.roles))
	for _, r := range Roles {
		if _, permitted := rt.roles[r]; permitted {
			out = append(out, r)
		}
	}
	return out, true
}

func (g *Gate) isPublic(p string) bool {
	if _, ok := g.publicPaths[p]; ok {
		return true
	}
	for _, prefix := range g.publicPrefixes {
		if strings.HasPrefix(p, prefix) || p == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

func (g *Gate) match(p string) (route, bool) {
	for _, rt := range g.routes {
		if rt.pattern == "/" || p == rt.pattern || strings.HasPrefix(p, rt.pattern+"/") {
			return rt, true
		}
	}
	return route{}, false
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}
