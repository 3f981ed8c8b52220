package sec

import (
	"net/http"
	"slices"
	"strings"
)

// Policy is the credential requirement for a route.
type Policy int

// Policies, from least to most restrictive. The zero value is the most
// restrictive so that an unset policy never grants access.
const (
	PolicySession Policy = iota
	PolicyKeyOrSession
	PolicyPublic
)

// String satisfies [fmt.Stringer].
func (p Policy) String() string {
	switch p {
	case PolicyPublic:
		return "public"
	case PolicyKeyOrSession:
		return "key-or-session"
	case PolicySession:
		return "session"
	default:
		return "unknown"
	}
}

// Rule assigns a Policy to requests whose path falls under Prefix. An empty
// Methods matches every method.
type Rule struct {
	Prefix  string
	Methods []string
	Policy  Policy
}

func (r Rule) matches(method, path string) bool {
	if len(r.Methods) > 0 && !slices.Contains(r.Methods, method) {
		return false
	}
	return matchPrefix(path, r.Prefix)
}

// matchPrefix is segment aware: "/api/log" matches "/api/log" and
// "/api/log/1" but not "/api/logger".
func matchPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// PolicyTable is the ordered, central access policy. The first matching rule
// wins; unmatched requests get the fallback.
type PolicyTable struct {
	rules    []Rule
	fallback Policy
}

// NewPolicyTable creates a table from rules evaluated in order.
func NewPolicyTable(fallback Policy, rules ...Rule) *PolicyTable {
	return &PolicyTable{
		rules:    slices.Clone(rules),
		fallback: fallback,
	}
}

// Public paths reachable without any credential.
var publicPrefixes = []string{"/login", "/api/auth", "/api/init", "/static", "/healthz", "/robots.txt"}

// DefaultPolicyTable builds the dashboard policy. keyPaths lists the prefixes
// where the internal API key is accepted in place of a session; everything not
// listed as public or keyed requires a session.
func DefaultPolicyTable(keyPaths []string) *PolicyTable {
	rules := make([]Rule, 0, len(publicPrefixes)+len(keyPaths)+2) //nolint:mnd // status rules
	for _, prefix := range publicPrefixes {
		rules = append(rules, Rule{Prefix: prefix, Policy: PolicyPublic})
	}
	// The status indicator is readable by the public polling widget, but only
	// the agent or a logged in user may change it.
	rules = append(rules,
		Rule{Prefix: "/api/status", Methods: []string{http.MethodGet, http.MethodHead}, Policy: PolicyPublic},
		Rule{Prefix: "/api/status", Policy: PolicyKeyOrSession},
	)
	for _, prefix := range keyPaths {
		rules = append(rules, Rule{Prefix: prefix, Policy: PolicyKeyOrSession})
	}
	return NewPolicyTable(PolicySession, rules...)
}

// Lookup resolves the policy for a request method and path.
func (t *PolicyTable) Lookup(method, path string) Policy {
	for _, rule := range t.rules {
		if rule.matches(method, path) {
			return rule.Policy
		}
	}
	return t.fallback
}

// Rules returns a copy of the table's rules in evaluation order.
func (t *PolicyTable) Rules() []Rule {
	return slices.Clone(t.rules)
}
