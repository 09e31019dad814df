// Package rolemap filters and reformats external role claims into the
// display names used to match internal groups.
package rolemap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/trodix/keycloak-activiti-app-ext/internal/auth"
)

// Outcome tells whether a token determined the user's roles.
type Outcome int

const (
	// NoToken means no access token was available.
	NoToken Outcome = iota
	// NoClaims means the token carried neither realm nor resource role data.
	NoClaims
	// Mapped means Roles holds the complete mapped role set, possibly empty.
	Mapped
)

func (o Outcome) String() string {
	switch o {
	case NoToken:
		return "no_token"
	case NoClaims:
		return "no_claims"
	case Mapped:
		return "mapped"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of mapping a token.
type Result struct {
	Outcome Outcome
	// Roles maps raw role to display name. Only meaningful when Determined.
	Roles map[string]string
}

// Determined reports whether group membership may be synchronized from Roles.
// An undetermined result must not strip memberships.
func (r Result) Determined() bool {
	return r.Outcome == Mapped
}

// Rule reformats roles fully matching Pattern.
type Rule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// Config holds comma separated pattern lists.
type Config struct {
	ResourceIncludes   string
	FormatPatterns     string
	FormatReplacements string
	Includes           string
	Excludes           string
}

// Mapper applies include, exclude and format rules. It is immutable and safe
// for concurrent use.
type Mapper struct {
	resourceIncludes []*regexp.Regexp
	includes         []*regexp.Regexp
	excludes         []*regexp.Regexp
	rules            []Rule
}

// New compiles the configured pattern lists. A replacement list shorter than
// the pattern list pads with empty replacements; extra replacements are ignored.
func New(cfg Config) (*Mapper, error) {
	var (
		m   Mapper
		err error
	)

	if m.resourceIncludes, err = compileList("resourceIncludes", cfg.ResourceIncludes); err != nil {
		return nil, err
	}
	if m.includes, err = compileList("includes", cfg.Includes); err != nil {
		return nil, err
	}
	if m.excludes, err = compileList("excludes", cfg.Excludes); err != nil {
		return nil, err
	}

	patterns, err := compileList("formatPatterns", cfg.FormatPatterns)
	if err != nil {
		return nil, err
	}

	replacements := splitList(cfg.FormatReplacements)
	for i, p := range patterns {
		var replacement string
		if i < len(replacements) {
			replacement = replacements[i]
		}
		m.rules = append(m.rules, Rule{Pattern: p, Replacement: replacement})
	}

	return &m, nil
}

// Map maps the roles of token. A nil token yields NoToken, a token without
// role data NoClaims.
func (m *Mapper) Map(token *auth.AccessToken) Result {
	if token == nil {
		return Result{Outcome: NoToken}
	}
	if !token.HasRoleData() {
		return Result{Outcome: NoClaims}
	}

	return Result{
		Outcome: Mapped,
		Roles:   m.MapRoles(token.RealmRoles(), token.ResourceRoles()),
	}
}

// MapRoles collects realm roles and the roles of included resources, filters
// them and returns raw role to display name.
func (m *Mapper) MapRoles(realm []string, resources map[string][]string) map[string]string {
	out := make(map[string]string)

	add := func(role string) {
		if _, done := out[role]; done || !m.keep(role) {
			return
		}
		out[role] = m.format(role)
	}

	for _, role := range realm {
		add(role)
	}

	for resource, roles := range resources {
		if len(m.resourceIncludes) > 0 && !anyMatch(m.resourceIncludes, resource) {
			continue
		}
		for _, role := range roles {
			add(role)
		}
	}

	return out
}

// keep applies the include and exclude lists.
func (m *Mapper) keep(role string) bool {
	if len(m.includes) > 0 && !anyMatch(m.includes, role) {
		return false
	}

	return !anyMatch(m.excludes, role)
}

// format applies the first matching rule.
func (m *Mapper) format(role string) string {
	for _, r := range m.rules {
		if r.Pattern.MatchString(role) {
			return r.Pattern.ReplaceAllString(role, r.Replacement)
		}
	}

	return role
}

func anyMatch(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}

	return false
}

// compileList compiles a comma separated list into full-match patterns.
func compileList(key, list string) ([]*regexp.Regexp, error) {
	var out []*regexp.Regexp

	for _, expr := range splitList(list) {
		re, err := regexp.Compile("^(?:" + expr + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: roles.%s %q: %w", ErrInvalidPattern, key, expr, err)
		}
		out = append(out, re)
	}

	return out, nil
}

func splitList(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}

	parts := strings.Split(list, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	return parts
}
