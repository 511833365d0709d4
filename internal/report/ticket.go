package report

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultTicketPattern matches issue keys such as ABC-123. Built-in matchers
// also require that no ASCII letter or digit is glued to either end, so
// underscores, dots and slashes all separate a key from its neighbours.
const DefaultTicketPattern = `[A-Z][A-Z0-9]+-[0-9]+`

// TicketParser extracts ticket identifiers from free text.
type TicketParser interface {
	ParseTicket(text string) []string
}

// TicketMatcher finds ticket identifiers with a regular expression.
type TicketMatcher struct {
	pattern *regexp.Regexp
	// bounded rejects matches glued to an ASCII letter or digit.
	bounded bool
}

// NewTicketMatcher returns a matcher for the given project keys, or for any
// uppercase key when none are given.
func NewTicketMatcher(keys ...string) *TicketMatcher {
	var quoted []string
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k != "" {
			quoted = append(quoted, regexp.QuoteMeta(k))
		}
	}

	if len(quoted) == 0 {
		return &TicketMatcher{pattern: regexp.MustCompile(DefaultTicketPattern), bounded: true}
	}

	expr := fmt.Sprintf(`(?:%s)-[0-9]+`, strings.Join(quoted, "|"))
	return &TicketMatcher{pattern: regexp.MustCompile(expr), bounded: true}
}

// NewTicketMatcherPattern compiles a custom ticket pattern. Matches are taken
// as the pattern finds them.
func NewTicketMatcherPattern(expr string) (*TicketMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid ticket pattern %q: %w", expr, err)
	}
	return &TicketMatcher{pattern: re}, nil
}

// ParseTicket returns the distinct tickets in text in first-seen order.
func (m *TicketMatcher) ParseTicket(text string) []string {
	if text == "" {
		return nil
	}

	var tickets []string
	seen := make(map[string]bool)
	for _, loc := range m.pattern.FindAllStringIndex(text, -1) {
		if m.bounded && (gluedAt(text, loc[0]-1) || gluedAt(text, loc[1])) {
			continue
		}
		match := text[loc[0]:loc[1]]
		if seen[match] {
			continue
		}
		seen[match] = true
		tickets = append(tickets, match)
	}
	return tickets
}

func gluedAt(text string, i int) bool {
	if i < 0 || i >= len(text) {
		return false
	}
	c := text[i]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// ResolveTickets guesses the tickets from the branch name first and only
// falls back to the commit message when the branch names none.
func ResolveTickets(p TicketParser, c Commit) []string {
	if tickets := p.ParseTicket(c.Ref); len(tickets) > 0 {
		return tickets
	}
	return p.ParseTicket(c.Message)
}
