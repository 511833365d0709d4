package report

import (
	"strings"

	"github.com/rivo/uniseg"
)

const (
	// DescriptionWidth is the number of visible characters kept from a commit message.
	DescriptionWidth = 150
	// Ellipsis marks a truncated description.
	Ellipsis = "..."
)

// Build turns grouped commits into display rows. Commits without a message or
// author are skipped and returned as *MalformedCommitError warnings.
func Build(reports []ProjectDayReport, p TicketParser) ([]Row, []error) {
	var rows []Row
	var warnings []error

	for _, r := range reports {
		for i, c := range r.Commits {
			if strings.TrimSpace(c.Message) == "" {
				warnings = append(warnings, &MalformedCommitError{Commit: c, Field: "message"})
				continue
			}
			if strings.TrimSpace(c.AuthorName) == "" {
				warnings = append(warnings, &MalformedCommitError{Commit: c, Field: "author_name"})
				continue
			}

			authored := r.AuthoredAt(i)
			rows = append(rows, Row{
				Date:        authored.Format(DisplayLayout),
				Day:         r.Day(),
				Project:     r.Project,
				Author:      c.AuthorName,
				Description: Truncate(c.Message, DescriptionWidth),
				Tickets:     ResolveTickets(p, c),
				TimeSeconds: c.TotalSeconds,
				AuthoredAt:  authored,
			})
		}
	}

	return rows, warnings
}

// Truncate keeps the first width visible characters of s and appends an
// ellipsis when anything was cut.
func Truncate(s string, width int) string {
	if uniseg.GraphemeClusterCount(s) <= width {
		return s
	}

	var b strings.Builder
	g := uniseg.NewGraphemes(s)
	for n := 0; n < width && g.Next(); n++ {
		b.WriteString(g.Str())
	}
	b.WriteString(Ellipsis)
	return b.String()
}
