package report

import (
	"fmt"
	"time"
)

// Commit is a single version-control change record as delivered by a source.
// AuthorDate is kept as the source wrote it and parsed once by Aggregate.
type Commit struct {
	Project      string `json:"project"`
	Hash         string `json:"hash,omitempty"`
	Ref          string `json:"ref,omitempty"`
	Message      string `json:"message"`
	AuthorName   string `json:"author_name"`
	AuthorDate   string `json:"author_date"`
	TotalSeconds int    `json:"total_seconds"`
}

// ProjectDayReport holds the commits of one project on one calendar day.
type ProjectDayReport struct {
	Project string
	Date    time.Time
	Commits []Commit

	// authored[i] is the parsed AuthorDate of Commits[i]
	authored []time.Time
}

// TotalSeconds sums the time attributed to every commit in the report.
func (r ProjectDayReport) TotalSeconds() int {
	total := 0
	for _, c := range r.Commits {
		total += c.TotalSeconds
	}
	return total
}

// Day returns the report date as YYYY-MM-DD.
func (r ProjectDayReport) Day() string {
	return r.Date.Format(DayLayout)
}

// AuthoredAt returns the parsed author date of the i-th commit.
func (r ProjectDayReport) AuthoredAt(i int) time.Time {
	if i < len(r.authored) {
		return r.authored[i]
	}
	t, _ := ParseAuthorDate(r.Commits[i].AuthorDate)
	return t
}

// Row is one display/export line derived from a commit.
type Row struct {
	Date        string    `json:"date"`
	Day         string    `json:"day"`
	Project     string    `json:"project"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Tickets     []string  `json:"tickets"`
	TimeSeconds int       `json:"time_seconds"`
	AuthoredAt  time.Time `json:"-"`
}

const (
	// DayLayout is the grouping/export key format of a calendar day.
	DayLayout = "2006-01-02"
	// DisplayLayout is the row date format: day-month-year hour:minute:second.
	DisplayLayout = "02-01-2006 15:04:05"
	// ReportDayLayout is the day format used in report headings.
	ReportDayLayout = "02-01-2006"
)

var authorDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseAuthorDate parses a commit author date in any of the layouts sources emit.
func ParseAuthorDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("author date is empty")
	}

	var lastErr error
	for _, layout := range authorDateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
