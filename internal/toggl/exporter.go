package toggl

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Afrawles/devtimer/internal/report"
)

const createdWith = "devtimer"

// Summarizer resolves a ticket key to its title.
type Summarizer interface {
	Summary(ctx context.Context, key string) (string, error)
}

// Exporter sends report rows to Toggl as one time entry per project, day and
// ticket set. Entries of a day are laid out back to back from StartHour.
type Exporter struct {
	Client      *Client
	WorkspaceID int64
	// Projects maps a report project to a Toggl project ID.
	Projects  map[string]int64
	StartHour int
	Tags      []string
	Location  *time.Location
	Summaries Summarizer
	DryRun    bool
	Logger    *slog.Logger
}

var _ report.Exporter = (*Exporter)(nil)

func NewExporter(client *Client, workspaceID int64) *Exporter {
	return &Exporter{
		Client:      client,
		WorkspaceID: workspaceID,
		StartHour:   9,
		Tags:        []string{createdWith},
		Location:    time.Local,
		Logger:      slog.Default(),
	}
}

type entryKey struct {
	project string
	day     string
	tickets string
}

// Plan groups rows into the time entries Export would create. Rows without
// time are counted as skipped.
func (e *Exporter) Plan(ctx context.Context, rows []report.Row) ([]TimeEntry, int, error) {
	index := make(map[entryKey]int)
	var keys []entryKey
	seconds := make(map[entryKey]int)
	tickets := make(map[entryKey][]string)
	skipped := 0

	for _, row := range rows {
		if row.TimeSeconds <= 0 {
			skipped++
			continue
		}
		key := entryKey{project: row.Project, day: row.Day, tickets: report.JoinTickets(row.Tickets)}
		if _, ok := index[key]; !ok {
			index[key] = len(keys)
			keys = append(keys, key)
			tickets[key] = row.Tickets
		}
		seconds[key] += row.TimeSeconds
	}

	loc := e.Location
	if loc == nil {
		loc = time.Local
	}

	cursor := make(map[string]time.Time)
	entries := make([]TimeEntry, 0, len(keys))
	for _, key := range keys {
		start, ok := cursor[key.day]
		if !ok {
			day, err := time.ParseInLocation(report.DayLayout, key.day, loc)
			if err != nil {
				return nil, skipped, fmt.Errorf("invalid day %q: %w", key.day, err)
			}
			start = day.Add(time.Duration(e.StartHour) * time.Hour)
		}

		duration := seconds[key]
		cursor[key.day] = start.Add(time.Duration(duration) * time.Second)

		entries = append(entries, TimeEntry{
			WorkspaceID: e.WorkspaceID,
			ProjectID:   e.Projects[key.project],
			Description: e.describe(ctx, key.project, tickets[key]),
			Start:       start,
			Duration:    duration,
			Tags:        e.Tags,
			CreatedWith: createdWith,
		})
	}

	return entries, skipped, nil
}

// Export creates the planned entries. It stops at the first failed request.
func (e *Exporter) Export(ctx context.Context, rows []report.Row) (report.ExportSummary, error) {
	entries, skipped, err := e.Plan(ctx, rows)
	if err != nil {
		return report.ExportSummary{}, err
	}

	summary := report.ExportSummary{Skipped: skipped}
	for _, entry := range entries {
		if !e.DryRun {
			if _, err := e.Client.CreateTimeEntry(ctx, entry); err != nil {
				return summary, fmt.Errorf("failed to create time entry %q: %w", entry.Description, err)
			}
		}
		e.logger().Info("time entry exported",
			"description", entry.Description,
			"start", entry.Start.Format(time.RFC3339),
			"seconds", entry.Duration,
			"dry_run", e.DryRun,
		)
		summary.Entries++
		summary.TotalSeconds += entry.Duration
	}

	return summary, nil
}

func (e *Exporter) describe(ctx context.Context, project string, tickets []string) string {
	if len(tickets) == 0 {
		return project
	}

	description := report.JoinTickets(tickets)
	if len(tickets) == 1 && e.Summaries != nil {
		title, err := e.Summaries.Summary(ctx, tickets[0])
		if err != nil {
			e.logger().Warn("failed to fetch ticket summary", "ticket", tickets[0], "error", err)
			return description
		}
		if title != "" {
			description += " " + title
		}
	}
	return description
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}
