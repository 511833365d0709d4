package report

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownProject is returned when no source knows a requested project.
var ErrUnknownProject = errors.New("project not known by any source")

// CommitSource delivers the commits of a project for one day.
type CommitSource interface {
	Name() string
	HealthCheck(ctx context.Context) error
	Projects(ctx context.Context) ([]string, error)
	FetchCommits(ctx context.Context, project string, day time.Time) ([]Commit, error)
}

// Exporter pushes report rows to a time-tracking backend.
type Exporter interface {
	Export(ctx context.Context, rows []Row) (ExportSummary, error)
}

// ExportSummary describes what an exporter sent.
type ExportSummary struct {
	Entries      int
	TotalSeconds int
	Skipped      int
}
