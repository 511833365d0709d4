package devtimer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/Afrawles/devtimer/internal/config"
	"github.com/Afrawles/devtimer/internal/gitlog"
	"github.com/Afrawles/devtimer/internal/jira"
	"github.com/Afrawles/devtimer/internal/output"
	"github.com/Afrawles/devtimer/internal/report"
	"github.com/Afrawles/devtimer/internal/toggl"
	"github.com/Afrawles/devtimer/internal/wakatime"
)

type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	Generator *report.Generator
	Matcher   report.TicketParser
	Wakatime  *wakatime.Client
}

// Result is the outcome of one daily run.
type Result struct {
	Day      time.Time
	Reports  []report.ProjectDayReport
	Rows     []report.Row
	Warnings []error
}

// New wires sources, the ticket matcher and the logger from cfg.
func New(cfg *config.Config, logOutput io.Writer) (*Application, error) {
	logger := NewLogger(cfg.Log, logOutput)
	slog.SetDefault(logger)

	matcher, err := cfg.TicketMatcher()
	if err != nil {
		return nil, err
	}

	var sources []report.CommitSource
	var waka *wakatime.Client

	if cfg.Wakatime.APIKey != "" {
		waka = wakatime.NewClient(cfg.Wakatime.APIKey, cfg.Wakatime.BaseURL)
		sources = append(sources, wakatime.NewSource(waka, cfg.Wakatime.Author, cfg.Wakatime.Projects))
		logger.Debug("Wakatime source initialized", "author", cfg.Wakatime.Author)
	}

	if len(cfg.Git.Repos) > 0 {
		sources = append(sources, gitlog.NewSource(
			cfg.Git.Repos,
			time.Duration(cfg.Git.MaxGapMinutes)*time.Minute,
			time.Duration(cfg.Git.FirstCommitMinutes)*time.Minute,
		))
		logger.Debug("git source initialized", "repos", len(cfg.Git.Repos))
	}

	if len(sources) == 0 {
		return nil, config.ErrNoSources
	}

	generator := report.NewGenerator(sources...)
	generator.Logger = logger

	return &Application{
		Config:    cfg,
		Logger:    logger,
		Generator: generator,
		Matcher:   matcher,
		Wakatime:  waka,
	}, nil
}

// NewLogger builds the slog logger described by cfg.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Handle fetches, groups and builds the rows of day. No projects means every
// project of every source. Skipped commits are logged and returned as
// warnings; only fetch failures abort the run.
func (app *Application) Handle(ctx context.Context, day time.Time, projects []string) (*Result, error) {
	app.Logger.Info("generating report", "day", day.Format(report.DayLayout), "projects", projects)

	commits, err := app.Generator.Generate(ctx, projects, day)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch commits: %w", err)
	}

	reports, warnings := report.Aggregate(commits)
	rows, buildWarnings := report.Build(reports, app.Matcher)
	warnings = append(warnings, buildWarnings...)

	for _, w := range warnings {
		app.Logger.Warn("commit skipped", "reason", w)
	}

	app.Logger.Info("report built", "reports", len(reports), "rows", len(rows), "skipped", len(warnings))

	return &Result{Day: day, Reports: reports, Rows: rows, Warnings: warnings}, nil
}

// Exporter builds the Toggl exporter, with Jira summaries when configured.
func (app *Application) Exporter(dryRun bool) *toggl.Exporter {
	cfg := app.Config.Toggl
	exporter := toggl.NewExporter(toggl.NewClient(cfg.APIToken, cfg.BaseURL), cfg.WorkspaceID)
	exporter.Projects = cfg.Projects
	exporter.StartHour = cfg.StartHour
	if len(cfg.Tags) > 0 {
		exporter.Tags = cfg.Tags
	}
	exporter.DryRun = dryRun
	exporter.Logger = app.Logger

	if app.Config.JiraEnabled() {
		exporter.Summaries = jira.NewClient(app.Config.Jira.BaseURL, app.Config.Jira.Email, app.Config.Jira.Token)
	}
	return exporter
}

// ExportResults sends the rows to the time-tracking backend.
func (app *Application) ExportResults(ctx context.Context, exporter report.Exporter, result *Result) (report.ExportSummary, error) {
	summary, err := exporter.Export(ctx, result.Rows)
	if err != nil {
		app.Logger.Error("export failed", "error", err, "exported", summary.Entries)
		return summary, err
	}

	app.Logger.Info("export complete", "entries", summary.Entries, "seconds", summary.TotalSeconds, "skipped", summary.Skipped)
	return summary, nil
}

// FileFormats selects the report files WriteFiles produces.
type FileFormats struct {
	JSON  bool
	CSV   bool
	Excel bool
}

// WriteFiles writes the selected report files into the output directory and
// returns their paths.
func (app *Application) WriteFiles(result *Result, formats FileFormats) ([]string, error) {
	dir := app.Config.Output.Directory
	day := result.Day.Format(report.DayLayout)
	var written []string

	if formats.JSON {
		name := fmt.Sprintf("devtimer_%s.json", day)
		stats := report.Statistics(result.Reports, result.Rows, len(result.Warnings))
		if err := report.NewJSONExporter(dir).Export(result.Rows, stats, name); err != nil {
			return written, fmt.Errorf("failed to export JSON: %w", err)
		}
		written = append(written, filepath.Join(dir, name))
	}

	if formats.CSV {
		if err := report.NewCSVExporter(dir).Export(result.Rows, day); err != nil {
			return written, fmt.Errorf("failed to export CSV: %w", err)
		}
		written = append(written,
			filepath.Join(dir, fmt.Sprintf("devtimer_%s_commits.csv", day)),
			filepath.Join(dir, fmt.Sprintf("devtimer_%s_dashboard.csv", day)),
		)
	}

	if formats.Excel {
		path, err := report.NewExcelExporter(dir).Export(result.Rows, day)
		if err != nil {
			return written, fmt.Errorf("failed to export Excel: %w", err)
		}
		written = append(written, path)
	}

	for _, path := range written {
		app.Logger.Info("report exported", "file", path)
	}
	return written, nil
}

// Summary compares commit time per project with Wakatime's daily totals.
// Tracked time stays zero when Wakatime is not configured.
func (app *Application) Summary(ctx context.Context, result *Result, projects []string) (*output.Summary, error) {
	summary := &output.Summary{Date: result.Day.Format(report.DayLayout)}
	index := make(map[string]int)

	for _, r := range result.Reports {
		i, ok := index[r.Project]
		if !ok {
			i = len(summary.Projects)
			index[r.Project] = i
			summary.Projects = append(summary.Projects, output.SummaryLine{Project: r.Project})
		}
		summary.Projects[i].Commits += len(r.Commits)
		summary.Projects[i].CommitSeconds += r.TotalSeconds()
	}

	if app.Wakatime == nil {
		return summary, nil
	}

	// the summaries endpoint filters by one project at most
	var project string
	if len(projects) == 1 {
		project = projects[0]
	}

	daily, err := app.Wakatime.Daily(ctx, result.Day, project)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch Wakatime daily totals: %w", err)
	}

	for _, name := range slices.Sorted(maps.Keys(daily.Projects)) {
		if len(projects) > 0 && !slices.Contains(projects, name) {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(summary.Projects)
			index[name] = i
			summary.Projects = append(summary.Projects, output.SummaryLine{Project: name})
		}
		summary.Projects[i].TrackedSeconds = daily.Projects[name]
	}

	return summary, nil
}
