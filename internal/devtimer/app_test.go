package devtimer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/devtimer/internal/config"
	"github.com/Afrawles/devtimer/internal/report"
	"github.com/Afrawles/devtimer/internal/wakatime"
)

type stubSource struct {
	commits map[string][]report.Commit
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) HealthCheck(ctx context.Context) error { return nil }

func (s *stubSource) Projects(ctx context.Context) ([]string, error) {
	var names []string
	for name := range s.commits {
		names = append(names, name)
	}
	return names, nil
}

func (s *stubSource) FetchCommits(ctx context.Context, project string, day time.Time) ([]report.Commit, error) {
	return s.commits[project], nil
}

type stubExporter struct {
	rows []report.Row
	err  error
}

func (e *stubExporter) Export(ctx context.Context, rows []report.Row) (report.ExportSummary, error) {
	e.rows = rows
	return report.ExportSummary{Entries: len(rows)}, e.err
}

var testDay = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

func newTestApp(t *testing.T, src report.CommitSource) *Application {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Output.Directory = t.TempDir()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := report.NewGenerator(src)
	gen.Logger = logger

	matcher, err := cfg.TicketMatcher()
	require.NoError(t, err)

	return &Application{Config: cfg, Logger: logger, Generator: gen, Matcher: matcher}
}

func shopCommits() *stubSource {
	return &stubSource{commits: map[string][]report.Commit{
		"shop": {
			{Project: "shop", Hash: "a1", Ref: "feature/ABC-1", Message: "add cart", AuthorName: "Ann", AuthorDate: "2024-03-05T10:00:00Z", TotalSeconds: 600},
			{Project: "shop", Hash: "a2", Message: "fix ABC-2", AuthorName: "Ann", AuthorDate: "2024-03-05T09:00:00Z", TotalSeconds: 300},
			{Project: "shop", Hash: "a3", Message: "", AuthorName: "Ann", AuthorDate: "2024-03-05T08:00:00Z", TotalSeconds: 100},
			{Project: "shop", Hash: "a4", Message: "no date", AuthorName: "Ann", AuthorDate: "yesterday", TotalSeconds: 100},
		},
	}}
}

func TestNew_NoSources(t *testing.T) {
	_, err := New(config.DefaultConfig(), io.Discard)
	assert.ErrorIs(t, err, config.ErrNoSources)
}

func TestNew_InvalidTicketPattern(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Git.Repos = map[string]string{"shop": t.TempDir()}
	cfg.Jira.TicketPattern = "("

	_, err := New(cfg, io.Discard)
	assert.Error(t, err)
}

func TestNew_Sources(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Wakatime.APIKey = "secret"
	cfg.Git.Repos = map[string]string{"shop": t.TempDir()}

	app, err := New(cfg, io.Discard)
	require.NoError(t, err)
	require.Len(t, app.Generator.Sources, 2)
	assert.Equal(t, "Wakatime", app.Generator.Sources[0].Name())
	assert.Equal(t, "Git", app.Generator.Sources[1].Name())
	assert.NotNil(t, app.Wakatime)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LogConfig{Level: "info", Format: "json"}, &buf)
	logger.Debug("hidden")
	logger.Info("shown", "k", "v")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = NewLogger(config.LogConfig{}, &buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestHandle(t *testing.T) {
	app := newTestApp(t, shopCommits())

	result, err := app.Handle(context.Background(), testDay, []string{"shop"})
	require.NoError(t, err)

	require.Len(t, result.Reports, 1)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, []string{"ABC-1"}, result.Rows[0].Tickets)
	assert.Equal(t, []string{"ABC-2"}, result.Rows[1].Tickets)
	assert.Len(t, result.Warnings, 2)

	var malformed *report.MalformedCommitError
	var unparsable *report.UnparsableDateError
	found := 0
	for _, w := range result.Warnings {
		if errors.As(w, &malformed) || errors.As(w, &unparsable) {
			found++
		}
	}
	assert.Equal(t, 2, found)
}

func TestHandle_UnknownProject(t *testing.T) {
	app := newTestApp(t, shopCommits())

	_, err := app.Handle(context.Background(), testDay, []string{"missing"})
	assert.ErrorIs(t, err, report.ErrUnknownProject)
}

func TestExportResults(t *testing.T) {
	app := newTestApp(t, shopCommits())
	result, err := app.Handle(context.Background(), testDay, nil)
	require.NoError(t, err)

	exporter := &stubExporter{}
	summary, err := app.ExportResults(context.Background(), exporter, result)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Entries)
	assert.Equal(t, result.Rows, exporter.rows)

	exporter.err = errors.New("toggl down")
	_, err = app.ExportResults(context.Background(), exporter, result)
	assert.ErrorContains(t, err, "toggl down")
}

func TestExporter_FromConfig(t *testing.T) {
	app := newTestApp(t, shopCommits())
	app.Config.Toggl.APIToken = "token"
	app.Config.Toggl.WorkspaceID = 42
	app.Config.Toggl.StartHour = 8
	app.Config.Toggl.Projects = map[string]int64{"shop": 7}
	app.Config.Jira.BaseURL = "https://jira.example.com"
	app.Config.Jira.Token = "jira"

	exporter := app.Exporter(true)
	assert.Equal(t, int64(42), exporter.WorkspaceID)
	assert.Equal(t, 8, exporter.StartHour)
	assert.Equal(t, int64(7), exporter.Projects["shop"])
	assert.True(t, exporter.DryRun)
	assert.NotNil(t, exporter.Summaries)
}

func TestWriteFiles(t *testing.T) {
	app := newTestApp(t, shopCommits())
	result, err := app.Handle(context.Background(), testDay, nil)
	require.NoError(t, err)

	written, err := app.WriteFiles(result, FileFormats{JSON: true, CSV: true, Excel: true})
	require.NoError(t, err)
	require.Len(t, written, 4)

	dir := app.Config.Output.Directory
	assert.Equal(t, filepath.Join(dir, "devtimer_2024-03-05.json"), written[0])
	for _, path := range written {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}

func TestSummary(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/current/summaries", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"grand_total":{"total_seconds":4000},"projects":[{"name":"shop","total_seconds":3000},{"name":"blog","total_seconds":1000}]}]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	app := newTestApp(t, shopCommits())
	result, err := app.Handle(context.Background(), testDay, nil)
	require.NoError(t, err)

	summary, err := app.Summary(context.Background(), result, nil)
	require.NoError(t, err)
	require.Len(t, summary.Projects, 1)
	assert.Equal(t, 0, summary.Projects[0].TrackedSeconds)

	app.Wakatime = wakatime.NewClient("secret", srv.URL)
	summary, err = app.Summary(context.Background(), result, nil)
	require.NoError(t, err)
	require.Len(t, summary.Projects, 2)
	assert.Equal(t, "2024-03-05", summary.Date)

	shop := summary.Projects[0]
	assert.Equal(t, "shop", shop.Project)
	assert.Equal(t, 3, shop.Commits)
	assert.Equal(t, 1000, shop.CommitSeconds)
	assert.Equal(t, 3000, shop.TrackedSeconds)

	assert.Equal(t, "blog", summary.Projects[1].Project)
	assert.Equal(t, 1000, summary.Projects[1].TrackedSeconds)
}
