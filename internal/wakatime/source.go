package wakatime

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/Afrawles/devtimer/internal/report"
)

// maxPages bounds the walk back through a project's commit history.
const maxPages = 50

// Source reads the commits of Wakatime projects.
type Source struct {
	Client *Client
	// Author limits commits to one author when set.
	Author string
	// Only limits the projects offered to this list when set.
	Only []string
}

func NewSource(client *Client, author string, only []string) *Source {
	return &Source{Client: client, Author: author, Only: only}
}

var _ report.CommitSource = (*Source)(nil)

func (s *Source) Name() string {
	return "Wakatime"
}

func (s *Source) HealthCheck(ctx context.Context) error {
	return s.Client.HealthCheck(ctx)
}

func (s *Source) Projects(ctx context.Context) ([]string, error) {
	if len(s.Only) > 0 {
		return s.Only, nil
	}

	projects, err := s.Client.Projects(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(projects))
	for _, p := range projects {
		names = append(names, p.Name)
	}
	return names, nil
}

// FetchCommits walks the project's commit pages until it passes day. Commits
// whose author date cannot be read are kept only from pages that also hold
// commits of day, so the aggregator can report them without old history
// warning on every run.
func (s *Source) FetchCommits(ctx context.Context, project string, day time.Time) ([]report.Commit, error) {
	want := day.Format(report.DayLayout)
	var commits []report.Commit

	for page := 1; page <= maxPages; page++ {
		resp, err := s.Client.Commits(ctx, project, s.Author, page)
		if err != nil {
			return nil, err
		}

		passed := false
		onDay := false
		var kept []report.Commit
		for _, c := range resp.Commits {
			authored, err := report.ParseAuthorDate(c.AuthorDate)
			if err == nil {
				got := authored.Format(report.DayLayout)
				if got < want {
					passed = true
					continue
				}
				if got != want {
					continue
				}
				onDay = true
			}
			kept = append(kept, toCommit(project, c))
		}

		// without a dated commit of day, only undated ones were kept
		if onDay {
			commits = append(commits, kept...)
		} else if len(kept) > 0 {
			slog.Debug("dropped undated commits outside requested day",
				"project", project, "page", page, "count", len(kept))
		}

		if passed || len(resp.Commits) == 0 || page >= resp.TotalPages {
			break
		}
	}

	return commits, nil
}

func toCommit(project string, c Commit) report.Commit {
	return report.Commit{
		Project:      project,
		Hash:         c.Hash,
		Ref:          c.Ref,
		Message:      deref(c.Message),
		AuthorName:   deref(c.AuthorName),
		AuthorDate:   c.AuthorDate,
		TotalSeconds: int(math.Round(c.TotalSeconds)),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
