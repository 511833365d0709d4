package report

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"
)

type Generator struct {
	Sources []CommitSource
	Logger  *slog.Logger
}

func NewGenerator(sources ...CommitSource) *Generator {
	return &Generator{Sources: sources, Logger: slog.Default()}
}

// Generate fetches the commits of the given projects on day from every
// source, one source and one project at a time. An empty project list means
// every project the sources know.
func (g *Generator) Generate(ctx context.Context, projects []string, day time.Time) ([]Commit, error) {
	var all []Commit
	errors := make(map[string]error)
	matched := make(map[string]bool)
	// listed counts sources whose project list is known
	listed := 0

	for _, src := range g.Sources {
		g.Logger.Debug("fetching commits", "source", src.Name(), "day", day.Format(DayLayout))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := src.HealthCheck(ctx); err != nil {
			errors[src.Name()] = fmt.Errorf("health check failed: %w", err)
			g.Logger.Warn("source unavailable", "source", src.Name(), "error", err)
			continue
		}

		known, err := src.Projects(ctx)
		if err != nil {
			errors[src.Name()] = fmt.Errorf("failed to list projects: %w", err)
			g.Logger.Warn("failed to list projects", "source", src.Name(), "error", err)
			continue
		}
		listed++

		targets := known
		if len(projects) > 0 {
			targets = nil
			for _, p := range projects {
				if slices.Contains(known, p) {
					targets = append(targets, p)
					matched[p] = true
				}
			}
		}

		for _, project := range targets {
			commits, err := src.FetchCommits(ctx, project, day)
			if err != nil {
				errors[src.Name()+"/"+project] = err
				g.Logger.Warn("failed to fetch commits", "source", src.Name(), "project", project, "error", err)
				continue
			}

			g.Logger.Info("commits fetched", "source", src.Name(), "project", project, "count", len(commits))
			all = append(all, commits...)
		}
	}

	for _, p := range projects {
		if !matched[p] && listed > 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProject, p)
		}
	}

	if len(all) == 0 && len(errors) > 0 {
		return nil, fmt.Errorf("failed to fetch from all sources: %v", errors)
	}

	return all, nil
}

// Projects lists the projects of every healthy source, keyed by source name.
func (g *Generator) Projects(ctx context.Context) (map[string][]string, error) {
	result := make(map[string][]string)
	for _, src := range g.Sources {
		projects, err := src.Projects(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Name(), err)
		}
		result[src.Name()] = projects
	}
	return result, nil
}

// Statistics summarises built rows.
func Statistics(reports []ProjectDayReport, rows []Row, skipped int) map[string]any {
	stats := make(map[string]any)

	byProject := make(map[string]int)
	byTicket := make(map[string]int)
	total := 0
	unticketed := 0
	for _, row := range rows {
		byProject[row.Project] += row.TimeSeconds
		total += row.TimeSeconds
		if len(row.Tickets) == 0 {
			unticketed++
		}
		for _, t := range row.Tickets {
			byTicket[t] += row.TimeSeconds
		}
	}

	stats["reports"] = len(reports)
	stats["commits"] = len(rows)
	stats["skipped"] = skipped
	stats["unticketed"] = unticketed
	stats["total_seconds"] = total
	stats["by_project"] = byProject
	stats["by_ticket"] = byTicket
	return stats
}
