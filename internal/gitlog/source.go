// Package gitlog reads commits from local git repositories and estimates the
// time spent on each from the gaps between an author's commits.
package gitlog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/Afrawles/devtimer/internal/report"
)

const (
	DefaultMaxGap      = 2 * time.Hour
	DefaultFirstCommit = 30 * time.Minute
)

// Source serves projects backed by local repositories.
type Source struct {
	// Repos maps a project name to its repository path.
	Repos map[string]string
	// MaxGap is the longest pause still counted as continuous work.
	MaxGap time.Duration
	// FirstCommit is the time credited to a commit that starts a session.
	FirstCommit time.Duration
}

func NewSource(repos map[string]string, maxGap, firstCommit time.Duration) *Source {
	if maxGap <= 0 {
		maxGap = DefaultMaxGap
	}
	if firstCommit <= 0 {
		firstCommit = DefaultFirstCommit
	}
	return &Source{Repos: repos, MaxGap: maxGap, FirstCommit: firstCommit}
}

var _ report.CommitSource = (*Source)(nil)

func (s *Source) Name() string {
	return "Git"
}

func (s *Source) HealthCheck(ctx context.Context) error {
	for project, path := range s.Repos {
		if _, err := git.PlainOpen(path); err != nil {
			return fmt.Errorf("project %s: %w", project, err)
		}
	}
	return nil
}

func (s *Source) Projects(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(s.Repos))
	for name := range s.Repos {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// FetchCommits returns the commits authored on day, newest first.
func (s *Source) FetchCommits(ctx context.Context, project string, day time.Time) ([]report.Commit, error) {
	path, ok := s.Repos[project]
	if !ok {
		return nil, fmt.Errorf("%w: %s", report.ErrUnknownProject, project)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	// author offsets shift the calendar day by up to 14h either way
	since := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location()).Add(-24 * time.Hour)
	want := day.Format(report.DayLayout)

	refs, err := nearestBranches(repo, since)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&git.LogOptions{All: true, Since: &since})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	seen := make(map[plumbing.Hash]bool)
	var found []*object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if seen[c.Hash] || c.Author.When.Format(report.DayLayout) != want {
			return nil
		}
		seen[c.Hash] = true
		found = append(found, c)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Author.When.After(found[j].Author.When)
	})

	seconds := s.estimate(found)

	commits := make([]report.Commit, 0, len(found))
	for _, c := range found {
		commits = append(commits, report.Commit{
			Project:      project,
			Hash:         c.Hash.String(),
			Ref:          refs[c.Hash],
			Message:      strings.TrimSpace(c.Message),
			AuthorName:   c.Author.Name,
			AuthorDate:   c.Author.When.Format(time.RFC3339),
			TotalSeconds: seconds[c.Hash],
		})
	}

	return commits, nil
}

// estimate credits each commit with the pause since the same author's
// previous commit, or FirstCommit when that pause exceeds MaxGap.
func (s *Source) estimate(commits []*object.Commit) map[plumbing.Hash]int {
	byAuthor := make(map[string][]*object.Commit)
	for _, c := range commits {
		key := c.Author.Email
		if key == "" {
			key = c.Author.Name
		}
		byAuthor[key] = append(byAuthor[key], c)
	}

	seconds := make(map[plumbing.Hash]int, len(commits))
	for _, list := range byAuthor {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Author.When.Before(list[j].Author.When)
		})

		for i, c := range list {
			credit := s.FirstCommit
			if i > 0 {
				if gap := c.Author.When.Sub(list[i-1].Author.When); gap <= s.MaxGap {
					credit = gap
				}
			}
			seconds[c.Hash] = int(credit.Seconds())
		}
	}
	return seconds
}

// nearestBranches maps each commit on a branch's first-parent chain to the
// branch whose tip is fewest steps away. Ties go to the lower branch name.
func nearestBranches(repo *git.Repository, since time.Time) (map[plumbing.Hash]string, error) {
	branches, err := repo.Branches()
	if err != nil {
		return nil, err
	}

	type hit struct {
		branch string
		depth  int
	}
	nearest := make(map[plumbing.Hash]hit)

	err = branches.ForEach(func(ref *plumbing.Reference) error {
		name := ref.Name().Short()
		c, err := repo.CommitObject(ref.Hash())
		for depth := 0; err == nil; depth++ {
			if c.Committer.When.Before(since) {
				break
			}
			if prev, ok := nearest[c.Hash]; !ok || depth < prev.depth || (depth == prev.depth && name < prev.branch) {
				nearest[c.Hash] = hit{branch: name, depth: depth}
			}
			if c.NumParents() == 0 {
				break
			}
			c, err = c.Parent(0)
		}
		// shallow clones end at a parent that is not stored
		if err != nil && !errors.Is(err, plumbing.ErrObjectNotFound) {
			return fmt.Errorf("walking %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	refs := make(map[plumbing.Hash]string, len(nearest))
	for hash, h := range nearest {
		refs[hash] = h.branch
	}
	return refs, nil
}
