package gitlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Afrawles/devtimer/internal/report"
)

func commitAt(t *testing.T, repoPath string, w *git.Worktree, name, email, msg string, when time.Time) {
	t.Helper()
	file := filepath.Join(repoPath, "work.txt")
	require.NoError(t, os.WriteFile(file, []byte(msg+"\n"), 0644))
	_, err := w.Add("work.txt")
	require.NoError(t, err)
	_, err = w.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: name, Email: email, When: when},
	})
	require.NoError(t, err)
}

// initTestRepo builds:
//
//	default branch: old work (03-04 12:00) -> initial setup (03-05 09:00)
//	feature/ABC-7:  start (10:00) -> wip (10:45) -> review fixes by Bob (16:00)
func initTestRepo(t *testing.T) (string, string) {
	t.Helper()
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)

	w, err := repo.Worktree()
	require.NoError(t, err)

	day := func(d, h, m int) time.Time { return time.Date(2024, 3, d, h, m, 0, 0, time.UTC) }

	commitAt(t, repoPath, w, "Alice", "alice@example.com", "old work", day(4, 12, 0))
	commitAt(t, repoPath, w, "Alice", "alice@example.com", "initial setup", day(5, 9, 0))

	head, err := repo.Head()
	require.NoError(t, err)

	require.NoError(t, w.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName("feature/ABC-7"),
		Create: true,
	}))
	commitAt(t, repoPath, w, "Alice", "alice@example.com", "start", day(5, 10, 0))
	commitAt(t, repoPath, w, "Alice", "alice@example.com", "wip", day(5, 10, 45))
	commitAt(t, repoPath, w, "Bob", "bob@example.com", "review fixes", day(5, 16, 0))

	return repoPath, head.Name().Short()
}

func TestSource_FetchCommits(t *testing.T) {
	repoPath, defaultBranch := initTestRepo(t)
	src := NewSource(map[string]string{"shop": repoPath}, 0, 0)

	commits, err := src.FetchCommits(context.Background(), "shop", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, commits, 4)

	var msgs []string
	for _, c := range commits {
		msgs = append(msgs, c.Message)
		assert.Equal(t, "shop", c.Project)
	}
	assert.Equal(t, []string{"review fixes", "wip", "start", "initial setup"}, msgs)

	assert.Equal(t, "feature/ABC-7", commits[0].Ref)
	assert.Equal(t, "feature/ABC-7", commits[1].Ref)
	assert.Equal(t, "feature/ABC-7", commits[2].Ref)
	assert.Equal(t, defaultBranch, commits[3].Ref)

	assert.Equal(t, 1800, commits[0].TotalSeconds, "Bob's first commit")
	assert.Equal(t, 2700, commits[1].TotalSeconds)
	assert.Equal(t, 3600, commits[2].TotalSeconds)
	assert.Equal(t, 1800, commits[3].TotalSeconds, "Alice's first commit of the day")

	assert.Equal(t, "2024-03-05T16:00:00Z", commits[0].AuthorDate)
	assert.Equal(t, "Bob", commits[0].AuthorName)
}

func TestSource_FeedsReport(t *testing.T) {
	repoPath, _ := initTestRepo(t)
	src := NewSource(map[string]string{"shop": repoPath}, time.Hour, 15*time.Minute)

	commits, err := src.FetchCommits(context.Background(), "shop", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	reports, warnings := report.Aggregate(commits)
	require.Empty(t, warnings)
	require.Len(t, reports, 1)

	rows, warnings := report.Build(reports, report.NewTicketMatcher())
	require.Empty(t, warnings)
	assert.Equal(t, []string{"ABC-7"}, rows[0].Tickets)
	assert.Empty(t, rows[3].Tickets)
	assert.Equal(t, 900+3600+2700+900, reports[0].TotalSeconds())
}

func TestSource_UnknownProject(t *testing.T) {
	src := NewSource(map[string]string{}, 0, 0)
	_, err := src.FetchCommits(context.Background(), "nope", time.Now())
	assert.ErrorIs(t, err, report.ErrUnknownProject)
}

func TestSource_HealthCheckAndProjects(t *testing.T) {
	repoPath, _ := initTestRepo(t)

	src := NewSource(map[string]string{"b": repoPath, "a": repoPath}, 0, 0)
	require.NoError(t, src.HealthCheck(context.Background()))

	projects, err := src.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, projects)

	broken := NewSource(map[string]string{"x": t.TempDir()}, 0, 0)
	assert.Error(t, broken.HealthCheck(context.Background()))
}

func TestNearestBranches_MissingParent(t *testing.T) {
	repoPath := t.TempDir()
	repo, err := git.PlainInit(repoPath, false)
	require.NoError(t, err)
	w, err := repo.Worktree()
	require.NoError(t, err)

	when := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	commitAt(t, repoPath, w, "Alice", "alice@example.com", "cut off", when)
	first, err := repo.Head()
	require.NoError(t, err)
	commitAt(t, repoPath, w, "Alice", "alice@example.com", "kept", when.Add(time.Hour))
	head, err := repo.Head()
	require.NoError(t, err)

	// drop the first commit the way a shallow clone lacks history
	hash := first.Hash().String()
	require.NoError(t, os.Remove(filepath.Join(repoPath, ".git", "objects", hash[:2], hash[2:])))

	reopened, err := git.PlainOpen(repoPath)
	require.NoError(t, err)

	refs, err := nearestBranches(reopened, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, head.Name().Short(), refs[head.Hash()])
	assert.NotContains(t, refs, first.Hash())
}
