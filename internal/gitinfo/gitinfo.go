// Package gitinfo reads last-modified dates for content files from the git
// history of the repository containing them.
package gitinfo

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
)

var errStop = errors.New("stop iteration")

// Repo answers last-commit queries against one repository. Results are cached
// for the lifetime of the Repo.
type Repo struct {
	repo *git.Repository
	root string

	mu    sync.Mutex
	dates map[string]time.Time
}

// Open finds the repository containing dir, searching parent directories.
func Open(dir string) (*Repo, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository at %s: %w", abs, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("worktree: %w", err)
	}
	return &Repo{
		repo:  repo,
		root:  wt.Filesystem.Root(),
		dates: make(map[string]time.Time),
	}, nil
}

// LastModified returns the committer time of the newest commit touching path.
// It reports false for files that were never committed.
func (r *Repo) LastModified(path string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.dates[path]; ok {
		return t, !t.IsZero()
	}

	t, err := r.lookup(path)
	if err != nil {
		slog.Debug("No git history for file", logfields.Path(path), logfields.Error(err))
	}
	r.dates[path] = t
	return t, !t.IsZero()
}

func (r *Repo) lookup(path string) (time.Time, error) {
	abs, err := filepath.Abs(filepath.FromSlash(path))
	if err != nil {
		return time.Time{}, err
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil {
		return time.Time{}, err
	}
	rel = filepath.ToSlash(rel)

	head, err := r.repo.Head()
	if err != nil {
		return time.Time{}, err
	}
	iter, err := r.repo.Log(&git.LogOptions{From: head.Hash(), FileName: &rel})
	if err != nil {
		return time.Time{}, err
	}
	defer iter.Close()

	var when time.Time
	err = iter.ForEach(func(c *object.Commit) error {
		when = c.Committer.When
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return time.Time{}, err
	}
	return when, nil
}
