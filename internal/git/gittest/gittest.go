// Package gittest creates local repositories for tests that read feeds
// from git.
package gittest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// DefaultBranch is the branch go-git initializes repositories with
const DefaultBranch = "master"

// Repo is a local repository usable as a clone URL
type Repo struct {
	Dir  string
	repo *git.Repository
}

// New initializes a repository in a temporary directory and commits files
func New(t *testing.T, files map[string]string) *Repo {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("Failed to init repository: %v", err)
	}

	r := &Repo{Dir: dir, repo: repo}
	r.Commit(t, "Initial commit", files)
	return r
}

// Commit writes files and commits them, returning the new commit hash
func (r *Repo) Commit(t *testing.T, msg string, files map[string]string) string {
	t.Helper()

	workTree, err := r.repo.Worktree()
	if err != nil {
		t.Fatalf("Failed to get worktree: %v", err)
	}

	for name, content := range files {
		path := filepath.Join(r.Dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", name, err)
		}
		if _, err := workTree.Add(name); err != nil {
			t.Fatalf("Failed to add file %s: %v", name, err)
		}
	}

	hash, err := workTree.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test Author",
			Email: "test@example.com",
			When:  time.Now(),
		},
	})
	if err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	return hash.String()
}
