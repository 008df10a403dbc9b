// Package git reads feed payloads from git repositories. Clones are shallow,
// bare and held in memory only for the duration of a read.
package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/filesystem"
	"github.com/go-git/go-git/v5/storage/memory"
)

var (
	// ErrRefNotFound is returned when the requested branch does not exist on the remote
	ErrRefNotFound = errors.New("reference not found")

	// ErrFileNotFound is returned when the path is absent from the head commit
	ErrFileNotFound = errors.New("file not found")
)

// Client reads files from remote repositories
type Client interface {
	// ResolveHead returns the commit the branch points to on the remote
	// without cloning. An empty branch resolves the remote HEAD.
	ResolveHead(ctx context.Context, url, branch string) (string, error)

	// ReadFile returns a file from the head commit of the branch
	ReadFile(ctx context.Context, ref FileRef) (*File, error)
}

// FileRef addresses a file on a branch of a remote repository
type FileRef struct {
	URL string
	// Branch is the remote default branch when empty
	Branch string
	Path   string
}

// File is the content of a file and the commit it was read at
type File struct {
	Content []byte
	Commit  string
	Branch  string
}

type goGitClient struct{}

// New creates a go-git backed client
func New() Client {
	return goGitClient{}
}

// ResolveHead lists the remote references and returns the branch head
func (goGitClient) ResolveHead(ctx context.Context, url, branch string) (string, error) {
	remote := git.NewRemote(memory.NewStorage(), &gitconfig.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	})

	refs, err := remote.ListContext(ctx, &git.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list remote references: %w", err)
	}

	byName := make(map[plumbing.ReferenceName]*plumbing.Reference, len(refs))
	for _, ref := range refs {
		byName[ref.Name()] = ref
	}

	want := plumbing.HEAD
	if branch != "" {
		want = plumbing.NewBranchReferenceName(branch)
	}

	ref, ok := byName[want]
	if ok && ref.Type() == plumbing.SymbolicReference {
		ref, ok = byName[ref.Target()]
	}
	if !ok || ref.Hash().IsZero() {
		return "", fmt.Errorf("%w: %s", ErrRefNotFound, want)
	}
	return ref.Hash().String(), nil
}

// ReadFile makes a depth one bare clone into memory, reads the file from the
// head tree and releases the clone
func (goGitClient) ReadFile(ctx context.Context, ref FileRef) (*File, error) {
	opts := &git.CloneOptions{
		URL:   ref.URL,
		Depth: 1,
	}
	if ref.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
		opts.SingleBranch = true
	}

	fs := memfs.New()
	objects := cache.NewObjectLRUDefault()
	defer func() {
		objects.Clear()
		if err := util.RemoveAll(fs, "/"); err != nil {
			slog.Debug("Failed to release in-memory clone", "url", ref.URL, "error", err)
		}
	}()

	repo, err := git.CloneContext(ctx, filesystem.NewStorage(fs, objects), nil, opts)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, git.NoMatchingRefSpecError{}) {
			return nil, fmt.Errorf("%w: %s", ErrRefNotFound, ref.Branch)
		}
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("failed to get HEAD reference: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("failed to get commit object: %w", err)
	}

	file, err := commit.File(ref.Path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", ErrFileNotFound, ref.Path, head.Hash())
		}
		return nil, fmt.Errorf("failed to get file %s: %w", ref.Path, err)
	}
	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref.Path, err)
	}

	out := &File{Content: []byte(content), Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		out.Branch = head.Name().Short()
	}
	slog.Debug("Read file from repository", "url", ref.URL, "branch", out.Branch, "commit", out.Commit, "path", ref.Path)
	return out, nil
}
