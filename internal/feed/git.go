package feed

import (
	"context"
	"fmt"

	"github.com/pvpmeta/pvpmeta-server/internal/git"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
)

// gitHandler reads payloads from a file in a git repository. The marker is
// the head commit of the configured branch.
type gitHandler struct {
	client git.Client
}

// NewGitHandler creates a handler for git endpoints
func NewGitHandler(client git.Client) Handler {
	return &gitHandler{client: client}
}

// Validate validates the git endpoint
func (*gitHandler) Validate(ep source.Endpoint) error {
	if ep.URL == "" {
		return fmt.Errorf("git repository URL cannot be empty")
	}
	if ep.Path == "" {
		return fmt.Errorf("git file path cannot be empty")
	}
	return nil
}

// CurrentMarker lists the remote references without cloning
func (h *gitHandler) CurrentMarker(ctx context.Context, ep source.Endpoint) (string, error) {
	if err := h.Validate(ep); err != nil {
		return "", err
	}
	return h.client.ResolveHead(ctx, ep.URL, ep.Branch)
}

// Fetch reads the file at the head of the branch. The marker is the commit
// the file was read at.
func (h *gitHandler) Fetch(ctx context.Context, ep source.Endpoint) ([]byte, string, error) {
	if err := h.Validate(ep); err != nil {
		return nil, "", err
	}

	file, err := h.client.ReadFile(ctx, git.FileRef{URL: ep.URL, Branch: ep.Branch, Path: ep.Path})
	if err != nil {
		return nil, "", err
	}
	return file.Content, file.Commit, nil
}
