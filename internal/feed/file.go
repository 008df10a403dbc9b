package feed

import (
	"context"
	"fmt"
	"os"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
)

// fileHandler reads payloads from the local filesystem
type fileHandler struct{}

// NewFileHandler creates a handler for file endpoints
func NewFileHandler() Handler {
	return &fileHandler{}
}

// Validate validates the file endpoint
func (*fileHandler) Validate(ep source.Endpoint) error {
	if ep.Path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	return nil
}

// CurrentMarker hashes the file. This costs as much as a fetch.
func (h *fileHandler) CurrentMarker(ctx context.Context, ep source.Endpoint) (string, error) {
	_, marker, err := h.Fetch(ctx, ep)
	return marker, err
}

// Fetch reads the file and derives its marker from the content
func (h *fileHandler) Fetch(_ context.Context, ep source.Endpoint) ([]byte, string, error) {
	if err := h.Validate(ep); err != nil {
		return nil, "", err
	}

	//nolint:gosec // File path comes from configuration
	data, err := os.ReadFile(ep.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", fmt.Errorf("file not found: %s", ep.Path)
		}
		return nil, "", fmt.Errorf("failed to read file %s: %w", ep.Path, err)
	}

	return data, contentMarker(data), nil
}
