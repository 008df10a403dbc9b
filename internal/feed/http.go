package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/pvpmeta/pvpmeta-server/internal/httpclient"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
)

// httpHandler reads payloads over HTTP. The marker comes from the ETag or
// Last-Modified response header when the server provides one, otherwise
// from a hash of the body.
type httpHandler struct {
	client httpclient.Client
}

// NewHTTPHandler creates a handler for http endpoints
func NewHTTPHandler(client httpclient.Client) Handler {
	return &httpHandler{client: client}
}

// Validate validates the http endpoint
func (*httpHandler) Validate(ep source.Endpoint) error {
	if ep.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}
	u, err := url.Parse(ep.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	return nil
}

// CurrentMarker issues a HEAD request, falling back to a full GET when the
// server rejects HEAD or sends no validator
func (h *httpHandler) CurrentMarker(ctx context.Context, ep source.Endpoint) (string, error) {
	if err := h.Validate(ep); err != nil {
		return "", err
	}

	header, err := h.client.Head(ctx, ep.URL)
	switch {
	case err == nil:
		if marker := headerMarker(header); marker != "" {
			return marker, nil
		}
	case headUnsupported(err):
		slog.Debug("HEAD not supported, hashing body", "url", ep.URL)
	default:
		return "", err
	}

	resp, err := h.client.Get(ctx, ep.URL)
	if err != nil {
		return "", err
	}
	return responseMarker(resp), nil
}

// Fetch retrieves the body. The marker is taken from the validators of the
// same response so it always describes the returned bytes.
func (h *httpHandler) Fetch(ctx context.Context, ep source.Endpoint) ([]byte, string, error) {
	if err := h.Validate(ep); err != nil {
		return nil, "", err
	}

	resp, err := h.client.Get(ctx, ep.URL)
	if err != nil {
		return nil, "", err
	}
	return resp.Body, responseMarker(resp), nil
}

// responseMarker describes a GET response. Resolve and fetch both use it so
// their markers agree for the same bytes.
func responseMarker(resp *httpclient.Response) string {
	if marker := headerMarker(resp.Header); marker != "" {
		return marker
	}
	return contentMarker(resp.Body)
}

// headerMarker prefers the ETag over Last-Modified. It is empty when the
// server sends neither.
func headerMarker(header http.Header) string {
	if etag := header.Get("ETag"); etag != "" {
		return markerPrefixETag + etag
	}
	if modified := header.Get("Last-Modified"); modified != "" {
		return markerPrefixModified + modified
	}
	return ""
}

func headUnsupported(err error) bool {
	var statusErr *httpclient.StatusError
	return errors.As(err, &statusErr) &&
		(statusErr.StatusCode == http.StatusMethodNotAllowed || statusErr.StatusCode == http.StatusNotImplemented)
}
