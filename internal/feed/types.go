// Package feed resolves version markers and fetches payloads from the
// remote locations of sources. One handler exists per endpoint type; the
// Dispatcher selects the handler for a source and classifies failures as
// syncerr.FetchError.
package feed

import (
	"context"
	"time"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
)

//go:generate mockgen -destination=mocks/mock_resolver.go -package=mocks -source=types.go Resolver

// Resolver is the remote feed contract used by change detection and
// processing
type Resolver interface {
	// ResolveVersionMarker returns an opaque identifier of the current
	// remote data state
	ResolveVersionMarker(ctx context.Context, src *source.Descriptor) (string, error)

	// FetchPayload retrieves the payload together with its version marker
	FetchPayload(ctx context.Context, src *source.Descriptor) (*Document, error)
}

// Handler implements the feed contract for one endpoint type
type Handler interface {
	// Validate checks the endpoint carries what the handler needs
	Validate(ep source.Endpoint) error

	// CurrentMarker resolves the marker without a full fetch where the
	// transport allows it
	CurrentMarker(ctx context.Context, ep source.Endpoint) (string, error)

	// Fetch retrieves the payload and the marker it corresponds to
	Fetch(ctx context.Context, ep source.Endpoint) ([]byte, string, error)
}

// Document is a fetched payload
type Document struct {
	// Kind is the kind of the source the payload belongs to
	Kind source.Kind

	// Body is the raw payload
	Body []byte

	// VersionMarker identifies the data state Body was read at
	VersionMarker string

	// Location is a printable form of the endpoint
	Location string

	// FetchedAt is when the fetch completed
	FetchedAt time.Time
}
