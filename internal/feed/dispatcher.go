package feed

import (
	"context"
	"fmt"
	"time"

	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/git"
	"github.com/pvpmeta/pvpmeta-server/internal/httpclient"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/syncerr"
)

// Dispatcher implements Resolver by routing each source to the handler of
// its endpoint type
type Dispatcher struct {
	handlers map[string]Handler
	clock    clock.PassiveClock
}

var _ Resolver = (*Dispatcher)(nil)

// DispatcherOption configures a Dispatcher
type DispatcherOption func(*Dispatcher)

// WithHandler registers or replaces the handler of an endpoint type
func WithHandler(endpointType string, h Handler) DispatcherOption {
	return func(d *Dispatcher) {
		d.handlers[endpointType] = h
	}
}

// WithClock sets the clock used to stamp fetched documents
func WithClock(c clock.PassiveClock) DispatcherOption {
	return func(d *Dispatcher) {
		d.clock = c
	}
}

// NewDispatcher creates a dispatcher with the default http, git and file
// handlers. httpTimeout bounds a single HTTP request; zero uses the client
// default.
func NewDispatcher(httpTimeout time.Duration, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		handlers: map[string]Handler{
			config.EndpointTypeHTTP: NewHTTPHandler(httpclient.New(httpclient.WithTimeout(httpTimeout))),
			config.EndpointTypeGit:  NewGitHandler(git.New()),
			config.EndpointTypeFile: NewFileHandler(),
		},
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) handler(src *source.Descriptor) (Handler, error) {
	h, ok := d.handlers[src.Endpoint.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported endpoint type: %s", src.Endpoint.Type)
	}
	return h, nil
}

// ResolveVersionMarker resolves the current marker of src
func (d *Dispatcher) ResolveVersionMarker(ctx context.Context, src *source.Descriptor) (string, error) {
	h, err := d.handler(src)
	if err != nil {
		return "", syncerr.NewFetchError(src.ID, "version marker", err)
	}

	marker, err := h.CurrentMarker(ctx, src.Endpoint)
	if err != nil {
		return "", syncerr.NewFetchError(src.ID, "version marker", err)
	}
	if marker == "" {
		return "", syncerr.NewFetchError(src.ID, "version marker", fmt.Errorf("empty marker from %s", src.Endpoint))
	}
	return marker, nil
}

// FetchPayload fetches the payload of src
func (d *Dispatcher) FetchPayload(ctx context.Context, src *source.Descriptor) (*Document, error) {
	h, err := d.handler(src)
	if err != nil {
		return nil, syncerr.NewFetchError(src.ID, "payload", err)
	}

	body, marker, err := h.Fetch(ctx, src.Endpoint)
	if err != nil {
		return nil, syncerr.NewFetchError(src.ID, "payload", err)
	}

	return &Document{
		Kind:          src.Kind,
		Body:          body,
		VersionMarker: marker,
		Location:      src.Endpoint.String(),
		FetchedAt:     d.clock.Now().UTC(),
	}, nil
}
