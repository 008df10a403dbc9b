package source

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
)

// ErrNotFound is returned for an unknown source ID
var ErrNotFound = errors.New("source not found")

// Registry is the set of configured sources. It is created once at startup
// and shared by reference; sources are never added or removed afterwards.
// All accessors return copies.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Descriptor
	order   []string
}

// NewRegistry builds a registry from descriptors, keeping their order
func NewRegistry(descs ...*Descriptor) (*Registry, error) {
	r := &Registry{
		sources: make(map[string]*Descriptor, len(descs)),
		order:   make([]string, 0, len(descs)),
	}
	for _, d := range descs {
		if _, ok := r.sources[d.ID]; ok {
			return nil, fmt.Errorf("duplicate source id %q", d.ID)
		}
		r.sources[d.ID] = d.Clone()
		r.order = append(r.order, d.ID)
	}
	return r, nil
}

// NewRegistryFromConfig builds a registry from the configured sources
func NewRegistryFromConfig(cfg *config.Config) (*Registry, error) {
	descs := make([]*Descriptor, 0, len(cfg.Sources))
	for i := range cfg.Sources {
		d, err := FromConfig(&cfg.Sources[i])
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return NewRegistry(descs...)
}

// Get returns a copy of the source with the given ID
func (r *Registry) Get(id string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.sources[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// List returns copies of all sources in configuration order
func (r *Registry) List() []*Descriptor {
	return r.filter(func(*Descriptor) bool { return true })
}

// Active returns copies of the active sources in configuration order
func (r *Registry) Active() []*Descriptor {
	return r.filter(func(d *Descriptor) bool { return d.Active })
}

func (r *Registry) filter(keep func(*Descriptor) bool) []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, id := range r.order {
		if d := r.sources[id]; keep(d) {
			out = append(out, d.Clone())
		}
	}
	return out
}

// SetActive toggles whether a source takes part in scheduled and forced updates
func (r *Registry) SetActive(id string, active bool) (*Descriptor, error) {
	return r.update(id, func(d *Descriptor) {
		d.Active = active
	})
}

// MarkChecked records a successful remote marker resolution
func (r *Registry) MarkChecked(id string, at time.Time) (*Descriptor, error) {
	return r.update(id, func(d *Descriptor) {
		d.LastCheckedAt = &at
	})
}

// MarkUpdated advances the last-known marker after a completed update
func (r *Registry) MarkUpdated(id, marker string, at time.Time) (*Descriptor, error) {
	return r.update(id, func(d *Descriptor) {
		d.LastKnownVersionMarker = marker
		d.LastUpdatedAt = &at
	})
}

// State is the mutable part of a descriptor that survives restarts
type State struct {
	LastCheckedAt          *time.Time
	LastUpdatedAt          *time.Time
	LastKnownVersionMarker string
}

// Restore applies persisted state to a configured source
func (r *Registry) Restore(id string, st State) error {
	_, err := r.update(id, func(d *Descriptor) {
		d.LastCheckedAt = st.LastCheckedAt
		d.LastUpdatedAt = st.LastUpdatedAt
		d.LastKnownVersionMarker = st.LastKnownVersionMarker
	})
	return err
}

// ApplyConfig re-applies the active flags of a reloaded configuration.
// Sources that are not part of the registry are ignored.
func (r *Registry) ApplyConfig(cfg *config.Config) {
	for i := range cfg.Sources {
		sc := &cfg.Sources[i]
		prev, ok := r.Get(sc.ID)
		if !ok {
			slog.Warn("Ignoring source added after startup", "source", sc.ID)
			continue
		}
		if prev.Active == sc.IsActive() {
			continue
		}
		if _, err := r.SetActive(sc.ID, sc.IsActive()); err == nil {
			slog.Info("Source active flag changed", "source", sc.ID, "active", sc.IsActive())
		}
	}
}

func (r *Registry) update(id string, fn func(*Descriptor)) (*Descriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.sources[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	fn(d)
	return d.Clone(), nil
}
