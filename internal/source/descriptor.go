// Package source holds the registry of external feeds and their last-known
// state.
package source

import (
	"fmt"
	"time"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
)

// Kind identifies the shape of a feed's payload and the update routine used
// to apply it
type Kind string

const (
	// KindGamemaster is base game data: species and moves
	KindGamemaster Kind = "gamemaster"

	// KindRankings is a ranked list of species for one league and cup
	KindRankings Kind = "rankings"

	// KindTiers is a tier list of species for one league
	KindTiers Kind = "tiers"
)

// DefaultPriority is the weight of a kind without an explicit mapping
const DefaultPriority = 1

// Priority returns the default queue weight for the kind
func (k Kind) Priority() int {
	switch k {
	case KindGamemaster:
		return 10
	case KindRankings:
		return 8
	case KindTiers:
		return 6
	default:
		return DefaultPriority
	}
}

// Endpoint locates a feed's payload
type Endpoint struct {
	Type   string `json:"type"`
	URL    string `json:"url,omitempty"`
	Path   string `json:"path,omitempty"`
	Branch string `json:"branch,omitempty"`
}

// String renders the endpoint for logs
func (e Endpoint) String() string {
	switch e.Type {
	case config.EndpointTypeGit:
		return fmt.Sprintf("git:%s@%s:%s", e.URL, e.Branch, e.Path)
	case config.EndpointTypeFile:
		return "file:" + e.Path
	default:
		return e.URL
	}
}

// Scope narrows a rankings or tiers feed to a league and cup
type Scope struct {
	League string `json:"league,omitempty"`
	Cup    string `json:"cup,omitempty"`
}

// Descriptor describes one external feed and its last-known state
type Descriptor struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Kind     Kind          `json:"kind"`
	Endpoint Endpoint      `json:"endpoint"`
	Scope    Scope         `json:"scope"`
	Interval time.Duration `json:"interval"`
	Priority int           `json:"priority"`
	Active   bool          `json:"active"`

	LastCheckedAt          *time.Time `json:"last_checked_at,omitempty"`
	LastUpdatedAt          *time.Time `json:"last_updated_at,omitempty"`
	LastKnownVersionMarker string     `json:"last_known_version_marker,omitempty"`
}

// Clone returns a deep copy of the descriptor
func (d *Descriptor) Clone() *Descriptor {
	c := *d
	if d.LastCheckedAt != nil {
		t := *d.LastCheckedAt
		c.LastCheckedAt = &t
	}
	if d.LastUpdatedAt != nil {
		t := *d.LastUpdatedAt
		c.LastUpdatedAt = &t
	}
	return &c
}

// FromConfig builds a descriptor from its configuration entry. The
// configuration must already be validated.
func FromConfig(cfg *config.SourceConfig) (*Descriptor, error) {
	interval, err := cfg.GetInterval()
	if err != nil {
		return nil, fmt.Errorf("source %s: invalid interval: %w", cfg.ID, err)
	}

	kind := Kind(cfg.Kind)
	priority := cfg.Priority
	if priority == 0 {
		priority = kind.Priority()
	}

	return &Descriptor{
		ID:   cfg.ID,
		Name: cfg.GetName(),
		Kind: kind,
		Endpoint: Endpoint{
			Type:   cfg.Endpoint.Type,
			URL:    cfg.Endpoint.URL,
			Path:   cfg.Endpoint.Path,
			Branch: cfg.Endpoint.Branch,
		},
		Scope: Scope{
			League: cfg.Scope.League,
			Cup:    cfg.Scope.Cup,
		},
		Interval: interval,
		Priority: priority,
		Active:   cfg.IsActive(),
	}, nil
}
