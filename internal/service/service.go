// Package service provides the business logic behind the admin API
package service

import (
	"context"
	"errors"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
)

var (
	// ErrSourceNotFound is returned for an unknown source ID
	ErrSourceNotFound = errors.New("source not found")
	// ErrNotReady is returned until startup bootstrap has finished
	ErrNotReady = errors.New("bootstrap has not finished")
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks -source=service.go AdminService

// AdminService defines the operations exposed by the admin API
type AdminService interface {
	// CheckReadiness returns an error until the service can serve requests
	CheckReadiness(ctx context.Context) error

	// ListSources returns all configured sources
	ListSources(ctx context.Context) ([]*source.Descriptor, error)

	// GetSource returns one source by ID
	GetSource(ctx context.Context, id string) (*source.Descriptor, error)

	// SetSourceActive toggles a source and persists the new flag
	SetSourceActive(ctx context.Context, id string, active bool) (*source.Descriptor, error)

	// SourceHistory returns the newest audit records of a source
	SourceHistory(ctx context.Context, id string, limit int) ([]*status.AuditRecord, error)

	// RecentUpdates returns the newest audit records across all sources
	RecentUpdates(ctx context.Context, limit int) ([]*status.AuditRecord, error)

	// QueueStatus returns the running task and the pending tasks
	QueueStatus(ctx context.Context) (*QueueStatus, error)

	// ForceUpdate enqueues every active source
	ForceUpdate(ctx context.Context) ([]*status.UpdateTask, error)
}

// QueueStatus is a snapshot of the update queue
type QueueStatus struct {
	Current *status.UpdateTask   `json:"current,omitempty"`
	Pending []*status.UpdateTask `json:"pending"`
}
