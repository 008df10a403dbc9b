// Package v1 provides the admin REST handlers for sources, the update
// queue and the audit history.
package v1

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pvpmeta/pvpmeta-server/internal/api/common"
	"github.com/pvpmeta/pvpmeta-server/internal/audit"
	"github.com/pvpmeta/pvpmeta-server/internal/service"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	pkgsync "github.com/pvpmeta/pvpmeta-server/internal/sync"
)

// SourcesResponse lists sources
type SourcesResponse struct {
	Sources []*source.Descriptor `json:"sources"`
}

// AuditResponse lists audit records, newest first
type AuditResponse struct {
	Records []*status.AuditRecord `json:"records"`
}

// UpdatesResponse lists the tasks enqueued by a force update
type UpdatesResponse struct {
	Tasks []*status.UpdateTask `json:"tasks"`
}

// ActiveRequest is the body of PUT /v1/sources/{id}/active
type ActiveRequest struct {
	Active *bool `json:"active"`
}

// Routes holds the admin handlers
type Routes struct {
	service service.AdminService
}

// Router creates a new router for the admin API
func Router(svc service.AdminService) http.Handler {
	routes := &Routes{service: svc}

	r := chi.NewRouter()

	r.Get("/sources", routes.listSources)
	r.Get("/sources/{id}", routes.getSource)
	r.Put("/sources/{id}/active", routes.setSourceActive)
	r.Get("/sources/{id}/audit", routes.sourceAudit)

	r.Get("/audit", routes.recentAudit)
	r.Get("/queue", routes.queueStatus)
	r.Post("/updates", routes.forceUpdate)

	return r
}

func (rr *Routes) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := rr.service.ListSources(r.Context())
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, SourcesResponse{Sources: sources}, http.StatusOK)
}

func (rr *Routes) getSource(w http.ResponseWriter, r *http.Request) {
	id, err := common.GetAndValidateURLParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	src, err := rr.service.GetSource(r.Context(), id)
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, src, http.StatusOK)
}

func (rr *Routes) setSourceActive(w http.ResponseWriter, r *http.Request) {
	id, err := common.GetAndValidateURLParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	var req ActiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.WriteErrorResponse(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Active == nil {
		common.WriteErrorResponse(w, "active is required", http.StatusBadRequest)
		return
	}

	src, err := rr.service.SetSourceActive(r.Context(), id, *req.Active)
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, src, http.StatusOK)
}

func (rr *Routes) sourceAudit(w http.ResponseWriter, r *http.Request) {
	id, err := common.GetAndValidateURLParam(r, "id")
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := common.ParseLimit(r, audit.DefaultLimit)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := rr.service.SourceHistory(r.Context(), id, limit)
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, AuditResponse{Records: records}, http.StatusOK)
}

func (rr *Routes) recentAudit(w http.ResponseWriter, r *http.Request) {
	limit, err := common.ParseLimit(r, audit.DefaultLimit)
	if err != nil {
		common.WriteErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	records, err := rr.service.RecentUpdates(r.Context(), limit)
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, AuditResponse{Records: records}, http.StatusOK)
}

func (rr *Routes) queueStatus(w http.ResponseWriter, r *http.Request) {
	qs, err := rr.service.QueueStatus(r.Context())
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, qs, http.StatusOK)
}

func (rr *Routes) forceUpdate(w http.ResponseWriter, r *http.Request) {
	tasks, err := rr.service.ForceUpdate(r.Context())
	if err != nil {
		rr.writeServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, UpdatesResponse{Tasks: tasks}, http.StatusAccepted)
}

func (*Routes) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrSourceNotFound):
		common.WriteErrorResponse(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, pkgsync.ErrQueueClosed):
		common.WriteErrorResponse(w, "server is shutting down", http.StatusServiceUnavailable)
	default:
		slog.ErrorContext(r.Context(), "Admin request failed", "path", r.URL.Path, "error", err)
		common.WriteErrorResponse(w, "internal server error", http.StatusInternalServerError)
	}
}
