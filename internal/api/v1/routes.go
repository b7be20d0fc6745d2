// Package v1 provides the custom connector API endpoints.
package v1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// ScopeHeader carries the ARN prefix of the calling tenant
const ScopeHeader = "X-Tenant-Scope"

// Routes handles HTTP requests for the custom connector endpoints.
type Routes struct {
	connectors   connectors.Registry
	jobs         jobs.Ledger
	documents    documents.Ledger
	defaultScope service.Scope
}

// NewRoutes creates a new Routes instance. Requests without a scope header
// act on defaultScope.
func NewRoutes(
	registry connectors.Registry, ledger jobs.Ledger, docs documents.Ledger, defaultScope service.Scope,
) *Routes {
	return &Routes{
		connectors:   registry,
		jobs:         ledger,
		documents:    docs,
		defaultScope: defaultScope,
	}
}

// Router creates and configures the router mounted at /api/v1/custom-connectors.
func Router(
	registry connectors.Registry, ledger jobs.Ledger, docs documents.Ledger, defaultScope service.Scope,
) http.Handler {
	routes := NewRoutes(registry, ledger, docs, defaultScope)

	r := chi.NewRouter()

	r.Post("/", routes.createConnector)
	r.Get("/", routes.listConnectors)
	r.Route("/{connectorId}", func(r chi.Router) {
		r.Get("/", routes.getConnector)
		r.Put("/", routes.updateConnector)
		r.Delete("/", routes.deleteConnector)

		r.Post("/jobs", routes.startJob)
		r.Get("/jobs", routes.listJobs)
		r.Post("/jobs/{jobId}/stop", routes.stopJob)

		r.Put("/checkpoint", routes.putCheckpoint)
		r.Get("/checkpoint", routes.getCheckpoint)
		r.Delete("/checkpoint", routes.deleteCheckpoint)

		r.Post("/documents", routes.batchPutDocuments)
		r.Delete("/documents", routes.batchDeleteDocuments)
		r.Get("/documents", routes.listDocuments)
	})

	return r
}

// scope resolves the tenant of a request
func (routes *Routes) scope(r *http.Request) (service.Scope, error) {
	header := r.Header.Get(ScopeHeader)
	if header == "" {
		return routes.defaultScope, nil
	}
	return service.ParseScope(header)
}

// connectorRequest resolves the scope and connector id of a request
func (routes *Routes) connectorRequest(r *http.Request) (service.Scope, string, error) {
	scope, err := routes.scope(r)
	if err != nil {
		return service.Scope{}, "", err
	}
	id, err := common.GetAndValidateURLParam(r, "connectorId")
	if err != nil {
		return service.Scope{}, "", err
	}
	return scope, id, nil
}

// paginationOptions parses max_results and next_token
func paginationOptions(r *http.Request) ([]service.Option, error) {
	query := r.URL.Query()
	var opts []service.Option

	if maxResults := query.Get("max_results"); maxResults != "" {
		limit, err := strconv.Atoi(maxResults)
		if err != nil {
			return nil, service.BadRequestf("invalid max_results parameter: must be an integer")
		}
		opts = append(opts, service.WithLimit(limit))
	}
	if token := query.Get("next_token"); token != "" {
		opts = append(opts, service.WithCursor(token))
	}
	return opts, nil
}
