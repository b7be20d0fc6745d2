package v1

import (
	"net/http"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// startJob handles POST /api/v1/custom-connectors/{connectorId}/jobs
//
// @Summary		Start connector job
// @Tags		jobs
// @Accept		json
// @Produce		json
// @Param		connectorId	path	string			true	"Connector id"
// @Param		body		body	StartJobRequest	false	"Job environment"
// @Success		201		{object}	JobResponse
// @Failure		404		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse	"Connector is not AVAILABLE"
// @Router		/api/v1/custom-connectors/{connectorId}/jobs [post]
func (routes *Routes) startJob(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req StartJobRequest
	if err := common.DecodeOptionalJSONBody(r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	job, err := routes.jobs.Start(r.Context(), scope, id, req.Environment)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, JobResponse{Job: job}, http.StatusCreated)
}

// stopJob handles POST /api/v1/custom-connectors/{connectorId}/jobs/{jobId}/stop
//
// @Summary		Stop connector job
// @Tags		jobs
// @Param		connectorId	path	string	true	"Connector id"
// @Param		jobId		path	string	true	"Job id"
// @Success		202
// @Failure		404		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse	"Job is already terminal"
// @Router		/api/v1/custom-connectors/{connectorId}/jobs/{jobId}/stop [post]
func (routes *Routes) stopJob(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	jobID, err := common.GetAndValidateURLParam(r, "jobId")
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	if _, err := routes.jobs.Stop(r.Context(), scope, id, jobID); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, struct{}{}, http.StatusAccepted)
}

// listJobs handles GET /api/v1/custom-connectors/{connectorId}/jobs
//
// @Summary		List connector jobs
// @Tags		jobs
// @Produce		json
// @Param		connectorId	path	string	true	"Connector id"
// @Param		status		query	string	false	"Only return jobs in this status"
// @Param		max_results	query	int		false	"Page size (1-100, default 50)"
// @Param		next_token	query	string	false	"Token returned by the previous page"
// @Success		200		{object}	ListJobsResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId}/jobs [get]
func (routes *Routes) listJobs(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	opts, err := paginationOptions(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	if status := r.URL.Query().Get("status"); status != "" {
		opts = append(opts, service.WithStatus(status))
	}

	items, next, err := routes.jobs.List(r.Context(), scope, id, opts...)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, ListJobsResponse{Jobs: items, NextToken: next}, http.StatusOK)
}
