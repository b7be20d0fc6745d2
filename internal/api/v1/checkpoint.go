package v1

import (
	"net/http"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
)

// putCheckpoint handles PUT /api/v1/custom-connectors/{connectorId}/checkpoint
//
// @Summary		Put connector checkpoint
// @Tags		checkpoints
// @Accept		json
// @Produce		json
// @Param		connectorId	path	string					true	"Connector id"
// @Param		body		body	PutCheckpointRequest	true	"Checkpoint data"
// @Success		200		{object}	CheckpointResponse
// @Failure		404		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId}/checkpoint [put]
func (routes *Routes) putCheckpoint(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req PutCheckpointRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	checkpoint, err := routes.connectors.PutCheckpoint(r.Context(), scope, id, req.CheckpointData)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, CheckpointResponse{Checkpoint: checkpoint}, http.StatusOK)
}

// getCheckpoint handles GET /api/v1/custom-connectors/{connectorId}/checkpoint
//
// @Summary		Get connector checkpoint
// @Tags		checkpoints
// @Produce		json
// @Param		connectorId	path	string	true	"Connector id"
// @Success		200		{object}	CheckpointResponse
// @Failure		404		{object}	common.ErrorResponse	"Connector or checkpoint not found"
// @Router		/api/v1/custom-connectors/{connectorId}/checkpoint [get]
func (routes *Routes) getCheckpoint(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	checkpoint, err := routes.connectors.GetCheckpoint(r.Context(), scope, id)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, CheckpointResponse{Checkpoint: checkpoint}, http.StatusOK)
}

// deleteCheckpoint handles DELETE /api/v1/custom-connectors/{connectorId}/checkpoint
//
// @Summary		Delete connector checkpoint
// @Tags		checkpoints
// @Param		connectorId	path	string	true	"Connector id"
// @Success		204
// @Failure		404		{object}	common.ErrorResponse	"Connector or checkpoint not found"
// @Router		/api/v1/custom-connectors/{connectorId}/checkpoint [delete]
func (routes *Routes) deleteCheckpoint(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	if err := routes.connectors.DeleteCheckpoint(r.Context(), scope, id); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
