package v1

import (
	"net/http"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
	"github.com/stacklok/connector-lifecycle-server/internal/connectors"
)

// createConnector handles POST /api/v1/custom-connectors
//
// @Summary		Create custom connector
// @Tags		connectors
// @Accept		json
// @Produce		json
// @Param		body	body		connectors.CreateRequest	true	"Connector definition"
// @Success		201		{object}	ConnectorResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors [post]
func (routes *Routes) createConnector(w http.ResponseWriter, r *http.Request) {
	scope, err := routes.scope(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req connectors.CreateRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	c, err := routes.connectors.Create(r.Context(), scope, &req)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, ConnectorResponse{Connector: c}, http.StatusCreated)
}

// listConnectors handles GET /api/v1/custom-connectors
//
// @Summary		List custom connectors
// @Tags		connectors
// @Produce		json
// @Param		max_results	query	int		false	"Page size (1-100, default 50)"
// @Param		next_token	query	string	false	"Token returned by the previous page"
// @Success		200		{object}	ListConnectorsResponse
// @Failure		400		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors [get]
func (routes *Routes) listConnectors(w http.ResponseWriter, r *http.Request) {
	scope, err := routes.scope(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	opts, err := paginationOptions(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	items, next, err := routes.connectors.List(r.Context(), scope, opts...)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, ListConnectorsResponse{Connectors: items, NextToken: next}, http.StatusOK)
}

// getConnector handles GET /api/v1/custom-connectors/{connectorId}
//
// @Summary		Get custom connector
// @Tags		connectors
// @Produce		json
// @Param		connectorId	path	string	true	"Connector id"
// @Success		200		{object}	ConnectorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId} [get]
func (routes *Routes) getConnector(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	c, err := routes.connectors.Get(r.Context(), scope, id)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, ConnectorResponse{Connector: c}, http.StatusOK)
}

// updateConnector handles PUT /api/v1/custom-connectors/{connectorId}
//
// @Summary		Update custom connector
// @Description	Only the fields present in the body are changed
// @Tags		connectors
// @Accept		json
// @Produce		json
// @Param		connectorId	path	string						true	"Connector id"
// @Param		body		body	connectors.UpdateRequest	true	"Fields to change"
// @Success		200		{object}	ConnectorResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId} [put]
func (routes *Routes) updateConnector(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req connectors.UpdateRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	c, err := routes.connectors.Update(r.Context(), scope, id, &req)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, ConnectorResponse{Connector: c}, http.StatusOK)
}

// deleteConnector handles DELETE /api/v1/custom-connectors/{connectorId}
//
// @Summary		Delete custom connector
// @Tags		connectors
// @Param		connectorId	path	string	true	"Connector id"
// @Success		204
// @Failure		404		{object}	common.ErrorResponse
// @Failure		409		{object}	common.ErrorResponse	"Connector is IN_USE"
// @Router		/api/v1/custom-connectors/{connectorId} [delete]
func (routes *Routes) deleteConnector(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	if err := routes.connectors.Delete(r.Context(), scope, id); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
