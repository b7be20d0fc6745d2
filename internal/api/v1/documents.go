package v1

import (
	"net/http"

	"github.com/stacklok/connector-lifecycle-server/internal/api/common"
	"github.com/stacklok/connector-lifecycle-server/internal/documents"
	"github.com/stacklok/connector-lifecycle-server/internal/service"
)

// batchPutDocuments handles POST /api/v1/custom-connectors/{connectorId}/documents
//
// @Summary		Record document checksums
// @Description	Entries that could not be written are listed in failed_documents
// @Tags		documents
// @Accept		json
// @Produce		json
// @Param		connectorId	path	string						true	"Connector id"
// @Param		body		body	BatchPutDocumentsRequest	true	"At most 10 checksums"
// @Success		202		{object}	documents.Result
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId}/documents [post]
func (routes *Routes) batchPutDocuments(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req BatchPutDocumentsRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	if err := checkBatchSize(len(req.Documents)); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	result, err := routes.documents.BatchPut(r.Context(), scope, id, req.Documents)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusAccepted)
}

// batchDeleteDocuments handles DELETE /api/v1/custom-connectors/{connectorId}/documents
//
// @Summary		Remove document checksums
// @Description	Entries that could not be removed are listed in failed_documents
// @Tags		documents
// @Accept		json
// @Produce		json
// @Param		connectorId	path	string						true	"Connector id"
// @Param		body		body	BatchDeleteDocumentsRequest	true	"At most 10 document ids"
// @Success		202		{object}	documents.Result
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId}/documents [delete]
func (routes *Routes) batchDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	scope, id, err := routes.connectorRequest(r)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	var req BatchDeleteDocumentsRequest
	if err := common.DecodeJSONBody(r, &req); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	if err := checkBatchSize(len(req.DocumentIDs)); err != nil {
		common.WriteServiceError(w, r, err)
		return
	}

	result, err := routes.documents.BatchDelete(r.Context(), scope, id, req.DocumentIDs)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, result, http.StatusAccepted)
}

// listDocuments handles GET /api/v1/custom-connectors/{connectorId}/documents
//
// @Summary		List document checksums
// @Tags		documents
// @Produce		json
// @Param		connectorId	path	string	true	"Connector id"
// @Param		max_results	query	int		false	"Page size (1-100, default 50)"
// @Param		next_token	query	string	false	"Token returned by the previous page"
// @Success		200		{object}	ListDocumentsResponse
// @Failure		400		{object}	common.ErrorResponse
// @Failure		404		{object}	common.ErrorResponse
// @Router		/api/v1/custom-connectors/{connectorId}/documents [get]
func (routes *Routes) listDocuments(w http.ResponseWriter, r *http.Request) {
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

	items, next, err := routes.documents.List(r.Context(), scope, id, opts...)
	if err != nil {
		common.WriteServiceError(w, r, err)
		return
	}
	common.WriteJSONResponse(w, ListDocumentsResponse{Documents: items, NextToken: next}, http.StatusOK)
}

func checkBatchSize(n int) error {
	if n == 0 {
		return service.BadRequestf("at least one document is required")
	}
	if n > documents.MaxBatchSize {
		return service.BadRequestf("at most %d documents may be sent in one request, got %d", documents.MaxBatchSize, n)
	}
	return nil
}
