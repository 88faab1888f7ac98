package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnemos-ai/mnemos"
	"github.com/mnemos-ai/mnemos/pkg/server/dto"
)

// defaultQueryLimit applies when a query request does not set a limit.
const defaultQueryLimit = 10

// QueryHandler handles retrieval and audit requests.
type QueryHandler struct {
	client mnemos.Mnemos
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(client mnemos.Mnemos) *QueryHandler {
	return &QueryHandler{client: client}
}

// Query handles POST /api/v1/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultQueryLimit
	}

	results, err := h.client.Query(c.Request.Context(), req.Question, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewQueryResponse(results))
}

// Subgraph handles POST /api/v1/subgraph
func (h *QueryHandler) Subgraph(c *gin.Context) {
	var req dto.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultQueryLimit
	}

	sub, err := h.client.Subgraph(c.Request.Context(), req.Question, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSubgraphResponse(sub))
}

// Conflicts handles GET /api/v1/conflicts
func (h *QueryHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.client.Conflicts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": dto.NewConflictResponses(conflicts)})
}

// Orphans handles GET /api/v1/orphans
func (h *QueryHandler) Orphans(c *gin.Context) {
	orphans, err := h.client.Orphans(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orphans": dto.NewNodeResponses(orphans)})
}

// Stats handles GET /api/v1/stats
func (h *QueryHandler) Stats(c *gin.Context) {
	stats, err := h.client.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
