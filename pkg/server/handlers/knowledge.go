package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnemos-ai/mnemos"
	"github.com/mnemos-ai/mnemos/pkg/server/dto"
	"github.com/mnemos-ai/mnemos/pkg/types"
)

// KnowledgeHandler handles node and edge mutation requests.
type KnowledgeHandler struct {
	client mnemos.Mnemos
}

// NewKnowledgeHandler creates a new knowledge handler
func NewKnowledgeHandler(client mnemos.Mnemos) *KnowledgeHandler {
	return &KnowledgeHandler{client: client}
}

// AddNode handles POST /api/v1/nodes
func (h *KnowledgeHandler) AddNode(c *gin.Context) {
	var req dto.AddNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}

	node, err := h.client.AddNode(c.Request.Context(), mnemos.AddNodeRequest{
		Type:       types.NodeType(req.Type),
		Content:    req.Content,
		UserSaid:   req.UserSaid,
		Confidence: req.Confidence,
		Metadata:   req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewNodeResponse(node))
}

// GetNode handles GET /api/v1/nodes/:id
func (h *KnowledgeHandler) GetNode(c *gin.Context) {
	node, err := h.client.GetNode(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewNodeResponse(node))
}

// UpdateContent handles PUT /api/v1/nodes/:id
func (h *KnowledgeHandler) UpdateContent(c *gin.Context) {
	var req dto.UpdateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}

	id := c.Param("id")
	if err := h.client.UpdateContent(c.Request.Context(), id, req.Content); err != nil {
		respondError(c, err)
		return
	}
	node, err := h.client.GetNode(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewNodeResponse(node))
}

// DeleteNode handles DELETE /api/v1/nodes/:id
func (h *KnowledgeHandler) DeleteNode(c *gin.Context) {
	if err := h.client.DeleteNode(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Approve handles POST /api/v1/nodes/:id/approve
func (h *KnowledgeHandler) Approve(c *gin.Context) {
	id := c.Param("id")
	if err := h.client.Approve(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	node, err := h.client.GetNode(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewNodeResponse(node))
}

// Clarify handles POST /api/v1/nodes/:id/clarify
func (h *KnowledgeHandler) Clarify(c *gin.Context) {
	var req dto.ClarifyRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}

	clarification, err := h.client.Clarify(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewClarificationResponse(clarification))
}

// Link handles POST /api/v1/edges
func (h *KnowledgeHandler) Link(c *gin.Context) {
	var req dto.EdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}

	if err := h.client.Link(c.Request.Context(), req.FromID, req.ToID, types.EdgeType(req.Type)); err != nil {
		respondError(c, err)
		return
	}
	edge, err := h.client.GetEdge(c.Request.Context(), req.FromID, req.ToID, types.EdgeType(req.Type))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewEdgeResponse(edge))
}

// Unlink handles DELETE /api/v1/edges
func (h *KnowledgeHandler) Unlink(c *gin.Context) {
	var req dto.EdgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error(), Code: http.StatusBadRequest})
		return
	}

	if err := h.client.Unlink(c.Request.Context(), req.FromID, req.ToID, types.EdgeType(req.Type)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Neighbors handles GET /api/v1/nodes/:id/neighbors
func (h *KnowledgeHandler) Neighbors(c *gin.Context) {
	dir := types.Direction(c.DefaultQuery("direction", string(types.DirectionBoth)))
	var edgeTypes []types.EdgeType
	for _, raw := range c.QueryArray("edge_type") {
		edgeTypes = append(edgeTypes, types.EdgeType(raw))
	}

	neighbors, err := h.client.Neighbors(c.Request.Context(), c.Param("id"), edgeTypes, dir)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"neighbors": dto.NewNodeResponses(neighbors)})
}
