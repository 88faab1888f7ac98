// Package handlers implements the gin handlers behind the HTTP API.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnemos-ai/mnemos/pkg/embedder"
	"github.com/mnemos-ai/mnemos/pkg/server/dto"
	"github.com/mnemos-ai/mnemos/pkg/types"
)

// respondError maps engine errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, types.ErrNodeNotFound), errors.Is(err, types.ErrEdgeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, types.ErrDuplicateEdge):
		status = http.StatusConflict
	case errors.Is(err, types.ErrValidation), errors.Is(err, types.ErrSelfLoop):
		status = http.StatusBadRequest
	case errors.Is(err, embedder.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, embedder.ErrUnavailable):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error(), Code: status})
}
