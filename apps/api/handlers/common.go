package handlers

import (
	"errors"
	"net/http"

	"github.com/dealdesk/dealdesk-api/libs/go/types/business"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondWithError maps the engine's error taxonomy onto HTTP statuses.
// Validation problems are the caller's to fix; unsupported states and
// unmapped ZIPs are environment gaps the caller can recover from; a version
// conflict means the deal moved underneath the request.
func respondWithError(c *gin.Context, err error) {
	var validationErr *business.ValidationError
	var unsupportedErr *business.UnsupportedStateError
	var notFoundErr *business.JurisdictionNotFoundError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: validationErr.Error()})
	case errors.As(err, &unsupportedErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: unsupportedErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: notFoundErr.Error()})
	case errors.Is(err, business.ErrDealNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: business.ErrDealNotFound.Error()})
	case errors.Is(err, business.ErrVersionConflict):
		c.JSON(http.StatusConflict, ErrorResponse{Error: business.ErrVersionConflict.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}
