package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"billiard-venue-backend/internal/apperr"
)

// statusFor maps the operational error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeState:
		return http.StatusUnprocessableEntity
	case apperr.CodeAuthentication:
		return http.StatusUnauthorized
	case apperr.CodeReplay:
		return http.StatusConflict
	case apperr.CodeAuthorization:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": apperr.CodeOf(err)})
}
