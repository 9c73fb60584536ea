package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/docupull/pdf2excel/internal/common"
)

// abortWithError maps application errors onto HTTP statuses with a
// {"detail": ...} payload. Unclassified errors are masked as a generic 500.
func abortWithError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidState):
		status = http.StatusConflict
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"detail": "internal server error"})
		return
	}

	detail := err.Error()
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		detail = appErr.Message
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
