package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pickeval/internal/service"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

func Ok(c *gin.Context, data any, meta map[string]any) {
	c.JSON(http.StatusOK, apiResponse{
		Code:    0,
		Message: "ok",
		Data:    data,
		Meta:    meta,
	})
}

func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.JSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// serviceError maps parameter failures to 400 and everything else to 500.
func serviceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrInvalidParams) {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	Error(c, http.StatusInternalServerError, err.Error(), nil)
}
