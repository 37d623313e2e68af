package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickeval/internal/service"
)

type CompareHandler struct {
	Service *service.CompareService
	Logger  *zap.Logger
}

func (h *CompareHandler) Register(r *gin.Engine) {
	group := r.Group("/api/compare")
	group.GET("/presets", h.listPresets)
	group.POST("/scenarios", h.compareScenarios)
	group.POST("/algorithms", h.compareAlgorithms)
}

func (h *CompareHandler) listPresets(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	Ok(c, h.Service.PresetNames(), nil)
}

type compareRequest struct {
	Presets    []string `json:"presets"`
	Algorithms []string `json:"algorithms"`
	Save       bool     `json:"save"`
}

func (h *CompareHandler) compareScenarios(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	results, err := h.Service.ComparePresets(c.Request.Context(), req.Presets, req.Save)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("scenario comparison failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, results, map[string]any{"count": len(results)})
}

func (h *CompareHandler) compareAlgorithms(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var req compareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	results, err := h.Service.CompareAlgorithms(c.Request.Context(), req.Algorithms, req.Save)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("algorithm comparison failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, results, map[string]any{"count": len(results)})
}
