package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickeval/internal/repository"
	"pickeval/internal/service"
)

type LessonHandler struct {
	Service *service.LessonService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *LessonHandler) Register(r *gin.Engine) {
	group := r.Group("/api/lessons")
	group.POST("/detect", h.detect)
	group.GET("", h.list)
}

func (h *LessonHandler) detect(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Service.Detect(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("lesson detection failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *LessonHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	lessons, err := h.Repo.ListLessons(c.Request.Context(), repository.ListLessonsParams{
		Limit:  intQuery(c, "limit", 50),
		Offset: intQuery(c, "offset", 0),
		Type:   strQueryPtr(c, "type"),
		Since:  dateQueryPtr(c, "since"),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, lessons, map[string]any{"count": len(lessons)})
}
