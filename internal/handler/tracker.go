package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickeval/internal/repository"
	"pickeval/internal/service"
)

type TrackerHandler struct {
	Service *service.TrackerService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *TrackerHandler) Register(r *gin.Engine) {
	group := r.Group("/api/tracker")
	group.POST("/run", h.run)
	group.GET("/positions", h.listPositions)
	group.GET("/positions/:id", h.getPosition)
	group.POST("/positions/:id/close", h.closePosition)
	group.GET("/snapshots", h.listSnapshots)
}

func (h *TrackerHandler) run(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	result, err := h.Service.Track(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("tracker run failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *TrackerHandler) listPositions(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	positions, err := h.Repo.ListTrackedPositions(c.Request.Context(), repository.ListTrackedPositionsParams{
		Limit:     intQuery(c, "limit", 100),
		Offset:    intQuery(c, "offset", 0),
		Status:    strQueryPtr(c, "status"),
		Algorithm: strQueryPtr(c, "algorithm"),
		Symbol:    strQueryPtr(c, "symbol"),
		OrderBy:   c.Query("order_by"),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, positions, map[string]any{"count": len(positions)})
}

func (h *TrackerHandler) getPosition(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	pos, err := h.Repo.GetTrackedPosition(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if pos == nil {
		Error(c, http.StatusNotFound, "position not found", nil)
		return
	}
	Ok(c, pos, nil)
}

func (h *TrackerHandler) closePosition(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	pos, err := h.Service.ManualClose(c.Request.Context(), id)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("manual close failed", zap.Uint64("id", id), zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, pos, nil)
}

func (h *TrackerHandler) listSnapshots(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	snaps, err := h.Repo.ListDailySnapshots(c.Request.Context(), repository.ListSnapshotsParams{
		Limit:  intQuery(c, "limit", 90),
		Offset: intQuery(c, "offset", 0),
		Since:  dateQueryPtr(c, "since"),
		Until:  dateQueryPtr(c, "until"),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, snaps, map[string]any{"count": len(snaps)})
}
