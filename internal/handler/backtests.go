package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickeval/internal/repository"
	"pickeval/internal/service"
)

type BacktestHandler struct {
	Service *service.BacktestService
	Repo    repository.Repository
	Logger  *zap.Logger
}

func (h *BacktestHandler) Register(r *gin.Engine) {
	group := r.Group("/api/backtests")
	group.POST("/run", h.run)
	group.GET("", h.listRuns)
	group.GET("/:id", h.getRun)
	group.GET("/:id/trades", h.listTrades)
}

func (h *BacktestHandler) run(c *gin.Context) {
	if h.Service == nil {
		Error(c, http.StatusInternalServerError, "service unavailable", nil)
		return
	}
	var params service.BacktestParams
	if err := c.ShouldBindJSON(&params); err != nil {
		Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	result, err := h.Service.Run(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("backtest run failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, result, nil)
}

func (h *BacktestHandler) listRuns(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	runs, err := h.Repo.ListBacktestRuns(c.Request.Context(), repository.ListRunsParams{
		Limit:   intQuery(c, "limit", 50),
		Offset:  intQuery(c, "offset", 0),
		OrderBy: c.Query("order_by"),
	})
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, runs, map[string]any{"count": len(runs)})
}

func (h *BacktestHandler) getRun(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	run, err := h.Repo.GetBacktestRun(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	if run == nil {
		Error(c, http.StatusNotFound, "run not found", nil)
		return
	}
	Ok(c, run, nil)
}

func (h *BacktestHandler) listTrades(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	trades, err := h.Repo.ListTradesByRunID(c.Request.Context(), id)
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, trades, map[string]any{"count": len(trades)})
}

func idParam(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}
