package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pickeval/internal/repository"
)

// CatalogHandler exposes read access to the instrument, pick and price
// catalogs written by external collaborators.
type CatalogHandler struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (h *CatalogHandler) Register(r *gin.Engine) {
	group := r.Group("/api/catalog")
	group.GET("/instruments", h.listInstruments)
	group.GET("/picks", h.listPicks)
	group.GET("/algorithms", h.listAlgorithms)
	group.GET("/prices/:symbol", h.listPrices)
}

func (h *CatalogHandler) listInstruments(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	instruments, err := h.Repo.ListInstruments(c.Request.Context())
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list instruments failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, instruments, map[string]any{"count": len(instruments)})
}

func (h *CatalogHandler) listPicks(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	params := repository.ListPicksParams{
		Limit:      intQuery(c, "limit", 100),
		Offset:     intQuery(c, "offset", 0),
		Algorithms: csvQuery(c, "algorithms"),
		Symbol:     strQueryPtr(c, "symbol"),
		Since:      dateQueryPtr(c, "since"),
		Until:      dateQueryPtr(c, "until"),
	}
	picks, err := h.Repo.ListPicks(c.Request.Context(), params)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("list picks failed", zap.Error(err))
		}
		serviceError(c, err)
		return
	}
	Ok(c, picks, map[string]any{"count": len(picks)})
}

func (h *CatalogHandler) listAlgorithms(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	names, err := h.Repo.ListAlgorithmNames(c.Request.Context())
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, names, nil)
}

func (h *CatalogHandler) listPrices(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repository unavailable", nil)
		return
	}
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		Error(c, http.StatusBadRequest, "symbol required", nil)
		return
	}
	from := time.Time{}
	if v := dateQueryPtr(c, "from"); v != nil {
		from = *v
	}
	prices, err := h.Repo.ListPrices(c.Request.Context(), symbol, from, intQuery(c, "limit", 365))
	if err != nil {
		serviceError(c, err)
		return
	}
	Ok(c, prices, map[string]any{"count": len(prices)})
}

func intQuery(c *gin.Context, key string, def int) int {
	if val := c.Query(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

func strQueryPtr(c *gin.Context, key string) *string {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		return &val
	}
	return nil
}

func csvQuery(c *gin.Context, key string) []string {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dateQueryPtr(c *gin.Context, key string) *time.Time {
	if val := strings.TrimSpace(c.Query(key)); val != "" {
		if t, err := time.Parse("2006-01-02", val); err == nil {
			return &t
		}
	}
	return nil
}
