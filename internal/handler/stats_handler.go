package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/longtq2501/Tutor-Pro-sub000/internal/middleware"
	"github.com/longtq2501/Tutor-Pro-sub000/internal/models"
	"github.com/longtq2501/Tutor-Pro-sub000/pkg/response"
)

type statsService interface {
	Monthly(ctx context.Context) ([]models.MonthlyStats, bool, error)
	Summary(ctx context.Context) (*models.FinanceSummary, bool, error)
}

// StatsHandler exposes revenue statistics.
type StatsHandler struct {
	stats statsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats statsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Monthly godoc
// @Summary Revenue per billing month
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/monthly [get]
func (h *StatsHandler) Monthly(c *gin.Context) {
	start := time.Now()
	stats, cacheHit, err := h.stats.Monthly(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil, statsMeta(c, cacheHit, start))
}

// Summary godoc
// @Summary Paid and unpaid totals
// @Tags Stats
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /stats/summary [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	start := time.Now()
	summary, cacheHit, err := h.stats.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, statsMeta(c, cacheHit, start))
}

func statsMeta(c *gin.Context, cacheHit bool, start time.Time) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ResponseMeta(c)
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	return meta
}
