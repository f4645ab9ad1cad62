package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/dispute-backend/internal/http/handlers/common"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/service"
)

// StatisticsProvider отдаёт сводные счётчики споров.
type StatisticsProvider interface {
	GetStatistics(ctx context.Context) (*models.DisputeStatistics, error)
	InvalidateStatistics()
}

// Sweeper выполняет один проход по просроченным срокам.
type Sweeper interface {
	RunOnce(ctx context.Context) (service.SweepResult, error)
}

// AdminHandler статистика и ручной запуск обработки сроков.
type AdminHandler struct {
	stats   StatisticsProvider
	sweeper Sweeper
}

func NewAdminHandler(stats StatisticsProvider, sweeper Sweeper) *AdminHandler {
	return &AdminHandler{stats: stats, sweeper: sweeper}
}

// Statistics GET /admin/statistics
func (h *AdminHandler) Statistics(c *gin.Context) {
	stats, err := h.stats.GetStatistics(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Sweep POST /admin/sweep
func (h *AdminHandler) Sweep(c *gin.Context) {
	result, err := h.sweeper.RunOnce(c.Request.Context())
	if err != nil {
		common.Fail(c, err)
		return
	}
	if result.Escalated+result.Closed > 0 {
		h.stats.InvalidateStatistics()
	}
	c.JSON(http.StatusOK, result)
}
