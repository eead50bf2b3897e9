package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/models"
	"github.com/securelab/backend/internal/services"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const recentActivityLimit = 10

type DashboardController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewDashboardController(db *gorm.DB) *DashboardController {
	return &DashboardController{db: db, now: time.Now}
}

// GetSummary returns the dashboard cards: record counts, door and device states,
// today's access totals and the latest log entries.
func (dc *DashboardController) GetSummary(c *gin.Context) {
	ctx := c.Request.Context()
	now := dc.now()
	todayStart := models.FormatTimestamp(now.UTC().Truncate(24 * time.Hour))

	var (
		users       []models.AccessUser
		doors       []models.Door
		devices     []models.Device
		todayLogs   []models.AccessLog
		recentLogs  []models.AccessLog
		activeUsers int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dc.db.WithContext(gctx).Find(&users).Error
	})
	g.Go(func() error {
		return dc.db.WithContext(gctx).Model(&models.AccessUser{}).
			Where("status = ?", models.UserStatusActive).Count(&activeUsers).Error
	})
	g.Go(func() error {
		return dc.db.WithContext(gctx).Find(&doors).Error
	})
	g.Go(func() error {
		return dc.db.WithContext(gctx).Find(&devices).Error
	})
	g.Go(func() error {
		return dc.db.WithContext(gctx).Where("timestamp >= ?", todayStart).Find(&todayLogs).Error
	})
	g.Go(func() error {
		return dc.db.WithContext(gctx).Order("timestamp DESC").Order("id ASC").
			Limit(recentActivityLimit).Find(&recentLogs).Error
	})
	if err := g.Wait(); err != nil {
		logger.WithError(err, "dashboard_controller").Error("Failed to load dashboard data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load dashboard"})
		return
	}

	collections := services.Collections{
		Users:   make(map[string]models.AccessUser, len(users)),
		Doors:   make(map[string]models.Door, len(doors)),
		Devices: make(map[string]models.Device, len(devices)),
		Logs:    todayLogs,
	}
	for _, u := range users {
		collections.Users[u.ID] = u
	}
	for _, d := range doors {
		collections.Doors[d.ID] = d
	}
	for _, d := range devices {
		collections.Devices[d.ID] = d
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":        services.Summarize(collections, 1),
		"activeUsers":    activeUsers,
		"today":          services.TodayCounts(todayLogs, now),
		"recentActivity": recentLogs,
	})
}
