package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/models"
	"github.com/securelab/backend/internal/services"
	"gorm.io/gorm"
)

const defaultLogWindowDays = 7

type LogController struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLogController(db *gorm.DB) *LogController {
	return &LogController{db: db, now: time.Now}
}

// parseFilter reads action, user, door, method, from and to. Dates accept YYYY-MM-DD or
// RFC3339; a bare "to" date covers that whole day. Without "from" the window is the last
// seven days.
func (lc *LogController) parseFilter(c *gin.Context) (services.LogFilter, error) {
	f := services.LogFilter{
		Action: c.Query("action"),
		User:   c.Query("user"),
		Door:   c.Query("door"),
		Method: c.Query("method"),
	}

	if from := c.Query("from"); from != "" {
		t, _, err := parseDateParam(from)
		if err != nil {
			return f, fmt.Errorf("invalid from: %w", err)
		}
		f.From = t
	} else {
		f.From = lc.now().UTC().AddDate(0, 0, -defaultLogWindowDays)
	}

	if to := c.Query("to"); to != "" {
		t, dateOnly, err := parseDateParam(to)
		if err != nil {
			return f, fmt.Errorf("invalid to: %w", err)
		}
		if dateOnly {
			t = t.Add(24*time.Hour - time.Millisecond)
		}
		f.To = t
	}
	return f, nil
}

func parseDateParam(s string) (time.Time, bool, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true, nil
	}
	t, err := models.ParseTimestamp(s)
	return t, false, err
}

// loadLogs fetches the logs inside the filter's time window. The remaining filters are
// applied in memory.
func (lc *LogController) loadLogs(f services.LogFilter) ([]models.AccessLog, error) {
	query := lc.db.Model(&models.AccessLog{})
	if !f.From.IsZero() {
		query = query.Where("timestamp >= ?", models.FormatTimestamp(f.From))
	}
	if !f.To.IsZero() {
		query = query.Where("timestamp <= ?", models.FormatTimestamp(f.To))
	}
	if f.Action != "" {
		query = query.Where("action = ?", f.Action)
	}

	var logs []models.AccessLog
	if err := query.Order("timestamp DESC").Order("id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return services.FilterLogs(logs, f), nil
}

func (lc *LogController) GetLogs(c *gin.Context) {
	filter, err := lc.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, limit := pagination(c)

	logs, err := lc.loadLogs(filter)
	if err != nil {
		logger.WithError(err, "log_controller").Error("Failed to fetch access logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch access logs"})
		return
	}

	total := len(logs)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	c.JSON(http.StatusOK, gin.H{
		"logs": logs[start:end],
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (lc *LogController) ExportLogs(c *gin.Context) {
	filter, err := lc.parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logs, err := lc.loadLogs(filter)
	if err != nil {
		logger.WithError(err, "log_controller").Error("Failed to fetch access logs for export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export access logs"})
		return
	}

	var buf bytes.Buffer
	if err := services.WriteCSV(&buf, logs); err != nil {
		logger.WithError(err, "log_controller").Error("Failed to write CSV")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export access logs"})
		return
	}

	filename := fmt.Sprintf("securelab_logs_%s.csv", lc.now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (lc *LogController) GetStats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(defaultLogWindowDays)))
	if err != nil || days < 1 || days > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
		return
	}

	now := lc.now()
	start := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -days+1)
	logs, err := lc.loadLogs(services.LogFilter{From: start})
	if err != nil {
		logger.WithError(err, "log_controller").Error("Failed to fetch access logs for stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activity": services.DailyActivity(logs, now, days),
		"today":    services.TodayCounts(logs, now),
	})
}
