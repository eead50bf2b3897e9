package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/logger"
	"github.com/securelab/backend/internal/services"
)

const healthCheckTimeout = 10 * time.Second

// ModelMonitor exposes the model client's call log and reachability.
type ModelMonitor interface {
	Configured() bool
	CheckHealth(ctx context.Context) error
	GetAPICalls() []services.GeminiAPICall
	ClearAPICalls()
}

// SchedulerStatusReporter is implemented by the insight scheduler.
type SchedulerStatusReporter interface {
	Status() services.SchedulerStatus
}

type SettingsController struct {
	cfg       config.AssistantConfig
	model     ModelMonitor
	scheduler SchedulerStatusReporter
}

// NewSettingsController builds the controller; scheduler may be nil when auto refresh is off.
func NewSettingsController(cfg config.AssistantConfig, model ModelMonitor, scheduler SchedulerStatusReporter) *SettingsController {
	return &SettingsController{cfg: cfg, model: model, scheduler: scheduler}
}

// GetAssistantSettings returns the non-secret flags the console needs to lay out the assistant.
func (sc *SettingsController) GetAssistantSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"configured": sc.model.Configured(),
		"chat":       sc.cfg.Chat,
		"insights": gin.H{
			"autoRefresh":     sc.cfg.Insights.AutoRefresh,
			"refreshInterval": sc.cfg.Insights.RefreshInterval.String(),
			"maxInsights":     sc.cfg.Insights.MaxInsights,
		},
		"dataLimits": sc.cfg.Limits,
	})
}

// GetAssistantStatus checks that the model endpoint answers with the configured key.
func (sc *SettingsController) GetAssistantStatus(c *gin.Context) {
	response := gin.H{"configured": sc.model.Configured()}
	if sc.scheduler != nil {
		response["scheduler"] = sc.scheduler.Status()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	if err := sc.model.CheckHealth(ctx); err != nil {
		logger.WithError(err, "settings_controller").Warn("Model health check failed")
		response["status"] = "unhealthy"
		response["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}

	response["status"] = "healthy"
	c.JSON(http.StatusOK, response)
}

func (sc *SettingsController) GetLLMCalls(c *gin.Context) {
	calls := sc.model.GetAPICalls()
	c.JSON(http.StatusOK, gin.H{
		"calls": calls,
		"count": len(calls),
	})
}

func (sc *SettingsController) ClearLLMCalls(c *gin.Context) {
	sc.model.ClearAPICalls()
	logger.WithAdmin(adminID(c)).Info("Model call log cleared")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Call log cleared"})
}
