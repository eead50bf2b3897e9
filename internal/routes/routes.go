package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/securelab/backend/internal/config"
	"github.com/securelab/backend/internal/controllers"
	"github.com/securelab/backend/internal/middleware"
	"gorm.io/gorm"
)

// Dependencies are the long-lived services shared by the controllers.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Snapshot  controllers.SnapshotInvalidator
	Assistant controllers.Assistant
	Model     controllers.ModelMonitor
	Scheduler controllers.SchedulerStatusReporter
}

// SetupRoutes configures all application routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	authController := controllers.NewAuthController(deps.DB, deps.Config.JWTSecret)
	userController := controllers.NewUserController(deps.DB, deps.Snapshot)
	doorController := controllers.NewDoorController(deps.DB, deps.Snapshot)
	deviceController := controllers.NewDeviceController(deps.DB, deps.Snapshot)
	logController := controllers.NewLogController(deps.DB)
	dashboardController := controllers.NewDashboardController(deps.DB)
	assistantController := controllers.NewAssistantController(deps.Assistant)
	settingsController := controllers.NewSettingsController(deps.Config.Assistant, deps.Model, deps.Scheduler)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authController.Login)
		}

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(deps.Config.JWTSecret))
		{
			protected.GET("/auth/me", authController.Me)
			protected.PUT("/auth/password", authController.ChangePassword)

			users := protected.Group("/users")
			{
				users.GET("", userController.GetUsers)
				users.POST("", userController.CreateUser)
				users.GET("/:id", userController.GetUser)
				users.PUT("/:id", userController.UpdateUser)
				users.DELETE("/:id", userController.DeleteUser)
			}

			doors := protected.Group("/doors")
			{
				doors.GET("", doorController.GetDoors)
				doors.POST("", doorController.CreateDoor)
				doors.GET("/:id", doorController.GetDoor)
				doors.PUT("/:id", doorController.UpdateDoor)
				doors.DELETE("/:id", doorController.DeleteDoor)
				doors.POST("/:id/lock", doorController.LockDoor)
				doors.POST("/:id/unlock", doorController.UnlockDoor)
			}

			devices := protected.Group("/devices")
			{
				devices.GET("", deviceController.GetDevices)
				devices.POST("", deviceController.CreateDevice)
				devices.GET("/:id", deviceController.GetDevice)
				devices.PUT("/:id", deviceController.UpdateDevice)
				devices.DELETE("/:id", deviceController.DeleteDevice)
			}

			logs := protected.Group("/logs")
			{
				logs.GET("", logController.GetLogs)
				logs.GET("/export", logController.ExportLogs)
				logs.GET("/stats", logController.GetStats)
			}

			protected.GET("/dashboard", dashboardController.GetSummary)

			assistant := protected.Group("/assistant")
			{
				assistant.POST("/chat", assistantController.Chat)
				assistant.GET("/history", assistantController.GetHistory)
				assistant.DELETE("/conversation", assistantController.ClearConversation)
				assistant.GET("/insights", assistantController.GetInsights)
				assistant.GET("/settings", settingsController.GetAssistantSettings)
				assistant.GET("/status", settingsController.GetAssistantStatus)
			}

			admin := protected.Group("/admin")
			{
				admin.GET("/llm-calls", settingsController.GetLLMCalls)
				admin.DELETE("/llm-calls", settingsController.ClearLLMCalls)
			}
		}
	}
}
