package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/dramakit/drama/cmd/drama/handlers"
	"github.com/dramakit/drama/cmd/drama/middleware"
	"github.com/dramakit/drama/common/bootstrap"
	"github.com/dramakit/drama/common/scheduler"
)

// RegisterWorkflowRoutes registers all workflow-related routes
func RegisterWorkflowRoutes(e *echo.Echo, sched *scheduler.Scheduler, components *bootstrap.Components) {
	h := handlers.NewWorkflowHandler(sched, components)
	cfg := components.Config

	workflow := e.Group("/api/v2/workflow", middleware.APIKey(cfg.API.KeyName, cfg.API.Key))
	{
		workflow.POST("/run", h.Run)       // POST /api/v2/workflow/run
		workflow.GET("/status", h.Status)  // GET  /api/v2/workflow/status?id=
		workflow.POST("/revoke", h.Revoke) // POST /api/v2/workflow/revoke?id=
		workflow.POST("/topic", h.Publish) // POST /api/v2/workflow/topic?id=&component=&message=
	}
}
