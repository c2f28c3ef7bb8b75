package main

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/dramakit/drama/cmd/drama/routes"
	"github.com/dramakit/drama/common/bootstrap"
	"github.com/dramakit/drama/common/scheduler"
	"github.com/dramakit/drama/common/server"
)

func newServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "Run the workflow API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	components, err := bootstrap.Setup(ctx, "drama-server")
	if err != nil {
		return fmt.Errorf("failed to bootstrap server: %w", err)
	}
	defer components.Shutdown(ctx)

	sched := &scheduler.Scheduler{
		Tasks:     components.Tasks,
		Workflows: components.Workflows,
		Queue:     components.Queue,
		Defaults:  components.Config.Actor,
		Log:       components.Logger,
		Metrics:   components.Metrics,
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())

	e.GET("/api/health", func(c echo.Context) error {
		if err := components.Health(c.Request().Context()); err != nil {
			return c.JSON(503, map[string]string{"status": "unhealthy", "error": err.Error()})
		}
		return c.JSON(200, map[string]string{"status": "ok", "service": "drama"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	routes.RegisterWorkflowRoutes(e, sched, components)
	routes.RegisterDocsRoutes(e, components.Config)

	addr := fmt.Sprintf("%s:%d", components.Config.API.Host, components.Config.API.Port)
	srv := server.New("drama-server", addr, e, components.Logger)
	return srv.Start(ctx)
}
