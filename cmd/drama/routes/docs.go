package routes

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dramakit/drama/cmd/drama/middleware"
	"github.com/dramakit/drama/common/config"
)

// openapiSpec is a hand-maintained description of the public surface.
var openapiSpec = map[string]any{
	"openapi": "3.0.0",
	"info": map[string]any{
		"title":   "DRAMA",
		"version": "2.0.0",
	},
	"paths": map[string]any{
		"/api/v2/workflow/run":    map[string]any{"post": map[string]any{"summary": "Execute workflow"}},
		"/api/v2/workflow/status": map[string]any{"get": map[string]any{"summary": "Get workflow execution status"}},
		"/api/v2/workflow/revoke": map[string]any{"post": map[string]any{"summary": "Cancel workflow execution"}},
		"/api/v2/workflow/topic":  map[string]any{"post": map[string]any{"summary": "Publish value to a component topic"}},
		"/api/health":             map[string]any{"get": map[string]any{"summary": "Health check"}},
	},
}

// RegisterDocsRoutes registers the documentation endpoints behind the API key.
func RegisterDocsRoutes(e *echo.Echo, cfg *config.Config) {
	guard := middleware.APIKey(cfg.API.KeyName, cfg.API.Key)

	e.GET("/api/openapi.json", func(c echo.Context) error {
		return c.JSON(http.StatusOK, openapiSpec)
	}, guard)

	e.GET("/api/docs", func(c echo.Context) error {
		specURL := fmt.Sprintf("/api/openapi.json?%s=%s", cfg.API.KeyName, cfg.API.Key)
		page := fmt.Sprintf(docsPage, specURL)
		return c.HTML(http.StatusOK, page)
	}, guard)
}

const docsPage = `<!DOCTYPE html>
<html>
<head>
  <title>Documentation</title>
  <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({url: %q, dom_id: "#swagger-ui"});
  </script>
</body>
</html>`
