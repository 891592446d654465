package server

import (
	"relex/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Extraction routes
	apiRoutes.POST("/extractions", routes.CreateExtractionHandler)
	apiRoutes.GET("/extractions/:task_id/status", routes.GetExtractionStatusHandler)
	apiRoutes.GET("/extractions/:task_id/relations", routes.GetExtractionRelationsHandler)

	// Graph routes
	apiRoutes.POST("/graphs", routes.CreateGraphHandler)

	// Template and query routes
	apiRoutes.POST("/templates", routes.CreateTemplateHandler)
	apiRoutes.GET("/templates", routes.GetTemplatesHandler)
	apiRoutes.GET("/relations", routes.GetRelationsHandler)
	apiRoutes.POST("/query", routes.QueryHandler)
}
