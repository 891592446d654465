package routes

import (
	"errors"
	"fmt"
	"net/http"

	"relex/internal/server/middleware"
	"relex/pkg/graph"
	"relex/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateGraphHandler creates a named graph scope for subsequent extractions.
func CreateGraphHandler(c echo.Context) error {
	type createGraphBody struct {
		GraphName string `json:"graph_name" validate:"required"`
	}

	type createGraphResponse struct {
		Message string `json:"message"`
	}

	data := new(createGraphBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "graph name not found in request",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "graph name not found in request",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	err := app.Graph.CreateGraph(ctx, data.GraphName)
	if errors.Is(err, graph.ErrInvalidGraphName) {
		return c.JSON(http.StatusBadRequest, createGraphResponse{
			Message: "invalid graph name",
		})
	}
	if err != nil {
		logger.Error("Failed to create graph", "graph", data.GraphName, "err", err)
		return c.JSON(http.StatusInternalServerError, createGraphResponse{
			Message: "Internal server error",
		})
	}

	if err := app.Ingestor.EnsureEntityConstraint(ctx, data.GraphName); err != nil {
		logger.Error("Failed to install entity constraint", "graph", data.GraphName, "err", err)
		return c.JSON(http.StatusInternalServerError, createGraphResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, createGraphResponse{
		Message: fmt.Sprintf("%s created successfully", data.GraphName),
	})
}
