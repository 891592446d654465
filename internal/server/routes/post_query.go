package routes

import (
	"errors"
	"net/http"

	"relex/internal/server/middleware"
	"relex/pkg/graph"
	"relex/pkg/logger"
	"relex/pkg/template"

	"github.com/labstack/echo/v4"
)

// QueryHandler answers a free-text question by template matching and graph
// lookup.
func QueryHandler(c echo.Context) error {
	type queryBody struct {
		Question string `json:"question" validate:"required"`
	}

	type queryResponse struct {
		Message string `json:"message,omitempty"`
		Answer  string `json:"answer,omitempty"`
	}

	data := new(queryBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	answer, err := app.Templates.Search(c.Request().Context(), data.Question)
	if errors.Is(err, template.ErrNoMatch) {
		return c.JSON(http.StatusNotFound, queryResponse{
			Message: "no matching template found",
		})
	}
	if errors.Is(err, graph.ErrNoResult) {
		return c.JSON(http.StatusNotFound, queryResponse{
			Message: "no answer found in the graph",
		})
	}
	if err != nil {
		logger.Error("Failed to answer query", "question", data.Question, "err", err)
		return c.JSON(http.StatusInternalServerError, queryResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, queryResponse{
		Answer: answer,
	})
}
