package routes

import (
	"net/http"

	"relex/internal/server/middleware"
	"relex/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CreateTemplateHandler adds one phrase template to the template store.
func CreateTemplateHandler(c echo.Context) error {
	type createTemplateBody struct {
		Relation string `json:"relation" validate:"required"`
		Template string `json:"template" validate:"required"`
		Groups   []int  `json:"groups"`
	}

	type createTemplateResponse struct {
		Message string `json:"message"`
	}

	data := new(createTemplateBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createTemplateResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createTemplateResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	if err := app.Templates.IngestTemplate(c.Request().Context(), data.Relation, data.Template, data.Groups); err != nil {
		logger.Error("Failed to ingest template", "relation", data.Relation, "err", err)
		return c.JSON(http.StatusInternalServerError, createTemplateResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, createTemplateResponse{
		Message: "template ingested successfully",
	})
}
