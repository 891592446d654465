package routes

import (
	"net/http"

	"relex/internal/server/middleware"
	"relex/pkg/logger"
	"relex/pkg/template"

	"github.com/labstack/echo/v4"
)

// GetTemplatesHandler lists the stored templates for one relation.
func GetTemplatesHandler(c echo.Context) error {
	type templatesResponse struct {
		Message   string              `json:"message,omitempty"`
		Templates []template.Template `json:"templates,omitempty"`
	}

	relation := c.QueryParam("relation")
	if relation == "" {
		return c.JSON(http.StatusBadRequest, templatesResponse{
			Message: "relation not present in the input",
		})
	}

	app := c.(*middleware.AppContext).App
	templates, err := app.Templates.GetTemplates(c.Request().Context(), relation)
	if err != nil {
		logger.Error("Failed to get templates", "relation", relation, "err", err)
		return c.JSON(http.StatusInternalServerError, templatesResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, templatesResponse{
		Templates: templates,
	})
}

// GetRelationsHandler returns the known relation vocabulary.
func GetRelationsHandler(c echo.Context) error {
	app := c.(*middleware.AppContext).App

	relations, err := app.Relations.Relations()
	if err != nil {
		logger.Error("Failed to load relation list", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"message": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, relations)
}
