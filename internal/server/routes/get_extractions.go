package routes

import (
	"errors"
	"net/http"

	"relex/internal/server/middleware"
	"relex/pkg/logger"
	"relex/pkg/rebel"
	"relex/pkg/records"

	"github.com/labstack/echo/v4"
)

// GetExtractionStatusHandler reports the lifecycle state of one extraction
// task. A DONE poll also annotates the ingestion record with the task id, so
// the sample relations become addressable by task.
func GetExtractionStatusHandler(c echo.Context) error {
	type statusResponse struct {
		Message     string             `json:"message,omitempty"`
		Status      records.TaskStatus `json:"status,omitempty"`
		IngestionID string             `json:"ingestion_id,omitempty"`
		Error       string             `json:"error,omitempty"`
	}

	taskID := c.Param("task_id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, statusResponse{
			Message: "task id not present in the input",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	task, err := app.Records.GetTask(ctx, taskID)
	if errors.Is(err, records.ErrNotFound) {
		return c.JSON(http.StatusNotFound, statusResponse{
			Message: "no such task found",
		})
	}
	if err != nil {
		logger.Error("Failed to get task", "task_id", taskID, "err", err)
		return c.JSON(http.StatusInternalServerError, statusResponse{
			Message: "Internal server error",
		})
	}

	if task.Status == records.TaskDone && task.IngestionID != "" {
		if err := app.Records.AttachTaskID(ctx, task.IngestionID, task.TaskID); err != nil && !errors.Is(err, records.ErrNotFound) {
			logger.Error("Failed to attach task id", "task_id", taskID, "err", err)
		}
	}

	return c.JSON(http.StatusOK, statusResponse{
		Status:      task.Status,
		IngestionID: task.IngestionID,
		Error:       task.Error,
	})
}

// GetExtractionRelationsHandler returns the sampled relations of a finished
// extraction task.
func GetExtractionRelationsHandler(c echo.Context) error {
	type relationsResponse struct {
		Message   string         `json:"message,omitempty"`
		Relations []rebel.Triple `json:"relations,omitempty"`
	}

	taskID := c.Param("task_id")
	if taskID == "" {
		return c.JSON(http.StatusBadRequest, relationsResponse{
			Message: "task id not present in the input",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	record, err := app.Records.GetByTaskID(ctx, taskID)
	if errors.Is(err, records.ErrNotFound) {
		return c.JSON(http.StatusNotFound, relationsResponse{
			Message: "no such task found",
		})
	}
	if err != nil {
		logger.Error("Failed to get ingestion record", "task_id", taskID, "err", err)
		return c.JSON(http.StatusInternalServerError, relationsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, relationsResponse{
		Relations: record.Relations,
	})
}
