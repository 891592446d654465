package routes

import (
	"encoding/json"
	"net/http"

	"relex/internal/queue"
	"relex/internal/server/middleware"
	"relex/pkg/logger"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// maxInputTokens bounds a single submission. The pipeline windows arbitrary
// lengths, the cap protects the queue and the inference server.
const maxInputTokens = 131072

// CreateExtractionHandler queues a document for relation extraction and
// returns the task id to poll.
func CreateExtractionHandler(c echo.Context) error {
	type createExtractionBody struct {
		Text      string `json:"text" validate:"required"`
		GraphName string `json:"graph_name"`
	}

	type createExtractionResponse struct {
		Message string `json:"message,omitempty"`
		TaskID  string `json:"task_id,omitempty"`
	}

	data := new(createExtractionBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createExtractionResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createExtractionResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if data.GraphName != "" {
		exists, err := app.Graph.GraphExists(ctx, data.GraphName)
		if err != nil {
			logger.Error("Failed to check graph", "graph", data.GraphName, "err", err)
			return c.JSON(http.StatusInternalServerError, createExtractionResponse{
				Message: "Internal server error",
			})
		}
		if !exists {
			return c.JSON(http.StatusBadRequest, createExtractionResponse{
				Message: "Graph does not exist, create it first",
			})
		}
	}

	taskID, err := gonanoid.New()
	if err != nil {
		logger.Error("Failed to generate task id", "err", err)
		return c.JSON(http.StatusInternalServerError, createExtractionResponse{
			Message: "Internal server error",
		})
	}

	tokens := app.Tokenizer.Encode(data.Text, nil, nil)
	if len(tokens) > maxInputTokens {
		return c.JSON(http.StatusRequestEntityTooLarge, createExtractionResponse{
			Message: "Document too large",
		})
	}
	logger.Info("Queueing extraction", "task_id", taskID, "tokens", len(tokens), "graph", data.GraphName)

	if err := app.Records.CreateTask(ctx, taskID); err != nil {
		logger.Error("Failed to create task", "task_id", taskID, "err", err)
		return c.JSON(http.StatusInternalServerError, createExtractionResponse{
			Message: "Internal server error",
		})
	}

	msg := queue.QueueExtractMsg{
		TaskID:    taskID,
		Text:      data.Text,
		GraphName: data.GraphName,
	}
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal queue message", "task_id", taskID, "err", err)
		return c.JSON(http.StatusInternalServerError, createExtractionResponse{
			Message: "Internal server error",
		})
	}

	if err := queue.PublishFIFO(app.Queue, queue.ExtractQueue, msgBytes); err != nil {
		logger.Error("Failed to publish extraction", "task_id", taskID, "err", err)
		if markErr := app.Records.MarkTaskFailed(ctx, taskID, "failed to queue extraction"); markErr != nil {
			logger.Error("Failed to mark task failed", "task_id", taskID, "err", markErr)
		}
		return c.JSON(http.StatusInternalServerError, createExtractionResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createExtractionResponse{
		Message: "Extraction queued",
		TaskID:  taskID,
	})
}
