package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"relex/pkg/graph"
	"relex/pkg/logger"
	"relex/pkg/rebel"
	"relex/pkg/records"
)

// QueueExtractMsg is the payload of one extraction job on the extract queue.
// GraphName is empty for the default graph.
type QueueExtractMsg struct {
	TaskID    string `json:"task_id"`
	Text      string `json:"text"`
	GraphName string `json:"graph_name,omitempty"`
}

// ProcessExtractMessage runs one extraction job end to end: extract triples
// from the text, log a sample record, ingest into the graph and move the task
// to its terminal state. A returned error signals the caller to retry the
// message; terminal task state is only written when the pipeline itself
// decided the outcome.
func ProcessExtractMessage(
	ctx context.Context,
	extractor *rebel.Extractor,
	ingestor *graph.Ingestor,
	store *records.Store,
	msg string,
) error {
	var data QueueExtractMsg
	if err := json.Unmarshal([]byte(msg), &data); err != nil {
		logger.Error("[Queue] Failed to unmarshal extract message", "err", err)
		return fmt.Errorf("unmarshal extract message: %w", err)
	}

	if err := store.MarkTaskInProgress(ctx, data.TaskID); err != nil {
		logger.Error("[Queue] Failed to mark task in progress", "task_id", data.TaskID, "err", err)
		return err
	}

	logger.Info("[Queue] Starting extraction", "task_id", data.TaskID, "graph", data.GraphName)

	kb, err := extractor.FromText(ctx, data.Text)
	if err != nil {
		logger.Error("[Queue] Extraction failed", "task_id", data.TaskID, "err", err)
		if markErr := store.MarkTaskFailed(ctx, data.TaskID, err.Error()); markErr != nil {
			logger.Error("[Queue] Failed to mark task failed", "task_id", data.TaskID, "err", markErr)
		}
		return err
	}

	ingestionID, err := store.PushSampleRelations(ctx, kb.Relations())
	if err != nil {
		logger.Error("[Queue] Failed to log sample relations", "task_id", data.TaskID, "err", err)
		if markErr := store.MarkTaskFailed(ctx, data.TaskID, err.Error()); markErr != nil {
			logger.Error("[Queue] Failed to mark task failed", "task_id", data.TaskID, "err", markErr)
		}
		return err
	}

	ingested := ingestor.IngestKnowledgeBase(ctx, kb, data.GraphName)
	logger.Info(
		"[Queue] Knowledge base ingested",
		"task_id", data.TaskID,
		"extracted", kb.Len(),
		"ingested", ingested,
	)

	if err := store.MarkTaskDone(ctx, data.TaskID, ingestionID); err != nil {
		logger.Error("[Queue] Failed to mark task done", "task_id", data.TaskID, "err", err)
		return err
	}

	logger.Info("[Queue] Extraction finished", "task_id", data.TaskID, "ingestion_id", ingestionID)
	return nil
}
