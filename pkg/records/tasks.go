package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TaskStatus is the lifecycle state of one extraction task.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
	TaskFailed     TaskStatus = "FAILED"
)

// Task tracks one queued extraction job. The worker moves it through
// PENDING → IN_PROGRESS → DONE/FAILED; DONE carries the ingestion id of the
// record the run produced.
type Task struct {
	TaskID      string     `bson:"task_id" json:"task_id"`
	Status      TaskStatus `bson:"status" json:"status"`
	IngestionID string     `bson:"ingestion_id,omitempty" json:"ingestion_id,omitempty"`
	Error       string     `bson:"error,omitempty" json:"error,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// CreateTask inserts a new task in PENDING state.
func (s *Store) CreateTask(ctx context.Context, taskID string) error {
	now := time.Now().UTC()
	task := Task{
		TaskID:    taskID,
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.tasks.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("records: create task: %w", err)
	}
	return nil
}

// GetTask returns the task with the given id.
func (s *Store) GetTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	err := s.tasks.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&task)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("records: get task: %w", err)
	}
	return &task, nil
}

func (s *Store) updateTask(ctx context.Context, taskID string, set bson.M) error {
	set["updated_at"] = time.Now().UTC()
	res, err := s.tasks.UpdateOne(ctx, bson.M{"task_id": taskID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("records: update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkTaskInProgress transitions a task to IN_PROGRESS.
func (s *Store) MarkTaskInProgress(ctx context.Context, taskID string) error {
	return s.updateTask(ctx, taskID, bson.M{"status": TaskInProgress})
}

// MarkTaskDone transitions a task to DONE and stores the ingestion id it
// produced.
func (s *Store) MarkTaskDone(ctx context.Context, taskID, ingestionID string) error {
	return s.updateTask(ctx, taskID, bson.M{
		"status":       TaskDone,
		"ingestion_id": ingestionID,
	})
}

// MarkTaskFailed transitions a task to FAILED with the failure message.
func (s *Store) MarkTaskFailed(ctx context.Context, taskID, message string) error {
	return s.updateTask(ctx, taskID, bson.M{
		"status": TaskFailed,
		"error":  message,
	})
}
