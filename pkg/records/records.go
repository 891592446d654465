package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relex/pkg/logger"
	"relex/pkg/rebel"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound reports a lookup that matched no stored document.
var ErrNotFound = errors.New("records: not found")

const (
	recordsCollection = "ingestion_logs"
	tasksCollection   = "extraction_tasks"

	// maxSampleRelations caps how many triples an ingestion record keeps.
	// The record is a sample for status inspection, not the system of
	// record; the graph is.
	maxSampleRelations = 10

	defaultTimeoutSec = 10
)

// IngestionRecord is the persisted sample of one document ingestion.
// Immutable after insert except for the post-hoc task id annotation.
type IngestionRecord struct {
	IngestionID string         `bson:"ingestion_id" json:"ingestion_id"`
	TaskID      string         `bson:"task_id,omitempty" json:"task_id,omitempty"`
	Relations   []rebel.Triple `bson:"relations" json:"relations"`
	CreatedAt   time.Time      `bson:"created_at" json:"created_at"`
}

// Store persists ingestion records and extraction task status in the
// document store.
type Store struct {
	client  *mongo.Client
	records *mongo.Collection
	tasks   *mongo.Collection
}

// NewStoreParams contains configuration for creating a Store.
type NewStoreParams struct {
	URL      string
	Database string

	TimeoutSec int
}

// NewStore connects to the document store and verifies the connection.
func NewStore(ctx context.Context, params NewStoreParams) (*Store, error) {
	timeoutSec := params.TimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = defaultTimeoutSec
	}

	cCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
	defer cancel()

	client, err := mongo.Connect(cCtx, options.Client().ApplyURI(params.URL))
	if err != nil {
		return nil, fmt.Errorf("records: connect: %w", err)
	}
	if err := client.Ping(cCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("records: ping: %w", err)
	}

	db := client.Database(params.Database)
	return &Store{
		client:  client,
		records: db.Collection(recordsCollection),
		tasks:   db.Collection(tasksCollection),
	}, nil
}

// Close disconnects from the document store.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// sampleRelations keeps the first maxSampleRelations triples in order.
func sampleRelations(relations []rebel.Triple) []rebel.Triple {
	if len(relations) > maxSampleRelations {
		return relations[:maxSampleRelations]
	}
	return relations
}

// PushSampleRelations inserts a new ingestion record with a fresh ingestion
// id and a capped sample of the extracted triples, and returns the id.
func (s *Store) PushSampleRelations(ctx context.Context, relations []rebel.Triple) (string, error) {
	record := IngestionRecord{
		IngestionID: uuid.NewString(),
		Relations:   sampleRelations(relations),
		CreatedAt:   time.Now().UTC(),
	}

	if _, err := s.records.InsertOne(ctx, record); err != nil {
		return "", fmt.Errorf("records: insert ingestion record: %w", err)
	}

	logger.Info("[Records] Sample relations logged", "ingestion_id", record.IngestionID, "relations", len(record.Relations))
	return record.IngestionID, nil
}

// GetByTaskID returns the ingestion record annotated with the given task id.
func (s *Store) GetByTaskID(ctx context.Context, taskID string) (*IngestionRecord, error) {
	var record IngestionRecord
	err := s.records.FindOne(ctx, bson.M{"task_id": taskID}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("records: find by task id: %w", err)
	}
	return &record, nil
}

// AttachTaskID annotates an existing ingestion record with the task id that
// produced it. A zero matched count means the record does not exist and is
// reported as ErrNotFound.
func (s *Store) AttachTaskID(ctx context.Context, ingestionID, taskID string) error {
	res, err := s.records.UpdateOne(
		ctx,
		bson.M{"ingestion_id": ingestionID},
		bson.M{"$set": bson.M{"task_id": taskID}},
	)
	if err != nil {
		return fmt.Errorf("records: attach task id: %w", err)
	}
	if res.MatchedCount == 0 {
		logger.Error("[Records] No ingestion record to annotate", "ingestion_id", ingestionID, "task_id", taskID)
		return ErrNotFound
	}

	logger.Info("[Records] Task id attached", "ingestion_id", ingestionID, "task_id", taskID)
	return nil
}
