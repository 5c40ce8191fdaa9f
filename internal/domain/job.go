package domain

import (
	"encoding/json"
	"time"
)

// JobStatus is the lifecycle state of a queued sync job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job operations understood by the executor.
const (
	OperationBatchSync  = "batch_sync"
	OperationEntitySync = "entity_sync"
	OperationFolderSync = "folder_sync"
)

// Job priorities. Lower value dequeues first.
const (
	PriorityManual  = 10 // operator-triggered batch work
	PriorityWebhook = 5  // single-entity change fan-out
	PriorityRetry   = 20 // per-item retries after a partial batch failure
)

// SyncJob is one unit of queued work. Batch jobs carry a chunk of prepared
// entities in Payload; single-entity jobs carry EntityID instead.
type SyncJob struct {
	ID          string          `json:"id" db:"id"`
	AccountID   string          `json:"account_id" db:"account_id"`
	LinkID      string          `json:"link_id" db:"link_id"`
	EntityType  EntityType      `json:"entity_type" db:"entity_type"`
	EntityID    string          `json:"entity_id,omitempty" db:"entity_id"`
	Operation   string          `json:"operation" db:"operation"`
	Priority    int             `json:"priority" db:"priority"`
	ScheduledAt time.Time       `json:"scheduled_at" db:"scheduled_at"`
	Status      JobStatus       `json:"status" db:"status"`
	Attempts    int             `json:"attempts" db:"attempts"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"payload"`
	LastError   string          `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// BatchPayload is the payload of a chunk job: the entities of one chunk
// keyed by the entity kind they belong to.
type BatchPayload struct {
	// Key names the entity kind the chunk carries, e.g. "products".
	Key      string   `json:"key"`
	Entities []Entity `json:"entities"`
}

// PayloadKey returns the payload key batch jobs use for an entity kind.
func PayloadKey(t EntityType) string {
	return string(t) + "s"
}

// BatchReport summarizes one executed chunk. Partial success is the norm:
// the executor reports per-item counts instead of failing the whole chunk.
type BatchReport struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Retried   int `json:"retried"`
}
