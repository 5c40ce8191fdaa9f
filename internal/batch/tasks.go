package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stocklink/stocklink/internal/domain"
	"github.com/stocklink/stocklink/internal/metrics"
	"github.com/stocklink/stocklink/internal/precache"
)

// chunkEntities splits a collection into groups bounded by both the element
// count and the marshaled payload size. An oversized single entity still
// gets its own chunk; the remote side rejects it per item, not per chunk.
func chunkEntities(entities []domain.Entity, chunkSize, maxBytes int) [][]domain.Entity {
	if len(entities) == 0 {
		return nil
	}

	var (
		chunks  [][]domain.Entity
		current []domain.Entity
		bytes   int
	)
	for i := range entities {
		size := entitySize(&entities[i])
		full := len(current) >= chunkSize || (len(current) > 0 && bytes+size > maxBytes)
		if full {
			chunks = append(chunks, current)
			current, bytes = nil, 0
		}
		current = append(current, entities[i])
		bytes += size
	}
	return append(chunks, current)
}

func entitySize(e *domain.Entity) int {
	raw, err := json.Marshal(e)
	if err != nil {
		return 0
	}
	return len(raw)
}

// createChunkJobs enqueues one job per chunk under the kind's payload key.
func (s *service) createChunkJobs(ctx context.Context, run *precache.Run, t domain.EntityType, entities []domain.Entity, priority int) (int, error) {
	chunks := chunkEntities(entities, s.chunkSize, s.maxBytes)

	for _, chunk := range chunks {
		payload, err := json.Marshal(domain.BatchPayload{Key: domain.PayloadKey(t), Entities: chunk})
		if err != nil {
			return 0, fmt.Errorf("failed to encode chunk payload: %w", err)
		}
		job := &domain.SyncJob{
			AccountID:  run.Parent.ID,
			LinkID:     run.Link.ID,
			EntityType: t,
			Operation:  domain.OperationBatchSync,
			Priority:   priority,
			Payload:    payload,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			return 0, fmt.Errorf("failed to enqueue chunk job: %w", err)
		}
		metrics.JobsEnqueued.WithLabelValues(domain.OperationBatchSync).Inc()
	}
	return len(chunks), nil
}
