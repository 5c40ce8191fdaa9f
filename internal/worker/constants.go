package worker

import "time"

const (
	// maxAttempts bounds how often one job may be deferred by backpressure.
	// Dequeue increments the attempt counter, so a job seen with
	// Attempts >= maxAttempts is on its last try.
	maxAttempts = 5

	defaultPollPeriod = 2 * time.Second
	defaultRetryDelay = 30 * time.Second
)

// endpointFolder duplicates the folder collection path here so folder_sync
// jobs can fetch the parent folder without reaching into the syncer package.
const endpointFolder = "entity/productfolder"

// Log messages asserted by tests.
const (
	LogMsgJobCompleted = "sync job completed"
	LogMsgJobFailed    = "sync job failed"
	LogMsgJobDeferred  = "sync job deferred by rate limit"
)
