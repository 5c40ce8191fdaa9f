package config

import "time"

// Sync engine defaults. Page and chunk limits track the remote API's
// documented request bounds.
const (
	DefaultPageSize      = 1000
	DefaultChunkSize     = 100
	DefaultChunkMaxBytes = 5 << 20 // remote bulk endpoints cap request bodies at 5MB

	DefaultWorkers          = 4
	DefaultFanoutDelay      = 5 * time.Second
	DefaultQueuePollPeriod  = 2 * time.Second
	DefaultRetentionWindow  = 7 * 24 * time.Hour
	DefaultRetentionPeriod  = time.Hour
	DefaultMetadataCacheTTL = 10 * time.Minute
)
