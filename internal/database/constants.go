package database

import "time"

// Pool defaults
const (
	DefaultMinConnections = 2
	DefaultMaxConnections = 10

	// connectPingTimeout bounds the startup liveness check; a database that
	// cannot answer in this window should fail the boot, not hang it.
	connectPingTimeout = 5 * time.Second
)

// Error messages
const (
	ErrMsgFailedToParseConnString = "failed to parse connection string"
	ErrMsgFailedToCreatePool      = "failed to create connection pool"
	ErrMsgFailedToPingDatabase    = "failed to ping database"
)

// Log messages
const (
	LogMsgConnectedToDatabase = "Successfully connected to database"
	LogMsgMigrationsApplied   = "Database migrations applied"
)
