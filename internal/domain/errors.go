package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	ErrMsgAccountNotFound  = "account not found"
	ErrMsgLinkNotFound     = "account link not found"
	ErrMsgSettingsNotFound = "sync settings not found"
	ErrMsgMappingNotFound  = "mapping not found"
	ErrMsgMappingConflict  = "mapping already exists"
	ErrMsgJobNotFound      = "job not found"
	ErrMsgQueueEmpty       = "queue is empty"
	ErrMsgInvalidFilter    = "invalid filter definition"
	ErrMsgInvalidInput     = "invalid input"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	ErrAccountNotFound  = errors.New(ErrMsgAccountNotFound)
	ErrLinkNotFound     = errors.New(ErrMsgLinkNotFound)
	ErrSettingsNotFound = errors.New(ErrMsgSettingsNotFound)

	// ErrMappingNotFound is the store's not-found result. Resolvers translate
	// it into a Resolution, never surface it to callers directly.
	ErrMappingNotFound = errors.New(ErrMsgMappingNotFound)

	// ErrMappingConflict means an insert lost the insert-if-absent race.
	// The winning row must be re-read; this is not a failure condition.
	ErrMappingConflict = errors.New(ErrMsgMappingConflict)

	ErrJobNotFound = errors.New(ErrMsgJobNotFound)
	ErrQueueEmpty  = errors.New(ErrMsgQueueEmpty)

	ErrInvalidFilter = errors.New(ErrMsgInvalidFilter)
	ErrInvalidInput  = errors.New(ErrMsgInvalidInput)
)
