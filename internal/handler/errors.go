package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants.
const (
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	ErrMsgMissingQueryParam = "Missing %s query parameter"

	ErrMsgGenericServerError = "Something went wrong"

	ErrMsgAccountNotFoundHTTP  = "Account not found"
	ErrMsgLinkNotFoundHTTP     = "Account link not found"
	ErrMsgSettingsNotFoundHTTP = "Sync settings not found for this link"
	ErrMsgInvalidEntityType    = "Unknown entity type"
	ErrMsgInvalidFilterHTTP    = "Invalid filter definition"

	ErrMsgTriggerBatchFailed   = "Failed to trigger batch synchronization"
	ErrMsgTriggerEntityFailed  = "Failed to trigger entity synchronization"
	ErrMsgSaveSettingsFailed   = "Failed to save sync settings"
	ErrMsgDeleteSettingsFailed = "Failed to delete sync settings"
	ErrMsgListSettingsFailed   = "Failed to list sync settings"
	ErrMsgQueueStatsFailed     = "Failed to read queue statistics"
)

// Success messages for API responses.
const (
	MsgSettingsSavedSuccess   = "Sync settings saved"
	MsgSettingsDeletedSuccess = "Sync settings deleted"
)
