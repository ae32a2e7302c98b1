package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Library errors
	ErrCodeWordNotFound       = "word_not_found"
	ErrCodeInvalidHighlight   = "invalid_highlight"
	ErrCodeEmptyLibrary       = "empty_library"
	ErrCodeMalformedDocument  = "malformed_document"
	ErrCodeNoRecoverableWords = "no_recoverable_words"
	ErrCodeLibraryBusy        = "library_busy"
	ErrCodeImportTooLarge     = "import_too_large"
	ErrCodeAudioDecodeFailed  = "audio_decode_failed"
	ErrCodeArchiveStoreFailed = "archive_store_failed"
	ErrCodeArchiveFetchFailed = "archive_fetch_failed"

	// Lesson plan errors
	ErrCodeEmptyPlan             = "empty_plan"
	ErrCodeExerciseNotFound      = "exercise_not_found"
	ErrCodeUnknownExerciseType   = "unknown_exercise_type"
	ErrCodeExercisesWithoutWords = "exercises_without_words"

	// Lesson session errors
	ErrCodeLessonStartFailed = "lesson_start_failed"
	ErrCodeSessionNotFound   = "session_not_found"
	ErrCodeLessonDone        = "lesson_done"
	ErrCodeTurnOutOfOrder    = "turn_out_of_order"
	ErrCodeInvalidTicket     = "invalid_ticket"
	ErrCodeTicketExpired     = "ticket_expired"
	ErrCodeResultStoreFailed = "result_store_failed"
	ErrCodeScoreboardFailed  = "scoreboard_fetch_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
