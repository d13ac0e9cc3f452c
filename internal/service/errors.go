package service

import "errors"

// Sentinel errors surfaced to the HTTP layer
var (
	// ErrValidation marks caller input that is rejected before the pipeline starts
	ErrValidation = errors.New("invalid request")

	// ErrRetrievalUnavailable marks embedding or index failures; fatal to the request
	ErrRetrievalUnavailable = errors.New("retrieval service unavailable")

	// ErrNotFound marks a car id that is not in the index
	ErrNotFound = errors.New("not found")

	// ErrFeedbackDisabled is returned when no search log store is configured
	ErrFeedbackDisabled = errors.New("feedback storage is not configured")
)
