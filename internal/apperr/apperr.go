// Package apperr defines the error taxonomy shared by the stores, the
// workflow façade and the HTTP handlers.
package apperr

import "errors"

// Sentinel errors for handlers to map to HTTP status. Callers wrap these
// with fmt.Errorf("...: %w", ...) and match with errors.Is.
var (
	// ErrValidation marks malformed or empty input; the caller must correct
	// the input, the operation is never retried automatically.
	ErrValidation = errors.New("invalid input")

	// ErrPermission marks a role or project-scope violation. Never retried.
	ErrPermission = errors.New("operation not permitted")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUpload marks a failed attachment transfer; the caller may retry
	// the create without the attachment or with a fresh upload.
	ErrUpload = errors.New("upload failed")

	// ErrStorageUnavailable marks an unreachable persistence collaborator.
	// Transient; the whole operation is safe to retry.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
