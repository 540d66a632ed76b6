package domain

import "errors"

// Error kinds returned by the catalog core. Callers match them with errors.Is;
// the concrete error usually wraps the kind together with its cause.
var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrConflict               = errors.New("conflict")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrTimeout                = errors.New("store timeout")
	ErrAggregateInconsistency = errors.New("rating aggregate not updated")
	ErrInvalidCredentials     = errors.New("invalid username or password")
	ErrCanceled               = errors.New("request canceled")
)
