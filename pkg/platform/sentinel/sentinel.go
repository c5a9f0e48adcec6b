package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the ledger state layer
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: record does not exist in the store
// - ErrConflict: record already exists under that key
// - ErrInvalidState: record is in the wrong state for the requested transition
// - ErrUnavailable: backing resource temporarily unavailable
//
// For caller-input problems use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
