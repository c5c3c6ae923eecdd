package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, backends and clients return
// these (optionally wrapped) so services can translate them into domain errors:
//   - ErrNotFound: key or record does not exist
//   - ErrConflict: concurrent writer won
//   - ErrInvalidState: operation or entity in the wrong phase
//   - ErrUnavailable: backend or upstream temporarily unreachable
//   - ErrClosed: component already shut down
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrClosed       = errors.New("closed")
)
