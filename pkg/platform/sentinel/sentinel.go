package sentinel

import "errors"

// Sentinel errors for infrastructure facts. The document store and the
// identity service return these (optionally wrapped) so services can
// translate them into domain errors:
//   - ErrNotFound: document or credential does not exist
//   - ErrConflict: a unique key (credential email) is already taken
//   - ErrUnavailable: backing service temporarily unavailable
//   - ErrInvalidCredentials: email/password pair did not match
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrUnavailable        = errors.New("unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
