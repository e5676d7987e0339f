package authcore

import "errors"

// ErrUnauthorized is the single outcome for every rejected credential:
// malformed, expired, revoked, wrong type, unknown user, or disabled user.
// Collapsing the causes keeps the engine from acting as a validity oracle.
var ErrUnauthorized = errors.New("unauthorized")
