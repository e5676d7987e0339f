// Package token is the only place bearer credentials are minted or decoded.
// The [Issuer] derives signed access and refresh tokens from a session and
// validates them with a pinned algorithm, issuer, and audience; every
// verification failure collapses to [ErrInvalidToken] so callers cannot be
// used as a validity oracle. The [Blacklist] enforces revocation with a
// hard-bounded, fail-open store check.
package token
