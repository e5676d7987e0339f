// Package session provides Redis-backed session persistence for the portal:
// creation, validation with opportunistic activity refresh, destruction,
// per-user enumeration, refresh-credential pointers, and aggregate
// statistics maintained as O(1) counters rather than scans.
//
// # Binary encoding
//
// Sessions are stored as a compact versioned binary blob. The encoder is
// append-only: new versions add fields but never reinterpret old ones.
//
// # Expiry policy
//
// Activity refresh preserves the session's remaining TTL instead of
// re-applying the full window. A session created with an N-hour window dies
// at most N hours after login no matter how active it is; renewal happens
// through the refresh credential, not through request traffic.
//
// # Architecture boundaries
//
// This package owns the [Store] and the [Session] model. It does not sign or
// parse bearer tokens and it does not look up user records; both belong to
// the engine layer.
package session
