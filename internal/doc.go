// Package internal holds identifier and secret generation helpers shared by
// the session store and the credential issuer. Nothing here is part of the
// public API.
package internal
