package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SessionID is a 128-bit random session identifier. The string form is
// base64url without padding, 22 characters.
type SessionID [16]byte

const refreshValueRawSize = 32

// NewSessionID returns a fresh identifier from crypto/rand.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes the string form produced by [SessionID.String].
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// NewRefreshValue returns a 256-bit opaque refresh credential value,
// base64url encoded. Only its hash is ever written to the store.
func NewRefreshValue() (string, error) {
	var raw [refreshValueRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashValue maps an opaque credential value to its storage key material.
func HashValue(v string) [32]byte {
	return sha256.Sum256([]byte(v))
}

// EncodeHash renders hash bytes as a compact key segment.
func EncodeHash(h [32]byte) string {
	return base64.RawURLEncoding.EncodeToString(h[:])
}
