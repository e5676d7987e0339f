package authcore

import (
	"context"

	"github.com/eduportal/authcore/session"
)

// UserRecord is the slice of the portal's user row the engine needs. The
// relational layer computes roles and permissions; the engine only carries
// them.
type UserRecord struct {
	ID            string
	Email         string
	Name          string
	Role          string
	InstitutionID string
	Permissions   []string
	Disabled      bool
}

// UserProvider looks up user records for credential validation. Implemented
// by the portal's data layer.
type UserProvider interface {
	FindByID(ctx context.Context, userID string) (*UserRecord, error)
}

// ClientInfo is the request metadata captured at login.
type ClientInfo = session.ClientInfo

// TokenPair is the result of a successful login or refresh. SessionID and
// RefreshToken are empty when the engine ran in degraded mode (session store
// unreachable at login).
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// AuthResult is the decoded identity attached to an authenticated request.
type AuthResult struct {
	UserID        string
	Email         string
	Name          string
	Role          string
	InstitutionID string
	Permissions   []string
	SessionID     string
}
