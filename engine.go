package authcore

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/eduportal/authcore/metrics"
	"github.com/eduportal/authcore/session"
	"github.com/eduportal/authcore/token"
)

// Engine ties the session store, the credential issuer, and the revocation
// list into the portal's login/validate/refresh/logout flows. Safe for
// concurrent use; no failure in this engine is fatal to the caller's
// process, every path degrades instead.
type Engine struct {
	config    Config
	sessions  *session.Store
	tokens    *token.Issuer
	blacklist *token.Blacklist
	users     UserProvider
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

// Login creates a session for an already-authenticated user and mints the
// credential pair. Session creation is best-effort: if the store is
// unreachable the engine logs a warning and returns an access credential
// with empty session and refresh values, so sign-in survives a Redis outage
// in degraded mode.
func (e *Engine) Login(ctx context.Context, user UserRecord, client ClientInfo, extended bool) (*TokenPair, error) {
	if user.Disabled {
		return nil, ErrUnauthorized
	}

	var sessionID, refreshValue string
	created, err := e.sessions.Create(ctx, session.User{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		InstitutionID: user.InstitutionID,
		Permissions:   user.Permissions,
	}, client, extended)
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).
			Msg("session creation failed, continuing without session")
	} else {
		sessionID = created.SessionID
		refreshValue = created.RefreshValue
		e.metrics.SessionCreated()
	}

	access, err := e.tokens.IssueAccess(token.AccessParams{
		UserID:        user.ID,
		Email:         user.Email,
		Name:          user.Name,
		Role:          user.Role,
		InstitutionID: user.InstitutionID,
		Permissions:   user.Permissions,
		SessionID:     sessionID,
	})
	if err != nil {
		return nil, err
	}
	e.metrics.TokenIssued(token.TypeAccess)

	pair := &TokenPair{AccessToken: access, SessionID: sessionID}
	if sessionID != "" {
		refresh, err := e.tokens.IssueRefresh(user.ID, sessionID, refreshValue)
		if err != nil {
			return nil, err
		}
		e.metrics.TokenIssued(token.TypeRefresh)
		pair.RefreshToken = refresh
	}

	return pair, nil
}

// Authenticate validates an access credential for one request: signature and
// claims, revocation list (fail-open), and a user-record check so disabled
// or deleted accounts lose access before their tokens expire. Session
// activity is refreshed opportunistically; a missing session does not fail
// the request, the credential stands on its own until expiry.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AuthResult, error) {
	claims, err := e.tokens.ParseAccess(accessToken)
	if err != nil {
		e.metrics.TokenValidation(metrics.ResultInvalid)
		return nil, ErrUnauthorized
	}

	if e.blacklist.IsRevoked(ctx, accessToken) {
		e.metrics.TokenValidation(metrics.ResultRevoked)
		return nil, ErrUnauthorized
	}

	user, err := e.users.FindByID(ctx, claims.Subject)
	if err != nil || user == nil || user.Disabled {
		e.metrics.TokenValidation(metrics.ResultInvalid)
		return nil, ErrUnauthorized
	}

	if claims.SessionID != "" {
		if _, touchErr := e.sessions.Validate(ctx, claims.SessionID); touchErr != nil &&
			!errors.Is(touchErr, session.ErrSessionNotFound) {
			e.logger.Debug().Err(touchErr).Str("session_id", claims.SessionID).
				Msg("session activity refresh failed")
		}
	}

	e.metrics.TokenValidation(metrics.ResultOK)
	return &AuthResult{
		UserID:        claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Role:          claims.Role,
		InstitutionID: claims.InstitutionID,
		Permissions:   claims.Permissions,
		SessionID:     claims.SessionID,
	}, nil
}

// Refresh exchanges a refresh credential for a new pair, rotating the
// store-side pointer so each refresh value is consumable exactly once. Every
// rejection collapses to [ErrUnauthorized].
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := e.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	sessionID, nextValue, err := e.sessions.RotateRefresh(ctx, claims.ID)
	if err != nil {
		e.logger.Debug().Err(err).Msg("refresh rotation rejected")
		return nil, ErrUnauthorized
	}
	if claims.SessionID != "" && claims.SessionID != sessionID {
		return nil, ErrUnauthorized
	}

	sess, err := e.sessions.Validate(ctx, sessionID)
	if err != nil {
		return nil, ErrUnauthorized
	}

	access, err := e.tokens.IssueAccess(token.AccessParams{
		UserID:        sess.UserID,
		Email:         sess.Email,
		Name:          sess.Name,
		Role:          sess.Role,
		InstitutionID: sess.InstitutionID,
		Permissions:   sess.Permissions,
		SessionID:     sessionID,
	})
	if err != nil {
		return nil, err
	}
	refresh, err := e.tokens.IssueRefresh(sess.UserID, sessionID, nextValue)
	if err != nil {
		return nil, err
	}
	e.metrics.TokenIssued(token.TypeAccess)
	e.metrics.TokenIssued(token.TypeRefresh)

	return &TokenPair{AccessToken: access, RefreshToken: refresh, SessionID: sessionID}, nil
}

// Logout revokes the presented access credential and destroys its session.
// The token is decoded without signature verification so a borderline or
// expiring credential can still be logged out; store failures are logged and
// swallowed, logout never blocks the user.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	claims, err := token.DecodeUnverified(accessToken)
	if err != nil {
		return ErrUnauthorized
	}

	if err := e.blacklist.Revoke(ctx, accessToken); err != nil {
		e.logger.Warn().Err(err).Msg("revocation write failed")
	} else {
		e.metrics.Revoked()
	}

	if claims.SessionID != "" {
		destroyed, err := e.sessions.Destroy(ctx, claims.SessionID)
		if err != nil {
			e.logger.Warn().Err(err).Str("session_id", claims.SessionID).
				Msg("session destroy failed")
		} else if destroyed {
			e.metrics.SessionsDestroyed(1)
		}
	}

	return nil
}

// LogoutAll destroys every session the user owns and returns the count.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	count, err := e.sessions.DestroyAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	e.metrics.SessionsDestroyed(count)
	return count, nil
}

// ListSessions enumerates a user's live sessions, most recently active first.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]session.Summary, error) {
	return e.sessions.ListForUser(ctx, userID)
}

// Statistics returns the aggregate session snapshot. Advisory: a store
// failure yields a zeroed snapshot, never an error.
func (e *Engine) Statistics(ctx context.Context) session.Stats {
	stats := e.sessions.Statistics(ctx)
	e.metrics.ObserveActiveSessions(stats.TotalSessions)
	return stats
}

// SweepExpired runs the defensive expiry sweep. Maintenance path; see
// [session.Store.SweepExpired].
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	destroyed, err := e.sessions.SweepExpired(ctx)
	e.metrics.SessionsDestroyed(destroyed)
	return destroyed, err
}

// ReconcileCounters re-derives the device counters from live sessions.
// Maintenance path; see [session.Store.ReconcileCounters].
func (e *Engine) ReconcileCounters(ctx context.Context) error {
	return e.sessions.ReconcileCounters(ctx)
}
