package authcore

import (
	"errors"
	"time"

	"github.com/eduportal/authcore/session"
	"github.com/eduportal/authcore/token"
)

// Config bundles the engine's tuning knobs. Zero values fall back to the
// defaults documented on each field.
type Config struct {
	// RedisPrefix namespaces every key the engine writes (default "ac").
	RedisPrefix string

	// JWT fixes signing material, issuer, audience, and token windows.
	JWT token.Config

	// Session controls session lifetimes and the statistics cache.
	Session session.Config

	// RevocationCheckTimeout bounds each revocation lookup; past it the
	// check fails open (default 5s).
	RevocationCheckTimeout time.Duration
}

func defaultConfig() Config {
	return Config{
		RedisPrefix: "ac",
		JWT: token.Config{
			SigningMethod: token.MethodHS256,
			AccessTTL:     time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
		},
		Session: session.Config{
			TTL:         24 * time.Hour,
			ExtendedTTL: 30 * 24 * time.Hour,
			StatsTTL:    30 * time.Second,
		},
		RevocationCheckTimeout: 5 * time.Second,
	}
}

func (c Config) validate() error {
	if c.RevocationCheckTimeout < 0 {
		return errors.New("revocation check timeout must not be negative")
	}
	if c.Session.TTL < 0 || c.Session.ExtendedTTL < 0 || c.Session.StatsTTL < 0 {
		return errors.New("session windows must not be negative")
	}
	return nil
}
