package token

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is the single outcome for every verification failure:
// bad signature, expiry, issuer, audience, or type discriminator.
var ErrInvalidToken = errors.New("invalid token")

// SigningMethod selects the JWT algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA key pairs.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with a shared HMAC secret.
	MethodHS256 SigningMethod = "hs256"
)

// Token type discriminators embedded in the typ claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Config fixes the signing material and token windows. Key material, issuer,
// and audience come from deployment configuration, never computed here.
type Config struct {
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Leeway        time.Duration
}

// Claims is the decoded token payload. Subject carries the user ID.
type Claims struct {
	Email         string   `json:"email,omitempty"`
	Name          string   `json:"name,omitempty"`
	Role          string   `json:"role,omitempty"`
	InstitutionID string   `json:"inst,omitempty"`
	Permissions   []string `json:"perms,omitempty"`
	SessionID     string   `json:"sid,omitempty"`
	TokenType     string   `json:"typ"`
	jwt.RegisteredClaims
}

// Issuer mints and verifies signed credentials. Immutable after construction.
type Issuer struct {
	config Config
}

// NewIssuer validates the signing configuration up front so a misconfigured
// deployment fails at startup, not on the first login.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = time.Hour
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Issuer{config: cfg}, nil
}

// AccessParams carries the session payload embedded in an access credential.
type AccessParams struct {
	UserID        string
	Email         string
	Name          string
	Role          string
	InstitutionID string
	Permissions   []string
	SessionID     string
}

// IssueAccess mints a short-lived access credential. The role name is
// uppercased in the claim set.
func (i *Issuer) IssueAccess(p AccessParams) (string, error) {
	return i.sign(Claims{
		Email:         p.Email,
		Name:          p.Name,
		Role:          strings.ToUpper(p.Role),
		InstitutionID: p.InstitutionID,
		Permissions:   p.Permissions,
		SessionID:     p.SessionID,
		TokenType:     TypeAccess,
	}, p.UserID, uuid.NewString(), i.config.AccessTTL)
}

// IssueRefresh mints a long-lived refresh credential. credentialID becomes
// the jti claim and keys the store-side refresh pointer; when empty a random
// one is generated.
func (i *Issuer) IssueRefresh(userID, sessionID, credentialID string) (string, error) {
	if credentialID == "" {
		credentialID = uuid.NewString()
	}
	return i.sign(Claims{
		SessionID: sessionID,
		TokenType: TypeRefresh,
	}, userID, credentialID, i.config.RefreshTTL)
}

func (i *Issuer) sign(claims Claims, subject, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    i.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        jti,
	}
	if i.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.config.Audience}
	}

	signKey, err := i.signKey()
	if err != nil {
		return "", err
	}

	return jwt.NewWithClaims(i.method(), claims).SignedString(signKey)
}

// ParseAccess verifies an access credential and returns its claims.
func (i *Issuer) ParseAccess(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, TypeAccess)
}

// ParseRefresh verifies a refresh credential and returns its claims.
func (i *Issuer) ParseRefresh(tokenStr string) (*Claims, error) {
	return i.parse(tokenStr, TypeRefresh)
}

func (i *Issuer) parse(tokenStr, wantType string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.method().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}
	if i.config.Audience != "" {
		options = append(options, jwt.WithAudience(i.config.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.method().Alg() {
			return nil, ErrInvalidToken
		}
		return i.verifyKey()
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != wantType {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// DecodeUnverified extracts claims without checking the signature. Used by
// revocation, where an expiring or borderline-invalid credential must still
// be revocable, and by logout to find the embedded session.
func DecodeUnverified(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) method() jwt.SigningMethod {
	switch i.config.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (i *Issuer) signKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return i.config.PrivateKey, nil
	default:
		return parseEdPrivateKey(i.config.PrivateKey)
	}
}

func (i *Issuer) verifyKey() (interface{}, error) {
	switch i.config.SigningMethod {
	case MethodHS256:
		return i.config.PrivateKey, nil
	default:
		return parseEdPublicKey(i.config.PublicKey)
	}
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
