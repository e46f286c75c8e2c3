package grant

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWT algorithm used for grants.
type SigningMethod string

const (
	// MethodEd25519 signs grants with EdDSA over Ed25519.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs grants with HMAC-SHA256.
	MethodHS256 SigningMethod = "hs256"
)

// DefaultTTL is the grant lifetime applied when Config.TTL is zero.
const DefaultTTL = 15 * time.Minute

var (
	// ErrInvalidGrant is returned for any grant that fails parsing or validation.
	ErrInvalidGrant = errors.New("invalid session grant")
	// ErrSigningUnavailable is returned by Issue when no signing key is configured.
	ErrSigningUnavailable = errors.New("grant signing key not configured")
)

// Config defines the grant signing and validation parameters.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Claims is the payload carried by a session grant.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email,omitempty"`
	SID   string `json:"sid"`
	MFA   bool   `json:"mfa"`
	jwt.RegisteredClaims
}

// Manager signs and parses grants.
//
// Manager is safe for concurrent use after construction.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a Manager.
//
// NewManager returns an error when the TTL, leeway or key material is unusable
// for the selected signing method.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid grant TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			priv, err := parseEdPrivateKey(cfg.PrivateKey)
			if err != nil {
				return nil, err
			}
			if len(cfg.PublicKey) == 0 && len(cfg.VerifyKeys) == 0 {
				cfg.PublicKey = priv.Public().(ed25519.PublicKey)
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg}, nil
}

// TTL returns the configured grant lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs a grant for uid and sid that expires TTL after now.
func (m *Manager) Issue(uid, email, sid string, now time.Time) (string, time.Time, error) {
	if uid == "" || sid == "" {
		return "", time.Time{}, errors.New("grant requires user and session id")
	}
	expires := now.Add(m.config.TTL)
	claims := Claims{
		UID:   uid,
		Email: email,
		SID:   sid,
		MFA:   true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(m.method(), claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signKey, err := m.signKey()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := token.SignedString(signKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign grant: %w", err)
	}
	return signed, expires, nil
}

// Parse verifies the signature and registered claims of tokenStr as of now.
//
// Every failure wraps ErrInvalidGrant.
func (m *Manager) Parse(tokenStr string, now time.Time) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method().Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, m.keyFunc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidGrant
	}
	if claims.UID == "" || claims.SID == "" || !claims.MFA {
		return nil, fmt.Errorf("%w: incomplete claims", ErrInvalidGrant)
	}
	if claims.IssuedAt != nil && claims.IssuedAt.Time.After(now.Add(m.config.MaxFutureIAT)) {
		return nil, fmt.Errorf("%w: iat too far in the future", ErrInvalidGrant)
	}

	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != m.method().Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(m.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return m.verifyKeyFromBytes(key)
	}

	if m.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != m.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return m.verifyKeyFromBytes(m.defaultVerifyBytes())
}

func (m *Manager) method() jwt.SigningMethod {
	if m.config.SigningMethod == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) signKey() (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey, nil
	}
	if len(m.config.PrivateKey) == 0 {
		return nil, ErrSigningUnavailable
	}
	return parseEdPrivateKey(m.config.PrivateKey)
}

func (m *Manager) defaultVerifyBytes() []byte {
	if m.config.SigningMethod == MethodHS256 {
		return m.config.PrivateKey
	}
	return m.config.PublicKey
}

func (m *Manager) verifyKeyFromBytes(key []byte) (interface{}, error) {
	if m.config.SigningMethod == MethodHS256 {
		return key, nil
	}
	return parseEdPublicKey(key)
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
