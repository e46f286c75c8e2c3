package goCred

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/grant"
	"github.com/MrEthical07/goCred/internal/otp"
	"github.com/MrEthical07/goCred/internal/reset"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/policy"
)

// Config holds every tunable of the Engine.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	PasswordAge   policy.AgeConfig
	Lockout       policy.LockoutConfig
	History       policy.HistoryConfig
	Strength      policy.StrengthConfig
	Password      PasswordConfig
	OTP           OTPConfig
	PasswordReset PasswordResetConfig
	Codec         CodecConfig
	Grant         GrantConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig sets the default Argon2id hasher parameters. It is ignored
// when a Hasher is supplied through the Builder.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
	// AcceptIdentityHashes verifies PBKDF2 hashes imported from ASP.NET
	// Identity. With UpgradeOnLogin they are replaced on the next login.
	AcceptIdentityHashes bool
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls second-factor challenges.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	RedisPrefix string
}

/*
====================================
PASSWORD RESET CONFIG
====================================
*/

// PasswordResetConfig controls reset tokens and request throttling. The
// throttle is active only when the Engine has a Redis client.
type PasswordResetConfig struct {
	TokenTTL                 time.Duration
	EnableIdentifierThrottle bool
	EnableIPThrottle         bool
	MaxRequests              int
	Window                   time.Duration
}

/*
====================================
CODEC CONFIG
====================================
*/

// CodecConfig carries the static key for protected fields. An empty key
// disables protected fields.
type CodecConfig struct {
	Key []byte
}

/*
====================================
GRANT CONFIG
====================================
*/

// GrantConfig controls the signed session grant issued after a completed
// login.
type GrantConfig struct {
	Enabled bool
	grant.Config
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls async audit delivery.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

/*
====================================
DEFAULTS
====================================
*/

func defaultConfig() Config {
	hasher := password.DefaultConfig()
	return Config{
		PasswordAge: policy.DefaultAgeConfig(),
		Lockout:     policy.DefaultLockoutConfig(),
		History:     policy.HistoryConfig{Depth: policy.DefaultHistoryDepth},
		Strength:    policy.DefaultStrengthConfig(),
		Password: PasswordConfig{
			Memory:         hasher.Memory,
			Time:           hasher.Time,
			Parallelism:    hasher.Parallelism,
			SaltLength:     hasher.SaltLength,
			KeyLength:      hasher.KeyLength,
			UpgradeOnLogin: true,
		},
		OTP: OTPConfig{
			TTL:         otp.DefaultTTL,
			MaxAttempts: 5,
			RedisPrefix: "cotp",
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL:                 reset.DefaultTTL,
			EnableIdentifierThrottle: true,
			EnableIPThrottle:         true,
			MaxRequests:              5,
			Window:                   15 * time.Minute,
		},
		Grant: GrantConfig{
			Enabled: false,
			Config: grant.Config{
				TTL:           grant.DefaultTTL,
				SigningMethod: grant.MethodEd25519,
				Issuer:        "gocred",
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Namespace: "gocred",
		},
	}
}

// DefaultConfig returns the production defaults: 1 minute minimum age, 90 day
// maximum age with a 14 day warning window, lockout after 5 failures for 3
// minutes, 2 remembered passwords, 5 minute codes and 30 minute reset tokens.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Codec.Key = cloneBytes(cfg.Codec.Key)
	out.Grant.PrivateKey = cloneBytes(cfg.Grant.PrivateKey)
	out.Grant.PublicKey = cloneBytes(cfg.Grant.PublicKey)
	if cfg.Grant.VerifyKeys != nil {
		out.Grant.VerifyKeys = make(map[string][]byte, len(cfg.Grant.VerifyKeys))
		for kid, key := range cfg.Grant.VerifyKeys {
			out.Grant.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if err := c.PasswordAge.Validate(); err != nil {
		return err
	}
	if err := c.Lockout.Validate(); err != nil {
		return err
	}
	if err := c.History.Validate(); err != nil {
		return err
	}
	if err := c.Strength.Validate(); err != nil {
		return err
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// OTP
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxAttempts < 0 {
		return errors.New("OTP MaxAttempts must be >= 0")
	}
	if strings.TrimSpace(c.OTP.RedisPrefix) == "" {
		return errors.New("OTP RedisPrefix must not be empty")
	}

	// Password Reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.PasswordReset.EnableIdentifierThrottle || c.PasswordReset.EnableIPThrottle {
		if c.PasswordReset.MaxRequests <= 0 {
			return errors.New("PasswordReset MaxRequests must be > 0 when throttling is enabled")
		}
		if c.PasswordReset.Window <= 0 {
			return errors.New("PasswordReset Window must be > 0 when throttling is enabled")
		}
	}

	// Codec
	switch len(c.Codec.Key) {
	case 0, 16, 24, 32:
	default:
		return errors.New("Codec Key must be 16, 24 or 32 bytes")
	}

	// Grant
	if c.Grant.Enabled {
		if c.Grant.SigningMethod != grant.MethodEd25519 && c.Grant.SigningMethod != grant.MethodHS256 {
			return errors.New("unsupported Grant signing method")
		}
		if len(c.Grant.PrivateKey) == 0 {
			return errors.New("Grant requires PrivateKey")
		}
		if c.Grant.TTL < 0 {
			return errors.New("Grant TTL must be >= 0")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0")
	}

	return nil
}
