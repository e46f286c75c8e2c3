package password

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes bounds the plaintext fed to Argon2 when
// Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned by Hash for an empty plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when the plaintext exceeds MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrUnknownHashFormat is returned for hashes in no accepted format.
	ErrUnknownHashFormat = errors.New("unknown password hash format")
)

// Config holds the Argon2id cost parameters used for new hashes.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	MaxPasswordBytes int
	// AcceptIdentityHashes lets Verify check PBKDF2 hashes imported from an
	// ASP.NET Identity user table. Such hashes always report NeedsUpgrade.
	AcceptIdentityHashes bool
}

// DefaultConfig returns the parameters recommended for interactive logins:
// 64 MiB, three passes, two lanes.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minMemoryKB:
		return fmt.Errorf("password memory must be >= %d KB", minMemoryKB)
	case c.Time < 1:
		return errors.New("password time must be >= 1")
	case c.Parallelism < 1:
		return errors.New("password parallelism must be >= 1")
	case c.SaltLength < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case c.KeyLength < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	case c.MaxPasswordBytes < 0:
		return errors.New("password max bytes must be >= 0")
	}
	return nil
}

// Argon2 hashes passwords with Argon2id and verifies them. It is safe for
// concurrent use.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// Hash derives a new PHC-encoded hash with a fresh random salt. Plaintext is
// used byte for byte with no Unicode normalization. Composition rules are
// enforced by the caller.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	h := phcHash{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        salt,
	}
	h.key = h.derive(password, a.config.KeyLength)
	return h.String(), nil
}

// Verify reports whether password matches encodedHash. A malformed hash is
// an error, never a match.
func (a *Argon2) Verify(password, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	if isPHC(encodedHash) {
		h, err := parsePHC(encodedHash)
		if err != nil {
			return false, err
		}
		computed := h.derive(password, uint32(len(h.key)))
		return subtle.ConstantTimeCompare(computed, h.key) == 1, nil
	}

	if !a.config.AcceptIdentityHashes {
		return false, ErrUnknownHashFormat
	}
	return verifyIdentityHash(password, encodedHash)
}

// NeedsUpgrade reports whether encodedHash should be replaced by a fresh
// hash: it uses weaker Argon2 parameters than the current configuration, or
// it is an imported PBKDF2 hash.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	if !isPHC(encodedHash) {
		if a.config.AcceptIdentityHashes {
			if _, err := parseIdentityHash(encodedHash); err == nil {
				return true, nil
			}
		}
		return false, ErrUnknownHashFormat
	}

	h, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength
	return weaker, nil
}

func isPHC(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, "$"+algorithmID+"$")
}

func (h phcHash) derive(password string, keyLen uint32) []byte {
	return argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.parallelism, keyLen)
}
