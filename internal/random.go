package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
)

const (
	otpLow         = 100000
	otpSpan        = 900000
	resetTokenSize = 32
	pendingIDSize  = 16
)

var errInvalidDigest = errors.New("invalid token digest")

// NewOTP returns a uniformly random code in [100000, 999999].
func NewOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+otpLow), nil
}

// NewResetToken returns 32 random bytes encoded as base64url without padding.
func NewResetToken() (string, error) {
	var raw [resetTokenSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// NewPendingID returns an opaque identifier for a pending login.
func NewPendingID() (string, error) {
	var raw [pendingIDSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DigestToken returns the storage digest of a reset token.
func DigestToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// DigestMatches compares a token against a stored digest in constant time.
func DigestMatches(token, storedDigest string) (bool, error) {
	stored, err := base64.RawURLEncoding.DecodeString(storedDigest)
	if err != nil || len(stored) != sha256.Size {
		return false, errInvalidDigest
	}
	sum := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(sum[:], stored) == 1, nil
}
