// Package stores provides short-lived record stores for pending-login OTP
// challenges, backed by Redis or by process memory.
//
// # Design
//
// The Redis store persists a versioned, binary-encoded challenge with a TTL
// and keeps a per-subject pointer so that saving a new challenge replaces the
// previous one. Mutations use WATCH/MULTI optimistic transactions with retry
// on contention. Delete reports whether the key existed, which callers use to
// make consumption single-use under concurrency.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for challenge
// records. It does NOT generate codes, compare them, or decide expiry; those
// decisions belong to internal/otp, which runs on an injected clock.
//
// # What this package must NOT do
//
//   - Import goCred or any sibling internal package.
//   - Log or expose challenge codes.
package stores
