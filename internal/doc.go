// Package internal holds the secure random helpers shared by the credential
// flows: one-time codes, reset tokens, pending-login IDs and token digests.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher and Sink implementations)
//   - flows: flow orchestrators for every Engine operation
//   - limiters: Redis-backed reset request throttling
//   - otp: one-time code challenges for the second login step
//   - reset: reset token issue and validation on the credential record
//   - stores: Redis and in-memory challenge stores
//
// # What this package must NOT do
//
//   - Export types that appear in the public goCred API.
//   - Be imported by any package outside the goCred module.
package internal
