// Package limiters provides Redis-backed fixed-window throttles for
// credential flows that send out-of-band messages.
//
// # Limiters
//
//   - [ResetRequestLimiter] caps reset requests per email and per client address.
//     Keys are "<prefix>:email:<sha256 prefix>" and "<prefix>:addr:<ip>"; a spent
//     budget comes back as [*Throttled] carrying the time until the window ends.
//
// All limiters are nil-safe: calling any method on a nil receiver returns nil.
//
// # What this package must NOT do
//
//   - Import goCred or any sibling internal package.
//   - Decide consequences of a limit; the engine maps errors to outcomes.
package limiters
