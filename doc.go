// Package goCred manages the credential lifecycle of user accounts: password
// login completed by a one-time verification code, password changes and
// resets, failed-attempt lockout, password expiry, and encrypted storage of
// protected account fields.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goCred is the public surface. It exposes [Engine], [Builder], [Config] and
// value types (Session, PasswordStatus, ResetTicket, etc.). Flow orchestration,
// challenge stores, rate limiting and audit dispatch live under internal/ and
// are never exported. Policies live in policy/, persistence contracts in
// credential/ with implementations under storage/.
//
// # Errors
//
// Every failure is an [*Error]. Callers branch on [KindOf] or errors.Is
// against the package sentinels and display [UserMessage]. Internal failures
// always carry [GenericFailureMessage]; their cause is logged, never shown.
//
// # Time
//
// Policies read time only through the configured [Clock]. Stored timestamps
// are UTC.
package goCred
