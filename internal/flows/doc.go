// Package flows contains the orchestration for every credential Engine
// operation.
//
// Each flow function (RunLogin, RunVerifyLoginCode, RunChangePassword, etc.)
// accepts a typed dependency struct and returns results without side effects
// beyond those dependencies. The Engine builds the dependency structs once and
// stays thin.
//
// # Architecture boundaries
//
// Flow functions coordinate the credential store, the hasher, the policies,
// the OTP and reset managers, audit and metrics. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goCred (to avoid import cycles).
//   - Read the system clock. Time always comes from Common.Now.
package flows
