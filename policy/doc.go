// Package policy implements the pure credential policies: password age,
// account lockout, password history reuse, and password strength.
//
// Every function takes the current time as an argument. Nothing in this
// package reads the system clock, performs I/O, or persists state; callers
// apply the returned decisions and save the record themselves.
//
// # What this package must NOT do
//
//   - Import goCred, storage backends, or any internal package.
//   - Hash candidate passwords. Hash comparison is delegated to a verifier.
package policy
