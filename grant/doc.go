// Package grant issues and verifies the signed session grant handed out after
// a successful second-factor login.
//
// A grant is a short-lived JWT binding a user to the session ID recorded on
// the credential record. Verification here is purely cryptographic; checking
// the session ID against the current record is the engine's job.
package grant
