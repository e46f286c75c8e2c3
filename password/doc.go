// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so the
// engine can re-hash them after the next successful login.
//
// # Imported hashes
//
// With Config.AcceptIdentityHashes set, Verify also accepts the base64 PBKDF2
// hashes written by ASP.NET Identity (format markers 0x00 and 0x01). They
// always report NeedsUpgrade, so accounts migrated from such a user table move
// to Argon2id on their first login.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Composition rules, reuse
// history and password age are enforced by the policy package and the engine.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goCred package.
//   - Log plaintext passwords.
package password
