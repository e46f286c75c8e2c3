// Package codec encrypts individual field values, such as payment card
// numbers, for storage at rest.
//
// Ciphertexts are AES-GCM with a fresh random nonce prepended to the sealed
// bytes, encoded with standard base64. A single static key is configured per
// process; there is no rotation or per-field key.
//
// Empty input passes through unchanged in both directions.
package codec
