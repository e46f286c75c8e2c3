// Package credential defines the persisted credential record, the password
// history entry, and the storage contract every backend implements.
//
// # Architecture boundaries
//
// This package is a leaf: it holds data types and interfaces shared by the
// policy package, the storage backends, and the goCred engine. It contains no
// decision logic.
//
// # What this package must NOT do
//
//   - Import goCred or any other package of this module.
//   - Hash, encrypt, or compare secrets.
package credential
