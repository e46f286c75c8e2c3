// Package metrics exposes the Prometheus collectors recorded by the credential
// engine.
//
// All methods are nil-safe so the engine can call them unconditionally when
// metrics are disabled.
package metrics
