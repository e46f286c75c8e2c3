// Package audit implements async event dispatching for credential operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zap logger, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full semantics.
//     Emit never waits on the sink under drop-if-full; security events get a small
//     reserved lane before they are dropped, and every drop is reported.
//   - [Event]: audit record with user, action, detail, source address and outcome.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; that responsibility belongs to the Engine.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goCred or any sibling internal package.
//   - Let a sink failure propagate to the caller of Emit.
package audit
