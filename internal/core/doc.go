// Package core provides the business logic for sheet monitoring.
//
// This package is independent of any transport. The HTTP API, the offline
// diff CLI and the tests all drive it through the same types.
//
// # Architecture
//
//   - Snapshot: one captured state of a sheet with normalized, unique column
//     identifiers and typed cells.
//   - Diff: pure function from (previous, current, column filter) to an
//     ordered list of Change records.
//   - Session: per-user settings plus runtime state (baseline, error count,
//     running flag, task handle), held in a Registry.
//   - Scheduler: one cancellable monitoring loop per user.
//   - Format: renders change batches as detailed or compact text chunks.
//   - Service: the command surface (setters, start/stop, status, history).
//
// # Monitoring Cycle
//
//  1. The loop fetches the sheet through a [Fetcher]
//  2. The first snapshot becomes the baseline
//  3. Later snapshots are compared with [Diff]
//  4. If the batch reaches the session threshold it is rendered with
//     [Format] and delivered through a [Sink]
//  5. The baseline is replaced and the loop sleeps for the interval
//
// Consecutive fetch failures stop the loop once they reach the session's
// maximum error count.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - CFG001: sheet not configured
//   - VAL001-VAL005: rejected setter arguments
//   - FETCH001-FETCH011: sheet read failures
//   - LIM001: monitoring stopped by the error limit
package core
