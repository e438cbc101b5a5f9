// Package connection provides connection lifecycle management.
//
// This package handles:
//   - The Created -> Open -> Closed state machine of a composite connection
//   - Tracking and cancelling operations in flight when a connection closes
//   - Exponential backoff with jitter for dial retries
//
// # Lifecycle
//
//	Created --Open--> Open --Close--> Closed --Close--> Closed
//
// Operations run only in Open. Close cancels every running operation's
// context, waits for each to release, then frees resources once.
//
// # Dial Backoff
//
// Engines listening on TCP may not be ready when a client first dials:
//
//  1. Initial delay: 100 milliseconds
//  2. Exponential increase: 200ms, 400ms, 800ms, ...
//  3. Maximum delay: 5 seconds
//
// Jitter spreads concurrent dialers apart:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
