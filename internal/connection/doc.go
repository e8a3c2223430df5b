// Package connection implements the stream connection manager.
//
// The Manager:
//   - Maintains one logical subscription to the live weight feed
//   - Recovers from disconnects with exponential backoff (single
//     outstanding timer, attempt counter reset only on successful open)
//   - Serializes all state transitions and handler dispatch through one
//     run-loop goroutine
//   - Guarantees no handler fires after Teardown returns
package connection
