// Package domain contains the core entities of the forwarder.
//
// It has no dependencies on infrastructure concerns (HTTP, file system,
// logging).
//
// # Entities
//
//   - [Batch]: encoded records drained from the dispatcher and delivered together
//   - [Status]: delivery counters persisted for operators
package domain
