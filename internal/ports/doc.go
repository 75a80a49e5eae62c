// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: Delivers a framed batch to the ingestion endpoint
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//   - [Source]: Reads events from an input and hands them to a [Sink]
//   - [StatusRepository]: Persists and loads the delivery status
//   - [Logger]: Structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with concrete
// implementations (HTTP, file system, NATS, Redis).
package ports
