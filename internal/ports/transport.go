package ports

import "context"

// Transport delivers framed batches to the ingestion service.
type Transport interface {
	// Deliver posts one request body. It returns nil only when the remote
	// side accepted the batch. Implementations do not retry.
	Deliver(ctx context.Context, d Delivery) error
}

// Delivery is one outbound request.
type Delivery struct {
	// URL is the full ingestion endpoint.
	URL string

	// Body is the JSON-encoded envelope.
	Body []byte

	// RequestID identifies the batch; sent as X-Request-Id.
	RequestID string

	// Events is the number of records in Body.
	Events int
}
