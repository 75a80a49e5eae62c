package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ellieayla/logstash-output-loginsight/internal/ports"
)

// maxErrorBody caps how much of a rejected response is kept in StatusError.
const maxErrorBody = 4 << 10

// StatusError reports a non-2xx response from the ingestion endpoint.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Body)
}

// Transport implements ports.Transport using HTTP.
type Transport struct {
	client    ports.HTTPClient
	userAgent string
}

// NewTransport creates a new HTTP transport.
func NewTransport(client ports.HTTPClient, userAgent string) *Transport {
	return &Transport{
		client:    client,
		userAgent: userAgent,
	}
}

// Deliver posts the framed batch as JSON.
func (t *Transport) Deliver(ctx context.Context, d ports.Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.URL, bytes.NewReader(d.Body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if d.RequestID != "" {
		req.Header.Set("X-Request-Id", d.RequestID)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(respBody))}
	}

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
