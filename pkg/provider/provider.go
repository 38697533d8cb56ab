// Package provider abstracts the inference backend the gateway translates
// for. A Backend supplies the raw payloads the translation engine parses;
// it owns connection lifecycle, authentication against the backend, and
// failure isolation. Implementations must be safe for concurrent use.
package provider

import (
	"context"
	"io"

	"github.com/mkappe/gemgate/pkg/responses"
)

// Backend opens exchanges against an OpenAI Responses API endpoint.
type Backend interface {
	// Name returns the backend identifier for logs and metrics.
	Name() string

	// Stream opens a streaming exchange. The returned body is event-stream
	// framed; closing it releases the connection. Cancelling ctx aborts
	// the exchange.
	Stream(ctx context.Context, req *responses.Request) (io.ReadCloser, error)

	// Complete performs a one-shot exchange and returns the full payload
	// with its declared framing. A backend that streams anyway declares
	// FramingSSE so the caller can aggregate.
	Complete(ctx context.Context, req *responses.Request) ([]byte, responses.Framing, error)

	// Close releases backend resources (HTTP clients, connections).
	Close() error
}
