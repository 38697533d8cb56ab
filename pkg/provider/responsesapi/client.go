// Package responsesapi implements a provider.Backend for OpenAI Responses
// API endpoints. It owns the HTTP exchange, backend error decoding, and
// failure isolation via a circuit breaker; parsing of the returned stream
// belongs to pkg/responses.
package responsesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/debug"
	"github.com/mkappe/gemgate/pkg/provider"
	"github.com/mkappe/gemgate/pkg/responses"
)

// Config holds settings for the Responses API backend.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8000".
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Timeout bounds a whole exchange. Default: 120s.
	Timeout time.Duration

	// BreakerFailures is the consecutive-failure count that opens the
	// circuit. Default: 5.
	BreakerFailures uint32

	// BreakerCooldown is how long the circuit stays open. Default: 30s.
	BreakerCooldown time.Duration
}

func (c *Config) defaults() {
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Timeout == 0 {
		c.Timeout = 120 * time.Second
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown == 0 {
		c.BreakerCooldown = 30 * time.Second
	}
}

// Backend is a circuit-broken HTTP client for a Responses API endpoint.
type Backend struct {
	httpClient *http.Client
	cfg        Config
	breaker    *gobreaker.CircuitBreaker
}

var _ provider.Backend = (*Backend)(nil)

// New creates a Backend. The base URL is required.
func New(cfg Config) (*Backend, error) {
	cfg.defaults()
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("responsesapi: base URL is required")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "responses-backend",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("backend circuit state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Backend{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
		breaker:    breaker,
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return "responsesapi" }

// Stream opens a streaming exchange. The body must be event-stream framed;
// a JSON content type on a stream request is a shape mismatch and fatal.
func (b *Backend) Stream(ctx context.Context, req *responses.Request) (io.ReadCloser, error) {
	reqCopy := *req
	reqCopy.Stream = true

	resp, err := b.do(ctx, &reqCopy)
	if err != nil {
		return nil, err
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: expected a stream but got %q", responses.ErrShapeMismatch, ct)
	}

	return resp.Body, nil
}

// Complete performs a one-shot exchange. The framing of the returned
// payload follows the backend's content type: some backends honor
// stream=false, others stream regardless.
func (b *Backend) Complete(ctx context.Context, req *responses.Request) ([]byte, responses.Framing, error) {
	reqCopy := *req
	reqCopy.Stream = false

	resp, err := b.do(ctx, &reqCopy)
	if err != nil {
		return nil, responses.FramingRaw, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, responses.FramingRaw, fmt.Errorf("reading backend response: %w", err)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
		return payload, responses.FramingSSE, nil
	}
	return payload, responses.FramingRaw, nil
}

// Close releases idle connections.
func (b *Backend) Close() error {
	b.httpClient.CloseIdleConnections()
	return nil
}

// do executes one HTTP exchange through the circuit breaker. Non-2xx
// statuses count as breaker failures only when they indicate backend
// trouble; client-side 4xx responses pass through as typed errors without
// tripping the circuit.
func (b *Backend) do(ctx context.Context, req *responses.Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal backend request: %w", err)
	}

	debug.Log("backend", "request", "model", req.Model, "stream", req.Stream, "bytes", len(body))
	if debug.TraceIsEnabled("backend") {
		debug.Raw("backend", string(body))
	}

	result, err := b.breaker.Execute(func() (any, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/v1/responses", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build backend request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "text/event-stream, application/json")
		if b.cfg.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+b.cfg.APIKey)
		}

		resp, err := b.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("backend request: %w", err)
		}

		if resp.StatusCode >= 500 {
			defer resp.Body.Close()
			return nil, decodeBackendError(resp)
		}
		return resp, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, api.NewUnavailable("backend circuit open")
		}
		return nil, err
	}

	resp := result.(*http.Response)
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, decodeBackendError(resp)
	}
	return resp, nil
}

// decodeBackendError maps a backend failure status to a typed error,
// preserving the backend's message when it sends a structured one.
func decodeBackendError(resp *http.Response) error {
	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope struct {
		Error *responses.ResponseError `json:"error"`
	}
	message := strings.TrimSpace(string(payload))
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error != nil {
		message = envelope.Error.Message
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return api.NewResourceExhausted("backend rate limited: " + message)
	case resp.StatusCode >= 500:
		return api.NewUnavailable(fmt.Sprintf("backend error (HTTP %d): %s", resp.StatusCode, message))
	default:
		return api.NewInvalidArgument(fmt.Sprintf("backend rejected request (HTTP %d): %s", resp.StatusCode, message))
	}
}
