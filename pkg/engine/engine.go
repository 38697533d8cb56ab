package engine

import (
	"bytes"
	"context"
	"iter"
	"log/slog"
	"time"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/observability"
	"github.com/mkappe/gemgate/pkg/provider"
	"github.com/mkappe/gemgate/pkg/responses"
	"github.com/mkappe/gemgate/pkg/storage"
	"github.com/mkappe/gemgate/pkg/transport"
)

// Config holds engine-level settings.
type Config struct {
	// Strict terminates streams on argument-fragment parse anomalies
	// instead of reporting and continuing.
	Strict bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the protocol translation core: it validates Gemini requests,
// translates them to Responses API form, drives the backend exchange, and
// reduces the backend's event stream back into Gemini chunks.
//
// Engine is safe for concurrent use; every request gets its own reducer
// state and ID generator sequence space.
type Engine struct {
	backend provider.Backend
	ledger  storage.UsageLedger
	idGen   *api.IDGenerator
	cfg     Config
	logger  *slog.Logger
}

var _ transport.Generator = (*Engine)(nil)

// New creates an Engine. The ledger may be nil to disable usage recording.
func New(backend provider.Backend, ledger storage.UsageLedger, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend: backend,
		ledger:  ledger,
		idGen:   api.NewIDGenerator(),
		cfg:     cfg,
		logger:  logger,
	}
}

// GenerateContent serves the one-shot path: a single backend exchange,
// aggregated into one response. The backend payload runs through the same
// event pipeline as streaming so both paths share translation semantics.
func (e *Engine) GenerateContent(ctx context.Context, req *transport.Request) (*api.GenerateContentResponse, error) {
	backendReq, err := e.prepare(req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	payload, framing, err := e.backend.Complete(ctx, backendReq)
	e.observeBackend(req.Model, start, err)
	if err != nil {
		return nil, err
	}

	resp, err := Collect(Stream(ctx, bytes.NewReader(payload), framing, e.streamOptions()))
	if err != nil {
		return nil, err
	}

	e.recordUsage(ctx, req.Model, resp.UsageMetadata, false)
	return resp, nil
}

// StreamGenerateContent serves the streaming path. All work is deferred
// until the consumer starts ranging; stopping early closes the backend
// body and releases all per-stream state.
func (e *Engine) StreamGenerateContent(ctx context.Context, req *transport.Request) iter.Seq2[*api.GenerateContentResponse, error] {
	return func(yield func(*api.GenerateContentResponse, error) bool) {
		backendReq, err := e.prepare(req)
		if err != nil {
			yield(nil, err)
			return
		}

		start := time.Now()
		body, err := e.backend.Stream(ctx, backendReq)
		e.observeBackend(req.Model, start, err)
		if err != nil {
			yield(nil, err)
			return
		}
		defer body.Close()

		var usage *api.UsageMetadata
		for chunk, err := range Stream(ctx, body, responses.FramingSSE, e.streamOptions()) {
			if err != nil {
				yield(nil, err)
				return
			}
			observability.ChunksTotal.WithLabelValues(req.Model, chunkKind(chunk)).Inc()
			if chunk.UsageMetadata != nil {
				usage = chunk.UsageMetadata
			}
			if !yield(chunk, nil) {
				return
			}
		}

		e.recordUsage(ctx, req.Model, usage, true)
	}
}

// prepare validates the incoming request and translates it to backend form.
func (e *Engine) prepare(req *transport.Request) (*responses.Request, error) {
	if apiErr := api.ValidateRequest(req.Body); apiErr != nil {
		return nil, apiErr
	}
	return responses.TranslateRequest(req.Body, req.Model, e.idGen)
}

// streamOptions builds per-stream reducer options with a metrics-counting
// diagnostic sink.
func (e *Engine) streamOptions() Options {
	return Options{
		Strict: e.cfg.Strict,
		Logger: e.logger,
		Sink: func(d Diagnostic) {
			observability.DiagnosticsTotal.WithLabelValues(d.Code).Inc()
		},
	}
}

func (e *Engine) observeBackend(model string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	observability.BackendRequestsTotal.WithLabelValues(model, status).Inc()
	observability.BackendLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())
}

// recordUsage writes token accounting to the ledger and token metrics.
// Ledger failures are logged, never surfaced: accounting must not break a
// request that already succeeded.
func (e *Engine) recordUsage(ctx context.Context, model string, usage *api.UsageMetadata, streamed bool) {
	if usage == nil {
		return
	}

	observability.BackendTokensTotal.WithLabelValues(model, "input").Add(float64(usage.PromptTokenCount))
	observability.BackendTokensTotal.WithLabelValues(model, "output").Add(float64(usage.CandidatesTokenCount))

	if e.ledger == nil {
		return
	}
	rec := &storage.UsageRecord{
		RequestID:    transport.RequestIDFromContext(ctx),
		Model:        model,
		PromptTokens: usage.PromptTokenCount,
		OutputTokens: usage.CandidatesTokenCount,
		TotalTokens:  usage.TotalTokenCount,
		Streamed:     streamed,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.ledger.Record(ctx, rec); err != nil {
		e.logger.Warn("usage record failed", "error", err, "request_id", rec.RequestID)
	}
}

// chunkKind classifies a chunk for metrics.
func chunkKind(chunk *api.GenerateContentResponse) string {
	switch {
	case len(chunk.FunctionCalls()) > 0:
		return "function_call"
	case chunk.Text() != "":
		return "text"
	default:
		return "finish"
	}
}
