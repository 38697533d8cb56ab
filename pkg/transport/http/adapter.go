// Package http binds the transport.Generator contract to HTTP: it parses
// generativelanguage-style paths, decodes request bodies, and serializes
// responses as JSON or SSE chunk streams.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/transport"
)

const (
	verbGenerate       = "generateContent"
	verbStreamGenerate = "streamGenerateContent"
)

// Adapter routes Gemini API requests to a transport.Generator.
type Adapter struct {
	generator   transport.Generator
	maxBodySize int64
}

// NewAdapter creates an adapter with the given middleware applied to the
// generator, outermost first.
func NewAdapter(gen transport.Generator, maxBodySize int64, mw ...transport.Middleware) *Adapter {
	return &Adapter{
		generator:   transport.Chain(mw...)(gen),
		maxBodySize: maxBodySize,
	}
}

// Handler returns the HTTP handler for the /v1beta API surface.
func (a *Adapter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1beta/models/{action}", a.handleGenerate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})
	return mux
}

// handleGenerate serves models/{model}:generateContent and
// models/{model}:streamGenerateContent. The model and verb share one path
// segment separated by a colon.
func (a *Adapter) handleGenerate(w http.ResponseWriter, r *http.Request) {
	model, verb, ok := strings.Cut(r.PathValue("action"), ":")
	if !ok || model == "" {
		writeError(w, api.NewNotFound("unknown path: model and method are required"))
		return
	}

	var body api.GenerateContentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, a.maxBodySize))
	if err := dec.Decode(&body); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, api.NewInvalidArgument("request body too large"))
			return
		}
		writeError(w, api.NewInvalidArgument("invalid JSON body: "+err.Error()))
		return
	}

	ctx := r.Context()
	if id := r.Header.Get("X-Request-ID"); id != "" {
		ctx = transport.ContextWithRequestID(ctx, id)
	}

	req := &transport.Request{Model: model, Body: &body}

	switch verb {
	case verbGenerate:
		a.serveOneShot(ctx, w, req)
	case verbStreamGenerate:
		a.serveStream(ctx, w, req)
	default:
		writeError(w, api.NewNotFound(fmt.Sprintf("unknown method %q", verb)))
	}
}

func (a *Adapter) serveOneShot(ctx context.Context, w http.ResponseWriter, req *transport.Request) {
	resp, err := a.generator.GenerateContent(ctx, req)
	if err != nil {
		writeError(w, transport.AsAPIError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("encoding response failed", "error", err)
	}
}

func (a *Adapter) serveStream(ctx context.Context, w http.ResponseWriter, req *transport.Request) {
	cw := newChunkWriter(w)

	for chunk, err := range a.generator.StreamGenerateContent(ctx, req) {
		if err != nil {
			// Prior chunks are already flushed and stay intact; the
			// error terminates the stream descriptively.
			if werr := cw.WriteError(transport.AsAPIError(err)); werr != nil {
				slog.Error("writing stream error failed", "error", werr)
			}
			return
		}
		if werr := cw.WriteChunk(chunk); werr != nil {
			// Client went away; stop consuming, which stops the backend pull.
			slog.Debug("stream write failed, dropping client", "error", werr)
			return
		}
	}

	cw.Complete()
}

// writeError sends a Google-style error envelope with its status code.
func writeError(w http.ResponseWriter, apiErr *api.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Code)
	if err := json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr}); err != nil {
		slog.Error("encoding error response failed", "error", err)
	}
}
