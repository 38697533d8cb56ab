package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/mkappe/gemgate/pkg/api"
)

// writerState tracks the state of a streaming response writer.
type writerState int

const (
	writerIdle      writerState = iota // no writes yet
	writerStreaming                    // at least one chunk written
	writerCompleted                    // stream finished
)

// chunkWriter serializes GenerateContentResponse chunks as SSE, one
// self-contained JSON object per event:
//
//	data: {"candidates":[...]}\n
//	\n
//
// Headers are set lazily on the first chunk so pre-stream errors can still
// be sent as plain JSON with a proper status code.
type chunkWriter struct {
	w  http.ResponseWriter
	rc *http.ResponseController

	mu    sync.Mutex
	state writerState
}

func newChunkWriter(w http.ResponseWriter) *chunkWriter {
	return &chunkWriter{
		w:  w,
		rc: http.NewResponseController(w),
	}
}

// WriteChunk sends a single SSE data event and flushes it immediately.
func (c *chunkWriter) WriteChunk(chunk *api.GenerateContentResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == writerCompleted {
		return errors.New("cannot write chunk: stream is completed")
	}

	if c.state == writerIdle {
		c.w.Header().Set("Content-Type", "text/event-stream")
		c.w.Header().Set("Cache-Control", "no-cache")
		c.w.Header().Set("Connection", "keep-alive")
		c.state = writerStreaming
	}

	data, err := json.Marshal(chunk)
	if err != nil {
		return fmt.Errorf("marshal chunk: %w", err)
	}

	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write chunk: %w", err)
	}
	if err := c.rc.Flush(); err != nil {
		return fmt.Errorf("flush chunk: %w", err)
	}
	return nil
}

// WriteError terminates the stream with an error. Before any chunk has
// been written it produces a plain JSON error response with the proper
// status code; mid-stream it emits the error envelope as a final event,
// leaving every previously written chunk intact.
func (c *chunkWriter) WriteError(apiErr *api.Error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == writerCompleted {
		return errors.New("cannot write error: stream is completed")
	}

	data, err := json.Marshal(api.ErrorResponse{Error: apiErr})
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if c.state == writerIdle {
		c.w.Header().Set("Content-Type", "application/json")
		c.w.WriteHeader(apiErr.Code)
		c.state = writerCompleted
		_, err := c.w.Write(data)
		return err
	}

	c.state = writerCompleted
	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write error event: %w", err)
	}
	return c.rc.Flush()
}

// Complete marks the stream finished.
func (c *chunkWriter) Complete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = writerCompleted
}
