package responses

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/mkappe/gemgate/pkg/debug"
	"github.com/mkappe/gemgate/pkg/observability"
)

// Framing declares how the backend payload is framed on the wire.
type Framing int

const (
	// FramingSSE is event-stream framing: one JSON payload per "data:" line.
	FramingSSE Framing = iota

	// FramingRaw is an unframed payload: a single JSON value or plain text,
	// distinguished by a leading-character sniff once fully received.
	FramingRaw
)

// ErrShapeMismatch is returned when the backend payload has an unexpected
// top-level shape, e.g. a plain JSON object where a stream was requested.
// Shape mismatches are fatal; no partial recovery is attempted.
var ErrShapeMismatch = errors.New("unexpected backend response shape")

const (
	dataPrefix   = "data: "
	doneSentinel = "[DONE]"

	// rawItemID keys synthesized events from unframed plain-text payloads.
	rawItemID = "item_raw"

	maxScanTokenSize = 1 << 20
)

// Events parses an event-stream framed body into native events, lazily and
// in arrival order. The sequence is finite and non-restartable; it holds at
// most one record ahead of the consumer. A malformed JSON record is logged
// and skipped without aborting the stream. A read failure on the underlying
// reader terminates the sequence with a non-nil error.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

		for scanner.Scan() {
			line := scanner.Text()

			// Lines without the data prefix are SSE delimiters, "event:"
			// headers, or comments. The payload's own "type" field is
			// authoritative, so everything else is discarded.
			if !strings.HasPrefix(line, dataPrefix) {
				continue
			}

			payload := strings.TrimPrefix(line, dataPrefix)
			if payload == doneSentinel {
				return
			}
			debug.Trace("streaming", "stream record", "data", debug.Truncate(payload, 200))

			var ev Event
			if err := json.Unmarshal([]byte(payload), &ev); err != nil {
				observability.SkippedFramesTotal.Inc()
				slog.Warn("skipping malformed stream record",
					"error", err.Error(),
					"data", truncate(payload, 200),
				)
				continue
			}

			if !yield(ev, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Event{}, fmt.Errorf("stream read: %w", err))
		}
	}
}

// RawEvents parses an unframed payload into the same native event sequence
// that a streamed response would have produced. A leading '{' or '[' means
// the payload is one complete Responses JSON object; anything else is
// treated as line-oriented plain text, each line becoming one text delta.
func RawEvents(payload []byte) iter.Seq2[Event, error] {
	if SniffJSON(payload) {
		resp, err := ParseResponse(payload)
		if err != nil {
			return func(yield func(Event, error) bool) {
				yield(Event{}, err)
			}
		}
		return SynthesizeEvents(resp)
	}

	return func(yield func(Event, error) bool) {
		for line := range strings.Lines(string(payload)) {
			line = strings.TrimRight(line, "\n")
			if line == "" {
				continue
			}
			ev := Event{Type: EventOutputTextDelta, ItemID: rawItemID, Delta: line + "\n"}
			if !yield(ev, nil) {
				return
			}
		}
		yield(Event{Type: EventResponseCompleted, Response: &Response{Status: "completed"}}, nil)
	}
}

// SniffJSON reports whether the payload looks like a JSON value, judged by
// its first non-space byte.
func SniffJSON(payload []byte) bool {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

// ParseResponse decodes a complete non-streaming Responses object.
// Payloads that parse but are not a response object are shape mismatches.
func ParseResponse(payload []byte) (*Response, error) {
	trimmed := bytes.TrimLeft(payload, " \t\r\n")
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a response object", ErrShapeMismatch)
	}

	var resp Response
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShapeMismatch, err)
	}
	if resp.Status == "" && resp.Output == nil {
		return nil, fmt.Errorf("%w: payload parses but carries no response fields", ErrShapeMismatch)
	}
	return &resp, nil
}

// SynthesizeEvents converts a complete response object into the event
// sequence an equivalent stream would have carried: item added, one delta
// per content element, item done, then the completion marker. This lets the
// one-shot path reuse the streaming reducer unchanged.
func SynthesizeEvents(resp *Response) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for i := range resp.Output {
			item := &resp.Output[i]
			added := Event{Type: EventOutputItemAdded, ItemID: item.ID, OutputIndex: i, Item: item}
			if !yield(added, nil) {
				return
			}

			switch item.Type {
			case ItemTypeMessage:
				for _, part := range item.Content {
					if part.Text == "" {
						continue
					}
					ev := Event{Type: EventOutputTextDelta, ItemID: item.ID, OutputIndex: i, Delta: part.Text}
					if !yield(ev, nil) {
						return
					}
				}
			case ItemTypeFunctionCall:
				if item.Arguments != "" {
					ev := Event{Type: EventFunctionCallArgsDelta, ItemID: item.ID, OutputIndex: i, Delta: item.Arguments}
					if !yield(ev, nil) {
						return
					}
				}
			}

			done := Event{Type: EventOutputItemDone, ItemID: item.ID, OutputIndex: i, Item: item}
			if !yield(done, nil) {
				return
			}
		}

		final := Event{Type: EventResponseCompleted, Response: resp}
		if resp.Status == "incomplete" {
			final.Type = EventResponseIncomplete
		}
		yield(final, nil)
	}
}

// truncate limits a string to maxLen characters for log output.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
