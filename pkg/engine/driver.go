package engine

import (
	"context"
	"io"
	"iter"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/responses"
)

// Stream composes parser, guards, and reducer into a single lazy chunk
// sequence. One input event is in flight at a time; each yields zero or
// more chunks, synchronously derived. The sequence is finite and
// non-restartable.
//
// Cancellation is cooperative and pull-based: a consumer that stops
// ranging stops all pulls from r. The context is checked between events
// so an abandoned request also stops promptly when its consumer is
// draining on its behalf. No background work is spawned.
func Stream(ctx context.Context, r io.Reader, framing responses.Framing, opts Options) iter.Seq2[*api.GenerateContentResponse, error] {
	var events iter.Seq2[responses.Event, error]
	switch framing {
	case responses.FramingRaw:
		events = rawEvents(r)
	default:
		events = responses.Events(r)
	}
	return reduceAll(ctx, events, opts)
}

// rawEvents buffers the unframed payload in full, then replays it as a
// synthesized event sequence. Raw framing requires the whole payload by
// definition; this is the only place the pipeline buffers more than one
// record.
func rawEvents(r io.Reader) iter.Seq2[responses.Event, error] {
	return func(yield func(responses.Event, error) bool) {
		payload, err := io.ReadAll(r)
		if err != nil {
			yield(responses.Event{}, err)
			return
		}
		for ev, err := range responses.RawEvents(payload) {
			if !yield(ev, err) {
				return
			}
		}
	}
}

// reduceAll drives one Reducer instance over the event sequence.
func reduceAll(ctx context.Context, events iter.Seq2[responses.Event, error], opts Options) iter.Seq2[*api.GenerateContentResponse, error] {
	return func(yield func(*api.GenerateContentResponse, error) bool) {
		reducer := NewReducer(opts)

		for ev, err := range events {
			if err != nil {
				yield(nil, err)
				return
			}
			if ctx.Err() != nil {
				yield(nil, ctx.Err())
				return
			}

			chunks, err := reducer.Reduce(&ev)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, chunk := range chunks {
				if !yield(chunk, nil) {
					return
				}
			}
		}
	}
}

// Collect drains a chunk sequence into a single aggregated response:
// all text chunks concatenated into one part, the last completed function
// call (a call is complete once it carries parsed arguments), and the
// finish reason and usage from the terminal chunk. Streams that end
// without a terminal chunk aggregate with FinishReasonOther.
func Collect(chunks iter.Seq2[*api.GenerateContentResponse, error]) (*api.GenerateContentResponse, error) {
	var (
		text     string
		lastCall *api.FunctionCall
		reason   = api.FinishReasonOther
		usage    *api.UsageMetadata
	)

	for chunk, err := range chunks {
		if err != nil {
			return nil, err
		}

		text += chunk.Text()
		for _, call := range chunk.FunctionCalls() {
			if call.Args != nil {
				lastCall = call
			}
		}

		if len(chunk.Candidates) > 0 && chunk.Candidates[0].FinishReason != "" {
			reason = chunk.Candidates[0].FinishReason
		}
		if chunk.UsageMetadata != nil {
			usage = chunk.UsageMetadata
		}
	}

	var parts []api.Part
	if text != "" {
		parts = append(parts, api.Part{Text: text})
	}
	if lastCall != nil {
		parts = append(parts, api.Part{FunctionCall: lastCall})
	}

	resp := &api.GenerateContentResponse{
		Candidates:    []api.Candidate{{FinishReason: reason}},
		UsageMetadata: usage,
	}
	if len(parts) > 0 {
		resp.Candidates[0].Content = &api.Content{Role: "model", Parts: parts}
	}
	return resp, nil
}
