package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/responses"
)

// Options configures a single translation stream. Each stream gets its own
// Reducer; options are per-stream, never process-global.
type Options struct {
	// Sink receives diagnostics. When nil, finalization anomalies become
	// terminating faults instead of reports (default-safe: never swallow).
	Sink Sink

	// Strict makes delta-time parse anomalies terminate the stream.
	// The default is non-fatal: log a warning, report to the sink if one
	// is configured, and keep accumulating.
	Strict bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Reducer is the translation state machine. Per-item state is implicit,
// keyed by source item ID: an entry in the two maps exists exactly while a
// function call for that ID is in progress. Text deltas are stateless
// passthrough.
//
// A Reducer serves exactly one stream. Item IDs are not globally unique
// across streams, so state must never be shared between stream instances.
type Reducer struct {
	fnArgs  map[string]*strings.Builder // item id -> accumulated argument fragments
	fnNames map[string]string           // item id -> function name
	opts    Options
}

// NewReducer creates a Reducer with empty state.
func NewReducer(opts Options) *Reducer {
	return &Reducer{
		fnArgs:  make(map[string]*strings.Builder),
		fnNames: make(map[string]string),
		opts:    opts,
	}
}

// Reduce consumes one classified source event and returns zero or more
// target chunks. It is synchronous, non-blocking pure computation; a
// non-nil error terminates the stream. Chunks for a given item ID come out
// in source order: name announcement, then arguments, then nothing after
// the item is done. Items interleave exactly as their source events did.
func (r *Reducer) Reduce(ev *responses.Event) ([]*api.GenerateContentResponse, error) {
	switch {
	case responses.IsTextDelta(ev):
		if ev.Delta == "" {
			return nil, nil
		}
		return []*api.GenerateContentResponse{api.NewTextChunk(ev.Delta)}, nil

	case responses.IsFunctionCallAdded(ev):
		return r.reduceCallAdded(ev)

	case responses.IsFunctionCallArgsDelta(ev):
		return r.reduceArgsDelta(ev)

	case responses.IsFunctionCallDone(ev):
		return nil, r.reduceCallDone(ev)

	case responses.IsCompleted(ev):
		return []*api.GenerateContentResponse{
			api.NewFinishChunk(api.FinishReasonStop, usageMetadata(ev.Response)),
		}, nil

	case responses.IsIncomplete(ev):
		return []*api.GenerateContentResponse{
			api.NewFinishChunk(api.FinishReasonMaxTokens, usageMetadata(ev.Response)),
		}, nil

	case responses.IsFailed(ev):
		if ev.Response != nil && ev.Response.Error != nil {
			return nil, fmt.Errorf("backend response failed: %s", ev.Response.Error.Message)
		}
		return nil, fmt.Errorf("backend response failed")

	default:
		// Forward-compatible ignore: unknown and lifecycle-only events
		// change no state and emit nothing.
		r.opts.logger().Debug("ignoring event", "type", ev.Type)
		return nil, nil
	}
}

// reduceCallAdded opens accumulation state for a new function call item.
// If the announcement already carries a name, a name-only chunk is emitted
// so the caller learns the call target before arguments arrive.
func (r *Reducer) reduceCallAdded(ev *responses.Event) ([]*api.GenerateContentResponse, error) {
	id := ev.Item.ID
	r.fnArgs[id] = &strings.Builder{}
	r.fnNames[id] = ev.Item.Name

	if ev.Item.Name == "" {
		return nil, nil
	}
	return []*api.GenerateContentResponse{api.NewFunctionCallChunk(ev.Item.Name, nil)}, nil
}

// reduceArgsDelta appends one fragment and runs the partial-JSON assembler.
// A balanced and parseable accumulation emits exactly one function-call
// chunk for that snapshot; empty fragments cannot change the accumulation
// and are skipped, which keeps identical snapshots from re-emitting.
func (r *Reducer) reduceArgsDelta(ev *responses.Event) ([]*api.GenerateContentResponse, error) {
	if ev.Delta == "" {
		return nil, nil
	}

	buf, ok := r.fnArgs[ev.ItemID]
	if !ok {
		// Delta for an unannounced item: open state implicitly so the
		// arguments are not lost. The name resolves to empty until the
		// backend supplies one.
		buf = &strings.Builder{}
		r.fnArgs[ev.ItemID] = buf
	}
	buf.WriteString(ev.Delta)

	accumulated := buf.String()
	if !balancedObject(accumulated) {
		return nil, nil
	}

	args, diag := tryParseArgs(accumulated)
	if diag != nil {
		// Recovered locally: no chunk, buffer retained; a later fragment
		// may still complete the accumulation.
		if err := r.report(diag); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return []*api.GenerateContentResponse{
		api.NewFunctionCallChunk(r.fnNames[ev.ItemID], args),
	}, nil
}

// reduceCallDone finalizes a function call item. A buffer that never
// reached a balanced, parseable state is a protocol violation: the source
// finished a call whose arguments never formed valid JSON. Cleanup of both
// map entries is unconditional, including on the fault path.
func (r *Reducer) reduceCallDone(ev *responses.Event) error {
	id := ev.Item.ID
	buf, ok := r.fnArgs[id]

	defer func() {
		delete(r.fnArgs, id)
		delete(r.fnNames, id)
	}()

	if !ok {
		return nil
	}

	accumulated := buf.String()
	if balancedObject(accumulated) {
		if _, diag := tryParseArgs(accumulated); diag == nil {
			return nil
		}
	}

	diag := &Diagnostic{
		Code:    DiagArgsIncomplete,
		Message: fmt.Sprintf("function call %q finished without valid JSON arguments", r.fnNames[id]),
		Snippet: snippet(accumulated),
	}
	if r.opts.Sink == nil {
		return diag
	}
	r.opts.Sink(*diag)
	return nil
}

// report routes a delta-time diagnostic: terminating in strict mode,
// warn-and-continue otherwise.
func (r *Reducer) report(diag *Diagnostic) error {
	if r.opts.Strict {
		return diag
	}
	r.opts.logger().Warn("translation diagnostic",
		"code", diag.Code,
		"message", diag.Message,
		"args", diag.Snippet,
	)
	if r.opts.Sink != nil {
		r.opts.Sink(*diag)
	}
	return nil
}

// InFlight returns the number of function calls currently accumulating.
// Used by tests to assert unconditional cleanup.
func (r *Reducer) InFlight() int {
	return len(r.fnArgs)
}

func usageMetadata(resp *responses.Response) *api.UsageMetadata {
	if resp == nil || resp.Usage == nil {
		return nil
	}
	return &api.UsageMetadata{
		PromptTokenCount:     resp.Usage.InputTokens,
		CandidatesTokenCount: resp.Usage.OutputTokens,
		TotalTokenCount:      resp.Usage.TotalTokens,
	}
}
