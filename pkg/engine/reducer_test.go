package engine

import (
	"errors"
	"testing"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/responses"
)

func textDelta(itemID, delta string) *responses.Event {
	return &responses.Event{Type: responses.EventOutputTextDelta, ItemID: itemID, Delta: delta}
}

func callAdded(itemID, name string) *responses.Event {
	return &responses.Event{
		Type: responses.EventOutputItemAdded,
		Item: &responses.Item{ID: itemID, Type: responses.ItemTypeFunctionCall, Name: name},
	}
}

func argsDelta(itemID, delta string) *responses.Event {
	return &responses.Event{Type: responses.EventFunctionCallArgsDelta, ItemID: itemID, Delta: delta}
}

func callDone(itemID, name string) *responses.Event {
	return &responses.Event{
		Type: responses.EventOutputItemDone,
		Item: &responses.Item{ID: itemID, Type: responses.ItemTypeFunctionCall, Name: name},
	}
}

func completed(usage *responses.Usage) *responses.Event {
	return &responses.Event{
		Type:     responses.EventResponseCompleted,
		Response: &responses.Response{Status: "completed", Usage: usage},
	}
}

// reduceSequence runs events through one reducer, failing the test on any
// reduction fault.
func reduceSequence(t *testing.T, r *Reducer, events []*responses.Event) []*api.GenerateContentResponse {
	t.Helper()
	var out []*api.GenerateContentResponse
	for _, ev := range events {
		chunks, err := r.Reduce(ev)
		if err != nil {
			t.Fatalf("Reduce(%s): %v", ev.Type, err)
		}
		out = append(out, chunks...)
	}
	return out
}

func TestTextDeltasPassThrough(t *testing.T) {
	r := NewReducer(Options{})
	chunks := reduceSequence(t, r, []*responses.Event{
		textDelta("msg_1", "He"),
		textDelta("msg_1", "llo"),
		completed(&responses.Usage{InputTokens: 3, OutputTokens: 2, TotalTokens: 5}),
	})

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if got := chunks[0].Text() + chunks[1].Text(); got != "Hello" {
		t.Errorf("concatenated text = %q, want %q", got, "Hello")
	}

	final := chunks[2]
	if final.Candidates[0].FinishReason != api.FinishReasonStop {
		t.Errorf("finish reason = %q, want STOP", final.Candidates[0].FinishReason)
	}
	if final.UsageMetadata == nil || final.UsageMetadata.TotalTokenCount != 5 {
		t.Errorf("usage = %+v, want total 5", final.UsageMetadata)
	}
}

func TestEmptyTextDeltaEmitsNothing(t *testing.T) {
	r := NewReducer(Options{})
	chunks, err := r.Reduce(textDelta("msg_1", ""))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("len(chunks) = %d, want 0", len(chunks))
	}
}

func TestFunctionCallSingleFragment(t *testing.T) {
	r := NewReducer(Options{})
	chunks := reduceSequence(t, r, []*responses.Event{
		callAdded("fc_1", "get_weather"),
		argsDelta("fc_1", `{"location":"Paris"}`),
		callDone("fc_1", "get_weather"),
		completed(nil),
	})

	// Name announcement, parsed-args snapshot, finish.
	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}

	announce := chunks[0].FunctionCalls()
	if len(announce) != 1 || announce[0].Name != "get_weather" || announce[0].Args != nil {
		t.Errorf("announcement = %+v, want name-only get_weather", announce)
	}

	parsed := chunks[1].FunctionCalls()
	if len(parsed) != 1 || parsed[0].Args["location"] != "Paris" {
		t.Errorf("parsed call = %+v, want location Paris", parsed)
	}

	if r.InFlight() != 0 {
		t.Errorf("InFlight = %d after done, want 0", r.InFlight())
	}
}

func TestFunctionCallFragmentedArguments(t *testing.T) {
	r := NewReducer(Options{})
	chunks := reduceSequence(t, r, []*responses.Event{
		callAdded("fc_1", "get_weather"),
		argsDelta("fc_1", `{"loc`),
		argsDelta("fc_1", `ation":"Par`),
		argsDelta("fc_1", `is"}`),
		callDone("fc_1", "get_weather"),
	})

	// Only the final fragment balances: one announcement plus one snapshot.
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	parsed := chunks[1].FunctionCalls()
	if len(parsed) != 1 || parsed[0].Args["location"] != "Paris" {
		t.Errorf("parsed call = %+v, want location Paris", parsed)
	}
}

func TestInterleavedFunctionCalls(t *testing.T) {
	r := NewReducer(Options{})
	chunks := reduceSequence(t, r, []*responses.Event{
		callAdded("fc_1", "get_weather"),
		callAdded("fc_2", "get_time"),
		argsDelta("fc_1", `{"city":`),
		argsDelta("fc_2", `{"zone":"UTC"}`),
		argsDelta("fc_1", `"Oslo"}`),
		callDone("fc_1", "get_weather"),
		callDone("fc_2", "get_time"),
	})

	var got []string
	for _, c := range chunks {
		for _, call := range c.FunctionCalls() {
			if call.Args != nil {
				got = append(got, call.Name)
			}
		}
	}
	// fc_2 balances before fc_1; snapshots come out in source order.
	if len(got) != 2 || got[0] != "get_time" || got[1] != "get_weather" {
		t.Errorf("snapshot order = %v, want [get_time get_weather]", got)
	}
	if r.InFlight() != 0 {
		t.Errorf("InFlight = %d, want 0", r.InFlight())
	}
}

func TestUnannouncedArgsDeltaOpensState(t *testing.T) {
	r := NewReducer(Options{})
	chunks := reduceSequence(t, r, []*responses.Event{
		argsDelta("fc_9", `{"a":1}`),
		callDone("fc_9", ""),
	})

	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	calls := chunks[0].FunctionCalls()
	if len(calls) != 1 || calls[0].Name != "" || calls[0].Args["a"] != float64(1) {
		t.Errorf("call = %+v, want unnamed with a=1", calls)
	}
}

func TestIncompleteArgsFaultWithoutSink(t *testing.T) {
	r := NewReducer(Options{})
	reduceSequence(t, r, []*responses.Event{
		callAdded("fc_1", "get_weather"),
		argsDelta("fc_1", `{"a":1`),
	})

	_, err := r.Reduce(callDone("fc_1", "get_weather"))
	var diag *Diagnostic
	if !errors.As(err, &diag) {
		t.Fatalf("error = %v (%T), want *Diagnostic", err, err)
	}
	if diag.Code != DiagArgsIncomplete {
		t.Errorf("code = %q, want %q", diag.Code, DiagArgsIncomplete)
	}
	// Cleanup happens even on the fault path.
	if r.InFlight() != 0 {
		t.Errorf("InFlight = %d after fault, want 0", r.InFlight())
	}
}

func TestIncompleteArgsReportedToSink(t *testing.T) {
	var seen []Diagnostic
	r := NewReducer(Options{Sink: func(d Diagnostic) { seen = append(seen, d) }})

	chunks := reduceSequence(t, r, []*responses.Event{
		callAdded("fc_1", "get_weather"),
		argsDelta("fc_1", `{"a":1`),
		callDone("fc_1", "get_weather"),
		completed(nil),
	})

	// No parsed-args chunk: announcement plus finish only.
	if len(chunks) != 2 {
		t.Fatalf("len(chunks) = %d, want 2", len(chunks))
	}
	if len(seen) != 1 || seen[0].Code != DiagArgsIncomplete {
		t.Fatalf("diagnostics = %+v, want one %s", seen, DiagArgsIncomplete)
	}
	if seen[0].Snippet != `{"a":1` {
		t.Errorf("snippet = %q, want the raw accumulation", seen[0].Snippet)
	}
}

func TestStrictModeTerminatesOnParseAnomaly(t *testing.T) {
	r := NewReducer(Options{Strict: true})
	reduceSequence(t, r, []*responses.Event{callAdded("fc_1", "f")})

	// Balanced but not valid JSON.
	_, err := r.Reduce(argsDelta("fc_1", `{"a" 1}`))
	var diag *Diagnostic
	if !errors.As(err, &diag) {
		t.Fatalf("error = %v, want *Diagnostic", err)
	}
	if diag.Code != DiagArgsParseError {
		t.Errorf("code = %q, want %q", diag.Code, DiagArgsParseError)
	}
}

func TestNonStrictParseAnomalyContinues(t *testing.T) {
	var seen []Diagnostic
	r := NewReducer(Options{Sink: func(d Diagnostic) { seen = append(seen, d) }})
	reduceSequence(t, r, []*responses.Event{callAdded("fc_1", "f")})

	chunks, err := r.Reduce(argsDelta("fc_1", `{"a" 1}`))
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("len(chunks) = %d, want 0", len(chunks))
	}
	if len(seen) != 1 || seen[0].Code != DiagArgsParseError {
		t.Errorf("diagnostics = %+v, want one %s", seen, DiagArgsParseError)
	}
}

func TestIncompleteResponseMapsToMaxTokens(t *testing.T) {
	r := NewReducer(Options{})
	chunks, err := r.Reduce(&responses.Event{
		Type:     responses.EventResponseIncomplete,
		Response: &responses.Response{Status: "incomplete"},
	})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Candidates[0].FinishReason != api.FinishReasonMaxTokens {
		t.Errorf("chunks = %+v, want single MAX_TOKENS finish", chunks)
	}
}

func TestFailedResponseIsTerminal(t *testing.T) {
	r := NewReducer(Options{})
	_, err := r.Reduce(&responses.Event{
		Type:     responses.EventResponseFailed,
		Response: &responses.Response{Error: &responses.ResponseError{Message: "backend overloaded"}},
	})
	if err == nil {
		t.Fatal("expected terminal error")
	}
}

func TestUnknownEventsIgnored(t *testing.T) {
	r := NewReducer(Options{})
	chunks, err := r.Reduce(&responses.Event{Type: "response.audio.delta", ItemID: "x", Delta: "zz"})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("unknown event emitted %d chunks, want 0", len(chunks))
	}
}
