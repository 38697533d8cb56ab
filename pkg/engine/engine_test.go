package engine

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/responses"
	"github.com/mkappe/gemgate/pkg/storage/memory"
	"github.com/mkappe/gemgate/pkg/transport"
)

// stubBackend serves canned payloads and records the translated request.
type stubBackend struct {
	streamPayload   string
	completePayload string
	framing         responses.Framing
	lastRequest     *responses.Request
}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Stream(_ context.Context, req *responses.Request) (io.ReadCloser, error) {
	s.lastRequest = req
	return io.NopCloser(strings.NewReader(s.streamPayload)), nil
}

func (s *stubBackend) Complete(_ context.Context, req *responses.Request) ([]byte, responses.Framing, error) {
	s.lastRequest = req
	return []byte(s.completePayload), s.framing, nil
}

func (s *stubBackend) Close() error { return nil }

func textRequest(prompt string) *transport.Request {
	return &transport.Request{
		Model: "gemini-pro",
		Body: &api.GenerateContentRequest{
			Contents: []api.Content{{Role: "user", Parts: []api.Part{{Text: prompt}}}},
		},
	}
}

func TestEngineStreamGenerateContent(t *testing.T) {
	backend := &stubBackend{streamPayload: textStreamSSE}
	eng := New(backend, memory.New(0), Config{})

	var chunks []*api.GenerateContentResponse
	for chunk, err := range eng.StreamGenerateContent(context.Background(), textRequest("Say hello")) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 3 {
		t.Fatalf("len(chunks) = %d, want 3", len(chunks))
	}
	if got := chunks[0].Text() + chunks[1].Text(); got != "Hello" {
		t.Errorf("text = %q, want Hello", got)
	}

	if backend.lastRequest == nil || !backend.lastRequest.Stream {
		t.Error("backend request must have stream enabled")
	}
	if backend.lastRequest.Store {
		t.Error("backend request must have store disabled")
	}
}

func TestEngineGenerateContentAggregates(t *testing.T) {
	backend := &stubBackend{
		completePayload: `{"id":"resp_1","status":"completed","output":[{"id":"msg_1","type":"message","content":[{"type":"output_text","text":"Hello"}]}],"usage":{"input_tokens":3,"output_tokens":1,"total_tokens":4}}`,
		framing:         responses.FramingRaw,
	}
	eng := New(backend, memory.New(0), Config{})

	resp, err := eng.GenerateContent(context.Background(), textRequest("Say hello"))
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}
	if resp.Text() != "Hello" {
		t.Errorf("text = %q, want Hello", resp.Text())
	}
	if resp.Candidates[0].FinishReason != api.FinishReasonStop {
		t.Errorf("finish reason = %q, want STOP", resp.Candidates[0].FinishReason)
	}
	if backend.lastRequest == nil || backend.lastRequest.Stream {
		t.Error("backend request must not have stream enabled")
	}
}

func TestEngineRejectsInvalidRequest(t *testing.T) {
	eng := New(&stubBackend{}, nil, Config{})

	_, err := eng.GenerateContent(context.Background(), &transport.Request{
		Model: "gemini-pro",
		Body:  &api.GenerateContentRequest{},
	})
	apiErr, ok := err.(*api.Error)
	if !ok || apiErr.Status != api.StatusInvalidArgument {
		t.Fatalf("error = %v, want INVALID_ARGUMENT", err)
	}
}

func TestEngineRecordsUsage(t *testing.T) {
	ledger := memory.New(0)
	backend := &stubBackend{streamPayload: textStreamSSE}
	eng := New(backend, ledger, Config{})

	ctx := transport.ContextWithRequestID(context.Background(), "req_abc")
	for _, err := range eng.StreamGenerateContent(ctx, textRequest("hi")) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
	}

	recs, err := ledger.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.RequestID != "req_abc" || rec.Model != "gemini-pro" {
		t.Errorf("record = %+v", rec)
	}
	if rec.TotalTokens != 5 || !rec.Streamed {
		t.Errorf("record accounting = %+v, want total 5 streamed", rec)
	}
}

func TestEngineNilLedger(t *testing.T) {
	backend := &stubBackend{streamPayload: textStreamSSE}
	eng := New(backend, nil, Config{})

	for _, err := range eng.StreamGenerateContent(context.Background(), textRequest("hi")) {
		if err != nil {
			t.Fatalf("stream error with nil ledger: %v", err)
		}
	}
}
