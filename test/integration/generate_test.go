package integration

import (
	"net/http"
	"testing"

	"github.com/mkappe/gemgate/pkg/api"
)

func TestGenerateContent(t *testing.T) {
	resp := postJSON(t, generateURL("mock-model"), textRequest("Hello"))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body api.GenerateContentResponse
	decodeJSON(t, resp, &body)

	if len(body.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(body.Candidates))
	}
	cand := body.Candidates[0]
	if cand.FinishReason != api.FinishReasonStop {
		t.Errorf("finishReason = %q, want STOP", cand.FinishReason)
	}
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		t.Fatal("candidate has no content parts")
	}
	if got := cand.Content.Parts[0].Text; got != "Hello from mock!" {
		t.Errorf("text = %q, want %q", got, "Hello from mock!")
	}
	if body.UsageMetadata == nil || body.UsageMetadata.TotalTokenCount != 14 {
		t.Errorf("usageMetadata = %+v, want total 14", body.UsageMetadata)
	}
}

func TestGenerateContentRecordsUsage(t *testing.T) {
	resp := postJSON(t, generateURL("oneshot-model"), textRequest("Hello"))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	readBody(t, resp)

	records, err := testEnv.Ledger.Recent(t.Context(), 50)
	if err != nil {
		t.Fatalf("reading ledger: %v", err)
	}
	found := false
	for _, rec := range records {
		if rec.Model == "oneshot-model" {
			found = true
			if rec.Streamed {
				t.Error("one-shot request recorded as streamed")
			}
		}
	}
	if !found {
		t.Error("no usage record for oneshot-model")
	}
}
