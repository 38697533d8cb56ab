package api

import (
	"encoding/json"
	"testing"
)

func TestErrorEnvelope_Wire(t *testing.T) {
	resp := ErrorResponse{Error: NewInvalidArgument("contents must not be empty")}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"error":{"code":400,"status":"INVALID_ARGUMENT","message":"contents must not be empty"}}`
	if string(data) != want {
		t.Errorf("wire format mismatch:\n got: %s\nwant: %s", data, want)
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		err      *Error
		code     int
		status   Status
	}{
		{NewInvalidArgument("m"), 400, StatusInvalidArgument},
		{NewUnauthenticated("m"), 401, StatusUnauthenticated},
		{NewNotFound("m"), 404, StatusNotFound},
		{NewResourceExhausted("m"), 429, StatusResourceExhausted},
		{NewInternal("m"), 500, StatusInternal},
		{NewUnavailable("m"), 503, StatusUnavailable},
	}

	for _, tt := range tests {
		if tt.err.Code != tt.code || tt.err.Status != tt.status {
			t.Errorf("got code=%d status=%s, want code=%d status=%s",
				tt.err.Code, tt.err.Status, tt.code, tt.status)
		}
	}
}

func TestError_ErrorString(t *testing.T) {
	e := NewInternal("backend unreachable")
	if got := e.Error(); got != "INTERNAL: backend unreachable" {
		t.Errorf("Error() = %q", got)
	}
}
