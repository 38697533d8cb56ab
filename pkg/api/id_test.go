package api

import (
	"strings"
	"testing"
)

func TestIDGenerator_CallID(t *testing.T) {
	gen := NewIDGenerator()

	id := gen.CallID()
	if !strings.HasPrefix(id, "call_") {
		t.Errorf("CallID() = %q, want call_ prefix", id)
	}
	if len(id) != len("call_")+24 {
		t.Errorf("CallID() length = %d, want %d", len(id), len("call_")+24)
	}
	if !ValidateCallID(id) {
		t.Errorf("generated ID %q fails validation", id)
	}

	// Two generations must differ.
	if other := gen.CallID(); other == id {
		t.Errorf("two generated IDs are identical: %q", id)
	}
}

func TestDeterministicIDGenerator(t *testing.T) {
	gen := NewDeterministicIDGenerator()

	if got := gen.CallID(); got != "call_1" {
		t.Errorf("first CallID() = %q, want call_1", got)
	}
	if got := gen.CallID(); got != "call_2" {
		t.Errorf("second CallID() = %q, want call_2", got)
	}
	if got := gen.ResponseID(); got != "resp_3" {
		t.Errorf("ResponseID() = %q, want resp_3", got)
	}

	// Independent generators restart from 1.
	if got := NewDeterministicIDGenerator().CallID(); got != "call_1" {
		t.Errorf("fresh generator CallID() = %q, want call_1", got)
	}
}

func TestValidateCallID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"call_abc123", true},
		{"call_1", true},
		{"resp_abc", false},
		{"call_", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidateCallID(tt.id); got != tt.valid {
			t.Errorf("ValidateCallID(%q) = %v, want %v", tt.id, got, tt.valid)
		}
	}
}
