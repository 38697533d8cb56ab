package storage

import (
	"context"
	"testing"
)

func TestCallerRoundTrip(t *testing.T) {
	ctx := SetCaller(context.Background(), "svc-reporting")
	if got := GetCaller(ctx); got != "svc-reporting" {
		t.Errorf("GetCaller = %q, want %q", got, "svc-reporting")
	}
}

func TestCallerAbsent(t *testing.T) {
	if got := GetCaller(context.Background()); got != "" {
		t.Errorf("GetCaller = %q, want empty", got)
	}
}
