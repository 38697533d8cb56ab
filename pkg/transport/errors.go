package transport

import (
	"context"
	"errors"

	"github.com/mkappe/gemgate/pkg/api"
	"github.com/mkappe/gemgate/pkg/responses"
)

// AsAPIError normalizes any handler error to the Google-style envelope.
// Typed errors pass through; shape mismatches map to a backend error;
// cancellations and everything else become internal errors without
// leaking wrapped detail chains to the caller.
func AsAPIError(err error) *api.Error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, responses.ErrShapeMismatch):
		return api.NewUnavailable("backend returned an unexpected response shape")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return api.NewInternal("request cancelled")
	default:
		return api.NewInternal(err.Error())
	}
}
