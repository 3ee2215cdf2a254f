package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mediaflow/internal/domain/entity"
)

// ErrNotConfigured is returned by adapter constructors when the
// provider's credentials are missing from the environment.
var ErrNotConfigured = errors.New("provider not configured")

// Request describes one transcription attempt handed to an adapter.
// MediaURL must be fetchable by the provider for the lifetime of the
// attempt (a signed blob-store URL in production).
type Request struct {
	MediaURL     string
	Language     string
	Capabilities entity.Capabilities
}

// State is an adapter-reported attempt state.
type State string

const (
	StateWorking   State = "working"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is one poll observation of a submitted attempt. Segments are
// populated only when State is StateCompleted and must satisfy the
// normalization contract: ordered, non-overlapping, times in seconds,
// confidence in [0,1].
type Status struct {
	State    State
	Error    string
	Segments []entity.TranscriptionSegment
}

// TranscriptionProvider wraps one external analysis backend behind a
// uniform submit/poll contract.
type TranscriptionProvider interface {
	Name() string
	// Capabilities reports which optional features the backend covers.
	Capabilities() entity.Capabilities
	// Submit starts one transcription attempt and returns an opaque
	// attempt reference for polling.
	Submit(ctx context.Context, req Request) (string, error)
	// Poll reports the current state of a previously submitted attempt.
	Poll(ctx context.Context, ref string) (Status, error)
}

// Attempt records why one provider in the fallback chain failed.
type Attempt struct {
	Provider string
	Reason   string
}

// AllProvidersFailedError is returned when the fallback chain is
// exhausted without a successful transcription.
type AllProvidersFailedError struct {
	Attempts []Attempt
}

func (e *AllProvidersFailedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all providers failed: no providers configured"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Reason))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}
