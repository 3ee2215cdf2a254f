package provider

import (
	"context"
	"log"
	"time"

	"mediaflow/internal/domain/entity"
)

const (
	defaultPollInterval   = time.Second
	defaultAttemptTimeout = 90 * time.Second
)

// Router drives the fallback chain: providers are attempted in order
// until one returns a non-empty normalized transcript. First success
// wins; no further providers are attempted.
type Router struct {
	providers      []TranscriptionProvider
	pollInterval   time.Duration
	attemptTimeout time.Duration
}

// RouterOption adjusts Router timing parameters.
type RouterOption func(*Router)

// WithPollInterval overrides the fixed interval between polls.
func WithPollInterval(d time.Duration) RouterOption {
	return func(r *Router) { r.pollInterval = d }
}

// WithAttemptTimeout overrides the per-provider attempt timeout.
func WithAttemptTimeout(d time.Duration) RouterOption {
	return func(r *Router) { r.attemptTimeout = d }
}

// NewRouter creates a router over the configured providers, given in
// fixed priority order.
func NewRouter(providers []TranscriptionProvider, opts ...RouterOption) *Router {
	r := &Router{
		providers:      providers,
		pollInterval:   defaultPollInterval,
		attemptTimeout: defaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Candidates returns the attempt order for a preferred provider:
// preferred first, then the remaining configured providers in fixed
// priority order. An unknown or empty preferred name leaves the
// priority order untouched.
func (r *Router) Candidates(preferred string) []TranscriptionProvider {
	out := make([]TranscriptionProvider, 0, len(r.providers))
	for _, p := range r.providers {
		if p.Name() == preferred {
			out = append(out, p)
		}
	}
	for _, p := range r.providers {
		if p.Name() != preferred {
			out = append(out, p)
		}
	}
	return out
}

// Transcribe runs the fallback chain for one media reference. The
// onProgress callback, if set, is invoked on every poll of the active
// provider so the caller can surface liveness. Returns the normalized
// segments and the name of the provider that produced them, or an
// *AllProvidersFailedError when the chain is exhausted.
func (r *Router) Transcribe(ctx context.Context, req Request, preferred string, onProgress func(provider string)) ([]entity.TranscriptionSegment, string, error) {
	exhausted := &AllProvidersFailedError{}

	for _, p := range r.Candidates(preferred) {
		if !covers(p.Capabilities(), req.Capabilities) {
			log.Printf("provider %s does not cover all requested capabilities, attempting anyway", p.Name())
		}

		segments, err := r.attempt(ctx, p, req, onProgress)
		if err != nil {
			log.Printf("provider %s failed: %v", p.Name(), err)
			exhausted.Attempts = append(exhausted.Attempts, Attempt{Provider: p.Name(), Reason: err.Error()})
			continue
		}
		return segments, p.Name(), nil
	}

	return nil, "", exhausted
}

// attempt submits to one provider and polls until completion, terminal
// failure, or the per-provider timeout. An empty transcript counts as
// failure so the chain can advance.
func (r *Router) attempt(ctx context.Context, p TranscriptionProvider, req Request, onProgress func(provider string)) ([]entity.TranscriptionSegment, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.attemptTimeout)
	defer cancel()

	ref, err := p.Submit(attemptCtx, req)
	if err != nil {
		return nil, err
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-attemptCtx.Done():
			return nil, attemptCtx.Err()
		case <-ticker.C:
		}

		if onProgress != nil {
			onProgress(p.Name())
		}

		status, err := p.Poll(attemptCtx, ref)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case StateCompleted:
			if len(status.Segments) == 0 {
				return nil, errEmptyTranscript
			}
			return status.Segments, nil
		case StateFailed:
			return nil, &attemptError{reason: status.Error}
		}
	}
}

var errEmptyTranscript = &attemptError{reason: "provider returned an empty transcript"}

type attemptError struct {
	reason string
}

func (e *attemptError) Error() string {
	if e.reason == "" {
		return "provider reported failure"
	}
	return e.reason
}

// covers reports whether a provider's capability coverage includes
// everything the request asked for. Transcription itself is implied.
func covers(have, want entity.Capabilities) bool {
	if want.Sentiment && !have.Sentiment {
		return false
	}
	if want.Chapters && !have.Chapters {
		return false
	}
	if want.Diarization && !have.Diarization {
		return false
	}
	if want.Entities && !have.Entities {
		return false
	}
	return true
}
