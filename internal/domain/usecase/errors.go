package usecase

import "errors"

// ErrInvalidRequest is returned for submissions missing mandatory
// fields or the mandatory transcription capability.
var ErrInvalidRequest = errors.New("invalid request")

// ErrInsufficientQuota is returned when the cost estimate exceeds the
// user's remaining budget.
var ErrInsufficientQuota = errors.New("insufficient quota")

// ErrTerminalState is returned when advancing a job that already
// reached completed or failed.
var ErrTerminalState = errors.New("job is in a terminal state")

// ErrInvalidTransition is returned for backward status transitions.
// Both this and ErrProgressRegression indicate a pipeline bug, not a
// user-facing failure.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrProgressRegression is returned when a progress update is lower
// than the previously recorded value.
var ErrProgressRegression = errors.New("progress must be non-decreasing")
