package engine

import "errors"

// Internal errors - re-exported as the public contract by package scheduler
var (
	// ErrRange: HTML view duration outside (0, MaxViewDuration].
	ErrRange = errors.New("scheduler: view duration out of range")

	// ErrUnknownSlot: submission to a name that is neither a primary nor a
	// fallback slot nor the default-slot name.
	ErrUnknownSlot = errors.New("scheduler: unknown view slot")

	// ErrConfiguration: illegal registration or default-designation ordering.
	ErrConfiguration = errors.New("scheduler: configuration error")

	// ErrRender wraps failures raised while starting or swapping a view. It
	// only ever reaches the view's Error callback, never the caller of Start.
	ErrRender = errors.New("scheduler: render failure")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("scheduler: already started")
)
