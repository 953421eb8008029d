package models

import "errors"

// Stable error kinds surfaced by the core. Handlers translate these into
// HTTP codes; everything else is treated as internal.
var (
	// ErrInvalidInput marks a malformed, missing or non-finite feature vector.
	ErrInvalidInput = errors.New("invalid input")

	// ErrModelUnavailable marks an instrument with no bundle ever published.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrStoreWrite marks a failed durable feedback append.
	ErrStoreWrite = errors.New("store write failure")

	// ErrRetrain marks a retrain attempt that must not publish a bundle.
	ErrRetrain = errors.New("retrain failure")

	// ErrUnknownInstrument marks a symbol outside the configured set.
	ErrUnknownInstrument = errors.New("unknown instrument")
)
