package models

import "errors"

var (
	// ErrConfig marks a fatal startup configuration problem.
	ErrConfig = errors.New("configuration error")
	// ErrMalformedRecord marks a single historical record that failed to parse.
	ErrMalformedRecord = errors.New("malformed record")
	// ErrDataUnavailable marks a tick without price or signal data.
	ErrDataUnavailable = errors.New("data unavailable")
)
