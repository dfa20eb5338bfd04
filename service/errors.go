package service

import "errors"

// Failure kinds of a predict request. The HTTP layer maps each one to a
// status code and a public message; wrapped causes stay server side.
var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrNoFile           = errors.New("no image uploaded")
	ErrEmptyFile        = errors.New("no selected file")
	ErrTooLarge         = errors.New("image too large")
	ErrDecodeFailed     = errors.New("failed to decode image")
	ErrInferenceFailed  = errors.New("inference failed")
)
