package service

import (
	"errors"
	"fmt"
)

// ErrPrimaryDisabled means no provider API key is configured; the service
// runs in captions-only mode.
var ErrPrimaryDisabled = errors.New("primary transcription disabled: no api key")

// ValidationError marks text below the caching threshold. The text is still
// handed to the caller; it is just never persisted.
type ValidationError struct {
	Chars int
	Words int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transcript below validity threshold: %d chars, %d words", e.Chars, e.Words)
}

// NoFallbackError is the terminal failure: the primary pipeline failed and
// the caption fallback could not rescue the request. It carries both
// reasons so the caller sees the full picture in one message.
type NoFallbackError struct {
	Primary  error
	Fallback error
}

func (e *NoFallbackError) Error() string {
	return fmt.Sprintf("transcription failed: %v; caption fallback failed: %v", e.Primary, e.Fallback)
}

func (e *NoFallbackError) Unwrap() error { return e.Fallback }
