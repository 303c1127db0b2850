package tts

import (
	"context"
	"errors"
)

// Model is the external synthesis capability, consumed once per chunk.
// The underlying session or handle is borrowed for the duration of one
// call; implementations must not assume ownership across requests.
type Model interface {
	Synthesize(ctx context.Context, chunkText string, req Request) (samples []float32, sampleRate int, err error)
}

// transientError marks a synthesis failure worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient wraps err so the orchestrator retries the chunk.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// Transient reports whether err was marked retryable by the model.
func Transient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}
