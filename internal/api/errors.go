// Package api defines the wire-level error taxonomy shared by the HTTP
// handlers and the synthesis pipeline. Every request-level failure is
// classified into one coarse kind so clients can distinguish their own
// mistakes from backend trouble without parsing messages.
package api

import (
	"errors"
	"fmt"
)

// Kind is the coarse error classification carried on the wire.
type Kind string

const (
	KindValidation         Kind = "validation_error"
	KindNotFound           Kind = "not_found"
	KindDisabled           Kind = "disabled"
	KindMappingUnavailable Kind = "mapping_unavailable"
	KindGeneration         Kind = "generation_error"
	KindTimeout            Kind = "timeout"
	KindBackend            Kind = "backend_error"
	KindInternal           Kind = "internal_error"
)

// Error is a classified request-level failure. Param names the offending
// input field when the failure is user-caused, and is empty otherwise.
type Error struct {
	Kind    Kind
	Message string
	Param   string
	wrapped error
}

func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param %q)", e.Kind, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

// Validationf reports a user-caused input error for the named parameter.
func Validationf(param, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...), Param: param}
}

// NotFound reports an unknown voice name.
func NotFound(name string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("unknown voice %q", name), Param: "voice"}
}

// Disabled reports a voice that exists but is switched off.
func Disabled(name string) *Error {
	return &Error{Kind: KindDisabled, Message: fmt.Sprintf("voice %q is disabled", name), Param: "voice"}
}

// MappingUnavailable reports that the voice mapping could not be served
// from cache or backend.
func MappingUnavailable(err error) *Error {
	return &Error{Kind: KindMappingUnavailable, Message: "voice mapping unavailable", wrapped: err}
}

// Generation reports exhausted synthesis retries for a chunk.
func Generation(chunk int, err error) *Error {
	return &Error{
		Kind:    KindGeneration,
		Message: fmt.Sprintf("chunk %d: synthesis failed after retries: %v", chunk, err),
		wrapped: err,
	}
}

// Timeout reports an exceeded streaming wall-clock budget.
func Timeout(msg string) *Error {
	return &Error{Kind: KindTimeout, Message: msg}
}

// Backend reports a compute-backend failure surfaced to the client.
func Backend(err error) *Error {
	return &Error{Kind: KindBackend, Message: err.Error(), wrapped: err}
}

// Internal wraps an unclassified failure.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: err.Error(), wrapped: err}
}

// KindOf extracts the classification from err, defaulting to KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Payload is the JSON error body: {"error": {"message", "type", "param"}}.
type Payload struct {
	Message string `json:"message"`
	Type    Kind   `json:"type"`
	Param   string `json:"param,omitempty"`
}

// PayloadFor builds the wire payload for err.
func PayloadFor(err error) Payload {
	var ae *Error
	if errors.As(err, &ae) {
		return Payload{Message: ae.Message, Type: ae.Kind, Param: ae.Param}
	}
	return Payload{Message: err.Error(), Type: KindInternal}
}
