// Package relay bridges the compute backend's submit-and-poll job
// protocol to a push-style event stream: it polls one job, forwards only
// newly observed increments downstream in order, and enforces the overall
// streaming timeout and cancellation.
package relay

// EventType tags an Event.
type EventType string

const (
	EventAudio    EventType = "audio"
	EventComplete EventType = "complete"
	EventError    EventType = "error"
)

// Event is one increment pushed downstream. Exactly one of the payload
// fields matching Type is set.
type Event struct {
	Type     EventType
	Audio    *AudioEvent
	Complete *CompleteEvent
	Err      *ErrorEvent
}

// AudioEvent carries one generated chunk. Payload is the base64-encoded
// audio exactly as the backend produced it.
type AudioEvent struct {
	ChunkIndex int
	SampleRate int
	Payload    string
}

// CompleteEvent closes a successful stream.
type CompleteEvent struct {
	TotalChunks int
	ElapsedSec  float64
}

// ErrorEvent closes a failed, canceled, or timed-out stream.
type ErrorEvent struct {
	Message string
}

func audioEvent(chunk, rate int, payload string) Event {
	return Event{Type: EventAudio, Audio: &AudioEvent{ChunkIndex: chunk, SampleRate: rate, Payload: payload}}
}

func completeEvent(total int, elapsed float64) Event {
	return Event{Type: EventComplete, Complete: &CompleteEvent{TotalChunks: total, ElapsedSec: elapsed}}
}

func errorEvent(msg string) Event {
	return Event{Type: EventError, Err: &ErrorEvent{Message: msg}}
}
