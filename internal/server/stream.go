package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/example/chatterbox-serve/internal/api"
	"github.com/example/chatterbox-serve/internal/relay"
)

// handleStream serves POST /tts/stream as a server-sent event stream.
// Errors before the first event use the normal JSON error envelope; once
// streaming has begun, failures arrive as error events on the stream.
func (h *handler) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.jobs == nil {
		writeError(w, http.StatusNotImplemented, "streaming backend not configured")
		return
	}

	req, err := decodeTTSRequest(r)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if err := h.validateText(req.Text); err != nil {
		writeAPIError(w, err)
		return
	}
	if err := req.Params.Validate(); err != nil {
		writeAPIError(w, err)
		return
	}

	voiceRef, err := h.voices.Lookup(r.Context(), req.Voice)
	if err != nil {
		writeAPIError(w, err)
		return
	}

	jobID, err := h.jobs.Submit(r.Context(), relay.JobRequest{
		Text:     req.Text,
		VoiceRef: voiceRef,
		Params:   req.Params,
	})
	if err != nil {
		writeAPIError(w, api.Backend(err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported by connection")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	rl := relay.New(h.jobs,
		relay.WithPollInterval(h.opts.pollInterval),
		relay.WithTimeout(h.opts.streamTimeout),
		relay.WithLogger(h.log),
	)

	out := make(chan relay.Event)
	done := make(chan error, 1)
	go func() {
		done <- rl.Run(r.Context(), jobID, out)
	}()

	for ev := range out {
		if err := writeSSE(w, ev); err != nil {
			// Client went away; the relay sees the context cancellation.
			break
		}
		flusher.Flush()
	}

	if err := <-done; err != nil {
		h.log.WarnContext(r.Context(), "stream ended with error",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

type sseAudioMeta struct {
	Chunk      int `json:"chunk"`
	SampleRate int `json:"sample_rate"`
}

type sseAudioData struct {
	Chunk      int    `json:"chunk"`
	AudioChunk string `json:"audio_chunk"`
}

type sseCompleteData struct {
	TotalChunks        int     `json:"total_chunks"`
	ElapsedTimeSeconds float64 `json:"elapsed_time_seconds"`
}

type sseErrorData struct {
	Error string `json:"error"`
}

// writeSSE emits the server-sent event frames for ev. An audio increment
// becomes two frames: an audio frame with the chunk metadata, then an
// audio_data frame carrying the payload.
func writeSSE(w http.ResponseWriter, ev relay.Event) error {
	switch ev.Type {
	case relay.EventAudio:
		if err := writeFrame(w, "audio", sseAudioMeta{
			Chunk:      ev.Audio.ChunkIndex,
			SampleRate: ev.Audio.SampleRate,
		}); err != nil {
			return err
		}
		return writeFrame(w, "audio_data", sseAudioData{
			Chunk:      ev.Audio.ChunkIndex,
			AudioChunk: ev.Audio.Payload,
		})
	case relay.EventComplete:
		return writeFrame(w, "complete", sseCompleteData{
			TotalChunks:        ev.Complete.TotalChunks,
			ElapsedTimeSeconds: ev.Complete.ElapsedSec,
		})
	case relay.EventError:
		return writeFrame(w, "error", sseErrorData{Error: ev.Err.Message})
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
}

func writeFrame(w http.ResponseWriter, event string, data any) error {
	encoded, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, encoded)
	return err
}
