package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/chatterbox-serve/internal/api"
)

const (
	// DefaultPollInterval is the fixed wait between polls; pulling at
	// this cadence is the sole backpressure mechanism against the
	// backend.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultTimeout bounds the whole stream's wall-clock time.
	DefaultTimeout = 5 * time.Minute
)

// Relay drives one job's poll loop and pushes increments downstream.
// One Relay instance serves one client connection.
type Relay struct {
	backend  Backend
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger
}

// Option configures a Relay.
type Option func(*Relay)

// WithPollInterval overrides the poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(r *Relay) { r.interval = d }
}

// WithTimeout overrides the overall wall-clock budget.
func WithTimeout(d time.Duration) Option {
	return func(r *Relay) { r.timeout = d }
}

// WithLogger sets the slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Relay) { r.log = l }
}

// New builds a Relay over backend.
func New(backend Backend, opts ...Option) *Relay {
	r := &Relay{
		backend:  backend,
		interval: DefaultPollInterval,
		timeout:  DefaultTimeout,
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run polls jobID until a terminal state, forwarding each increment to
// out exactly once, in backend order. out is closed before Run returns on
// every path. Cancelling ctx (downstream disconnect) aborts the loop
// promptly and asks the backend to drop the job; hitting the wall-clock
// budget forwards a single error event. The returned error reports why
// the stream ended and is nil only for normal completion.
func (r *Relay) Run(ctx context.Context, jobID string, out chan<- Event) error {
	defer close(out)

	deadline := time.NewTimer(r.timeout)
	defer deadline.Stop()

	forwarded := 0
	terminalSent := false

	send := func(ev Event) bool {
		select {
		case out <- ev:
			if ev.Type != EventAudio {
				terminalSent = true
			}
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		st, err := r.backend.Poll(ctx, jobID)
		if err != nil {
			if ctx.Err() != nil {
				r.abandon(jobID)
				return ctx.Err()
			}
			wrapped := api.Backend(fmt.Errorf("poll job %s: %w", jobID, err))
			send(errorEvent(wrapped.Message))
			return wrapped
		}

		// The backend's event list is contractually append-only and
		// stable-ordered. A shrinking list means the contract broke;
		// surface it rather than risk duplicate or skipped increments.
		if len(st.Stream) < forwarded {
			wrapped := api.Backend(fmt.Errorf("job %s: backend truncated event list (%d < %d)",
				jobID, len(st.Stream), forwarded))
			send(errorEvent(wrapped.Message))
			return wrapped
		}

		// Delta-forward: only events beyond the forwarded count, in order.
		for _, item := range st.Stream[forwarded:] {
			if !send(itemEvent(item)) {
				r.abandon(jobID)
				return ctx.Err()
			}
			forwarded++
		}

		switch st.Status {
		case StatusCompleted:
			if !terminalSent {
				send(completeEvent(countAudio(st.Stream), 0))
			}
			r.log.InfoContext(ctx, "stream completed",
				slog.String("job_id", jobID),
				slog.Int("events", forwarded),
			)
			return nil
		case StatusFailed:
			if !terminalSent {
				send(errorEvent("backend job failed"))
			}
			return api.Backend(fmt.Errorf("job %s failed", jobID))
		case StatusCanceled:
			if !terminalSent {
				send(errorEvent("backend job canceled"))
			}
			return api.Backend(fmt.Errorf("job %s canceled", jobID))
		}

		select {
		case <-time.After(r.interval):
		case <-ctx.Done():
			r.abandon(jobID)
			return ctx.Err()
		case <-deadline.C:
			timeoutErr := api.Timeout(fmt.Sprintf("no terminal status for job %s within %s", jobID, r.timeout))
			send(errorEvent(timeoutErr.Message))
			r.abandon(jobID)
			return timeoutErr
		}
	}
}

// abandon releases the relay's interest in the backend job. The job's own
// lifecycle belongs to the backend; this is a best-effort courtesy call.
func (r *Relay) abandon(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.backend.Cancel(ctx, jobID); err != nil {
		r.log.Warn("backend job cancel failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

func itemEvent(item StreamItem) Event {
	switch {
	case item.Error != "":
		return errorEvent(item.Error)
	case item.Status == "complete":
		return completeEvent(item.TotalChunks, item.ElapsedTimeSeconds)
	default:
		return audioEvent(item.Chunk, item.SampleRate, item.AudioChunk)
	}
}

func countAudio(items []StreamItem) int {
	n := 0
	for _, item := range items {
		if item.Error == "" && item.Status != "complete" {
			n++
		}
	}
	return n
}
