package tts

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/chatterbox-serve/internal/api"
	"github.com/example/chatterbox-serve/internal/audio"
	"github.com/example/chatterbox-serve/internal/text"
	"golang.org/x/sync/errgroup"
)

const (
	// maxChunkRetries bounds retries per chunk on transient failures.
	maxChunkRetries = 2
	retryBackoff    = 250 * time.Millisecond
)

// Orchestrator invokes the model once per text chunk on a bounded worker
// pool. Completion order is arbitrary; each result lands in its index slot
// so the assembled output always reflects index order. A chunk that
// exhausts its retries fails the whole request: batch mode never returns
// partial audio.
type Orchestrator struct {
	model   Model
	workers int
	log     *slog.Logger
}

// NewOrchestrator builds an Orchestrator running at most workers
// concurrent synthesis calls (minimum 1).
func NewOrchestrator(model Model, workers int, log *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{model: model, workers: workers, log: log}
}

// Generate synthesizes every chunk with the shared request bundle and
// returns the results ordered by chunk index.
func (o *Orchestrator) Generate(ctx context.Context, chunks []text.Chunk, req Request) ([]audio.Chunk, error) {
	results := make([]audio.Chunk, len(chunks))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, c := range chunks {
		g.Go(func() error {
			samples, rate, err := o.generateChunk(ctx, c, req)
			if err != nil {
				return api.Generation(c.Index, err)
			}
			results[c.Index] = audio.Chunk{Index: c.Index, Samples: samples, SampleRate: rate}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *Orchestrator) generateChunk(ctx context.Context, c text.Chunk, req Request) ([]float32, int, error) {
	var lastErr error

	for attempt := 0; attempt <= maxChunkRetries; attempt++ {
		if attempt > 0 {
			o.log.WarnContext(ctx, "retrying chunk synthesis",
				slog.Int("chunk", c.Index),
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()),
			)
			select {
			case <-time.After(retryBackoff):
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			}
		}

		samples, rate, err := o.model.Synthesize(ctx, c.Text, req)
		if err == nil {
			return samples, rate, nil
		}
		lastErr = err

		if !Transient(err) || ctx.Err() != nil {
			break
		}
	}

	return nil, 0, lastErr
}
