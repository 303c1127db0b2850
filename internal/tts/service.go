package tts

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/chatterbox-serve/internal/audio"
	"github.com/example/chatterbox-serve/internal/text"
	"github.com/example/chatterbox-serve/internal/voice"
	"github.com/google/uuid"
)

// SynthesisRequest is a fully decoded batch request. The batch/stream
// decision is made once at the HTTP boundary; by the time a request
// reaches this service it is unconditionally batch.
type SynthesisRequest struct {
	Text              string
	Voice             string
	Params            Params
	NormalizeLoudness bool
	SessionID         string
}

// ServiceConfig bundles the tunables of the batch pipeline.
type ServiceConfig struct {
	MaxTextLen   int
	MaxChunkLen  int
	Workers      int
	ChunkGap     time.Duration
	WatermarkKey string
	TargetLUFS   float64
}

// Service runs the batch flow: resolve voice, chunk text, generate per
// chunk, post-process the assembled signal, dispatch the artifact.
type Service struct {
	resolver   *voice.Resolver
	orch       *Orchestrator
	dispatcher *Dispatcher
	cfg        ServiceConfig
	log        *slog.Logger
}

// NewService wires the batch pipeline.
func NewService(resolver *voice.Resolver, model Model, dispatcher *Dispatcher, cfg ServiceConfig, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ChunkGap <= 0 {
		cfg.ChunkGap = audio.DefaultChunkGap
	}
	if cfg.TargetLUFS == 0 {
		cfg.TargetLUFS = audio.DefaultTargetLUFS
	}
	return &Service{
		resolver:   resolver,
		orch:       NewOrchestrator(model, cfg.Workers, log),
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
	}
}

// Synthesize runs one batch request end to end. It is all-or-nothing:
// any chunk failure fails the whole request and no partial audio escapes.
func (s *Service) Synthesize(ctx context.Context, req SynthesisRequest) (Result, error) {
	if err := req.Params.Validate(); err != nil {
		return Result{}, err
	}

	voiceRef, err := s.resolver.Lookup(ctx, req.Voice)
	if err != nil {
		return Result{}, err
	}

	chunks, err := text.Split(req.Text, s.cfg.MaxTextLen, s.cfg.MaxChunkLen)
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	genReq := Request{VoiceRef: voiceRef, Params: req.Params}

	results, err := s.orch.Generate(ctx, chunks, genReq)
	if err != nil {
		return Result{}, err
	}

	clip, err := audio.Assemble(results, s.cfg.ChunkGap)
	if err != nil {
		return Result{}, err
	}

	clip.Samples = audio.Watermark(clip.Samples, s.cfg.WatermarkKey)

	if req.NormalizeLoudness {
		normalized, err := audio.NormalizeLoudness(clip.Samples, clip.SampleRate, s.cfg.TargetLUFS)
		if err != nil {
			return Result{}, err
		}
		clip.Samples = normalized
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	res, err := s.dispatcher.Dispatch(ctx, clip, sessionID)
	if err != nil {
		return Result{}, err
	}

	s.log.InfoContext(ctx, "synthesis complete",
		slog.String("voice", req.Voice),
		slog.Int("text_len", len(req.Text)),
		slog.Int("chunks", len(chunks)),
		slog.Float64("duration_sec", res.DurationSec),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)

	return res, nil
}
