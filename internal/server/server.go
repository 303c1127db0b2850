package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/chatterbox-serve/internal/api"
	"github.com/example/chatterbox-serve/internal/relay"
	"github.com/example/chatterbox-serve/internal/tts"
	"github.com/example/chatterbox-serve/internal/voice"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Synthesizer runs one batch synthesis request end to end.
type Synthesizer interface {
	Synthesize(ctx context.Context, req tts.SynthesisRequest) (tts.Result, error)
}

// VoiceResolver lists known voices and resolves a name to its reference
// audio for streaming submissions.
type VoiceResolver interface {
	List(ctx context.Context) ([]voice.Voice, error)
	Lookup(ctx context.Context, name string) (string, error)
}

// JobBackend is the streaming-side surface: submit a job, then poll and
// cancel it through the relay.
type JobBackend interface {
	Submit(ctx context.Context, req relay.JobRequest) (string, error)
	relay.Backend
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxTextLen     int
	workers        int
	requestTimeout time.Duration
	pollInterval   time.Duration
	streamTimeout  time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxTextLen:     2000,
		workers:        2,
		requestTimeout: 120 * time.Second,
		pollInterval:   relay.DefaultPollInterval,
		streamTimeout:  relay.DefaultTimeout,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxTextLen sets the maximum allowed text length for POST /tts.
func WithMaxTextLen(n int) Option {
	return func(o *options) { o.maxTextLen = n }
}

// WithWorkers sets the maximum number of concurrent batch requests.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request synthesis deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithPollInterval sets the streaming relay's poll cadence.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithStreamTimeout sets the overall streaming wall-clock budget.
func WithStreamTimeout(d time.Duration) Option {
	return func(o *options) { o.streamTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	synth  Synthesizer
	voices VoiceResolver
	jobs   JobBackend
	opts   options
	sem    chan struct{} // semaphore for concurrent batch requests
	log    *slog.Logger
}

// NewHandler returns an http.Handler serving /health, /voices, POST /tts,
// and POST /tts/stream. jobs may be nil; streaming then reports the
// feature as unavailable.
func NewHandler(synth Synthesizer, voices VoiceResolver, jobs JobBackend, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		synth:  synth,
		voices: voices,
		jobs:   jobs,
		opts:   opts,
		log:    opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/voices", h.handleVoices)
	mux.HandleFunc("/tts", h.handleTTS)
	mux.HandleFunc("/tts/stream", h.handleStream)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

func (h *handler) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := h.voices.List(r.Context())
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if voices == nil {
		voices = []voice.Voice{}
	}
	writeJSON(w, http.StatusOK, voices)
}

type ttsRequest struct {
	Text              string `json:"text"`
	Voice             string `json:"voice"`
	NormalizeLoudness *bool  `json:"normalize_loudness,omitempty"`
	SessionID         string `json:"session_id,omitempty"`
	tts.Params
}

// decodeTTSRequest decodes the shared request body of /tts and
// /tts/stream. Sampling params start at their defaults so absent fields
// keep them instead of zeroing them.
func decodeTTSRequest(r *http.Request) (ttsRequest, error) {
	req := ttsRequest{Params: tts.DefaultParams()}
	if r.Body == nil {
		return req, api.Validationf("", "request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, api.Validationf("", "invalid JSON: %s", err.Error())
	}
	if req.Text == "" {
		return req, api.Validationf("text", "text field is required")
	}
	return req, nil
}

func (h *handler) validateText(text string) error {
	if len(text) > h.opts.maxTextLen {
		return api.Validationf("text", "text exceeds maximum length of %d characters", h.opts.maxTextLen)
	}
	return nil
}

func (h *handler) handleTTS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
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

	// Acquire a request slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
			// slot acquired
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	normalize := true
	if req.NormalizeLoudness != nil {
		normalize = *req.NormalizeLoudness
	}

	start := time.Now()
	res, err := h.synth.Synthesize(ctx, tts.SynthesisRequest{
		Text:              req.Text,
		Voice:             req.Voice,
		Params:            req.Params,
		NormalizeLoudness: normalize,
		SessionID:         req.SessionID,
	})
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		h.log.ErrorContext(r.Context(), "synthesis failed",
			slog.String("voice", req.Voice),
			slog.Int("text_len", len(req.Text)),
			slog.Int64("duration_ms", durationMS),
			slog.String("error", err.Error()),
		)
		writeAPIError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "synthesis complete",
		slog.String("voice", req.Voice),
		slog.Int("text_len", len(req.Text)),
		slog.Int64("duration_ms", durationMS),
		slog.Float64("audio_sec", res.DurationSec),
	)

	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"message": msg}})
}

// writeAPIError maps a taxonomy error to its HTTP status and wire payload.
func writeAPIError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForKind(api.KindOf(err)), map[string]any{"error": api.PayloadFor(err)})
}

func statusForKind(kind api.Kind) int {
	switch kind {
	case api.KindValidation, api.KindNotFound, api.KindDisabled:
		return http.StatusBadRequest
	case api.KindMappingUnavailable:
		return http.StatusServiceUnavailable
	case api.KindGeneration, api.KindBackend:
		return http.StatusBadGateway
	case api.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Deps bundles the wired components the HTTP server exposes.
type Deps struct {
	Synth  Synthesizer
	Voices VoiceResolver
	Jobs   JobBackend
}

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	addr            string
	deps            Deps
	handlerOpts     []Option
	shutdownTimeout time.Duration
}

func New(addr string, deps Deps, handlerOpts ...Option) *Server {
	return &Server{
		addr:            addr,
		deps:            deps,
		handlerOpts:     handlerOpts,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	h := NewHandler(s.deps.Synth, s.deps.Voices, s.deps.Jobs, s.handlerOpts...)

	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	slog.Info("http server listening", slog.String("addr", s.addr))

	select {
	case <-ctx.Done():
		slog.Info("shutting down", slog.Duration("drain", s.shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
