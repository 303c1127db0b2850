package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/chatterbox-serve/internal/audio"
)

// RemoteModel talks to a synthesis backend over HTTP, one call per chunk.
type RemoteModel struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// RemoteOption configures a RemoteModel.
type RemoteOption func(*RemoteModel)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(m *RemoteModel) { m.client = c }
}

// WithAPIKey sets the bearer token sent on every call.
func WithAPIKey(key string) RemoteOption {
	return func(m *RemoteModel) { m.apiKey = key }
}

// NewRemoteModel creates a model client for the backend at baseURL.
func NewRemoteModel(baseURL string, opts ...RemoteOption) (*RemoteModel, error) {
	if baseURL == "" {
		return nil, errors.New("model base URL must not be empty")
	}
	m := &RemoteModel{
		baseURL: baseURL,
		client:  &http.Client{},
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// generateRequest is the per-chunk wire payload.
type generateRequest struct {
	Text        string `json:"text"`
	AudioPrompt string `json:"audio_prompt"`
	Params
}

// generateResponse carries the waveform as JSON numbers. Audio is either
// a flat mono array or a 2-D matrix in either channel layout; the shape
// is adapted explicitly at this boundary.
type generateResponse struct {
	Audio      json.RawMessage `json:"audio"`
	SampleRate int             `json:"sample_rate"`
	Error      string          `json:"error,omitempty"`
}

// Synthesize generates audio for one chunk. Transport errors and 5xx
// responses are marked transient for the orchestrator's retry loop; 4xx
// responses are permanent.
func (m *RemoteModel) Synthesize(ctx context.Context, chunkText string, req Request) ([]float32, int, error) {
	body, err := json.Marshal(generateRequest{
		Text:        chunkText,
		AudioPrompt: req.VoiceRef,
		Params:      req.Params,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("encode generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return nil, 0, MarkTransient(fmt.Errorf("model call: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return nil, 0, MarkTransient(fmt.Errorf("model call: status %s", resp.Status))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("model call: status %s", resp.Status)
	}

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, 0, MarkTransient(fmt.Errorf("decode model response: %w", err))
	}
	if gen.Error != "" {
		return nil, 0, fmt.Errorf("model error: %s", gen.Error)
	}
	if gen.SampleRate <= 0 {
		return nil, 0, fmt.Errorf("model response missing sample rate")
	}

	samples, err := decodeWaveform(gen.Audio)
	if err != nil {
		return nil, 0, err
	}
	if len(samples) == 0 {
		return nil, 0, errors.New("model returned empty audio")
	}

	return samples, gen.SampleRate, nil
}

// decodeWaveform accepts a flat mono array or a 2-D matrix and adapts it
// to clamped mono float32.
func decodeWaveform(raw json.RawMessage) ([]float32, error) {
	var flat []float64
	if err := json.Unmarshal(raw, &flat); err == nil {
		return audio.F64ToF32(flat), nil
	}

	var matrix [][]float64
	if err := json.Unmarshal(raw, &matrix); err != nil {
		return nil, fmt.Errorf("decode waveform: %w", err)
	}

	mono, err := audio.MonoFromMatrix(matrix)
	if err != nil {
		return nil, fmt.Errorf("decode waveform: %w", err)
	}
	return mono, nil
}
