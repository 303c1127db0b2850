package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/example/chatterbox-serve/internal/tts"
)

// Job status values reported by the compute backend.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// JobRequest is the submission payload for an asynchronous streaming job.
type JobRequest struct {
	Text     string `json:"text"`
	VoiceRef string `json:"voice_ref"`
	Stream   bool   `json:"stream"`
	Format   string `json:"format,omitempty"`
	tts.Params
}

// StreamItem is one entry of the backend's ordered event list.
type StreamItem struct {
	Status             string  `json:"status,omitempty"` // "streaming" or "complete"
	Chunk              int     `json:"chunk,omitempty"`
	SampleRate         int     `json:"sample_rate,omitempty"`
	AudioChunk         string  `json:"audio_chunk,omitempty"`
	TotalChunks        int     `json:"total_chunks,omitempty"`
	ElapsedTimeSeconds float64 `json:"elapsed_time_seconds,omitempty"`
	Error              string  `json:"error,omitempty"`
}

// JobStatus is one poll's view of a job: current status plus the full
// ordered event list so far.
type JobStatus struct {
	Status string       `json:"status"`
	Stream []StreamItem `json:"stream"`
}

// Backend is the poll-side surface the relay depends on.
type Backend interface {
	Poll(ctx context.Context, jobID string) (JobStatus, error)
	Cancel(ctx context.Context, jobID string) error
}

// Client talks to the compute backend's job API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientHTTP overrides the HTTP client.
func WithClientHTTP(c *http.Client) ClientOption {
	return func(cl *Client) { cl.http = c }
}

// WithClientAPIKey sets the bearer token sent on every call.
func WithClientAPIKey(key string) ClientOption {
	return func(cl *Client) { cl.apiKey = key }
}

// NewClient creates a backend client for the job API at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend base URL must not be empty")
	}
	c := &Client{baseURL: baseURL, http: &http.Client{}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Submit enqueues a streaming job and returns its id.
func (c *Client) Submit(ctx context.Context, req JobRequest) (string, error) {
	req.Stream = true

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("encode job request: %w", err)
	}

	var resp struct {
		JobID string `json:"job_id"`
		Error string `json:"error,omitempty"`
	}
	if err := c.do(ctx, http.MethodPost, "/run", body, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", fmt.Errorf("job submission rejected: %s", resp.Error)
	}
	if resp.JobID == "" {
		return "", errors.New("job submission returned no job id")
	}
	return resp.JobID, nil
}

// Poll fetches the job's current status and full event list.
func (c *Client) Poll(ctx context.Context, jobID string) (JobStatus, error) {
	var st JobStatus
	if err := c.do(ctx, http.MethodGet, "/status/"+jobID, nil, &st); err != nil {
		return JobStatus{}, err
	}
	if st.Status == "" {
		return JobStatus{}, fmt.Errorf("job %s: empty status", jobID)
	}
	return st, nil
}

// Cancel asks the backend to stop a job. Best-effort; used when the
// downstream client disconnects mid-stream.
func (c *Client) Cancel(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodPost, "/cancel/"+jobID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s: unexpected status %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}
