package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRemoteModel_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("path = %q; want /generate", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sekrit" {
			t.Errorf("Authorization = %q", got)
		}

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Text != "Hello." {
			t.Errorf("text = %q", req.Text)
		}
		if req.AudioPrompt != "narrator.wav" {
			t.Errorf("audio_prompt = %q", req.AudioPrompt)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"audio":       []float64{0.1, 0.2, 0.3},
			"sample_rate": 24000,
		})
	}))
	defer srv.Close()

	m, err := NewRemoteModel(srv.URL, WithAPIKey("sekrit"), WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatal(err)
	}

	samples, rate, err := m.Synthesize(context.Background(), "Hello.", Request{
		VoiceRef: "narrator.wav",
		Params:   DefaultParams(),
	})
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if rate != 24000 {
		t.Errorf("rate = %d; want 24000", rate)
	}
	if len(samples) != 3 {
		t.Errorf("samples = %d; want 3", len(samples))
	}
}

func TestRemoteModel_MatrixWaveform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"audio":       [][]float64{{0.2, 0.4}, {0.0, 0.0}},
			"sample_rate": 22050,
		})
	}))
	defer srv.Close()

	m, _ := NewRemoteModel(srv.URL)
	samples, rate, err := m.Synthesize(context.Background(), "x", Request{})
	if err != nil {
		t.Fatalf("Synthesize error: %v", err)
	}
	if rate != 22050 {
		t.Errorf("rate = %d", rate)
	}
	if len(samples) != 2 || samples[0] != 0.1 {
		t.Errorf("samples = %v; want channel-averaged [0.1 0.2]", samples)
	}
}

func TestRemoteModel_JaggedMatrixWaveform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"audio":       [][]float64{{0.2, 0.4, 0.6}, {0.0, 0.0}},
			"sample_rate": 22050,
		})
	}))
	defer srv.Close()

	m, _ := NewRemoteModel(srv.URL)
	if _, _, err := m.Synthesize(context.Background(), "x", Request{}); err == nil {
		t.Error("expected error for jagged waveform matrix")
	}
}

func TestRemoteModel_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m, _ := NewRemoteModel(srv.URL)
	_, _, err := m.Synthesize(context.Background(), "x", Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !Transient(err) {
		t.Errorf("5xx must be transient: %v", err)
	}
}

func TestRemoteModel_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad voice", http.StatusBadRequest)
	}))
	defer srv.Close()

	m, _ := NewRemoteModel(srv.URL)
	_, _, err := m.Synthesize(context.Background(), "x", Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if Transient(err) {
		t.Errorf("4xx must be permanent: %v", err)
	}
}

func TestRemoteModel_BackendErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "conditioning failed"})
	}))
	defer srv.Close()

	m, _ := NewRemoteModel(srv.URL)
	_, _, err := m.Synthesize(context.Background(), "x", Request{})
	if err == nil || Transient(err) {
		t.Fatalf("want permanent error, got %v", err)
	}
}

func TestNewRemoteModel_RequiresURL(t *testing.T) {
	if _, err := NewRemoteModel(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
