package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/chatterbox-serve/internal/tts"
)

func TestClientSubmit(t *testing.T) {
	var gotReq JobRequest
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/run" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode submission: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"job_id": "job-42"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithClientAPIKey("secret"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	id, err := c.Submit(context.Background(), JobRequest{
		Text:     "hello world",
		VoiceRef: "narrator.wav",
		Params:   tts.DefaultParams(),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if id != "job-42" {
		t.Errorf("job id = %q; want job-42", id)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if !gotReq.Stream {
		t.Error("submission must force stream=true")
	}
	if gotReq.Text != "hello world" {
		t.Errorf("text = %q", gotReq.Text)
	}
}

func TestClientSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "queue full"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Submit(context.Background(), JobRequest{Text: "x"}); err == nil {
		t.Fatal("expected submission error")
	} else if !strings.Contains(err.Error(), "queue full") {
		t.Errorf("err = %v; want backend reason preserved", err)
	}
}

func TestClientPoll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/job-42" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(JobStatus{
			Status: StatusRunning,
			Stream: []StreamItem{{Status: "streaming", Chunk: 0, SampleRate: 24000, AudioChunk: "AAAA"}},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	st, err := c.Poll(context.Background(), "job-42")
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if st.Status != StatusRunning {
		t.Errorf("status = %q", st.Status)
	}
	if len(st.Stream) != 1 || st.Stream[0].AudioChunk != "AAAA" {
		t.Errorf("stream = %+v", st.Stream)
	}
}

func TestClientPollHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Poll(context.Background(), "job-42"); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestClientCancel(t *testing.T) {
	var called bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/cancel/job-42" {
			called = true
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.Cancel(context.Background(), "job-42"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !called {
		t.Error("cancel endpoint not hit")
	}
}

func TestNewClientEmptyURL(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}
