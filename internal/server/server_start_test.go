package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"
)

// freeAddr reserves an ephemeral localhost port and releases it so the
// server under test can bind it.
func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := ln.Addr().String()
	ln.Close()

	return addr
}

// waitHealthy polls /health until the server answers or the retry budget
// runs out, returning the last response.
func waitHealthy(t *testing.T, addr string) *http.Response {
	t.Helper()

	client := &http.Client{Timeout: 2 * time.Second}

	var (
		resp *http.Response
		err  error
	)

	for range 50 {
		resp, err = client.Get(fmt.Sprintf("http://%s/health", addr))
		if err == nil {
			return resp
		}

		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("server never became ready: %v", err)

	return nil
}

func TestStart_LifecycleHealthAndShutdown(t *testing.T) {
	addr := freeAddr(t)

	s := New(addr, Deps{}).WithShutdownTimeout(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start(ctx)
	}()

	resp := waitHealthy(t, addr)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/health status = %d; want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /health: %v", err)
	}

	if body["status"] != "ok" {
		t.Errorf("status = %q; want ok", body["status"])
	}

	if body["version"] == "" {
		t.Error("version missing from /health body")
	}

	if err := ProbeHTTP(addr); err != nil {
		t.Errorf("ProbeHTTP while serving: %v", err)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return within 5s of context cancel")
	}

	if err := ProbeHTTP(addr); err == nil {
		t.Error("ProbeHTTP succeeded after shutdown; want connection error")
	}
}
