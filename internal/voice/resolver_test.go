package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/chatterbox-serve/internal/api"
)

// countingFetcher serves a fixed mapping and counts fetches. Setting fail
// makes subsequent fetches error.
type countingFetcher struct {
	entries map[string]Entry
	fetches atomic.Int64
	fail    atomic.Bool
}

func (f *countingFetcher) Fetch(context.Context) (map[string]Entry, error) {
	f.fetches.Add(1)
	if f.fail.Load() {
		return nil, errors.New("mapping store down")
	}
	return f.entries, nil
}

func testEntries() map[string]Entry {
	return map[string]Entry{
		"narrator": {AudioFile: "narrator.wav", Enabled: true},
		"legacy":   {AudioFile: "legacy.wav", Enabled: false},
	}
}

func TestLookup(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}
	r := NewResolver(f)

	path, err := r.Lookup(context.Background(), "narrator")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if path != "narrator.wav" {
		t.Errorf("path = %q; want narrator.wav", path)
	}

	if _, err := r.Lookup(context.Background(), "ghost"); api.KindOf(err) != api.KindNotFound {
		t.Errorf("unknown voice: kind = %q; want not_found", api.KindOf(err))
	}

	if _, err := r.Lookup(context.Background(), "legacy"); api.KindOf(err) != api.KindDisabled {
		t.Errorf("disabled voice: kind = %q; want disabled", api.KindOf(err))
	}
}

func TestList(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}
	r := NewResolver(f)

	voices, err := r.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}

	want := []Voice{
		{Name: "legacy", Enabled: false},
		{Name: "narrator", Enabled: true},
	}
	if len(voices) != len(want) {
		t.Fatalf("got %d voices; want %d", len(voices), len(want))
	}
	for i := range want {
		if voices[i] != want[i] {
			t.Errorf("voices[%d] = %+v; want %+v", i, voices[i], want[i])
		}
	}
}

func TestLookup_WithBaseDirVerifiesReference(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "narrator.wav"), []byte("RIFF"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	f := &countingFetcher{entries: map[string]Entry{
		"narrator": {AudioFile: "narrator.wav", Enabled: true},
		"escapee":  {AudioFile: "../secret.wav", Enabled: true},
	}}
	r := NewResolver(f, WithBaseDir(dir))

	path, err := r.Lookup(context.Background(), "narrator")
	if err != nil {
		t.Fatalf("Lookup error: %v", err)
	}
	if path != filepath.Join(dir, "narrator.wav") {
		t.Errorf("path = %q; want resolved absolute path", path)
	}

	if _, err := r.Lookup(context.Background(), "escapee"); api.KindOf(err) != api.KindValidation {
		t.Errorf("traversal ref: kind = %q; want validation_error", api.KindOf(err))
	}
}

func TestLookup_WithinTTLDoesNotRefetch(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}
	r := NewResolver(f, WithTTL(time.Hour))

	for i := 0; i < 10; i++ {
		if _, err := r.Lookup(context.Background(), "narrator"); err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
	}

	if n := f.fetches.Load(); n != 1 {
		t.Errorf("fetches = %d; want 1", n)
	}
}

func TestLookup_AfterTTLSingleRefetchUnderConcurrency(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}

	now := time.Now()
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	r := NewResolver(f, WithTTL(time.Minute), WithClock(clock))

	if _, err := r.Lookup(context.Background(), "narrator"); err != nil {
		t.Fatalf("initial Lookup: %v", err)
	}

	clockMu.Lock()
	now = now.Add(2 * time.Minute)
	clockMu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Lookup(context.Background(), "narrator"); err != nil {
				t.Errorf("concurrent Lookup: %v", err)
			}
		}()
	}
	wg.Wait()

	// The background refresh collapses into one fetch; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for f.fetches.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if n := f.fetches.Load(); n != 2 {
		t.Errorf("fetches = %d; want exactly 2 (initial + one refresh)", n)
	}
}

func TestLookup_ServesStaleOnRefetchFailure(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}

	now := time.Now()
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return now
	}

	r := NewResolver(f, WithTTL(time.Minute), WithClock(clock))

	if _, err := r.Lookup(context.Background(), "narrator"); err != nil {
		t.Fatalf("initial Lookup: %v", err)
	}

	f.fail.Store(true)
	clockMu.Lock()
	now = now.Add(2 * time.Minute)
	clockMu.Unlock()

	// Stale cache keeps answering while the store is down.
	path, err := r.Lookup(context.Background(), "narrator")
	if err != nil {
		t.Fatalf("Lookup during outage: %v", err)
	}
	if path != "narrator.wav" {
		t.Errorf("path = %q; want narrator.wav", path)
	}
}

func TestLookup_EmptyCacheFetchFailure(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}
	f.fail.Store(true)

	r := NewResolver(f)
	_, err := r.Lookup(context.Background(), "narrator")
	if api.KindOf(err) != api.KindMappingUnavailable {
		t.Errorf("kind = %q; want mapping_unavailable", api.KindOf(err))
	}
}

func TestLookup_FirstPopulationCollapsesConcurrentFetches(t *testing.T) {
	f := &countingFetcher{entries: testEntries()}
	r := NewResolver(f, WithTTL(time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Lookup(context.Background(), "narrator"); err != nil {
				t.Errorf("Lookup: %v", err)
			}
		}()
	}
	wg.Wait()

	if n := f.fetches.Load(); n != 1 {
		t.Errorf("fetches = %d; want 1", n)
	}
}
