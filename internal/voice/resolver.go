// Package voice resolves opaque voice names to reference-audio paths
// through a TTL-cached mapping shared by all requests in the process.
package voice

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/example/chatterbox-serve/internal/api"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched mapping is served before a refresh.
const DefaultTTL = 5 * time.Minute

// Entry describes one voice in the mapping.
type Entry struct {
	AudioFile string `json:"audio_file"`
	Enabled   bool   `json:"enabled"`
}

// Fetcher loads the full voice mapping from its backing store.
type Fetcher interface {
	Fetch(ctx context.Context) (map[string]Entry, error)
}

// snapshot is an immutable cache value; staleness is a pure function of
// the fetch time so there is no ad hoc mutable bookkeeping.
type snapshot struct {
	entries   map[string]Entry
	fetchedAt time.Time
}

func (s *snapshot) stale(now time.Time, ttl time.Duration) bool {
	return s == nil || now.Sub(s.fetchedAt) >= ttl
}

// Resolver caches the voice mapping and answers lookups. Reads are lock-
// free of the fetch path; concurrent refreshes collapse into a single
// in-flight fetch, and lookups during a refresh are served the previous
// snapshot until the refresh lands.
type Resolver struct {
	fetcher Fetcher
	ttl     time.Duration
	baseDir string
	log     *slog.Logger
	now     func() time.Time

	mu    sync.RWMutex
	cur   *snapshot
	group singleflight.Group
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithBaseDir makes Lookup verify resolved references against dir. Leave
// unset when reference audio lives on the generation backend rather than
// local disk.
func WithBaseDir(dir string) Option {
	return func(r *Resolver) { r.baseDir = dir }
}

// WithLogger sets the slog.Logger used for degraded-mode warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver builds a Resolver over fetcher. The cache starts empty and
// is populated on first lookup.
func NewResolver(fetcher Fetcher, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher: fetcher,
		ttl:     DefaultTTL,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Lookup resolves name to its reference-audio path. It fails with a
// not-found error for unknown names, a disabled error for switched-off
// voices, and a mapping-unavailable error when the cache is empty and the
// backing store cannot be reached.
func (r *Resolver) Lookup(ctx context.Context, name string) (string, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return "", api.MappingUnavailable(err)
	}

	e, ok := snap.entries[name]
	if !ok {
		return "", api.NotFound(name)
	}
	if !e.Enabled {
		return "", api.Disabled(name)
	}
	if r.baseDir != "" {
		resolved, err := VerifyReferencePath(r.baseDir, e.AudioFile)
		if err != nil {
			return "", err
		}
		r.warnOnDuration(name, resolved)
		return resolved, nil
	}
	return e.AudioFile, nil
}

// warnOnDuration flags reference clips outside the recommended length.
// Advisory only: a clip that exists and parses is still served, and
// unreadable clips are left for the backend to reject.
func (r *Resolver) warnOnDuration(name, path string) {
	d, err := referenceDuration(path)
	if err != nil || d == 0 {
		return
	}
	if d < minReferenceDuration || d > maxReferenceDuration {
		r.log.Warn("reference audio duration outside recommended range",
			slog.String("voice", name),
			slog.Duration("duration", d),
			slog.Duration("min", minReferenceDuration),
			slog.Duration("max", maxReferenceDuration))
	}
}

// Voice is one row of the listing surface: the public name plus whether
// the voice currently accepts requests.
type Voice struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// List returns all known voices sorted by name, including disabled ones.
func (r *Resolver) List(ctx context.Context) ([]Voice, error) {
	snap, err := r.current(ctx)
	if err != nil {
		return nil, api.MappingUnavailable(err)
	}

	voices := make([]Voice, 0, len(snap.entries))
	for name, e := range snap.entries {
		voices = append(voices, Voice{Name: name, Enabled: e.Enabled})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
	return voices, nil
}

// current returns a usable snapshot, fetching when the cache is empty and
// refreshing in the background when it is merely stale.
func (r *Resolver) current(ctx context.Context) (*snapshot, error) {
	r.mu.RLock()
	snap := r.cur
	r.mu.RUnlock()

	if !snap.stale(r.now(), r.ttl) {
		return snap, nil
	}

	if snap == nil {
		// First population blocks; every concurrent caller shares one fetch.
		v, err, _ := r.group.Do("refresh", func() (any, error) {
			return r.refresh(ctx)
		})
		if err != nil {
			return nil, err
		}
		return v.(*snapshot), nil
	}

	// Stale but present: serve the previous value and refresh off the
	// request path. Failures keep the old snapshot and are logged.
	go func() {
		_, err, _ := r.group.Do("refresh", func() (any, error) {
			return r.refresh(context.WithoutCancel(ctx))
		})
		if err != nil {
			r.log.Warn("voice mapping refresh failed, serving stale cache",
				slog.String("error", err.Error()))
		}
	}()

	return snap, nil
}

func (r *Resolver) refresh(ctx context.Context) (*snapshot, error) {
	// Re-check under the flight: a racing caller may have refreshed
	// between the staleness check and joining the group.
	r.mu.RLock()
	snap := r.cur
	r.mu.RUnlock()
	if !snap.stale(r.now(), r.ttl) {
		return snap, nil
	}

	entries, err := r.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	next := &snapshot{entries: entries, fetchedAt: r.now()}
	r.mu.Lock()
	r.cur = next
	r.mu.Unlock()
	return next, nil
}
