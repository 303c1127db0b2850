package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/chatterbox-serve/internal/api"
	"github.com/example/chatterbox-serve/internal/audio"
	"github.com/example/chatterbox-serve/internal/storage"
	"github.com/google/uuid"
)

// Result is the batch synthesis outcome. Exactly one of AudioURL and
// AudioBase64 is set; sample rate and duration are always present.
type Result struct {
	SampleRate  int     `json:"sample_rate"`
	DurationSec float64 `json:"duration_sec"`
	AudioURL    string  `json:"audio_url,omitempty"`
	AudioBase64 string  `json:"audio_base64,omitempty"`
}

// Dispatcher encodes an assembled clip and delivers it: upload to object
// storage for a presigned URL, with inline base64 as the fallback when the
// store is absent or the upload fails. Upload failures never fail the
// request.
type Dispatcher struct {
	store     storage.ObjectStore // nil disables uploads
	outputDir string              // optional local copy of every artifact
	log       *slog.Logger
}

// NewDispatcher builds a Dispatcher. store may be nil; outputDir may be
// empty to skip local copies.
func NewDispatcher(store storage.ObjectStore, outputDir string, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{store: store, outputDir: outputDir, log: log}
}

// Dispatch encodes clip as WAV and returns the delivery result.
func (d *Dispatcher) Dispatch(ctx context.Context, clip audio.Clip, sessionID string) (Result, error) {
	data, err := audio.EncodeWAV(clip)
	if err != nil {
		return Result{}, api.Internal(fmt.Errorf("encode wav: %w", err))
	}

	res := Result{
		SampleRate:  clip.SampleRate,
		DurationSec: clip.Duration(),
	}

	name := fmt.Sprintf("%s_%s.wav", sessionID, uuid.NewString())

	if d.outputDir != "" {
		d.saveLocal(ctx, name, data)
	}

	if d.store != nil {
		url, err := d.store.Put(ctx, name, data, "audio/wav")
		if err == nil {
			res.AudioURL = url
			return res, nil
		}
		d.log.WarnContext(ctx, "artifact upload failed, returning inline audio",
			slog.String("key", name),
			slog.String("error", err.Error()),
		)
	}

	res.AudioBase64 = base64.StdEncoding.EncodeToString(data)
	return res, nil
}

// saveLocal writes a best-effort copy of the artifact; failures are logged
// and otherwise ignored.
func (d *Dispatcher) saveLocal(ctx context.Context, name string, data []byte) {
	if err := os.MkdirAll(d.outputDir, 0o755); err != nil {
		d.log.WarnContext(ctx, "create output dir failed", slog.String("error", err.Error()))
		return
	}
	path := filepath.Join(d.outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		d.log.WarnContext(ctx, "local artifact write failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
