package audio_test

import (
	"testing"

	"github.com/example/chatterbox-serve/internal/audio"
	"github.com/example/chatterbox-serve/internal/testutil"
)

func TestEncodeWAV(t *testing.T) {
	clip := audio.Clip{
		Samples:    []float32{0, 0.25, 0.5, -0.5, -0.25, 0},
		SampleRate: 24000,
	}

	data, err := audio.EncodeWAV(clip)
	if err != nil {
		t.Fatalf("EncodeWAV error: %v", err)
	}

	testutil.AssertValidWAV(t, data, 24000)
	if n := testutil.WAVSampleCount(t, data); n != len(clip.Samples) {
		t.Errorf("sample count = %d; want %d", n, len(clip.Samples))
	}
}

func TestEncodeWAV_OtherSampleRate(t *testing.T) {
	clip := audio.Clip{Samples: []float32{0.1, 0.2}, SampleRate: 22050}

	data, err := audio.EncodeWAV(clip)
	if err != nil {
		t.Fatalf("EncodeWAV error: %v", err)
	}
	testutil.AssertValidWAV(t, data, 22050)
}

func TestEncodeWAV_InvalidRate(t *testing.T) {
	if _, err := audio.EncodeWAV(audio.Clip{Samples: []float32{0.1}}); err == nil {
		t.Fatal("expected error for missing sample rate")
	}
}
