package voice

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwbudde/wav"
)

// Recommended reference-audio length. Shorter clips carry too little
// voice identity to clone well; longer ones slow conditioning without
// improving it.
const (
	minReferenceDuration = 3 * time.Second
	maxReferenceDuration = 30 * time.Second
)

// referenceDuration reads the playing time of a local reference clip.
// Only WAV files are inspected; other formats return zero without error.
func referenceDuration(path string) (time.Duration, error) {
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		return 0, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return 0, errors.New("invalid WAV file")
	}
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		return 0, errors.New("malformed WAV header")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return 0, err
	}

	frames := len(buf.Data) / int(dec.NumChans)
	return time.Duration(frames) * time.Second / time.Duration(dec.SampleRate), nil
}
