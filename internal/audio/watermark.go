package audio

import (
	"errors"
	"hash/fnv"
	"math"
	"math/rand"
)

// watermarkGain keeps the embedded signature well below audibility.
const watermarkGain = 0.004

// detectionSigmas places the decision threshold this many standard
// deviations above the chance-level correlation of an unmarked buffer.
const detectionSigmas = 4.0

// Watermark embeds a recoverable spread-spectrum signature derived from key
// across the full buffer. Output length equals input length. The signature
// spans the whole signal, so it must be applied once to the assembled clip,
// never per chunk: detection correlates over the entire buffer and a
// per-chunk restart of the sequence breaks recoverability.
func Watermark(samples []float32, key string) []float32 {
	out := make([]float32, len(samples))
	seq := signatureSequence(key, len(samples))
	for i, s := range samples {
		out[i] = s + watermarkGain*seq[i]
	}
	return out
}

// VerifyWatermark reports whether samples carry the signature for key.
// Detection correlates the buffer against the key's signature sequence
// and normalizes by the buffer's RMS, so uniform gain changes applied
// after embedding (loudness normalization, volume scaling) do not move
// the score. The threshold tracks the chance-correlation level for the
// buffer length; a reliable verdict needs a few seconds of audio.
func VerifyWatermark(samples []float32, key string) (bool, error) {
	if len(samples) == 0 {
		return false, errors.New("empty buffer")
	}

	n := float64(len(samples))
	seq := signatureSequence(key, len(samples))

	var corr, energy float64
	for i, s := range samples {
		corr += float64(s) * float64(seq[i])
		energy += float64(s) * float64(s)
	}

	rms := math.Sqrt(energy / n)
	if rms == 0 {
		return false, nil
	}

	score := corr / n / rms
	return score > detectionSigmas/math.Sqrt(n), nil
}

// signatureSequence produces a deterministic ±1 sequence for key.
func signatureSequence(key string, n int) []float32 {
	h := fnv.New64a()
	h.Write([]byte(key))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	seq := make([]float32, n)
	for i := range seq {
		if rng.Intn(2) == 0 {
			seq[i] = 1
		} else {
			seq[i] = -1
		}
	}
	return seq
}
