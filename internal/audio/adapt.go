package audio

import (
	"fmt"
	"math"
)

// Adapter functions for waveforms crossing the model boundary. Backends
// report samples as float64 JSON numbers and may hand back multi-channel
// buffers in either (channels, samples) or (samples, channels) layout;
// everything downstream works on clamped mono float32.

// F64ToF32 converts samples to float32, clamping to [-1, 1].
func F64ToF32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(math.Max(-1, math.Min(1, v)))
	}
	return out
}

// MonoFromMatrix collapses a 2-D waveform to mono float32. A row-major
// (channels, samples) buffer has fewer rows than columns; the transposed
// layout is detected the same way and handled without copying twice.
// Channels are averaged. Jagged rows are rejected.
func MonoFromMatrix(m [][]float64) ([]float32, error) {
	if len(m) == 0 {
		return nil, nil
	}
	for i, row := range m {
		if len(row) != len(m[0]) {
			return nil, fmt.Errorf("jagged waveform matrix: row %d has %d samples, row 0 has %d", i, len(row), len(m[0]))
		}
	}
	if len(m) == 1 {
		return F64ToF32(m[0]), nil
	}

	rows, cols := len(m), len(m[0])
	if rows <= cols {
		// (channels, samples)
		out := make([]float32, cols)
		for i := 0; i < cols; i++ {
			var sum float64
			for ch := 0; ch < rows; ch++ {
				sum += m[ch][i]
			}
			out[i] = clampUnit(sum / float64(rows))
		}
		return out, nil
	}

	// (samples, channels)
	out := make([]float32, rows)
	for i := 0; i < rows; i++ {
		var sum float64
		for ch := 0; ch < cols; ch++ {
			sum += m[i][ch]
		}
		out[i] = clampUnit(sum / float64(cols))
	}
	return out, nil
}

func clampUnit(v float64) float32 {
	return float32(math.Max(-1, math.Min(1, v)))
}
