// Package audio contains the post-processing pipeline applied to generated
// waveforms: assembly of per-chunk audio into one clip, watermarking,
// loudness normalization, and WAV encoding.
package audio

// Chunk is the waveform produced for one text chunk. The sample rate is
// fixed by the model and identical across all chunks of one request.
type Chunk struct {
	Index      int
	Samples    []float32
	SampleRate int
}

// Clip is a fully assembled mono waveform.
type Clip struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}
