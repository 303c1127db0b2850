package audio

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// DefaultChunkGap is the silence inserted between consecutive chunks to
// mask generation-boundary artifacts.
const DefaultChunkGap = 60 * time.Millisecond

// Assemble concatenates chunk waveforms in index order with a fixed silence
// gap between consecutive chunks. All chunks must share one sample rate;
// no resampling is performed.
func Assemble(chunks []Chunk, gap time.Duration) (Clip, error) {
	if len(chunks) == 0 {
		return Clip{}, errors.New("no chunks to assemble")
	}

	ordered := append([]Chunk(nil), chunks...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	rate := ordered[0].SampleRate
	if rate <= 0 {
		return Clip{}, fmt.Errorf("invalid sample rate %d", rate)
	}

	gapSamples := int(float64(rate) * gap.Seconds())

	total := 0
	for i, c := range ordered {
		if c.SampleRate != rate {
			return Clip{}, fmt.Errorf("chunk %d sample rate %d does not match %d", c.Index, c.SampleRate, rate)
		}
		total += len(c.Samples)
		if i > 0 {
			total += gapSamples
		}
	}

	samples := make([]float32, 0, total)
	for i, c := range ordered {
		if i > 0 && gapSamples > 0 {
			samples = append(samples, make([]float32, gapSamples)...)
		}
		samples = append(samples, c.Samples...)
	}

	return Clip{Samples: samples, SampleRate: rate}, nil
}
