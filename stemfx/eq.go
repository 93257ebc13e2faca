package stemfx

import (
	"fmt"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/internal/filters"
)

const (
	eqLowCutoffHz  = 250.0
	eqHighCutoffHz = 4000.0
	eqFilterOrder  = 4
)

// EQ applies a three-band equalizer: low below 250 Hz, mid from 250 Hz
// to 4 kHz, high above 4 kHz. Each band is scaled by one plus its gain
// and the bands are summed. All-zero gains return a plain copy of the
// input without running the filter bank. The output is renormalized to
// 0.99 only when it would clip.
func EQ(samples []float64, sampleRate int, p EQParams) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stemfx: eq: invalid sample rate %d", sampleRate)
	}
	if p.LowGain == 0 && p.MidGain == 0 && p.HighGain == 0 {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	sr := float64(sampleRate)
	low := filters.NewChain(filters.ButterworthLP(eqLowCutoffHz, eqFilterOrder, sr)).Process(samples)
	mid := filters.NewChain(filters.ButterworthBP(eqLowCutoffHz, eqHighCutoffHz, eqFilterOrder, sr)).Process(samples)
	high := filters.NewChain(filters.ButterworthHP(eqHighCutoffHz, eqFilterOrder, sr)).Process(samples)

	out := make([]float64, len(samples))
	for i := range out {
		out[i] = low[i]*(1+p.LowGain) + mid[i]*(1+p.MidGain) + high[i]*(1+p.HighGain)
	}

	if peak := audio.Peak(out); peak > 1 {
		scale := 0.99 / peak
		for i := range out {
			out[i] *= scale
		}
	}

	return out, nil
}
