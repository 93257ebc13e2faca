package stemfx

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mashup/audio"
)

const maxMakeupGain = 2.0

// Compress applies downward compression with a one-pole envelope
// follower and dB-domain gain computation. Ratios at or below unity
// leave the signal untouched regardless of the remaining parameters.
// Makeup gain restores the post-compression peak toward 0.99, capped at
// a factor of two.
func Compress(samples []float64, sampleRate int, p CompressorParams) ([]float64, error) {
	out := make([]float64, len(samples))
	copy(out, samples)
	if p.Ratio <= 1 || len(samples) == 0 {
		return out, nil
	}

	if sampleRate <= 0 {
		return nil, fmt.Errorf("stemfx: compressor: invalid sample rate %d", sampleRate)
	}
	if p.Attack <= 0 || p.Release <= 0 {
		return nil, fmt.Errorf("stemfx: compressor: attack and release must be positive: %g, %g", p.Attack, p.Release)
	}

	thresholdLinear := math.Pow(10, p.ThresholdDB/20)
	attackCoeff := math.Exp(-1 / (float64(sampleRate) * p.Attack))
	releaseCoeff := math.Exp(-1 / (float64(sampleRate) * p.Release))

	env := math.Abs(samples[0])
	for i, x := range samples {
		if i > 0 {
			current := math.Abs(x)
			if current > env {
				env = attackCoeff*env + (1-attackCoeff)*current
			} else {
				env = releaseCoeff*env + (1-releaseCoeff)*current
			}
		}

		if env > thresholdLinear {
			envDB := 20 * math.Log10(env)
			reductionDB := p.ThresholdDB + (envDB-p.ThresholdDB)/p.Ratio - envDB
			out[i] = x * math.Pow(10, reductionDB/20)
		}
	}

	if peak := audio.Peak(out); peak > 0 {
		makeup := math.Min(0.99/peak, maxMakeupGain)
		for i := range out {
			out[i] *= makeup
		}
	}

	return out, nil
}
