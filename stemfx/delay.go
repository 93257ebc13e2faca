package stemfx

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mashup/audio"
)

const (
	maxDelayTaps     = 5
	minTapLevel      = 0.05
	initialTapWeight = 0.7
	maxDelayFeedback = 0.9
)

// Delay applies a multi-tap echo. The first tap is weighted by
// mix * 0.7; each feedback repetition decays geometrically and taps
// quieter than 0.05 are dropped. Zero mix, or a delay time that does
// not fit the buffer, is a passthrough. The output is renormalized to
// 0.99 only when it would clip.
func Delay(samples []float64, sampleRate int, p DelayParams) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stemfx: delay: invalid sample rate %d", sampleRate)
	}

	out := make([]float64, len(samples))
	copy(out, samples)

	delaySamples := int(p.Time * float64(sampleRate))
	if p.Mix <= 0 || delaySamples <= 0 || delaySamples >= len(samples) {
		return out, nil
	}

	feedback := math.Min(maxDelayFeedback, math.Max(0, p.Feedback))

	// Initial tap.
	for i := delaySamples; i < len(out); i++ {
		out[i] += samples[i-delaySamples] * p.Mix * initialTapWeight
	}

	// Feedback repetitions.
	for tap := 1; tap < maxDelayTaps; tap++ {
		level := math.Pow(feedback, float64(tap))
		if level < minTapLevel {
			break
		}
		offset := delaySamples * tap
		if offset >= len(samples) {
			break
		}
		for i := offset; i < len(out); i++ {
			out[i] += samples[i-offset] * level * p.Mix
		}
	}

	if peak := audio.Peak(out); peak > 1 {
		scale := 0.99 / peak
		for i := range out {
			out[i] *= scale
		}
	}

	return out, nil
}
