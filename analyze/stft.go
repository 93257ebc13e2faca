package analyze

import (
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-mashup/internal/window"
)

// spectrogram computes per-frame magnitude spectra of samples using a Hann
// window. Only the non-redundant half (frameSize/2 + 1 bins) is kept.
type spectrogram struct {
	frames [][]float64 // [frame][bin] magnitudes
	bins   int
}

func computeSpectrogram(samples []float64, frameSize, hop int) (*spectrogram, error) {
	plan, err := algofft.NewPlan64(frameSize)
	if err != nil {
		return nil, fmt.Errorf("analyze: failed to create FFT plan: %w", err)
	}

	coeffs := window.Hann(frameSize)
	bins := frameSize/2 + 1

	frameCount := 1 + (len(samples)-1)/hop
	frames := make([][]float64, 0, frameCount)

	buf := make([]complex128, frameSize)
	re := make([]float64, bins)
	im := make([]float64, bins)

	for frame := range frameCount {
		pos := frame * hop
		for i := range frameSize {
			x := 0.0
			if idx := pos + i; idx < len(samples) {
				x = samples[idx]
			}
			buf[i] = complex(x*coeffs[i], 0)
		}

		if err := plan.Forward(buf, buf); err != nil {
			return nil, fmt.Errorf("analyze: forward FFT failed: %w", err)
		}

		for k := range bins {
			re[k] = real(buf[k])
			im[k] = imag(buf[k])
		}

		mags := make([]float64, bins)
		vecmath.Magnitude(mags, re, im)
		frames = append(frames, mags)
	}

	return &spectrogram{frames: frames, bins: bins}, nil
}

// onsetEnvelope computes a spectral-flux onset strength envelope: the
// positive magnitude difference between consecutive frames, summed over
// bins. The first frame has zero flux.
func (s *spectrogram) onsetEnvelope() []float64 {
	env := make([]float64, len(s.frames))
	for t := 1; t < len(s.frames); t++ {
		flux := 0.0
		for k := range s.bins {
			if d := s.frames[t][k] - s.frames[t-1][k]; d > 0 {
				flux += d
			}
		}
		env[t] = flux
	}
	return env
}
