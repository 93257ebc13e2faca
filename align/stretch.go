package align

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mashup/internal/window"
	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	stretchFrameSize = 2048
	stretchHopSize   = 512

	minStretchRate = 0.25
	maxStretchRate = 4.0

	stretchIdentityEps = 1e-9
	stretchNormFloor   = 1e-12
)

// stretcher is a one-shot phase-vocoder time stretcher. It is not
// thread-safe; Stretch allocates and resets all phase state per call.
type stretcher struct {
	frameSize   int
	analysisHop int

	plan         *algofft.Plan[complex128]
	windowCoeffs []float64
	omega        []float64
}

func newStretcher() (*stretcher, error) {
	plan, err := algofft.NewPlan64(stretchFrameSize)
	if err != nil {
		return nil, fmt.Errorf("align: failed to create FFT plan: %w", err)
	}

	s := &stretcher{
		frameSize:    stretchFrameSize,
		analysisHop:  stretchHopSize,
		plan:         plan,
		windowCoeffs: window.Hann(stretchFrameSize),
	}

	bins := s.frameSize/2 + 1
	s.omega = make([]float64, bins)
	for k := range bins {
		s.omega[k] = 2 * math.Pi * float64(k) / float64(s.frameSize)
	}

	return s, nil
}

// Stretch changes the duration of input by 1/rate while preserving pitch.
// rate > 1 shortens, rate < 1 lengthens. Rates within epsilon of 1 copy
// the input unchanged.
func (s *stretcher) Stretch(input []float64, rate float64) ([]float64, error) {
	if len(input) == 0 {
		return nil, nil
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < minStretchRate || rate > maxStretchRate {
		return nil, fmt.Errorf("align: stretch rate must be in [%g, %g]: %g", minStretchRate, maxStretchRate, rate)
	}

	if math.Abs(rate-1) <= stretchIdentityEps {
		out := make([]float64, len(input))
		copy(out, input)
		return out, nil
	}

	synthesisHop := max(int(math.Round(float64(s.analysisHop)/rate)), 1)

	half := s.frameSize / 2
	bins := half + 1
	frameCount := 1 + (len(input)-1)/s.analysisHop
	outLen := (frameCount-1)*synthesisHop + s.frameSize

	output := make([]float64, outLen)
	norm := make([]float64, outLen)
	prevPhase := make([]float64, bins)
	sumPhase := make([]float64, bins)
	magnitudes := make([]float64, bins)
	instFreqs := make([]float64, bins)
	spectrum := make([]complex128, s.frameSize)
	timeFrame := make([]complex128, s.frameSize)

	analysisHopF := float64(s.analysisHop)
	synthesisHopF := float64(synthesisHop)

	for frame := range frameCount {
		inPos := frame * s.analysisHop
		outPos := frame * synthesisHop

		for i := range s.frameSize {
			x := 0.0
			if idx := inPos + i; idx < len(input) {
				x = input[idx]
			}
			spectrum[i] = complex(x*s.windowCoeffs[i], 0)
		}

		if err := s.plan.Forward(spectrum, spectrum); err != nil {
			return nil, fmt.Errorf("align: forward FFT failed: %w", err)
		}

		// Instantaneous frequency per bin from the phase advance over
		// the analysis hop.
		for k := 0; k <= half; k++ {
			re := real(spectrum[k])
			im := imag(spectrum[k])
			magnitudes[k] = math.Hypot(re, im)
			phase := math.Atan2(im, re)

			delta := wrapPhase(phase - prevPhase[k] - s.omega[k]*analysisHopF)
			instFreqs[k] = s.omega[k] + delta/analysisHopF
			prevPhase[k] = phase
		}

		// Accumulate phase at the synthesis hop.
		for k := 0; k <= half; k++ {
			sumPhase[k] += instFreqs[k] * synthesisHopF
			spectrum[k] = complex(
				magnitudes[k]*math.Cos(sumPhase[k]),
				magnitudes[k]*math.Sin(sumPhase[k]),
			)
		}

		// Mirror for real-valued IFFT.
		spectrum[0] = complex(real(spectrum[0]), 0)
		spectrum[half] = complex(real(spectrum[half]), 0)
		for k := 1; k < half; k++ {
			v := spectrum[k]
			spectrum[s.frameSize-k] = complex(real(v), -imag(v))
		}

		if err := s.plan.Inverse(timeFrame, spectrum); err != nil {
			return nil, fmt.Errorf("align: inverse FFT failed: %w", err)
		}

		for i := range s.frameSize {
			idx := outPos + i
			w := s.windowCoeffs[i]
			output[idx] += real(timeFrame[i]) * w
			norm[idx] += w * w
		}
	}

	for i := range output {
		if norm[i] > stretchNormFloor {
			output[i] /= norm[i]
		}
	}

	target := int(math.Round(float64(len(input)) / rate))
	if target < 1 {
		target = 1
	}
	if target < len(output) {
		output = output[:target]
	}

	return output, nil
}

// resampleLinear reads input at the given step with linear interpolation.
// step > 1 shortens and raises pitch when the input was stretched first.
func resampleLinear(input []float64, step float64) []float64 {
	if len(input) == 0 || step <= 0 {
		return nil
	}

	outLen := int(math.Floor(float64(len(input)-1)/step)) + 1
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		frac := pos - float64(lo)
		hi := lo + 1
		if hi >= len(input) {
			out[i] = input[lo]
			continue
		}
		out[i] = input[lo]*(1-frac) + input[hi]*frac
	}

	return out
}

func wrapPhase(x float64) float64 {
	x = math.Mod(x+math.Pi, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x - math.Pi
}
