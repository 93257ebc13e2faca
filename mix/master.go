package mix

import (
	"fmt"
	"log"
	"math"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/internal/fftconv"
	"github.com/cwbudde/algo-mashup/internal/filters"
	algofft "github.com/MeKo-Christian/algo-fft"
)

const (
	masterBassCutoffHz   = 250.0
	masterTrebleCutoffHz = 2000.0
	masterVocalLowHz     = 300.0
	masterVocalHighHz    = 3000.0
	masterFilterOrder    = 4

	masterClipThreshold = 0.99
	masterHeadroomPeak  = 0.95
)

// Master applies the output chain to a mixed waveform: volume, bass and
// treble shelves, vocal prominence, reverb, dynamics, and a clip guard.
type Master struct {
	logger *log.Logger
}

// MasterOption configures a Master.
type MasterOption func(*Master)

// WithLogger sets the logger used for stage-failure warnings.
func WithLogger(logger *log.Logger) MasterOption {
	return func(m *Master) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMaster creates a master output chain.
func NewMaster(opts ...MasterOption) *Master {
	m := &Master{logger: log.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Process runs the master chain over samples. Neutral parameters leave
// the corresponding stage inactive; a failing stage logs a warning and
// passes its input through. The final clip guard renormalizes peaks
// above 0.99 down to 0.95 for headroom.
func (m *Master) Process(samples []float64, sampleRate int, p Params) ([]float64, error) {
	if len(samples) == 0 {
		return nil, &Error{Reason: "empty waveform"}
	}
	if sampleRate <= 0 {
		return nil, &Error{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	y := make([]float64, len(samples))
	copy(y, samples)

	if p.MasterVolume != 1 {
		for i := range y {
			y[i] *= p.MasterVolume
		}
	}

	sr := float64(sampleRate)

	if p.BassBoost != 0 {
		low := filters.NewChain(filters.ButterworthLP(masterBassCutoffHz, masterFilterOrder, sr)).Process(y)
		for i := range y {
			y[i] += low[i] * p.BassBoost
		}
	}

	if p.TrebleBoost != 0 {
		high := filters.NewChain(filters.ButterworthHP(masterTrebleCutoffHz, masterFilterOrder, sr)).Process(y)
		for i := range y {
			y[i] += high[i] * p.TrebleBoost
		}
	}

	if p.VocalProminence != 1 {
		mid := filters.NewChain(filters.ButterworthBP(masterVocalLowHz, masterVocalHighHz, masterFilterOrder, sr)).Process(y)
		scale := p.VocalProminence - 1
		for i := range y {
			y[i] += mid[i] * scale
		}
	}

	if p.Reverb > 0 {
		if wet, err := masterReverb(y, sampleRate, p.Reverb); err != nil {
			m.logger.Printf("mix: master reverb skipped: %v", err)
		} else {
			y = wet
		}
	}

	if p.DynamicRange != 1 {
		if shaped, err := shapeDynamics(y, sampleRate, p.DynamicRange); err != nil {
			m.logger.Printf("mix: dynamics stage skipped: %v", err)
		} else {
			y = shaped
		}
	}

	if peak := audio.Peak(y); peak > masterClipThreshold {
		scale := masterHeadroomPeak / peak
		for i := range y {
			y[i] *= scale
		}
	}

	return y, nil
}

// masterReverb convolves with a short exponential impulse response. The
// response lasts up to half a second at full amount and the wet path
// enters at half the amount so the source stays in front.
func masterReverb(samples []float64, sampleRate int, amount float64) ([]float64, error) {
	length := int(float64(sampleRate) * 0.5 * amount)
	if length < 1 {
		return samples, nil
	}

	ir := make([]float64, length)
	sum := 0.0
	for i := range ir {
		ir[i] = math.Exp(-5 * float64(i) / float64(length))
		sum += ir[i]
	}
	for i := range ir {
		ir[i] /= sum
	}

	wet, err := fftconv.ConvolveSame(samples, ir)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(samples))
	wetMix := amount * 0.5
	for i := range out {
		out[i] = samples[i]*(1-wetMix) + wet[i]*wetMix
	}
	return out, nil
}

// shapeDynamics compresses the signal for a range below one and expands
// above one. The gain curve raises the smoothed analytic-signal
// envelope to the power 1 - range.
func shapeDynamics(samples []float64, sampleRate int, dynamicRange float64) ([]float64, error) {
	envelope, err := analyticEnvelope(samples)
	if err != nil {
		return nil, err
	}

	// 10 ms moving average over the envelope.
	windowSize := sampleRate / 100
	if windowSize < 1 {
		windowSize = 1
	}
	smooth := movingAverage(envelope, windowSize)

	exponent := 1 - dynamicRange
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v * math.Pow(smooth[i], exponent)
	}
	return out, nil
}

// analyticEnvelope computes |hilbert(x)| with a zero-padded FFT.
func analyticEnvelope(samples []float64) ([]float64, error) {
	n := nextPowerOf2(len(samples))

	plan, err := algofft.NewPlan64(n)
	if err != nil {
		return nil, fmt.Errorf("fft plan: %w", err)
	}

	spectrum := make([]complex128, n)
	for i, v := range samples {
		spectrum[i] = complex(v, 0)
	}
	if err := plan.Forward(spectrum, spectrum); err != nil {
		return nil, fmt.Errorf("forward fft: %w", err)
	}

	// Analytic signal: keep DC and Nyquist, double positive
	// frequencies, zero negative frequencies.
	half := n / 2
	for k := 1; k < half; k++ {
		spectrum[k] *= 2
	}
	for k := half + 1; k < n; k++ {
		spectrum[k] = 0
	}

	if err := plan.Inverse(spectrum, spectrum); err != nil {
		return nil, fmt.Errorf("inverse fft: %w", err)
	}

	envelope := make([]float64, len(samples))
	for i := range envelope {
		envelope[i] = math.Hypot(real(spectrum[i]), imag(spectrum[i]))
	}
	return envelope, nil
}

// movingAverage smooths with a centered boxcar, shrinking the window at
// the edges.
func movingAverage(data []float64, window int) []float64 {
	out := make([]float64, len(data))
	halfLo := (window - 1) / 2
	halfHi := window / 2
	for i := range data {
		lo := max(i-halfLo, 0)
		hi := min(i+halfHi, len(data)-1)
		sum := 0.0
		for j := lo; j <= hi; j++ {
			sum += data[j]
		}
		out[i] = sum / float64(window)
	}
	return out
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
