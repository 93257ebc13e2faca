// Package align adjusts a track's tempo and key toward shared mashup
// targets using phase-vocoder time stretching and pitch shifting.
package align

import (
	"fmt"
	"log"
	"math"

	"github.com/cwbudde/algo-mashup/audio"
)

const (
	// tempoToleranceBPM is the tempo difference below which stretching
	// is skipped entirely.
	tempoToleranceBPM = 1.0
)

// Error reports a failed alignment operation. Callers treat it as
// recoverable: the unaligned waveform remains usable.
type Error struct {
	Op     string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("align: %s: %s: %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("align: %s: %s", e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Aligner performs tempo and key alignment on mono waveforms.
type Aligner struct {
	logger *log.Logger
}

// Option configures an Aligner.
type Option func(*Aligner)

// WithLogger sets the logger used for soft-failure warnings.
func WithLogger(logger *log.Logger) Option {
	return func(a *Aligner) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an aligner.
func New(opts ...Option) *Aligner {
	a := &Aligner{logger: log.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// AlignTempo stretches samples from sourceBPM toward targetBPM. Tempo
// differences under one BPM return the input unchanged. The output
// duration is the input duration scaled by sourceBPM/targetBPM.
func (a *Aligner) AlignTempo(samples []float64, sourceBPM, targetBPM float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, &Error{Op: "tempo", Reason: "empty waveform"}
	}
	if !finitePositive(sourceBPM) || !finitePositive(targetBPM) {
		return nil, &Error{Op: "tempo", Reason: fmt.Sprintf("invalid tempo pair %.2f -> %.2f", sourceBPM, targetBPM)}
	}

	if math.Abs(targetBPM-sourceBPM) < tempoToleranceBPM {
		return samples, nil
	}

	s, err := newStretcher()
	if err != nil {
		return nil, &Error{Op: "tempo", Reason: "stretcher setup failed", Err: err}
	}

	rate := targetBPM / sourceBPM
	out, err := s.Stretch(samples, rate)
	if err != nil {
		return nil, &Error{Op: "tempo", Reason: fmt.Sprintf("stretch by %.4f failed", rate), Err: err}
	}

	return out, nil
}

// AlignKey transposes samples from the source key toward the target key.
// Equal pitch classes return the input unchanged. The pitch-class
// difference is folded into [-6, 6] semitones so transposition always
// takes the shorter direction around the circle.
func (a *Aligner) AlignKey(samples []float64, source, target audio.Key) ([]float64, error) {
	if len(samples) == 0 {
		return nil, &Error{Op: "key", Reason: "empty waveform"}
	}

	if source.PitchClass == target.PitchClass {
		return samples, nil
	}

	semitones := foldSemitones(target.PitchClass - source.PitchClass)

	out, err := a.PitchShift(samples, float64(semitones))
	if err != nil {
		return nil, &Error{Op: "key", Reason: fmt.Sprintf("transpose %+d semitones failed", semitones), Err: err}
	}

	return out, nil
}

// AlignKeyNamed parses the key names and transposes. An unmappable name
// logs a warning and returns the input unchanged rather than failing.
func (a *Aligner) AlignKeyNamed(samples []float64, source, target string) ([]float64, error) {
	srcKey, err := audio.ParseKey(source)
	if err != nil {
		a.logger.Printf("align: skipping key alignment: %v", err)
		return samples, nil
	}
	dstKey, err := audio.ParseKey(target)
	if err != nil {
		a.logger.Printf("align: skipping key alignment: %v", err)
		return samples, nil
	}

	return a.AlignKey(samples, srcKey, dstKey)
}

// PitchShift transposes samples by the given number of semitones while
// preserving duration. The stretch-then-resample construction keeps the
// output within one interpolation step of the input length.
func (a *Aligner) PitchShift(samples []float64, semitones float64) ([]float64, error) {
	if len(samples) == 0 {
		return nil, &Error{Op: "pitch", Reason: "empty waveform"}
	}
	if math.IsNaN(semitones) || math.IsInf(semitones, 0) {
		return nil, &Error{Op: "pitch", Reason: "semitones must be finite"}
	}

	ratio := math.Pow(2, semitones/12)
	if math.Abs(ratio-1) <= stretchIdentityEps {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	s, err := newStretcher()
	if err != nil {
		return nil, &Error{Op: "pitch", Reason: "stretcher setup failed", Err: err}
	}

	// Stretch duration by ratio, then read back at the same ratio.
	// Durations cancel and the pitch moves by ratio.
	stretched, err := s.Stretch(samples, 1/ratio)
	if err != nil {
		return nil, &Error{Op: "pitch", Reason: fmt.Sprintf("stretch by %.4f failed", 1/ratio), Err: err}
	}

	out := resampleLinear(stretched, ratio)

	return audio.FitLength(out, len(samples)), nil
}

// foldSemitones maps a pitch-class difference onto the shortest signed
// interval in [-6, 6].
func foldSemitones(delta int) int {
	delta %= 12
	if delta > 6 {
		delta -= 12
	}
	if delta < -6 {
		delta += 12
	}
	return delta
}

func finitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}
