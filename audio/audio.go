// Package audio defines the data model shared across the mashup pipeline:
// analyzed tracks, separated stem sets, and musical keys.
package audio

import (
	"fmt"
	"math"
)

// Canonical stem names produced by every separator.
const (
	StemVocals = "vocals"
	StemDrums  = "drums"
	StemBass   = "bass"
	StemOther  = "other"
)

// StemNames lists the four canonical stems in a fixed order.
var StemNames = []string{StemVocals, StemDrums, StemBass, StemOther}

// Track is one analyzed input song. The waveform is mono float64.
//
// A Track is immutable once analyzed; alignment produces a new Track value
// rather than mutating an existing one in place.
type Track struct {
	Samples    []float64
	SampleRate int

	Tempo      float64 // BPM
	Key        Key
	BlendRatio float64 // caller-supplied weight, default 1.0

	// Best-effort auxiliary descriptors; NaN when analysis could not
	// produce them.
	Complexity float64
	Melody     float64
	Harmony    float64
	Rhythm     float64
}

// Duration returns the track length in seconds.
func (t *Track) Duration() float64 {
	if t.SampleRate <= 0 {
		return 0
	}
	return float64(len(t.Samples)) / float64(t.SampleRate)
}

// StemSet maps canonical stem names to waveforms sharing the source track's
// sample rate. All stems have equal length unless separation degraded to
// passthrough, in which case all four names map to the source waveform.
type StemSet map[string][]float64

// Len returns the common stem length, or 0 for an empty set.
func (s StemSet) Len() int {
	for _, wave := range s {
		return len(wave)
	}
	return 0
}

// Clone returns a deep copy of the set.
func (s StemSet) Clone() StemSet {
	out := make(StemSet, len(s))
	for name, wave := range s {
		c := make([]float64, len(wave))
		copy(c, wave)
		out[name] = c
	}
	return out
}

// Peak returns the maximum absolute sample value of wave.
func Peak(wave []float64) float64 {
	peak := 0.0
	for _, v := range wave {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// IsSilent reports whether every sample of wave is exactly zero.
func IsSilent(wave []float64) bool {
	for _, v := range wave {
		if v != 0 {
			return false
		}
	}
	return true
}

// FitLength returns wave padded with silence or truncated to n samples.
// The input is never modified; a fresh slice is returned when the length
// differs.
func FitLength(wave []float64, n int) []float64 {
	if len(wave) == n {
		return wave
	}
	out := make([]float64, n)
	copy(out, wave)
	return out
}

// Resample converts wave between sample rates with linear
// interpolation. Equal rates return the input unchanged.
func Resample(wave []float64, fromRate, toRate int) ([]float64, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("audio: invalid resample rates %d -> %d", fromRate, toRate)
	}
	if fromRate == toRate || len(wave) == 0 {
		return wave, nil
	}

	step := float64(fromRate) / float64(toRate)
	outLen := int(math.Floor(float64(len(wave)-1)/step)) + 1
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		frac := pos - float64(lo)
		if lo+1 >= len(wave) {
			out[i] = wave[lo]
			continue
		}
		out[i] = wave[lo]*(1-frac) + wave[lo+1]*frac
	}
	return out, nil
}
