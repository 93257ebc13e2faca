// Package window generates the Hann analysis window used by the STFT-based
// analyzer and the phase vocoder.
package window

import "math"

// Hann returns Hann window coefficients of the given size in periodic form
// (FFT framing), matching the convention of overlapping STFT frames.
// Size values below 1 yield nil.
func Hann(size int) []float64 {
	if size < 1 {
		return nil
	}

	out := make([]float64, size)
	for i := range out {
		x := float64(i) / float64(size)
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*x)
	}

	return out
}

// HannSymmetric returns Hann coefficients in symmetric form, tapering to
// zero at both edges. Used for one-shot envelope shaping rather than
// overlap-add framing.
func HannSymmetric(size int) []float64 {
	if size < 1 {
		return nil
	}
	if size == 1 {
		return []float64{1}
	}

	out := make([]float64, size)
	for i := range out {
		x := float64(i) / float64(size-1)
		out[i] = 0.5 - 0.5*math.Cos(2*math.Pi*x)
	}

	return out
}
