// Package testutil provides deterministic signal fixtures and tolerance
// assertions shared by the pipeline tests.
package testutil

import (
	"math"
	"math/rand"
)

// Sine generates a deterministic sine wave.
func Sine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// Noise generates white noise with a fixed seed for reproducibility.
func Noise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Click generates a silent signal with unit impulses at the given sample
// positions. Useful as a beat grid for tempo estimation tests.
func Click(length int, positions ...int) []float64 {
	out := make([]float64, length)
	for _, p := range positions {
		if p >= 0 && p < length {
			out[p] = 1
		}
	}
	return out
}

// Beats generates a click train at the given BPM: short decaying bursts on
// every beat so the onset detector sees broadband energy.
func Beats(bpm, sampleRate float64, length int) []float64 {
	out := make([]float64, length)
	period := int(60 / bpm * sampleRate)
	if period <= 0 {
		return out
	}
	for pos := 0; pos < length; pos += period {
		for i := 0; i < 64 && pos+i < length; i++ {
			out[pos+i] = math.Exp(-float64(i)/12) * math.Sin(2*math.Pi*float64(i)/8)
		}
	}
	return out
}

// Triad generates a three-note chord of sines at the given fundamental
// pitch-class frequencies, for key estimation tests.
func Triad(rootHz, thirdHz, fifthHz, sampleRate float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		t := float64(i)
		out[i] = (math.Sin(2*math.Pi*rootHz*t/sampleRate) +
			0.8*math.Sin(2*math.Pi*thirdHz*t/sampleRate) +
			0.6*math.Sin(2*math.Pi*fifthHz*t/sampleRate)) / 2.4
	}
	return out
}
