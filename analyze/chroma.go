package analyze

import (
	"errors"
	"math"
)

// chromaProfile folds spectrogram bin energies onto the 12 pitch classes
// and averages over frames. The returned profile is normalized to unit
// sum, or all zero when the input carries no energy.
func (s *spectrogram) chromaProfile(sampleRate, frameSize int) []float64 {
	profile := make([]float64, 12)
	binHz := float64(sampleRate) / float64(frameSize)

	for _, frame := range s.frames {
		for bin, mag := range frame {
			if bin == 0 || mag <= 0 {
				continue
			}
			freq := float64(bin) * binHz
			if freq < 27.5 || freq > 4200 {
				continue
			}
			// MIDI note number, nearest equal-tempered pitch.
			midi := 69 + 12*math.Log2(freq/440.0)
			pc := int(math.Round(midi)) % 12
			if pc < 0 {
				pc += 12
			}
			profile[pc] += mag * mag
		}
	}

	total := 0.0
	for _, v := range profile {
		total += v
	}
	if total > 0 {
		for i := range profile {
			profile[i] /= total
		}
	}

	return profile
}

// chromaComplexity scores the spread of chroma energy as normalized
// entropy in [0, 1]. A single sustained pitch scores near zero, broadband
// noise near one.
func chromaComplexity(chroma []float64) (float64, error) {
	total := 0.0
	for _, v := range chroma {
		total += v
	}
	if total <= 0 {
		return 0, errors.New("no chroma energy")
	}

	entropy := 0.0
	for _, v := range chroma {
		p := v / total
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
	}

	return entropy / math.Log2(12), nil
}

// harmonyScore measures how well the chroma profile matches a triadic
// distribution: high when energy concentrates on a few related pitch
// classes, low when it is flat.
func harmonyScore(chroma []float64) (float64, error) {
	total := 0.0
	peak := 0.0
	for _, v := range chroma {
		total += v
		if v > peak {
			peak = v
		}
	}
	if total <= 0 {
		return 0, errors.New("no chroma energy")
	}

	// Sum of the three strongest pitch classes relative to the whole.
	top := topThreeSum(chroma)

	return clamp01(top / total), nil
}

func topThreeSum(values []float64) float64 {
	var a, b, c float64
	for _, v := range values {
		switch {
		case v > a:
			a, b, c = v, a, b
		case v > b:
			b, c = v, b
		case v > c:
			c = v
		}
	}
	return a + b + c
}

// melodyScore measures the stability of the dominant spectral peak across
// frames. A clear moving melody keeps a strong, continuous peak; noise or
// silence does not.
func melodyScore(s *spectrogram, sampleRate, frameSize int) (float64, error) {
	if len(s.frames) < 2 {
		return 0, errors.New("too few frames")
	}

	voiced := 0
	for _, frame := range s.frames {
		peakBin, peakMag := 0, 0.0
		sum := 0.0
		for bin, mag := range frame {
			sum += mag
			if mag > peakMag {
				peakMag = mag
				peakBin = bin
			}
		}
		if sum <= 0 || peakBin == 0 {
			continue
		}
		// A frame counts as voiced when its peak clearly dominates
		// the average bin energy.
		if peakMag > 4*sum/float64(len(frame)) {
			voiced++
		}
	}

	return float64(voiced) / float64(len(s.frames)), nil
}
