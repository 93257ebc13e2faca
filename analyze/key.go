package analyze

import (
	"math"

	"github.com/cwbudde/algo-mashup/audio"
)

// Krumhansl-Schmuckler key profiles. Correlation against all 24
// rotations picks the key; exact ties prefer major.
var (
	majorTemplate = [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorTemplate = [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// estimateKey picks the major or minor key whose diatonic template best
// correlates with the chroma profile. A flat or empty profile falls back
// to C major.
func estimateKey(chroma []float64) audio.Key {
	best := audio.Key{PitchClass: 0, Minor: false}
	bestCorr := math.Inf(-1)

	for pc := range 12 {
		if corr := templateCorrelation(chroma, majorTemplate, pc); corr > bestCorr {
			bestCorr = corr
			best = audio.Key{PitchClass: pc, Minor: false}
		}
	}
	for pc := range 12 {
		if corr := templateCorrelation(chroma, minorTemplate, pc); corr > bestCorr {
			bestCorr = corr
			best = audio.Key{PitchClass: pc, Minor: true}
		}
	}

	return best
}

// templateCorrelation computes the Pearson correlation between chroma and
// the template rotated to start at pitch class root. Degenerate inputs
// yield zero.
func templateCorrelation(chroma []float64, template [12]float64, root int) float64 {
	var meanC, meanT float64
	for i := range 12 {
		meanC += chroma[i]
		meanT += template[i]
	}
	meanC /= 12
	meanT /= 12

	var num, denC, denT float64
	for i := range 12 {
		dc := chroma[i] - meanC
		dt := template[(i-root+12)%12] - meanT
		num += dc * dt
		denC += dc * dc
		denT += dt * dt
	}
	if denC == 0 || denT == 0 {
		return 0
	}

	return num / math.Sqrt(denC*denT)
}
