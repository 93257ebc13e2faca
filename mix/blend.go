package mix

import (
	"fmt"

	"github.com/cwbudde/algo-mashup/audio"
)

const (
	primaryVocalBoost    = 1.2
	secondaryVocalWeight = 0.8
	secondaryDrumWeight  = 0.3
	secondaryBassWeight  = 0.2

	vocalEnvelopeStart = 0.3
	vocalEnvelopeEnd   = 0.7
)

// BlendTracks merges per-track stem sets into one blended stem set
// using stem-specific strategies. All stems are truncated to the
// shortest track.
//
// Vocals keep the first track as primary with a 1.2 boost; later tracks
// enter under a rising 0.3 to 0.7 envelope at reduced weight. Drums come
// verbatim from the highest-ratio track (lowest index on ties) with the
// rest folded in quietly. Bass keeps the first track verbatim. Other
// content is a plain ratio-weighted sum. Ratios are normalized before
// weighting.
func BlendTracks(tracks []audio.StemSet, ratios []float64) (audio.StemSet, error) {
	if len(tracks) < 2 {
		return nil, &Error{Reason: fmt.Sprintf("need at least 2 tracks, got %d", len(tracks))}
	}
	if len(ratios) != len(tracks) {
		return nil, &Error{Reason: fmt.Sprintf("%d ratios for %d tracks", len(ratios), len(tracks))}
	}

	normalized, err := NormalizeRatios(ratios)
	if err != nil {
		return nil, err
	}

	minLength := 0
	for i, stems := range tracks {
		for _, name := range audio.StemNames {
			wave, ok := stems[name]
			if !ok {
				return nil, &Error{Reason: fmt.Sprintf("track %d is missing stem %q", i, name)}
			}
			if minLength == 0 || len(wave) < minLength {
				minLength = len(wave)
			}
		}
	}
	if minLength == 0 {
		return nil, &Error{Reason: "all stems are empty"}
	}

	dominant := dominantIndex(normalized)

	vocals := make([]float64, minLength)
	drums := make([]float64, minLength)
	bass := make([]float64, minLength)
	other := make([]float64, minLength)

	for i, stems := range tracks {
		ratio := normalized[i]

		v := stems[audio.StemVocals]
		if i == 0 {
			for n := range minLength {
				vocals[n] = v[n] * ratio * primaryVocalBoost
			}
		} else {
			for n := range minLength {
				env := vocalEnvelopeStart + (vocalEnvelopeEnd-vocalEnvelopeStart)*envelopePos(n, minLength)
				vocals[n] += v[n] * ratio * secondaryVocalWeight * env
			}
		}

		b := stems[audio.StemBass]
		if i == 0 {
			copy(bass, b[:minLength])
		} else {
			for n := range minLength {
				bass[n] += b[n] * secondaryBassWeight * ratio
			}
		}

		o := stems[audio.StemOther]
		for n := range minLength {
			other[n] += o[n] * ratio
		}
	}

	// Drums take the dominant track verbatim; every other track folds
	// in quietly regardless of its position in the list.
	copy(drums, tracks[dominant][audio.StemDrums][:minLength])
	for i, stems := range tracks {
		if i == dominant {
			continue
		}
		d := stems[audio.StemDrums]
		for n := range minLength {
			drums[n] += d[n] * secondaryDrumWeight * normalized[i]
		}
	}

	return audio.StemSet{
		audio.StemVocals: vocals,
		audio.StemDrums:  drums,
		audio.StemBass:   bass,
		audio.StemOther:  other,
	}, nil
}

// MixStems sums stems with optional per-stem linear levels. Stems
// absent from levels default to unity. The output is renormalized to
// 0.99 only when its peak exceeds 0.99.
func MixStems(stems audio.StemSet, levels map[string]float64) ([]float64, error) {
	if len(stems) == 0 {
		return nil, &Error{Reason: "no stems to mix"}
	}

	length := 0
	for _, wave := range stems {
		if len(wave) > length {
			length = len(wave)
		}
	}
	if length == 0 {
		return nil, &Error{Reason: "all stems are empty"}
	}

	out := make([]float64, length)
	for name, wave := range stems {
		level, ok := levels[name]
		if !ok {
			level = 1
		}
		for i, v := range wave {
			out[i] += v * level
		}
	}

	if peak := audio.Peak(out); peak > 0.99 {
		scale := 0.99 / peak
		for i := range out {
			out[i] *= scale
		}
	}

	return out, nil
}

// dominantIndex picks the highest ratio, keeping the lowest index on
// ties.
func dominantIndex(ratios []float64) int {
	best := 0
	for i, r := range ratios {
		if r > ratios[best] {
			best = i
		}
	}
	return best
}

// envelopePos maps a sample index onto [0, 1] across the buffer.
func envelopePos(n, length int) float64 {
	if length <= 1 {
		return 0
	}
	return float64(n) / float64(length-1)
}
