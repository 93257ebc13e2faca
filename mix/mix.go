// Package mix blends aligned stem sets into a single mashup waveform
// and applies the master output chain.
package mix

import (
	"fmt"
	"math"
)

// Defaults for master chain parameters. Neutral values leave the
// corresponding stage inactive.
const (
	DefaultMasterVolume    = 1.0
	DefaultVocalProminence = 1.0
	DefaultDynamicRange    = 1.0
	DefaultKeyAlignment    = 0.8
	DefaultTempoAlignment  = 0.8
	DefaultCrossfade       = 4.0
)

// Error reports a failed blend or mixdown. It is fatal: no output can
// be produced from it.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "mix: " + e.Reason
}

// Params drives blending and the master output chain.
type Params struct {
	MasterVolume    float64
	BassBoost       float64
	TrebleBoost     float64
	VocalProminence float64
	Reverb          float64
	DynamicRange    float64

	// Alignment strengths and structural choices recorded with the job.
	KeyAlignment      float64
	TempoAlignment    float64
	CrossfadeDuration float64
	TransitionType    string
	StructureType     string
}

// DefaultParams returns a neutral parameter set: unity volume, flat
// tone, no reverb, untouched dynamics.
func DefaultParams() Params {
	return Params{
		MasterVolume:      DefaultMasterVolume,
		VocalProminence:   DefaultVocalProminence,
		DynamicRange:      DefaultDynamicRange,
		KeyAlignment:      DefaultKeyAlignment,
		TempoAlignment:    DefaultTempoAlignment,
		CrossfadeDuration: DefaultCrossfade,
	}
}

// Normalized returns a copy with zero-valued neutral fields restored to
// their defaults, so a partially filled parameter set never mutes the
// output outright.
func (p Params) Normalized() Params {
	if p.MasterVolume == 0 {
		p.MasterVolume = DefaultMasterVolume
	}
	if p.VocalProminence == 0 {
		p.VocalProminence = DefaultVocalProminence
	}
	if p.DynamicRange == 0 {
		p.DynamicRange = DefaultDynamicRange
	}
	return p
}

// ratioSumTolerance decides when blend ratios already sum to the track
// count and are kept as given.
const ratioSumTolerance = 1e-9

// NormalizeRatios scales blend ratios to sum to the track count, the
// number of entries. Ratios already summing to the count come back
// unchanged. Negative or non-finite entries and an all-zero set are
// rejected.
func NormalizeRatios(ratios []float64) ([]float64, error) {
	if len(ratios) == 0 {
		return nil, &Error{Reason: "no blend ratios"}
	}

	sum := 0.0
	for i, r := range ratios {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, &Error{Reason: fmt.Sprintf("invalid blend ratio at index %d: %v", i, r)}
		}
		sum += r
	}
	if sum <= 0 {
		return nil, &Error{Reason: "blend ratios sum to zero"}
	}

	out := make([]float64, len(ratios))
	copy(out, ratios)

	n := float64(len(ratios))
	if math.Abs(sum-n) <= ratioSumTolerance {
		return out, nil
	}
	scale := n / sum
	for i := range out {
		out[i] *= scale
	}
	return out, nil
}
