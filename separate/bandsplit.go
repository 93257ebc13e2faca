package separate

import (
	"context"
	"fmt"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/internal/filters"
)

const (
	bassCutoffHz   = 250.0
	vocalLowHz     = 300.0
	vocalHighHz    = 3000.0
	drumsCutoffHz  = 4000.0
	bandSplitOrder = 4
)

// BandSplitSeparator is the deterministic fallback separator. It carves
// the spectrum into fixed bands with Butterworth filters: bass below
// 250 Hz, vocals in the 300 Hz to 3 kHz speech band, drums above 4 kHz,
// and other as the residual. The residual construction keeps the stems
// summing back to the input.
type BandSplitSeparator struct{}

func (BandSplitSeparator) Separate(_ context.Context, samples []float64, sampleRate int) (audio.StemSet, error) {
	if len(samples) == 0 {
		return nil, &Error{Reason: "empty waveform"}
	}
	if sampleRate <= 0 {
		return nil, &Error{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	sr := float64(sampleRate)
	bass := filters.NewChain(filters.ButterworthLP(bassCutoffHz, bandSplitOrder, sr)).Process(samples)
	vocals := filters.NewChain(filters.ButterworthBP(vocalLowHz, vocalHighHz, bandSplitOrder, sr)).Process(samples)
	drums := filters.NewChain(filters.ButterworthHP(drumsCutoffHz, bandSplitOrder, sr)).Process(samples)

	other := make([]float64, len(samples))
	for i, v := range samples {
		other[i] = v - bass[i] - vocals[i] - drums[i]
	}

	return audio.StemSet{
		audio.StemVocals: vocals,
		audio.StemDrums:  drums,
		audio.StemBass:   bass,
		audio.StemOther:  other,
	}, nil
}
