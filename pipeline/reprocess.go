package pipeline

import (
	"context"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/mix"
	"github.com/cwbudde/algo-mashup/separate"
	"github.com/cwbudde/algo-mashup/stemfx"
)

// Reprocess rebuilds a finished mashup from its own waveform: the mix
// is separated back into stems, which then go through ReprocessStems
// with the given effects, levels, and inclusion settings. A separation
// failure degrades to passthrough stems the same way a run does.
func (p *Pipeline) Reprocess(ctx context.Context, samples []float64, sampleRate int, cfg stemfx.Config, levels map[string]float64, include map[string]bool) ([]float64, error) {
	if len(samples) == 0 {
		return nil, &mix.Error{Reason: "no samples to reprocess"}
	}

	stems, err := p.separator.Separate(ctx, samples, sampleRate)
	if err != nil {
		p.logger.Printf("pipeline: reprocess separation failed, using passthrough stems: %v", err)
		stems, err = separate.Passthrough{}.Separate(ctx, samples, sampleRate)
		if err != nil {
			return nil, err
		}
	}

	return p.ReprocessStems(stems, sampleRate, cfg, levels, include)
}

// ReprocessStems reruns the effects and mixdown stages over an already
// separated stem set, for jobs that tweak effect, level, or inclusion
// settings without repeating analysis and separation. A nil include map
// keeps every stem. The remix is renormalized to 0.95 when it would
// clip.
func (p *Pipeline) ReprocessStems(stems audio.StemSet, sampleRate int, cfg stemfx.Config, levels map[string]float64, include map[string]bool) ([]float64, error) {
	if stems.Len() == 0 {
		return nil, &mix.Error{Reason: "no stems to reprocess"}
	}

	processed := stems
	if cfg.Active() {
		out, applied := p.effects.Apply(stems, sampleRate, cfg)
		if applied {
			processed = out
		}
	}
	if levels != nil {
		processed = separate.AdjustLevels(processed, levels)
	}

	var mixed []float64
	var err error
	if include != nil {
		mixed, err = separate.FilterStems(processed, include)
	} else {
		mixed, err = mix.MixStems(processed, nil)
	}
	if err != nil {
		return nil, err
	}

	if peak := audio.Peak(mixed); peak > 0.99 {
		scale := 0.95 / peak
		for i := range mixed {
			mixed[i] *= scale
		}
	}

	return mixed, nil
}
