// Package stemfx applies per-stem effect chains: equalization,
// compression, distortion, delay, and convolution reverb, in that fixed
// order. Stage failures are soft: the stem keeps its pre-stage signal
// and a warning is logged.
package stemfx

import (
	"log"

	"github.com/cwbudde/algo-mashup/audio"
)

// Processor runs configured effect chains over stem sets.
type Processor struct {
	logger *log.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for stage-failure warnings.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a stem effects processor.
func New(opts ...Option) *Processor {
	p := &Processor{logger: log.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Apply runs each configured stem through its effect chain and reports
// whether any effect actually ran. Stems without configuration pass
// through as copies. A failing stage logs a warning and leaves the stem
// at its pre-stage state; processing continues with later stages.
func (p *Processor) Apply(stems audio.StemSet, sampleRate int, cfg Config) (audio.StemSet, bool) {
	out := stems.Clone()
	if !cfg.Active() {
		return out, false
	}

	applied := false
	for name, wave := range out {
		fx, ok := cfg[name]
		if !ok || !fx.active() {
			continue
		}
		out[name] = p.applyChain(name, wave, sampleRate, fx)
		applied = true
	}

	return out, applied
}

func (p *Processor) applyChain(name string, wave []float64, sampleRate int, fx StemEffects) []float64 {
	if fx.EQ != nil {
		if next, err := EQ(wave, sampleRate, *fx.EQ); err != nil {
			p.logger.Printf("stemfx: %s: eq skipped: %v", name, err)
		} else {
			wave = next
		}
	}

	if fx.Compression != nil {
		if next, err := Compress(wave, sampleRate, *fx.Compression); err != nil {
			p.logger.Printf("stemfx: %s: compression skipped: %v", name, err)
		} else {
			wave = next
		}
	}

	if fx.Distortion != nil {
		if next, err := Distort(wave, *fx.Distortion); err != nil {
			p.logger.Printf("stemfx: %s: distortion skipped: %v", name, err)
		} else {
			wave = next
		}
	}

	if fx.Delay != nil {
		if next, err := Delay(wave, sampleRate, *fx.Delay); err != nil {
			p.logger.Printf("stemfx: %s: delay skipped: %v", name, err)
		} else {
			wave = next
		}
	}

	if fx.Reverb != nil {
		if next, err := Reverb(wave, sampleRate, *fx.Reverb); err != nil {
			p.logger.Printf("stemfx: %s: reverb skipped: %v", name, err)
		} else {
			wave = next
		}
	}

	if fx.Level != nil {
		scaled := make([]float64, len(wave))
		for i, v := range wave {
			scaled[i] = v * fx.Level.Gain
		}
		wave = scaled
	}

	return wave
}
