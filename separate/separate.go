// Package separate splits a track into vocal, drum, bass, and other
// stems. Separation is delegated to an external model provider when one
// is available and degrades to deterministic filter-bank separation or a
// passthrough otherwise.
package separate

import (
	"context"
	"fmt"
	"sort"

	"github.com/cwbudde/algo-mashup/audio"
)

// Error reports a failed separation attempt. Callers treat it as
// recoverable: the track can still be processed with passthrough stems.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("separate: %s: %v", e.Reason, e.Err)
	}
	return "separate: " + e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// ConfigError reports an unusable stem configuration, such as a filter
// that excludes every stem. It is fatal: there is nothing left to mix.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "separate: " + e.Reason
}

// Provider is an external source separation backend, typically a neural
// model behind a service boundary.
type Provider interface {
	// Available reports whether the backend can accept work right now.
	Available(ctx context.Context) bool

	// Separate returns the four canonical stems for samples. Every
	// returned stem must carry the canonical names; lengths may differ
	// from the input and are fitted by the caller.
	Separate(ctx context.Context, samples []float64, sampleRate int) (audio.StemSet, error)
}

// Separator produces a four-stem decomposition of a waveform.
type Separator interface {
	Separate(ctx context.Context, samples []float64, sampleRate int) (audio.StemSet, error)
}

// New picks the best separator for the given provider. The provider is
// probed once; a nil or unreachable provider selects the deterministic
// filter-bank fallback.
func New(ctx context.Context, provider Provider) Separator {
	if provider != nil && provider.Available(ctx) {
		return &ModelSeparator{provider: provider}
	}
	return &BandSplitSeparator{}
}

// ModelSeparator delegates to an external neural separation backend and
// validates its output.
type ModelSeparator struct {
	provider Provider
}

// NewModelSeparator wraps provider without probing it.
func NewModelSeparator(provider Provider) *ModelSeparator {
	return &ModelSeparator{provider: provider}
}

func (m *ModelSeparator) Separate(ctx context.Context, samples []float64, sampleRate int) (audio.StemSet, error) {
	if len(samples) == 0 {
		return nil, &Error{Reason: "empty waveform"}
	}
	if sampleRate <= 0 {
		return nil, &Error{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	stems, err := m.provider.Separate(ctx, samples, sampleRate)
	if err != nil {
		return nil, &Error{Reason: "backend failed", Err: err}
	}

	for _, name := range audio.StemNames {
		wave, ok := stems[name]
		if !ok {
			return nil, &Error{Reason: fmt.Sprintf("backend omitted stem %q", name)}
		}
		stems[name] = audio.FitLength(wave, len(samples))
	}
	for name := range stems {
		if !canonicalStem(name) {
			return nil, &Error{Reason: fmt.Sprintf("backend returned unknown stem %q", name)}
		}
	}

	// A backend that returns only silence has effectively failed.
	silent := true
	for _, name := range audio.StemNames {
		if !audio.IsSilent(stems[name]) {
			silent = false
			break
		}
	}
	if silent && !audio.IsSilent(samples) {
		return nil, &Error{Reason: "backend returned silent stems"}
	}

	return stems, nil
}

// Passthrough duplicates the input waveform into all four stems. It is
// the degraded-mode separator used when real separation fails.
type Passthrough struct{}

func (Passthrough) Separate(_ context.Context, samples []float64, sampleRate int) (audio.StemSet, error) {
	if len(samples) == 0 {
		return nil, &Error{Reason: "empty waveform"}
	}
	if sampleRate <= 0 {
		return nil, &Error{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	stems := make(audio.StemSet, len(audio.StemNames))
	for _, name := range audio.StemNames {
		wave := make([]float64, len(samples))
		copy(wave, samples)
		stems[name] = wave
	}
	return stems, nil
}

// FilterStems sums the stems marked true in include. Stems absent from
// the map are excluded; excluding every stem is a configuration error.
// When a single stem is included the sum equals that stem exactly.
func FilterStems(stems audio.StemSet, include map[string]bool) ([]float64, error) {
	var names []string
	length := 0
	for name, wave := range stems {
		if include[name] {
			names = append(names, name)
			if len(wave) > length {
				length = len(wave)
			}
		}
	}
	if len(names) == 0 {
		return nil, &ConfigError{Reason: "all stems excluded"}
	}
	sort.Strings(names)

	out := make([]float64, length)
	for _, name := range names {
		for i, v := range stems[name] {
			out[i] += v
		}
	}
	return out, nil
}

// AdjustLevels scales each stem by its configured linear gain. Stems
// absent from levels pass through at unity; unknown level entries are
// ignored.
func AdjustLevels(stems audio.StemSet, levels map[string]float64) audio.StemSet {
	out := make(audio.StemSet, len(stems))
	for name, wave := range stems {
		gain, ok := levels[name]
		if !ok {
			gain = 1
		}
		scaled := make([]float64, len(wave))
		for i, v := range wave {
			scaled[i] = v * gain
		}
		out[name] = scaled
	}
	return out
}

func canonicalStem(name string) bool {
	for _, s := range audio.StemNames {
		if s == name {
			return true
		}
	}
	return false
}
