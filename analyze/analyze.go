// Package analyze implements the feature analyzer: it estimates tempo,
// musical key, and auxiliary descriptors from a raw mono waveform.
package analyze

import (
	"fmt"
	"log"
	"math"

	"github.com/cwbudde/algo-mashup/audio"
)

const (
	defaultFrameSize = 1024
	defaultHopSize   = 512

	// Tempo search range in BPM.
	minTempoBPM = 40.0
	maxTempoBPM = 240.0

	// fallbackTempoBPM is reported when the onset envelope carries no
	// usable periodicity (constant or near-silent input).
	fallbackTempoBPM = 120.0
)

// Error reports an unreadable or empty input track. It is fatal at the
// orchestration level: a track that cannot be analyzed cannot be mixed.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "analyze: " + e.Reason
}

// Analyzer estimates track features from raw waveforms.
type Analyzer struct {
	frameSize int
	hopSize   int
	logger    *log.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithFrameSize sets the STFT frame size (power of two).
func WithFrameSize(size int) Option {
	return func(a *Analyzer) {
		if size > 0 {
			a.frameSize = size
		}
	}
}

// WithLogger sets the logger used for non-fatal analysis warnings.
func WithLogger(logger *log.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New creates an analyzer with default STFT framing.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		frameSize: defaultFrameSize,
		hopSize:   defaultHopSize,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	a.hopSize = a.frameSize / 2

	return a
}

// Analyze estimates tempo, key, and auxiliary descriptors for samples.
//
// Empty or nil samples and non-positive sample rates fail with *Error.
// Auxiliary descriptors (complexity, melody, harmony, rhythm) are
// best-effort: on failure they are left NaN and a warning is logged, but
// the analysis still succeeds.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) (*audio.Track, error) {
	if len(samples) == 0 {
		return nil, &Error{Reason: "empty waveform"}
	}
	if sampleRate <= 0 {
		return nil, &Error{Reason: fmt.Sprintf("invalid sample rate %d", sampleRate)}
	}

	sg, err := computeSpectrogram(samples, a.frameSize, a.hopSize)
	if err != nil {
		return nil, &Error{Reason: err.Error()}
	}

	env := sg.onsetEnvelope()
	tempo := a.estimateTempo(env, sampleRate)

	chroma := sg.chromaProfile(sampleRate, a.frameSize)
	key := estimateKey(chroma)

	track := &audio.Track{
		Samples:    samples,
		SampleRate: sampleRate,
		Tempo:      tempo,
		Key:        key,
		BlendRatio: 1.0,
		Complexity: math.NaN(),
		Melody:     math.NaN(),
		Harmony:    math.NaN(),
		Rhythm:     math.NaN(),
	}

	a.attachDescriptors(track, sg, chroma, env, sampleRate)

	return track, nil
}

// estimateTempo finds the strongest periodicity of the onset envelope via
// autocorrelation over the musically plausible lag range.
func (a *Analyzer) estimateTempo(env []float64, sampleRate int) float64 {
	bpm, _ := tempoAutocorrelation(env, sampleRate, a.hopSize)
	if bpm <= 0 {
		return fallbackTempoBPM
	}
	return bpm
}

func tempoAutocorrelation(env []float64, sampleRate, hop int) (bpm, strength float64) {
	if len(env) == 0 {
		return 0, 0
	}

	// Remove the envelope mean so correlation measures periodicity,
	// not DC level.
	mean := 0.0
	for _, v := range env {
		mean += v
	}
	mean /= float64(len(env))

	centered := make([]float64, len(env))
	energy := 0.0
	for i, v := range env {
		centered[i] = v - mean
		energy += centered[i] * centered[i]
	}
	if energy == 0 {
		return 0, 0
	}

	framesPerSecond := float64(sampleRate) / float64(hop)
	minLag := int(framesPerSecond * 60 / maxTempoBPM)
	maxLag := int(framesPerSecond * 60 / minTempoBPM)
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(centered) {
		maxLag = len(centered) - 1
	}
	if maxLag < minLag {
		return 0, 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := lag; i < len(centered); i++ {
			sum += centered[i] * centered[i-lag]
		}
		corr := sum / energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	if bestLag == 0 {
		return 0, 0
	}

	return 60 * framesPerSecond / float64(bestLag), bestCorr
}

// attachDescriptors fills the best-effort auxiliary scores. Failures are
// logged and leave the corresponding fields NaN.
func (a *Analyzer) attachDescriptors(track *audio.Track, sg *spectrogram, chroma []float64, env []float64, sampleRate int) {
	if c, err := chromaComplexity(chroma); err != nil {
		a.logger.Printf("analyze: complexity descriptor unavailable: %v", err)
	} else {
		track.Complexity = c
	}

	if m, err := melodyScore(sg, sampleRate, a.frameSize); err != nil {
		a.logger.Printf("analyze: melody descriptor unavailable: %v", err)
	} else {
		track.Melody = m
	}

	if h, err := harmonyScore(chroma); err != nil {
		a.logger.Printf("analyze: harmony descriptor unavailable: %v", err)
	} else {
		track.Harmony = h
	}

	if _, strength := tempoAutocorrelation(env, sampleRate, a.hopSize); strength > 0 {
		track.Rhythm = clamp01(strength)
	} else {
		a.logger.Printf("analyze: rhythm descriptor unavailable: flat onset envelope")
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
