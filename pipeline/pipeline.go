// Package pipeline orchestrates mashup generation: per-track analysis,
// stem separation, alignment toward the reference track, blending, and
// the master output chain.
//
// Analysis and mixdown failures abort the job. Separation and alignment
// failures degrade instead: the affected track continues with
// passthrough stems or its unaligned waveform and the incident is
// recorded as a warning on the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/cwbudde/algo-mashup/align"
	"github.com/cwbudde/algo-mashup/analyze"
	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/mix"
	"github.com/cwbudde/algo-mashup/separate"
	"github.com/cwbudde/algo-mashup/stemfx"
)

// State tracks a job through its phases.
type State int

const (
	StateIdle State = iota
	StateAnalyzing
	StateSeparating
	StateAligning
	StateMixing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnalyzing:
		return "analyzing"
	case StateSeparating:
		return "separating"
	case StateAligning:
		return "aligning"
	case StateMixing:
		return "mixing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SilentError reports that the finished mashup contains only silence.
type SilentError struct{}

func (*SilentError) Error() string {
	return "pipeline: mashup output is silent"
}

// Fatal reports whether err must abort a job. Separation and alignment
// errors are recoverable; everything else surfaced by the pipeline is
// not.
func Fatal(err error) bool {
	var sepErr *separate.Error
	if errors.As(err, &sepErr) {
		return false
	}
	var alignErr *align.Error
	if errors.As(err, &alignErr) {
		return false
	}
	return err != nil
}

// Config supplies the pipeline's collaborators. Nil fields fall back to
// defaults: a fresh analyzer, the band-split separator, and the default
// logger.
type Config struct {
	Analyzer  *analyze.Analyzer
	Separator separate.Separator
	Logger    *log.Logger
}

// Pipeline generates mashups. Safe for concurrent use: each Run carries
// its own job state.
type Pipeline struct {
	analyzer  *analyze.Analyzer
	separator separate.Separator
	aligner   *align.Aligner
	effects   *stemfx.Processor
	master    *mix.Master
	logger    *log.Logger
}

// New creates a pipeline from cfg.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	analyzer := cfg.Analyzer
	if analyzer == nil {
		analyzer = analyze.New(analyze.WithLogger(logger))
	}
	separator := cfg.Separator
	if separator == nil {
		separator = separate.BandSplitSeparator{}
	}

	return &Pipeline{
		analyzer:  analyzer,
		separator: separator,
		aligner:   align.New(align.WithLogger(logger)),
		effects:   stemfx.New(stemfx.WithLogger(logger)),
		master:    mix.NewMaster(mix.WithLogger(logger)),
		logger:    logger,
	}
}

// TrackInput is one source waveform for a mashup.
type TrackInput struct {
	Name       string
	Samples    []float64
	SampleRate int
}

// Request describes a mashup job. Ratios defaults to equal weights when
// empty; Mix defaults apply when zero-valued fields are neutral.
type Request struct {
	Tracks       []TrackInput
	Ratios       []float64
	Mix          mix.Params
	Effects      stemfx.Config
	StemLevels   map[string]float64
	ExcludeStems []string
}

// Result carries the finished mashup and everything learned on the way.
type Result struct {
	Samples    []float64
	SampleRate int
	Tracks     []*audio.Track
	State      State
	Warnings   []string
}

type job struct {
	state    State
	mu       sync.Mutex
	warnings []string
}

func (j *job) warnf(format string, args ...any) {
	j.mu.Lock()
	j.warnings = append(j.warnings, fmt.Sprintf(format, args...))
	j.mu.Unlock()
}

// Run executes a mashup job. The returned result is non-nil whenever
// the error is nil; on error the result still reports the failing state
// and collected warnings when available.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	j := &job{state: StateIdle}

	if len(req.Tracks) < 2 {
		j.state = StateFailed
		return p.fail(j), &mix.Error{Reason: fmt.Sprintf("need at least 2 tracks, got %d", len(req.Tracks))}
	}

	ratios := req.Ratios
	if len(ratios) == 0 {
		ratios = make([]float64, len(req.Tracks))
		for i := range ratios {
			ratios[i] = 1
		}
	}
	if len(ratios) != len(req.Tracks) {
		j.state = StateFailed
		return p.fail(j), &mix.Error{Reason: fmt.Sprintf("%d ratios for %d tracks", len(ratios), len(req.Tracks))}
	}

	// Analysis phase. Any track failing analysis fails the job.
	j.state = StateAnalyzing
	tracks, err := p.analyzeAll(ctx, req.Tracks)
	if err != nil {
		j.state = StateFailed
		return p.fail(j), err
	}

	reference := tracks[0]
	for i, r := range ratios {
		tracks[i].BlendRatio = r
	}

	// Separation runs per track on the resampled waveforms.
	j.state = StateSeparating
	stemSets := make([]audio.StemSet, len(tracks))

	var wg sync.WaitGroup
	for i, track := range tracks {
		wg.Add(1)
		go func(i int, track *audio.Track) {
			defer wg.Done()
			stemSets[i] = p.separateTrack(ctx, j, i, track, reference)
		}(i, track)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		j.state = StateFailed
		return p.fail(j), err
	}

	// Secondary tracks stretch and shift toward the reference, stem by
	// stem so each set stays in lockstep.
	j.state = StateAligning
	var awg sync.WaitGroup
	for i, track := range tracks {
		if i == 0 {
			continue
		}
		awg.Add(1)
		go func(i int, track *audio.Track) {
			defer awg.Done()
			stemSets[i] = p.alignStems(j, i, stemSets[i], track, reference)
		}(i, track)
	}
	awg.Wait()

	if err := ctx.Err(); err != nil {
		j.state = StateFailed
		return p.fail(j), err
	}

	j.state = StateMixing
	out, err := p.mixdown(j, stemSets, ratios, req)
	if err != nil {
		j.state = StateFailed
		return p.fail(j), err
	}

	if audio.IsSilent(out) {
		j.state = StateFailed
		return p.fail(j), &SilentError{}
	}

	j.state = StateDone
	return &Result{
		Samples:    out,
		SampleRate: reference.SampleRate,
		Tracks:     tracks,
		State:      StateDone,
		Warnings:   j.warnings,
	}, nil
}

func (p *Pipeline) fail(j *job) *Result {
	return &Result{State: j.state, Warnings: j.warnings}
}

func (p *Pipeline) analyzeAll(ctx context.Context, inputs []TrackInput) ([]*audio.Track, error) {
	tracks := make([]*audio.Track, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(i int, in TrackInput) {
			defer wg.Done()
			tracks[i], errs[i] = p.analyzer.Analyze(in.Samples, in.SampleRate)
		}(i, in)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("track %d (%s): %w", i, inputs[i].Name, err)
		}
	}
	return tracks, nil
}

// separateTrack resamples one track to the reference rate and splits it
// into stems. Separation failures degrade to passthrough stems, then to
// silent stems.
func (p *Pipeline) separateTrack(ctx context.Context, j *job, index int, track *audio.Track, reference *audio.Track) audio.StemSet {
	samples := track.Samples

	if track.SampleRate != reference.SampleRate {
		resampled, err := audio.Resample(samples, track.SampleRate, reference.SampleRate)
		if err != nil {
			j.warnf("track %d: resample failed, using original rate: %v", index, err)
		} else {
			samples = resampled
		}
	}

	stems, err := p.separator.Separate(ctx, samples, reference.SampleRate)
	if err != nil {
		j.warnf("track %d: separation failed, using passthrough stems: %v", index, err)
		stems, err = separate.Passthrough{}.Separate(ctx, samples, reference.SampleRate)
		if err != nil {
			j.warnf("track %d: passthrough separation failed: %v", index, err)
			stems = audio.StemSet{}
			for _, name := range audio.StemNames {
				stems[name] = make([]float64, len(samples))
			}
		}
	}

	return stems
}

// alignStems stretches and shifts every stem of one secondary track
// toward the reference tempo and key. The same rate and semitone delta
// apply to all four stems, so aligned stems keep equal lengths. A
// failure on any stem keeps the whole set unaligned.
func (p *Pipeline) alignStems(j *job, index int, stems audio.StemSet, track *audio.Track, reference *audio.Track) audio.StemSet {
	aligned := make(audio.StemSet, len(stems))
	for _, name := range audio.StemNames {
		wave, err := p.aligner.AlignTempo(stems[name], track.Tempo, reference.Tempo)
		if err != nil {
			j.warnf("track %d: tempo alignment skipped: %v", index, err)
			return stems
		}
		wave, err = p.aligner.AlignKey(wave, track.Key, reference.Key)
		if err != nil {
			j.warnf("track %d: key alignment skipped: %v", index, err)
			return stems
		}
		aligned[name] = wave
	}
	return aligned
}

func (p *Pipeline) mixdown(j *job, stemSets []audio.StemSet, ratios []float64, req Request) ([]float64, error) {
	if len(req.ExcludeStems) > 0 {
		excluded := make(map[string]bool, len(req.ExcludeStems))
		for _, name := range req.ExcludeStems {
			excluded[name] = true
		}
		remaining := 0
		levels := make(map[string]float64, len(audio.StemNames))
		for _, name := range audio.StemNames {
			if excluded[name] {
				levels[name] = 0
			} else {
				levels[name] = 1
				remaining++
			}
		}
		if remaining == 0 {
			return nil, &separate.ConfigError{Reason: "all stems excluded"}
		}
		// Excluded stems go silent but keep the canonical shape so
		// blending still sees four stems per track.
		for i, stems := range stemSets {
			stemSets[i] = separate.AdjustLevels(stems, levels)
		}
	}

	blended, err := mix.BlendTracks(stemSets, ratios)
	if err != nil {
		return nil, err
	}

	sampleRate := 0
	if len(req.Tracks) > 0 {
		sampleRate = req.Tracks[0].SampleRate
	}

	if req.Effects.Active() {
		processed, applied := p.effects.Apply(blended, sampleRate, req.Effects)
		if applied {
			blended = processed
		}
	}

	out, err := mix.MixStems(blended, req.StemLevels)
	if err != nil {
		return nil, err
	}

	return p.master.Process(out, sampleRate, req.Mix.Normalized())
}
