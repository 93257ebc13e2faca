package align

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/internal/testutil"
)

const testSampleRate = 22050

func TestAlignTempoWithinToleranceIsNoOp(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 4*testSampleRate)

	a := New()
	tests := []struct {
		name      string
		sourceBPM float64
		targetBPM float64
	}{
		{"identical tempo", 120, 120},
		{"half bpm apart", 120, 120.5},
		{"just under tolerance", 120, 120.99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.AlignTempo(input, tt.sourceBPM, tt.targetBPM)
			if err != nil {
				t.Fatalf("AlignTempo: %v", err)
			}
			testutil.RequireSliceEqual(t, out, input)
		})
	}
}

func TestAlignTempoScalesDuration(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 4*testSampleRate)

	a := New()
	tests := []struct {
		name      string
		sourceBPM float64
		targetBPM float64
	}{
		{"speed up 120 to 130", 120, 130},
		{"slow down 130 to 120", 130, 120},
		{"double tempo", 80, 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.AlignTempo(input, tt.sourceBPM, tt.targetBPM)
			if err != nil {
				t.Fatalf("AlignTempo: %v", err)
			}
			want := float64(len(input)) * tt.sourceBPM / tt.targetBPM
			got := float64(len(out))
			if math.Abs(got-want) > want*0.02 {
				t.Errorf("output length = %.0f, want %.0f +/- 2%%", got, want)
			}
			testutil.RequireFinite(t, out)
		})
	}
}

func TestAlignTempoRejectsBadInput(t *testing.T) {
	a := New()
	input := testutil.Sine(440, testSampleRate, 0.5, testSampleRate)

	tests := []struct {
		name      string
		samples   []float64
		sourceBPM float64
		targetBPM float64
	}{
		{"empty samples", nil, 120, 130},
		{"zero source", input, 0, 130},
		{"negative target", input, 120, -5},
		{"nan source", input, math.NaN(), 130},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.AlignTempo(tt.samples, tt.sourceBPM, tt.targetBPM)
			var alignErr *Error
			if !errors.As(err, &alignErr) {
				t.Fatalf("expected *Error, got %v", err)
			}
		})
	}
}

func TestAlignKeySamePitchClassIsNoOp(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 2*testSampleRate)

	a := New()
	out, err := a.AlignKey(input,
		audio.Key{PitchClass: 9, Minor: true},
		audio.Key{PitchClass: 9, Minor: false},
	)
	if err != nil {
		t.Fatalf("AlignKey: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestAlignKeyPreservesLength(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 2*testSampleRate)

	a := New()
	out, err := a.AlignKey(input,
		audio.Key{PitchClass: 0},
		audio.Key{PitchClass: 2},
	)
	if err != nil {
		t.Fatalf("AlignKey: %v", err)
	}
	if len(out) != len(input) {
		t.Errorf("output length = %d, want %d", len(out), len(input))
	}
	testutil.RequireFinite(t, out)
}

func TestAlignKeyNamedUnmappableKeySoftFails(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, testSampleRate)

	a := New()
	out, err := a.AlignKeyNamed(input, "H#", "C")
	if err != nil {
		t.Fatalf("AlignKeyNamed: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestPitchShiftMovesFundamental(t *testing.T) {
	const freq = 440.0

	input := testutil.Sine(freq, testSampleRate, 0.5, 4*testSampleRate)

	a := New()
	tests := []struct {
		name      string
		semitones float64
	}{
		{"up a whole tone", 2},
		{"down a fourth", -5},
		{"up a tritone", 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := a.PitchShift(input, tt.semitones)
			if err != nil {
				t.Fatalf("PitchShift: %v", err)
			}
			if len(out) != len(input) {
				t.Fatalf("output length = %d, want %d", len(out), len(input))
			}

			want := freq * math.Pow(2, tt.semitones/12)
			got := dominantFrequency(out[testSampleRate/2:], testSampleRate)
			if math.Abs(got-want) > want*0.05 {
				t.Errorf("dominant frequency = %.1f Hz, want %.1f +/- 5%%", got, want)
			}
		})
	}
}

func TestPitchShiftZeroSemitonesIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, testSampleRate)

	a := New()
	out, err := a.PitchShift(input, 0)
	if err != nil {
		t.Fatalf("PitchShift: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestFoldSemitones(t *testing.T) {
	tests := []struct {
		delta int
		want  int
	}{
		{0, 0},
		{1, 1},
		{6, 6},
		{7, -5},
		{11, -1},
		{-7, 5},
		{-11, 1},
	}

	for _, tt := range tests {
		if got := foldSemitones(tt.delta); got != tt.want {
			t.Errorf("foldSemitones(%d) = %d, want %d", tt.delta, got, tt.want)
		}
	}
}

// dominantFrequency estimates the strongest frequency by zero-crossing
// counting, robust enough for clean sinusoidal test signals.
func dominantFrequency(samples []float64, sampleRate float64) float64 {
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] < 0) != (samples[i] < 0) {
			crossings++
		}
	}
	duration := float64(len(samples)) / sampleRate
	return float64(crossings) / 2 / duration
}
