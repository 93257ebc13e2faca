package mix

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/internal/testutil"
)

const testSampleRate = 44100

func TestNormalizeRatios(t *testing.T) {
	t.Run("scales to track count", func(t *testing.T) {
		got, err := NormalizeRatios([]float64{2, 1, 1})
		if err != nil {
			t.Fatalf("NormalizeRatios: %v", err)
		}
		testutil.RequireSliceEqual(t, got, []float64{1.5, 0.75, 0.75})
	})

	t.Run("already summing to count is identity", func(t *testing.T) {
		got, err := NormalizeRatios([]float64{1.5, 0.5})
		if err != nil {
			t.Fatalf("NormalizeRatios: %v", err)
		}
		testutil.RequireSliceEqual(t, got, []float64{1.5, 0.5})
	})

	t.Run("result sums to track count", func(t *testing.T) {
		for _, ratios := range [][]float64{
			{1, 1},
			{0.2, 0.3},
			{5, 1, 3, 0.5},
		} {
			got, err := NormalizeRatios(ratios)
			if err != nil {
				t.Fatalf("NormalizeRatios(%v): %v", ratios, err)
			}
			sum := 0.0
			for _, r := range got {
				sum += r
			}
			if math.Abs(sum-float64(len(ratios))) > 1e-12 {
				t.Errorf("NormalizeRatios(%v) sums to %v, want %d", ratios, sum, len(ratios))
			}
		}
	})

	tests := []struct {
		name   string
		ratios []float64
	}{
		{"empty", nil},
		{"all zero", []float64{0, 0}},
		{"negative entry", []float64{1, -0.5}},
		{"nan entry", []float64{1, math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name+" rejected", func(t *testing.T) {
			if _, err := NormalizeRatios(tt.ratios); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func stemSetOf(value float64, length int) audio.StemSet {
	stems := make(audio.StemSet, len(audio.StemNames))
	for _, name := range audio.StemNames {
		stems[name] = testutil.DC(value, length)
	}
	return stems
}

func TestBlendTracksRequiresTwoTracks(t *testing.T) {
	_, err := BlendTracks([]audio.StemSet{stemSetOf(0.1, 64)}, []float64{1})
	var mixErr *Error
	if !errors.As(err, &mixErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestBlendTracksTruncatesToShortest(t *testing.T) {
	a := stemSetOf(0.1, 1000)
	b := stemSetOf(0.1, 600)

	out, err := BlendTracks([]audio.StemSet{a, b}, []float64{1, 1})
	if err != nil {
		t.Fatalf("BlendTracks: %v", err)
	}
	for _, name := range audio.StemNames {
		if len(out[name]) != 600 {
			t.Errorf("stem %q length = %d, want 600", name, len(out[name]))
		}
	}
}

func TestBlendTracksBassFromFirstTrack(t *testing.T) {
	a := stemSetOf(0.4, 256)
	b := stemSetOf(0.1, 256)

	out, err := BlendTracks([]audio.StemSet{a, b}, []float64{1, 1})
	if err != nil {
		t.Fatalf("BlendTracks: %v", err)
	}

	// First track bass verbatim plus 0.2 * ratio of the second; equal
	// ratios already sum to the track count and stay at 1.
	want := 0.4 + 0.1*secondaryBassWeight*1.0
	if got := out[audio.StemBass][128]; math.Abs(got-want) > 1e-12 {
		t.Errorf("bass sample = %v, want %v", got, want)
	}
}

func TestBlendTracksDrumsFromDominantTrack(t *testing.T) {
	a := stemSetOf(0.1, 256)
	b := stemSetOf(0.5, 256)

	out, err := BlendTracks([]audio.StemSet{a, b}, []float64{1, 3})
	if err != nil {
		t.Fatalf("BlendTracks: %v", err)
	}

	// Second track dominates: its drums come through verbatim with the
	// first folded in at 0.3 times its normalized ratio (1/4 scaled to
	// a sum of 2).
	want := 0.5 + 0.1*secondaryDrumWeight*0.5
	if got := out[audio.StemDrums][100]; math.Abs(got-want) > 1e-12 {
		t.Errorf("drums sample = %v, want %v", got, want)
	}
}

func TestBlendTracksDrumsTieKeepsFirstTrack(t *testing.T) {
	a := stemSetOf(0.3, 256)
	b := stemSetOf(0.7, 256)

	out, err := BlendTracks([]audio.StemSet{a, b}, []float64{1, 1})
	if err != nil {
		t.Fatalf("BlendTracks: %v", err)
	}

	want := 0.3 + 0.7*secondaryDrumWeight*1.0
	if got := out[audio.StemDrums][0]; math.Abs(got-want) > 1e-12 {
		t.Errorf("drums sample = %v, want %v", got, want)
	}
}

func TestBlendTracksVocalEnvelope(t *testing.T) {
	a := stemSetOf(0, 1001)
	b := stemSetOf(1, 1001)

	out, err := BlendTracks([]audio.StemSet{a, b}, []float64{1, 1})
	if err != nil {
		t.Fatalf("BlendTracks: %v", err)
	}

	vocals := out[audio.StemVocals]
	start := secondaryVocalWeight * vocalEnvelopeStart
	end := secondaryVocalWeight * vocalEnvelopeEnd
	if math.Abs(vocals[0]-start) > 1e-12 {
		t.Errorf("vocals[0] = %v, want %v", vocals[0], start)
	}
	if math.Abs(vocals[1000]-end) > 1e-12 {
		t.Errorf("vocals[end] = %v, want %v", vocals[1000], end)
	}
	if vocals[0] >= vocals[1000] {
		t.Error("secondary vocal envelope does not rise")
	}
}

func TestBlendTracksMissingStem(t *testing.T) {
	a := stemSetOf(0.1, 256)
	b := stemSetOf(0.1, 256)
	delete(b, audio.StemOther)

	if _, err := BlendTracks([]audio.StemSet{a, b}, []float64{1, 1}); err == nil {
		t.Error("expected error for missing stem")
	}
}

func TestMixStems(t *testing.T) {
	t.Run("unity levels sum stems", func(t *testing.T) {
		stems := audio.StemSet{
			audio.StemVocals: {0.1, 0.1},
			audio.StemBass:   {0.2, -0.2},
		}
		out, err := MixStems(stems, nil)
		if err != nil {
			t.Fatalf("MixStems: %v", err)
		}
		testutil.RequireSliceNearlyEqual(t, out, []float64{0.3, -0.1}, 1e-15)
	})

	t.Run("levels scale stems exactly", func(t *testing.T) {
		stems := audio.StemSet{
			audio.StemVocals: {0.1, 0.1},
			audio.StemDrums:  {0.2, 0.2},
		}
		out, err := MixStems(stems, map[string]float64{
			audio.StemVocals: 2,
			audio.StemDrums:  0.5,
		})
		if err != nil {
			t.Fatalf("MixStems: %v", err)
		}
		testutil.RequireSliceNearlyEqual(t, out, []float64{0.3, 0.3}, 1e-15)
	})

	t.Run("renormalizes only on clipping", func(t *testing.T) {
		quiet := audio.StemSet{audio.StemVocals: {0.5, 0.5}}
		out, err := MixStems(quiet, nil)
		if err != nil {
			t.Fatalf("MixStems: %v", err)
		}
		testutil.RequireSliceEqual(t, out, []float64{0.5, 0.5})

		hot := audio.StemSet{
			audio.StemVocals: {0.8, 0.8},
			audio.StemDrums:  {0.8, 0.8},
		}
		out, err = MixStems(hot, nil)
		if err != nil {
			t.Fatalf("MixStems: %v", err)
		}
		if peak := testutil.MaxAbs(out); math.Abs(peak-0.99) > 1e-12 {
			t.Errorf("peak = %v, want 0.99", peak)
		}
	})

	t.Run("no stems fails", func(t *testing.T) {
		if _, err := MixStems(audio.StemSet{}, nil); err == nil {
			t.Error("expected error")
		}
	})
}

func TestMasterNeutralParamsNearIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 8192)
	out, err := NewMaster().Process(input, testSampleRate, DefaultParams())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestMasterVolumeScales(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.4, 4096)
	p := DefaultParams()
	p.MasterVolume = 0.5

	out, err := NewMaster().Process(input, testSampleRate, p)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	want := make([]float64, len(input))
	for i, v := range input {
		want[i] = v * 0.5
	}
	testutil.RequireSliceEqual(t, out, want)
}

func TestMasterBassBoostRaisesLowEnd(t *testing.T) {
	input := testutil.Sine(80, testSampleRate, 0.3, 1<<15)
	p := DefaultParams()
	p.BassBoost = 0.8

	out, err := NewMaster().Process(input, testSampleRate, p)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if testutil.MaxAbs(out) <= testutil.MaxAbs(input)*1.2 {
		t.Errorf("bass boost left peak at %.4f", testutil.MaxAbs(out))
	}
}

func TestMasterClipGuard(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.6, 8192)
	p := DefaultParams()
	p.MasterVolume = 3

	out, err := NewMaster().Process(input, testSampleRate, p)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if peak := testutil.MaxAbs(out); math.Abs(peak-masterHeadroomPeak) > 1e-9 {
		t.Errorf("peak = %v, want %v", peak, masterHeadroomPeak)
	}
}

func TestMasterDynamicsShaping(t *testing.T) {
	quiet := testutil.Sine(440, testSampleRate, 0.1, testSampleRate/2)
	loud := testutil.Sine(440, testSampleRate, 0.8, testSampleRate/2)
	input := append(append([]float64{}, quiet...), loud...)
	half := len(input) / 2
	inRatio := testutil.MaxAbs(input[half:]) / testutil.MaxAbs(input[:half])

	run := func(dynamicRange float64) float64 {
		p := DefaultParams()
		p.DynamicRange = dynamicRange
		out, err := NewMaster().Process(input, testSampleRate, p)
		if err != nil {
			t.Fatalf("Process: %v", err)
		}
		return testutil.MaxAbs(out[half:]) / testutil.MaxAbs(out[:half])
	}

	// The gain curve is envelope^(1-range): sub-unity envelopes are
	// pushed further down for range below one and lifted for range
	// above one.
	if got := run(0.5); got <= inRatio {
		t.Errorf("range 0.5: loud/quiet ratio %.2f not widened from %.2f", got, inRatio)
	}
	if got := run(1.5); got >= inRatio {
		t.Errorf("range 1.5: loud/quiet ratio %.2f not narrowed from %.2f", got, inRatio)
	}
}

func TestMasterRejectsBadInput(t *testing.T) {
	if _, err := NewMaster().Process(nil, testSampleRate, DefaultParams()); err == nil {
		t.Error("expected error for empty input")
	}
	if _, err := NewMaster().Process([]float64{0.1}, 0, DefaultParams()); err == nil {
		t.Error("expected error for zero sample rate")
	}
}
