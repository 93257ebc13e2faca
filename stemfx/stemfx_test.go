package stemfx

import (
	"math"
	"testing"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/internal/testutil"
)

const testSampleRate = 44100

func TestEQZeroGainsIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 4096)
	out, err := EQ(input, testSampleRate, EQParams{})
	if err != nil {
		t.Fatalf("EQ: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestEQBoostsConfiguredBand(t *testing.T) {
	// Low-frequency tone: a low-gain boost must raise its level, a
	// high-gain boost must not.
	input := testutil.Sine(100, testSampleRate, 0.3, 1<<15)

	boosted, err := EQ(input, testSampleRate, EQParams{LowGain: 0.8})
	if err != nil {
		t.Fatalf("EQ: %v", err)
	}
	untouched, err := EQ(input, testSampleRate, EQParams{HighGain: 0.8})
	if err != nil {
		t.Fatalf("EQ: %v", err)
	}

	if testutil.MaxAbs(boosted) <= testutil.MaxAbs(input)*1.2 {
		t.Errorf("low boost peak = %.4f, want clearly above input %.4f",
			testutil.MaxAbs(boosted), testutil.MaxAbs(input))
	}
	if got := testutil.MaxAbs(untouched); got > testutil.MaxAbs(input)*1.1 {
		t.Errorf("high boost changed low tone peak to %.4f", got)
	}
}

func TestEQRejectsBadSampleRate(t *testing.T) {
	if _, err := EQ([]float64{0.1}, 0, EQParams{LowGain: 0.5}); err == nil {
		t.Error("expected error for zero sample rate")
	}
}

func TestCompressUnityRatioIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.8, 4096)
	out, err := Compress(input, testSampleRate, CompressorParams{
		ThresholdDB: -20, Ratio: 1, Attack: 0.01, Release: 0.1,
	})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestCompressSubUnityRatioIgnoresOtherParams(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.8, 2048)
	out, err := Compress(input, 0, CompressorParams{Ratio: 0.5})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestCompressFullScaleConstant(t *testing.T) {
	// Constant full scale against a -20 dB threshold at 4:1. The
	// envelope pins at 1, so every sample is reduced by a constant
	// 15 dB before makeup; makeup is capped at 2x, leaving the steady
	// state near 0.356 and the peak under 0.99.
	input := testutil.DC(1.0, testSampleRate/2)
	out, err := Compress(input, testSampleRate, CompressorParams{
		ThresholdDB: -20, Ratio: 4, Attack: 0.01, Release: 0.1,
	})
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	if peak := testutil.MaxAbs(out); peak > 0.99+1e-9 {
		t.Errorf("peak %.4f exceeds 0.99", peak)
	}
	want := 2 * math.Pow(10, -0.75)
	if got := out[len(out)-1]; math.Abs(got-want) > 1e-12 {
		t.Errorf("steady state = %v, want %v", got, want)
	}
	if want/maxMakeupGain >= 1 {
		t.Error("pre-makeup level not below full scale")
	}
}

func TestCompressReducesDynamicRange(t *testing.T) {
	// Quiet first half, loud second half.
	quiet := testutil.Sine(440, testSampleRate, 0.05, testSampleRate)
	loud := testutil.Sine(440, testSampleRate, 0.9, testSampleRate)
	input := append(append([]float64{}, quiet...), loud...)

	out, err := Compress(input, testSampleRate, *DefaultCompressor())
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	inRatio := testutil.MaxAbs(input[testSampleRate:]) / testutil.MaxAbs(input[:testSampleRate])
	outRatio := testutil.MaxAbs(out[testSampleRate:]) / testutil.MaxAbs(out[:testSampleRate])
	if outRatio >= inRatio {
		t.Errorf("loud/quiet ratio %.2f not reduced from %.2f", outRatio, inRatio)
	}
	if peak := testutil.MaxAbs(out); peak > 0.99+1e-9 {
		t.Errorf("peak %.4f exceeds 0.99", peak)
	}
}

func TestCompressRejectsBadParams(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 1024)

	tests := []struct {
		name string
		sr   int
		p    CompressorParams
	}{
		{"zero sample rate", 0, *DefaultCompressor()},
		{"zero attack", testSampleRate, CompressorParams{ThresholdDB: -20, Ratio: 4, Attack: 0, Release: 0.1}},
		{"zero release", testSampleRate, CompressorParams{ThresholdDB: -20, Ratio: 4, Attack: 0.01, Release: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compress(input, tt.sr, tt.p); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDistortZeroAmountIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.8, 2048)
	out, err := Distort(input, DistortionParams{Amount: 0, Mix: 0.5})
	if err != nil {
		t.Fatalf("Distort: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestDistortSoftClips(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.9, 4096)
	out, err := Distort(input, DistortionParams{Amount: 1, Mix: 1})
	if err != nil {
		t.Fatalf("Distort: %v", err)
	}
	if peak := testutil.MaxAbs(out); peak > 1 {
		t.Errorf("peak %.4f exceeds full scale", peak)
	}

	// Full drive flattens the waveform: the mean absolute level rises
	// relative to the peak.
	if crest(out) >= crest(input) {
		t.Errorf("crest factor %.3f not reduced from %.3f", crest(out), crest(input))
	}
}

func TestDelayAddsEchoes(t *testing.T) {
	input := testutil.Click(testSampleRate, 0)
	out, err := Delay(input, testSampleRate, DelayParams{Time: 0.25, Feedback: 0.5, Mix: 1})
	if err != nil {
		t.Fatalf("Delay: %v", err)
	}

	tap := int(0.25 * testSampleRate)
	if math.Abs(out[tap]) < 0.1 {
		t.Errorf("no echo at first tap: %v", out[tap])
	}
	if math.Abs(out[2*tap]) < 0.05 {
		t.Errorf("no echo at second tap: %v", out[2*tap])
	}
	if math.Abs(out[2*tap]) >= math.Abs(out[tap]) {
		t.Error("second tap not quieter than first")
	}
}

func TestDelayZeroMixIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 4096)
	out, err := Delay(input, testSampleRate, DelayParams{Time: 0.1, Feedback: 0.5, Mix: 0})
	if err != nil {
		t.Fatalf("Delay: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestDelayLongerThanBufferIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 1024)
	out, err := Delay(input, testSampleRate, DelayParams{Time: 1, Feedback: 0.5, Mix: 0.5})
	if err != nil {
		t.Fatalf("Delay: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestReverbZeroAmountIsIdentity(t *testing.T) {
	input := testutil.Sine(440, testSampleRate, 0.5, 4096)
	out, err := Reverb(input, testSampleRate, ReverbParams{Amount: 0, RoomSize: 0.5})
	if err != nil {
		t.Fatalf("Reverb: %v", err)
	}
	testutil.RequireSliceEqual(t, out, input)
}

func TestReverbAddsTail(t *testing.T) {
	// A click followed by silence: reverb must spread energy into the
	// silent region.
	input := testutil.Click(testSampleRate, 100)
	out, err := Reverb(input, testSampleRate, ReverbParams{Amount: 0.7, RoomSize: 0.5})
	if err != nil {
		t.Fatalf("Reverb: %v", err)
	}
	if len(out) != len(input) {
		t.Fatalf("length changed from %d to %d", len(input), len(out))
	}

	tailEnergy := 0.0
	for _, v := range out[testSampleRate/2:] {
		tailEnergy += v * v
	}
	if tailEnergy == 0 {
		t.Error("no reverb tail in the silent region")
	}
}

func TestRoomImpulseResponseShape(t *testing.T) {
	ir := RoomImpulseResponse(testSampleRate, 0.5, 0.5)

	wantLen := int(testSampleRate * (0.1 + 0.5*2.5))
	if len(ir) != wantLen {
		t.Errorf("length = %d, want %d", len(ir), wantLen)
	}
	if ir[0] <= 0 {
		t.Error("direct spike missing")
	}

	sum := 0.0
	for _, v := range ir {
		sum += math.Abs(v)
	}
	if math.Abs(sum-0.5) > 1e-9 {
		t.Errorf("absolute sum = %.6f, want 0.5", sum)
	}
}

func TestProcessorApply(t *testing.T) {
	stems := audio.StemSet{
		audio.StemVocals: testutil.Sine(440, testSampleRate, 0.5, 8192),
		audio.StemDrums:  testutil.Click(8192, 0, 4096),
		audio.StemBass:   testutil.Sine(80, testSampleRate, 0.5, 8192),
		audio.StemOther:  testutil.Noise(3, 0.3, 8192),
	}

	t.Run("empty config is inert", func(t *testing.T) {
		out, applied := New().Apply(stems, testSampleRate, Config{})
		if applied {
			t.Error("applied = true for empty config")
		}
		for name := range stems {
			testutil.RequireSliceEqual(t, out[name], stems[name])
		}
	})

	t.Run("only configured stems change", func(t *testing.T) {
		cfg := Config{
			audio.StemVocals: {Distortion: &DistortionParams{Amount: 1, Mix: 1}},
		}
		out, applied := New().Apply(stems, testSampleRate, cfg)
		if !applied {
			t.Fatal("applied = false")
		}
		testutil.RequireSliceEqual(t, out[audio.StemBass], stems[audio.StemBass])
		testutil.RequireSliceEqual(t, out[audio.StemDrums], stems[audio.StemDrums])
		if crest(out[audio.StemVocals]) >= crest(stems[audio.StemVocals]) {
			t.Error("configured vocals stem unchanged")
		}
	})

	t.Run("level scales stem", func(t *testing.T) {
		cfg := Config{
			audio.StemBass: {Level: &LevelParams{Gain: 0.5}},
		}
		out, _ := New().Apply(stems, testSampleRate, cfg)
		want := make([]float64, len(stems[audio.StemBass]))
		for i, v := range stems[audio.StemBass] {
			want[i] = v * 0.5
		}
		testutil.RequireSliceEqual(t, out[audio.StemBass], want)
	})

	t.Run("does not mutate input stems", func(t *testing.T) {
		before := stems.Clone()
		cfg := Config{
			audio.StemOther: {Reverb: &ReverbParams{Amount: 0.5, RoomSize: 0.2}},
		}
		New().Apply(stems, testSampleRate, cfg)
		for name := range before {
			testutil.RequireSliceEqual(t, stems[name], before[name])
		}
	})
}

// crest is peak divided by mean absolute level.
func crest(samples []float64) float64 {
	mean := 0.0
	for _, v := range samples {
		mean += math.Abs(v)
	}
	mean /= float64(len(samples))
	if mean == 0 {
		return 0
	}
	return testutil.MaxAbs(samples) / mean
}
