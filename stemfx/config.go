package stemfx

// Config maps stem names to their effect chains. Stems absent from the
// config pass through untouched.
type Config map[string]StemEffects

// Active reports whether any stem has at least one effect configured.
func (c Config) Active() bool {
	for _, fx := range c {
		if fx.active() {
			return true
		}
	}
	return false
}

// StemEffects selects the effects applied to one stem. Nil fields are
// inert; a non-nil field enables the stage with its parameters.
type StemEffects struct {
	EQ          *EQParams
	Compression *CompressorParams
	Distortion  *DistortionParams
	Delay       *DelayParams
	Reverb      *ReverbParams
	Level       *LevelParams
}

func (s StemEffects) active() bool {
	return s.EQ != nil || s.Compression != nil || s.Distortion != nil ||
		s.Delay != nil || s.Reverb != nil || s.Level != nil
}

// EQParams sets per-band gain offsets in [-1, 1]. A band gain of zero
// leaves that band at unity.
type EQParams struct {
	LowGain  float64
	MidGain  float64
	HighGain float64
}

// CompressorParams configures downward compression.
type CompressorParams struct {
	ThresholdDB float64
	Ratio       float64
	Attack      float64
	Release     float64
}

// DefaultCompressor returns moderate 4:1 compression at -20 dB.
func DefaultCompressor() *CompressorParams {
	return &CompressorParams{ThresholdDB: -20, Ratio: 4, Attack: 0.01, Release: 0.1}
}

// DistortionParams configures soft-clipping distortion.
type DistortionParams struct {
	Amount float64
	Mix    float64
}

// DelayParams configures the multi-tap echo.
type DelayParams struct {
	Time     float64
	Feedback float64
	Mix      float64
}

// DefaultDelay returns a 300 ms echo with moderate feedback.
func DefaultDelay() *DelayParams {
	return &DelayParams{Time: 0.3, Feedback: 0.4, Mix: 0.5}
}

// ReverbParams configures convolution reverb with a synthesized room
// response.
type ReverbParams struct {
	Amount   float64
	RoomSize float64
}

// LevelParams scales the stem by a linear gain.
type LevelParams struct {
	Gain float64
}
