package stemfx

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-mashup/internal/fftconv"
)

// Reverb applies convolution reverb against a synthesized room impulse
// response. Zero amount is a passthrough. The dry path keeps
// 1 - amount/2 of the input so heavy reverb never fully drowns the
// source.
func Reverb(samples []float64, sampleRate int, p ReverbParams) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("stemfx: reverb: invalid sample rate %d", sampleRate)
	}

	out := make([]float64, len(samples))
	copy(out, samples)
	if p.Amount <= 0 || len(samples) == 0 {
		return out, nil
	}

	ir := RoomImpulseResponse(sampleRate, p.Amount, p.RoomSize)

	wet, err := fftconv.ConvolveSame(samples, ir)
	if err != nil {
		return nil, fmt.Errorf("stemfx: reverb: %w", err)
	}

	dry := 1 - p.Amount*0.5
	for i := range out {
		out[i] = samples[i]*dry + wet[i]*p.Amount
	}

	return out, nil
}

// RoomImpulseResponse synthesizes a reverb impulse response: a direct
// spike, sparse early reflections, and an exponentially decaying diffuse
// tail. The room size sets the response length from 0.1 to 2.6 seconds;
// larger amounts slow the tail decay. The response is normalized to unit
// absolute sum and scaled by the amount.
func RoomImpulseResponse(sampleRate int, amount, roomSize float64) []float64 {
	length := int(float64(sampleRate) * (0.1 + roomSize*2.5))
	if length < 1 {
		length = 1
	}

	ir := make([]float64, length)
	ir[0] = 1

	earlyCount := int(5 + roomSize*15)
	for i := range earlyCount {
		pos := (i + 1) * length / (earlyCount * 2)
		if pos < length {
			ir[pos] = 0.5 * math.Exp(-float64(i)/(float64(earlyCount)*0.5))
		}
	}

	decay := 0.1 + (1-amount)*0.8
	tailStart := length / 10
	for i := tailStart; i < length; i++ {
		rel := float64(i-tailStart) / float64(length-tailStart)
		ir[i] = math.Exp(-rel/decay) * amount
	}

	sum := 0.0
	for _, v := range ir {
		sum += math.Abs(v)
	}
	if sum > 0 {
		scale := amount / sum
		for i := range ir {
			ir[i] *= scale
		}
	}

	return ir
}
