package stemfx

import "math"

// Distort applies soft-clipping waveshaping. The drive grows from 1x to
// 10x with the amount, and the shaped signal is renormalized by
// tanh(drive) so a full-scale input stays at full scale. Zero amount or
// mix is a passthrough.
func Distort(samples []float64, p DistortionParams) ([]float64, error) {
	out := make([]float64, len(samples))
	copy(out, samples)
	if p.Amount <= 0 || p.Mix <= 0 {
		return out, nil
	}

	drive := 1 + p.Amount*9
	norm := math.Tanh(drive)
	for i, x := range samples {
		shaped := math.Tanh(x*drive) / norm
		out[i] = (1-p.Mix)*x + p.Mix*shaped
	}

	return out, nil
}
