// Package fftconv provides one-shot linear convolution with automatic
// algorithm selection: direct time-domain convolution for short kernels and
// FFT-based overlap-add for longer ones. It backs the synthesized-IR reverb
// and the envelope smoothing in the master bus.
package fftconv

import (
	"errors"
	"fmt"

	algofft "github.com/MeKo-Christian/algo-fft"
)

// Errors returned by convolution functions.
var (
	ErrEmptyInput  = errors.New("fftconv: empty input")
	ErrEmptyKernel = errors.New("fftconv: empty kernel")
)

// directThreshold is the kernel length above which the FFT path is used.
const directThreshold = 64

// Convolve performs full linear convolution of signal and kernel.
// The result has length len(signal) + len(kernel) - 1.
func Convolve(signal, kernel []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, ErrEmptyInput
	}
	if len(kernel) == 0 {
		return nil, ErrEmptyKernel
	}

	// Keep the longer operand as the segmented signal.
	if len(kernel) > len(signal) {
		signal, kernel = kernel, signal
	}

	if len(kernel) <= directThreshold {
		return direct(signal, kernel), nil
	}

	return overlapAdd(signal, kernel)
}

// ConvolveSame convolves and truncates the result to len(signal), matching
// scipy's mode="full" followed by [:len(signal)] as the original effects
// code does for reverb tails.
func ConvolveSame(signal, kernel []float64) ([]float64, error) {
	full, err := Convolve(signal, kernel)
	if err != nil {
		return nil, err
	}

	n := min(len(signal), len(full))

	return full[:n], nil
}

// direct is O(N*M) time-domain convolution for short kernels.
func direct(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i := range a {
		for j := range b {
			out[i+j] += a[i] * b[j]
		}
	}

	return out
}

// overlapAdd performs FFT-based block convolution.
//
// Each input block is zero-padded to a power-of-two FFT size covering
// blockSize + kernelLen - 1 samples, multiplied with the kernel spectrum,
// and the inverse transforms are overlap-added into the output.
func overlapAdd(signal, kernel []float64) ([]float64, error) {
	kernelLen := len(kernel)

	blockSize := nextPowerOf2(kernelLen)
	if blockSize < 256 {
		blockSize = 256
	}

	fftSize := nextPowerOf2(blockSize + kernelLen - 1)

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("fftconv: failed to create FFT plan: %w", err)
	}

	kernelFFT := make([]complex128, fftSize)
	for i, v := range kernel {
		kernelFFT[i] = complex(v, 0)
	}
	if err := plan.Forward(kernelFFT, kernelFFT); err != nil {
		return nil, fmt.Errorf("fftconv: kernel FFT failed: %w", err)
	}

	outputLen := len(signal) + kernelLen - 1
	output := make([]float64, outputLen)
	scratch := make([]complex128, fftSize)

	numBlocks := (len(signal) + blockSize - 1) / blockSize
	for blockIdx := range numBlocks {
		start := blockIdx * blockSize
		end := min(start+blockSize, len(signal))
		blockLen := end - start

		for i := range scratch {
			scratch[i] = 0
		}
		for i := range blockLen {
			scratch[i] = complex(signal[start+i], 0)
		}

		if err := plan.Forward(scratch, scratch); err != nil {
			return nil, fmt.Errorf("fftconv: forward FFT failed: %w", err)
		}

		for i := range scratch {
			scratch[i] *= kernelFFT[i]
		}

		if err := plan.Inverse(scratch, scratch); err != nil {
			return nil, fmt.Errorf("fftconv: inverse FFT failed: %w", err)
		}

		resultLen := blockLen + kernelLen - 1
		for i := 0; i < resultLen && start+i < outputLen; i++ {
			output[start+i] += real(scratch[i])
		}
	}

	return output, nil
}

// nextPowerOf2 returns the next power of 2 >= n.
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
