// Package wavio reads and writes 16-bit PCM WAV files. Decoding folds
// multi-channel audio down to mono; encoding always writes one channel.
package wavio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	riffHeaderSize = 44
	pcmFormat      = 1
	bitsPerSample  = 16
)

// Decode reads a PCM WAV stream and returns mono samples in [-1, 1]
// and the sample rate. Multi-channel audio is averaged down to mono.
func Decode(r io.Reader) ([]float64, int, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, 0, fmt.Errorf("wavio: reading RIFF header: %w", err)
	}
	if !bytes.Equal(riff[0:4], []byte("RIFF")) || !bytes.Equal(riff[8:12], []byte("WAVE")) {
		return nil, 0, fmt.Errorf("wavio: not a RIFF/WAVE stream")
	}

	var (
		channels   int
		sampleRate int
		bits       int
		gotFormat  bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, 0, fmt.Errorf("wavio: no data chunk found")
			}
			return nil, 0, fmt.Errorf("wavio: reading chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("wavio: reading fmt chunk: %w", err)
			}
			if len(body) < 16 {
				return nil, 0, fmt.Errorf("wavio: fmt chunk too short: %d bytes", len(body))
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			if format != pcmFormat {
				return nil, 0, fmt.Errorf("wavio: unsupported format %d, want PCM", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
			if bits != bitsPerSample {
				return nil, 0, fmt.Errorf("wavio: unsupported bit depth %d, want %d", bits, bitsPerSample)
			}
			if channels < 1 {
				return nil, 0, fmt.Errorf("wavio: invalid channel count %d", channels)
			}
			if sampleRate <= 0 {
				return nil, 0, fmt.Errorf("wavio: invalid sample rate %d", sampleRate)
			}
			gotFormat = true

		case "data":
			if !gotFormat {
				return nil, 0, fmt.Errorf("wavio: data chunk before fmt chunk")
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, 0, fmt.Errorf("wavio: reading data chunk: %w", err)
			}
			return decodePCM16(body, channels), sampleRate, nil

		default:
			// Skip unknown chunks, padded to even size.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := io.CopyN(io.Discard, r, skip); err != nil {
				return nil, 0, fmt.Errorf("wavio: skipping %q chunk: %w", id, err)
			}
		}
	}
}

func decodePCM16(body []byte, channels int) []float64 {
	frameBytes := 2 * channels
	frames := len(body) / frameBytes
	out := make([]float64, frames)
	for i := range frames {
		sum := 0.0
		for c := range channels {
			off := i*frameBytes + c*2
			v := int16(binary.LittleEndian.Uint16(body[off : off+2]))
			sum += float64(v) / 32768.0
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// Encode writes mono samples as a 16-bit PCM WAV stream. Samples beyond
// [-1, 1] are clamped.
func Encode(w io.Writer, samples []float64, sampleRate int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("wavio: invalid sample rate %d", sampleRate)
	}

	dataSize := len(samples) * 2
	header := make([]byte, riffHeaderSize)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], pcmFormat)
	binary.LittleEndian.PutUint16(header[22:24], 1)
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:34], 2)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wavio: writing header: %w", err)
	}

	body := make([]byte, dataSize)
	for i, v := range samples {
		v = math.Max(-1, math.Min(1, v))
		s := int16(math.Round(v * 32767))
		binary.LittleEndian.PutUint16(body[i*2:i*2+2], uint16(s))
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wavio: writing samples: %w", err)
	}
	return nil
}

// ReadFile decodes a WAV file from disk.
func ReadFile(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("wavio: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// WriteFile encodes samples to a WAV file on disk.
func WriteFile(path string, samples []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("wavio: %w", err)
	}
	if err := Encode(f, samples, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
