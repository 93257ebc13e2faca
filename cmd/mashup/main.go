// Command mashup blends two or more WAV files into a single mashup.
//
// Usage:
//
//	mashup [flags] -o out.wav track1.wav track2.wav [track3.wav ...]
//
// Each input is analyzed for tempo and key, aligned toward the first
// track, separated into stems, and blended. On a fatal failure a
// sidecar <out>.error.txt describing the failure is written next to the
// intended output.
//
// Examples:
//
//	mashup -o mix.wav a.wav b.wav
//	mashup -ratios 2,1 -bass 0.3 -reverb 0.4 -o mix.wav a.wav b.wav
//	mashup -exclude vocals -o instrumental.wav a.wav b.wav
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-mashup/audio"
	"github.com/cwbudde/algo-mashup/mix"
	"github.com/cwbudde/algo-mashup/pipeline"
	"github.com/cwbudde/algo-mashup/wavio"
)

func main() {
	output := flag.String("o", "mashup.wav", "output WAV path")
	ratioList := flag.String("ratios", "", "comma-separated blend ratios, one per track (default: equal)")
	excludeList := flag.String("exclude", "", "comma-separated stems to drop (vocals, drums, bass, other)")
	volume := flag.Float64("volume", 1.0, "master volume")
	bass := flag.Float64("bass", 0.0, "bass boost, -1 to 1")
	treble := flag.Float64("treble", 0.0, "treble boost, -1 to 1")
	vocals := flag.Float64("vocals", 1.0, "vocal prominence, 0 to 2")
	reverb := flag.Float64("reverb", 0.0, "master reverb amount, 0 to 1")
	dynamics := flag.Float64("dynamics", 1.0, "dynamic range, below 1 tightens, above 1 widens")
	verbose := flag.Bool("v", false, "log pipeline progress")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mashup [flags] -o out.wav track1.wav track2.wav [...]\n\n")
		fmt.Fprintf(os.Stderr, "Blends two or more WAV files into a mashup.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 2 {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "mashup: ", 0)
	if !*verbose {
		logger.SetOutput(nopWriter{})
	}

	if err := run(flag.Args(), *output, *ratioList, *excludeList, mix.Params{
		MasterVolume:    *volume,
		BassBoost:       *bass,
		TrebleBoost:     *treble,
		VocalProminence: *vocals,
		Reverb:          *reverb,
		DynamicRange:    *dynamics,
	}, logger); err != nil {
		writeErrorArtifact(*output, err)
		fmt.Fprintf(os.Stderr, "mashup: %v\n", err)
		os.Exit(1)
	}
}

func run(paths []string, output, ratioList, excludeList string, params mix.Params, logger *log.Logger) error {
	tracks := make([]pipeline.TrackInput, len(paths))
	for i, path := range paths {
		samples, sampleRate, err := wavio.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		tracks[i] = pipeline.TrackInput{
			Name:       filepath.Base(path),
			Samples:    samples,
			SampleRate: sampleRate,
		}
		logger.Printf("loaded %s: %d samples at %d Hz", path, len(samples), sampleRate)
	}

	ratios, err := parseRatios(ratioList, len(tracks))
	if err != nil {
		return err
	}
	exclude, err := parseStems(excludeList)
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.Config{Logger: logger})
	result, err := p.Run(context.Background(), pipeline.Request{
		Tracks:       tracks,
		Ratios:       ratios,
		Mix:          params,
		ExcludeStems: exclude,
	})
	if err != nil {
		return err
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "mashup: warning: %s\n", w)
	}
	for i, track := range result.Tracks {
		logger.Printf("track %d: %.1f BPM, key %s", i, track.Tempo, track.Key)
	}

	if err := wavio.WriteFile(output, result.Samples, result.SampleRate); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	logger.Printf("wrote %s: %d samples", output, len(result.Samples))
	return nil
}

func parseRatios(list string, trackCount int) ([]float64, error) {
	if list == "" {
		return nil, nil
	}
	parts := strings.Split(list, ",")
	if len(parts) != trackCount {
		return nil, fmt.Errorf("%d ratios given for %d tracks", len(parts), trackCount)
	}
	ratios := make([]float64, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ratio %q", part)
		}
		ratios[i] = v
	}
	return ratios, nil
}

func parseStems(list string) ([]string, error) {
	if list == "" {
		return nil, nil
	}
	var stems []string
	for _, part := range strings.Split(list, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if !validStem(name) {
			return nil, fmt.Errorf("unknown stem %q", name)
		}
		stems = append(stems, name)
	}
	return stems, nil
}

func validStem(name string) bool {
	for _, s := range audio.StemNames {
		if s == name {
			return true
		}
	}
	return false
}

// writeErrorArtifact leaves a sidecar describing a fatal failure next
// to the intended output path.
func writeErrorArtifact(output string, err error) {
	path := output + ".error.txt"
	body := fmt.Sprintf("mashup generation failed\n\nerror: %v\n", err)
	if werr := os.WriteFile(path, []byte(body), 0o644); werr != nil {
		fmt.Fprintf(os.Stderr, "mashup: could not write %s: %v\n", path, werr)
	}
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
