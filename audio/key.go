package audio

import (
	"fmt"
	"strings"
)

// Key is a musical key: a pitch class (0 = C .. 11 = B) plus mode.
type Key struct {
	PitchClass int
	Minor      bool
}

// pitchNames renders pitch classes with sharps, matching the analyzer's
// label convention.
var pitchNames = []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// pitchClasses maps note names (sharp and flat spellings) to pitch classes.
var pitchClasses = map[string]int{
	"C": 0, "C#": 1, "DB": 1, "D": 2, "D#": 3, "EB": 3,
	"E": 4, "F": 5, "F#": 6, "GB": 6, "G": 7, "G#": 8,
	"AB": 8, "A": 9, "A#": 10, "BB": 10, "B": 11,
}

// String renders the key as "C" or "A minor".
func (k Key) String() string {
	name := pitchNames[((k.PitchClass%12)+12)%12]
	if k.Minor {
		return name + " minor"
	}
	return name
}

// ParseKey parses key names like "C", "F#", "Bb minor", "a m".
// The mode suffix is optional; "minor" and "m" select minor mode.
func ParseKey(s string) (Key, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return Key{}, fmt.Errorf("audio: unmappable key %q", s)
	}

	pc, ok := pitchClasses[strings.ToUpper(fields[0])]
	if !ok {
		return Key{}, fmt.Errorf("audio: unmappable key %q", s)
	}

	key := Key{PitchClass: pc}
	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "minor", "min", "m":
			key.Minor = true
		case "major", "maj":
		default:
			return Key{}, fmt.Errorf("audio: unmappable key mode %q", fields[1])
		}
	}

	return key, nil
}
