package midi

import (
	"fmt"
	"regexp"
	"strconv"
)

var pitchClasses = map[string]int{
	"C": 0, "C#": 1, "Db": 1, "D": 2, "D#": 3, "Eb": 3,
	"E": 4, "F": 5, "F#": 6, "Gb": 6, "G": 7, "G#": 8,
	"Ab": 8, "A": 9, "A#": 10, "Bb": 10, "B": 11,
	// spellings that cross the octave line or share a natural's key
	"Cb": -1, "Fb": 4, "E#": 5, "B#": 12,
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

var pitchPattern = regexp.MustCompile(`([A-G][#b]?)(\d+)`)

// DefaultKey is middle C, used for names that carry no recognizable pitch.
const DefaultKey uint8 = 60

// KeyOf converts a scientific pitch name ("C4", "F#3") to a MIDI key number.
// C4 is 60. ok is false when no pitch is found or the key would not fit.
func KeyOf(pitch string) (key uint8, ok bool) {
	match := pitchPattern.FindStringSubmatch(pitch)
	if match == nil {
		return 0, false
	}
	octave, err := strconv.Atoi(match[2])
	if err != nil {
		return 0, false
	}
	pc, ok := pitchClasses[match[1]]
	if !ok {
		return 0, false
	}
	n := pc + (octave+1)*12
	if n < 0 || n > 127 {
		return 0, false
	}
	return uint8(n), true
}

func PitchName(key uint8) string {
	return fmt.Sprintf("%s%d", noteNames[key%12], int(key)/12-1)
}

// PitchClassName returns the name of a pitch class 0..11.
func PitchClassName(pc int) string {
	return noteNames[((pc%12)+12)%12]
}
