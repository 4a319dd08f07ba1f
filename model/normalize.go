package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/util"
)

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Valid reports whether n carries everything the serializer needs. Invalid
// notes are skipped on export rather than failing it.
func (n Note) Valid() bool {
	if strings.TrimSpace(n.Pitch) == "" {
		return false
	}
	if !finite(n.StartTime) || n.StartTime < 0 {
		return false
	}
	return finite(n.Duration) && n.Duration > 0
}

// Normalize clamps velocity and channel into MIDI range. Out of range values
// are never rejected.
func (n Note) Normalize() Note {
	n.Velocity = util.Clamp(n.Velocity, 0, constants.MaxVelocity)
	n.Channel = util.Clamp(n.Channel, 0, constants.MaxChannel)
	return n
}

// normalizeForSave applies the save path rules on top of Normalize. The bool
// is false for notes that cannot be stored at all.
func (n Note) normalizeForSave() (Note, bool) {
	if strings.TrimSpace(n.Pitch) == "" || !finite(n.StartTime) || !finite(n.Duration) {
		return n, false
	}
	n = n.Normalize()
	n.StartTime = math.Max(0, n.StartTime)
	n.Duration = math.Max(constants.MinSavedDuration, n.Duration)
	return n, true
}

// Normalize fills track defaults and clamps mix values. index is the track's
// position and only feeds the default name and color.
func (t Track) Normalize(index int) Track {
	if strings.TrimSpace(t.Name) == "" {
		t.Name = fmt.Sprintf("Track %d", index+1)
	}
	if strings.TrimSpace(t.Instrument) == "" {
		t.Instrument = constants.DefaultInstrument
	}
	if finite(t.Volume) {
		t.Volume = util.Clamp(t.Volume, 0, 1)
	} else {
		t.Volume = constants.DefaultVolume
	}
	if finite(t.Pan) {
		t.Pan = util.Clamp(t.Pan, -1, 1)
	} else {
		t.Pan = 0
	}
	if strings.TrimSpace(t.Color) == "" {
		t.Color = DefaultColor(index)
	}

	notes := make([]Note, 0, len(t.Notes))
	for _, n := range t.Notes {
		if cleaned, ok := n.normalizeForSave(); ok {
			notes = append(notes, cleaned)
		}
	}
	t.Notes = notes
	return t
}

func DefaultColor(index int) string {
	return fmt.Sprintf("hsl(%d, 70%%, 50%%)", (index*60)%360)
}

// NormalizeTracks returns a cleaned copy of tracks as it is sent to the
// durable store.
func NormalizeTracks(tracks []Track) []Track {
	res := make([]Track, 0, len(tracks))
	for i, t := range tracks {
		res = append(res, t.Normalize(i))
	}
	return res
}

// NormalizeBPM maps anything outside (0, MaxBPM] to DefaultBPM.
func NormalizeBPM(bpm int) int {
	if bpm <= 0 || bpm > constants.MaxBPM {
		return constants.DefaultBPM
	}
	return bpm
}
