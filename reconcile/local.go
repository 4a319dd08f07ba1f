package reconcile

import (
	"math"

	"github.com/google/uuid"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

const defaultNoteDuration = 0.25

// NewNote builds a note for a local edit with a fresh id. Start is floored
// at 0, duration at the shortest savable length and velocity is clamped.
func NewNote(pitch string, start, duration float64, velocity int) model.Note {
	if duration == 0 || math.IsNaN(duration) {
		duration = defaultNoteDuration
	}
	if math.IsNaN(start) {
		start = 0
	}
	n := model.Note{
		ID:        uuid.NewString(),
		Pitch:     pitch,
		Velocity:  velocity,
		StartTime: math.Max(0, start),
		Duration:  math.Max(constants.MinSavedDuration, duration),
	}
	return n.Normalize()
}

// NewTrack builds the empty track a local "add track" creates at index.
func NewTrack(index int) model.Track {
	t := model.Track{
		ID:         uuid.NewString(),
		Instrument: constants.DefaultInstrument,
		Volume:     constants.DefaultVolume,
		Notes:      []model.Note{},
	}
	return t.Normalize(index)
}
