package bucket

import "github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"

// Length is one of the five symbolic note lengths an exported note can take.
type Length uint8

const (
	Sixteenth Length = iota
	Eighth
	Quarter
	Half
	Whole
)

// upper bounds in beats, inclusive, smallest first
var thresholds = [...]struct {
	maxBeats float64
	length   Length
}{
	{0.25, Sixteenth},
	{0.5, Eighth},
	{1, Quarter},
	{2, Half},
}

// Of places a duration in beats into its bucket. Anything longer than two
// beats is a whole note.
func Of(beats float64) Length {
	for _, th := range thresholds {
		if beats <= th.maxBeats {
			return th.length
		}
	}
	return Whole
}

// Beats is the nominal length of the bucket.
func (l Length) Beats() float64 {
	switch l {
	case Sixteenth:
		return 0.25
	case Eighth:
		return 0.5
	case Quarter:
		return 1
	case Half:
		return 2
	default:
		return 4
	}
}

func (l Length) Ticks() uint32 {
	return uint32(l.Beats() * constants.TicksPerBeat)
}

func (l Length) String() string {
	switch l {
	case Sixteenth:
		return "sixteenth"
	case Eighth:
		return "eighth"
	case Quarter:
		return "quarter"
	case Half:
		return "half"
	default:
		return "whole"
	}
}
