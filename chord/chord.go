package chord

import (
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/midi"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

type PitchClasses = map[int]bool

// Keys returns the MIDI keys of the notes whose pitch can be read.
func Keys(notes []model.Note) []uint8 {
	var keys []uint8
	for _, n := range notes {
		if key, ok := midi.KeyOf(n.Pitch); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

func getPitchClasses(keys []uint8) PitchClasses {
	res := make(PitchClasses)
	for _, k := range keys {
		res[int(k)%12] = true
	}
	return res
}

// Triads names every root whose major triad is fully present, lowest
// pitch class first.
func Triads(keys []uint8) []string {
	pcs := getPitchClasses(keys)
	var res []string
	for root := 0; root < 12; root++ {
		if pcs[root] && pcs[(root+4)%12] && pcs[(root+7)%12] {
			res = append(res, midi.PitchClassName(root))
		}
	}
	return res
}

type Analysis struct {
	Chords []string `json:"chords"`
	Key    string   `json:"key"`
}

// Analyze always reports the key as C. A note set
// without a complete major triad reports a C chord.
func Analyze(notes []model.Note) Analysis {
	keys := Keys(notes)
	if len(keys) == 0 {
		return Analysis{Chords: []string{}, Key: "C"}
	}
	chords := Triads(keys)
	if len(chords) == 0 {
		chords = []string{"C"}
	}
	return Analysis{Chords: chords, Key: "C"}
}
