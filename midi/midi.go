package midi

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

// Decode parses an SMF byte stream.
func Decode(data []byte) (s *smf.SMF, e error) {
	// smf panics on some truncated inputs
	// https://github.com/gomidi/midi/issues/20
	defer func() {
		if r := recover(); r != nil {
			s = nil
			e = errors.Errorf("Error parsing midi file... %v", r)
		}
	}()

	res, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "Error parsing midi file")
	}
	return res, nil
}

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.Wrap(err, "Error reading midi file")
	}
	return Decode(dat)
}

// NoteSpan is a note recovered from a decoded stream, in absolute ticks.
type NoteSpan struct {
	StartTick uint32
	EndTick   uint32
	Channel   uint8
	Key       uint8
	Velocity  uint8
}

func (n NoteSpan) String() string {
	return fmt.Sprintf("%6d +%-5d ch%-2d %-4s vel %d", n.StartTick, n.EndTick-n.StartTick, n.Channel, PitchName(n.Key), n.Velocity)
}

// TrackSummary is what inspect prints for one track.
type TrackSummary struct {
	Tempos []float64
	Notes  []NoteSpan
}

// Summarize pairs note on/off events of every track.
func Summarize(s *smf.SMF) []TrackSummary {
	res := make([]TrackSummary, 0, len(s.Tracks))
	for _, track := range s.Tracks {
		var summary TrackSummary
		var absTicks uint32
		open := make(map[[2]uint8][]int)
		for _, event := range track {
			absTicks += event.Delta
			var bpm float64
			var channel, key, velocity uint8
			switch {
			case event.Message.GetMetaTempo(&bpm):
				summary.Tempos = append(summary.Tempos, bpm)
			case event.Message.GetNoteOn(&channel, &key, &velocity) && velocity > 0:
				open[[2]uint8{channel, key}] = append(open[[2]uint8{channel, key}], len(summary.Notes))
				summary.Notes = append(summary.Notes, NoteSpan{
					StartTick: absTicks,
					EndTick:   absTicks,
					Channel:   channel,
					Key:       key,
					Velocity:  velocity,
				})
			case event.Message.GetNoteOff(&channel, &key, &velocity),
				event.Message.GetNoteOn(&channel, &key, &velocity):
				k := [2]uint8{channel, key}
				if pending := open[k]; len(pending) > 0 {
					summary.Notes[pending[0]].EndTick = absTicks
					open[k] = pending[1:]
				}
			}
		}
		res = append(res, summary)
	}
	return res
}
