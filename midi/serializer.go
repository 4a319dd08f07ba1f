package midi

import (
	"bytes"
	"cmp"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
	"golang.org/x/exp/slices"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/bucket"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

// Event is one note of a track after quantization.
type Event struct {
	Key       uint8
	Velocity  uint8
	Channel   uint8
	StartTick uint32
	// DurationTicks is the rounded original duration. The written note
	// length comes from Length, not from this value.
	DurationTicks uint32
	Length        bucket.Length
}

func EndTick(e Event) uint32 {
	return e.StartTick + e.Length.Ticks()
}

// ToTicks converts beats to ticks at the fixed resolution. Tempo plays no
// part in it.
func ToTicks(beats float64) uint32 {
	return uint32(math.Round(beats * constants.TicksPerBeat))
}

// TrackEvents quantizes the notes of one track, ordered by start tick. Notes
// starting on the same tick keep their insertion order. Notes that are
// missing required fields are skipped.
func TrackEvents(track model.Track) []Event {
	events := make([]Event, 0, len(track.Notes))
	for _, note := range track.Notes {
		if !note.Valid() {
			continue
		}
		key, ok := KeyOf(note.Pitch)
		if !ok {
			key = DefaultKey
		}
		note = note.Normalize()
		events = append(events, Event{
			Key:           key,
			Velocity:      uint8(note.Velocity),
			Channel:       uint8(note.Channel),
			StartTick:     ToTicks(note.StartTime),
			DurationTicks: ToTicks(note.Duration),
			Length:        bucket.Of(note.Duration),
		})
	}
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.StartTick, b.StartTick)
	})
	return events
}

type timedMessage struct {
	tick uint32
	off  bool
	msg  gomidi.Message
}

func buildTrack(name string, events []Event) smf.Track {
	var track smf.Track
	if name != "" {
		track.Add(0, smf.MetaTrackSequenceName(name))
	}

	msgs := make([]timedMessage, 0, len(events)*2)
	for _, e := range events {
		msgs = append(msgs,
			timedMessage{tick: e.StartTick, msg: gomidi.NoteOn(e.Channel, e.Key, e.Velocity)},
			timedMessage{tick: EndTick(e), off: true, msg: gomidi.NoteOff(e.Channel, e.Key)},
		)
	}
	// note offs go first on a shared tick so a repeated pitch retriggers
	slices.SortStableFunc(msgs, func(a, b timedMessage) int {
		if a.tick != b.tick {
			return cmp.Compare(a.tick, b.tick)
		}
		if a.off != b.off {
			if a.off {
				return -1
			}
			return 1
		}
		return 0
	})

	var last uint32
	for _, m := range msgs {
		track.Add(m.tick-last, m.msg)
		last = m.tick
	}
	track.Close(0)
	return track
}

func meter(timeSignature string) (uint8, uint8) {
	num, denom, found := strings.Cut(timeSignature, "/")
	if !found {
		return 4, 4
	}
	n, err1 := strconv.ParseUint(strings.TrimSpace(num), 10, 8)
	d, err2 := strconv.ParseUint(strings.TrimSpace(denom), 10, 8)
	if err1 != nil || err2 != nil || n == 0 || d == 0 {
		return 4, 4
	}
	return uint8(n), uint8(d)
}

// Encode renders p as a format 1 standard MIDI file: a tempo track followed
// by one track per project track. The output depends only on p.
func Encode(p model.Project) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(constants.TicksPerBeat)

	var tempo smf.Track
	if p.Name != "" {
		tempo.Add(0, smf.MetaTrackSequenceName(p.Name))
	}
	num, denom := meter(p.TimeSignature)
	tempo.Add(0, smf.MetaMeter(num, denom))
	tempo.Add(0, smf.MetaTempo(float64(model.NormalizeBPM(p.BPM))))
	tempo.Close(0)
	if err := s.Add(tempo); err != nil {
		return nil, errors.Wrap(err, "could not add tempo track")
	}

	for _, t := range p.Tracks {
		if err := s.Add(buildTrack(t.Name, TrackEvents(t))); err != nil {
			return nil, errors.Wrapf(err, "could not add track %q", t.ID)
		}
	}

	// never a tempo-only stream
	if len(p.Tracks) == 0 {
		if err := s.Add(buildTrack("", nil)); err != nil {
			return nil, errors.Wrap(err, "could not add empty track")
		}
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, errors.Wrap(err, "could not write midi stream")
	}
	return buf.Bytes(), nil
}
