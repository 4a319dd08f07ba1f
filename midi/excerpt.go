package midi

import (
	"bytes"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

var endOfTrack = []byte{0xff, 0x2f, 0x00}

// Excerpt copies s starting at fromTick. Note events before fromTick are
// dropped and everything else moves up to the start of the excerpt, so
// tempo and names still lead. A positive limit caps the note events kept
// per track.
func Excerpt(s *smf.SMF, fromTick uint32, limit int) *smf.SMF {
	res := smf.New()
	res.TimeFormat = s.TimeFormat
	for _, track := range s.Tracks {
		var out smf.Track
		var absTicks, last uint32
		var numNotes int
	TrackEventLoop:
		for _, evt := range track {
			absTicks += evt.Delta
			isNote := evt.Message.Is(gomidi.NoteOnMsg) || evt.Message.Is(gomidi.NoteOffMsg)
			switch {
			case bytes.Equal(evt.Message, endOfTrack):
				break TrackEventLoop
			case isNote && absTicks < fromTick:
				continue
			}
			at := max(absTicks, fromTick) - fromTick
			out = append(out, smf.Event{Delta: at - last, Message: evt.Message})
			last = at
			if isNote {
				numNotes++
				if limit > 0 && numNotes >= limit {
					break TrackEventLoop
				}
			}
		}
		out.Close(0)
		res.Tracks = append(res.Tracks, out)
	}
	return res
}
