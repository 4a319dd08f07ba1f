package model

import (
	"encoding/json"
	"time"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
)

// Note is one timed pitch. StartTime and Duration are in beats.
type Note struct {
	ID        string  `json:"id"`
	Pitch     string  `json:"note"`
	Velocity  int     `json:"velocity"`
	StartTime float64 `json:"startTime"`
	Duration  float64 `json:"duration"`
	Channel   int     `json:"channel"`
}

type noteJSON Note

// UnmarshalJSON fills velocity with its default when the key is absent, so
// a peer that omits it does not produce a silent note.
func (n *Note) UnmarshalJSON(data []byte) error {
	aux := noteJSON{Velocity: constants.DefaultVelocity}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*n = Note(aux)
	return nil
}

type Track struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Instrument string  `json:"instrument"`
	Volume     float64 `json:"volume"`
	Pan        float64 `json:"pan"`
	Color      string  `json:"color"`
	Notes      []Note  `json:"notes"`
}

type trackJSON Track

func (t *Track) UnmarshalJSON(data []byte) error {
	aux := trackJSON{
		Instrument: constants.DefaultInstrument,
		Volume:     constants.DefaultVolume,
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Track(aux)
	return nil
}

// NoteIndex returns the position of the note with the given id, or -1.
func (t *Track) NoteIndex(id string) int {
	for i := range t.Notes {
		if t.Notes[i].ID == id {
			return i
		}
	}
	return -1
}

// Project is the root of the timeline. Tracks and notes have no lifetime
// outside of it.
type Project struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Owner         string     `json:"owner"`
	BPM           int        `json:"bpm"`
	TimeSignature string     `json:"timeSignature"`
	Tracks        []Track    `json:"tracks"`
	Version       int64      `json:"version"`
	Revisions     []Revision `json:"versions"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (p *Project) TrackIndex(id string) int {
	for i := range p.Tracks {
		if p.Tracks[i].ID == id {
			return i
		}
	}
	return -1
}

// Revision is a saved copy of the tracks a user asked to keep.
type Revision struct {
	Number    int       `json:"version"`
	Tracks    []Track   `json:"tracks"`
	CreatedAt time.Time `json:"createdAt"`
	CreatedBy string    `json:"createdBy"`
}

// Clone returns a deep copy of p. Callers handing state to another goroutine
// (a store, a flush) must clone first.
func (p Project) Clone() Project {
	p.Tracks = CloneTracks(p.Tracks)
	if p.Revisions != nil {
		revs := make([]Revision, len(p.Revisions))
		for i, r := range p.Revisions {
			r.Tracks = CloneTracks(r.Tracks)
			revs[i] = r
		}
		p.Revisions = revs
	}
	return p
}

func CloneTracks(tracks []Track) []Track {
	if tracks == nil {
		return nil
	}
	res := make([]Track, len(tracks))
	for i, t := range tracks {
		res[i] = t
		if t.Notes != nil {
			res[i].Notes = append([]Note(nil), t.Notes...)
		}
	}
	return res
}
