package model

// NoteUpdate carries the fields of a partial note edit. Nil fields are left
// untouched by Apply.
type NoteUpdate struct {
	Pitch     *string  `json:"note,omitempty"`
	Velocity  *int     `json:"velocity,omitempty"`
	StartTime *float64 `json:"startTime,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
	Channel   *int     `json:"channel,omitempty"`
}

func (u NoteUpdate) Apply(n *Note) {
	if u.Pitch != nil {
		n.Pitch = *u.Pitch
	}
	if u.Velocity != nil {
		n.Velocity = *u.Velocity
	}
	if u.StartTime != nil {
		n.StartTime = *u.StartTime
	}
	if u.Duration != nil {
		n.Duration = *u.Duration
	}
	if u.Channel != nil {
		n.Channel = *u.Channel
	}
}

type TrackUpdate struct {
	Name       *string  `json:"name,omitempty"`
	Instrument *string  `json:"instrument,omitempty"`
	Volume     *float64 `json:"volume,omitempty"`
	Pan        *float64 `json:"pan,omitempty"`
	Color      *string  `json:"color,omitempty"`
	Notes      *[]Note  `json:"notes,omitempty"`
}

func (u TrackUpdate) Apply(t *Track) {
	if u.Name != nil {
		t.Name = *u.Name
	}
	if u.Instrument != nil {
		t.Instrument = *u.Instrument
	}
	if u.Volume != nil {
		t.Volume = *u.Volume
	}
	if u.Pan != nil {
		t.Pan = *u.Pan
	}
	if u.Color != nil {
		t.Color = *u.Color
	}
	if u.Notes != nil {
		t.Notes = append([]Note(nil), (*u.Notes)...)
	}
}

// Settings are project-wide values a peer may change. The last one applied
// wins; there is no timestamp comparison.
type Settings struct {
	BPM           *int    `json:"bpm,omitempty"`
	Name          *string `json:"name,omitempty"`
	TimeSignature *string `json:"timeSignature,omitempty"`
}

func (s Settings) Apply(p *Project) {
	if s.BPM != nil && *s.BPM > 0 {
		p.BPM = *s.BPM
	}
	if s.Name != nil {
		p.Name = *s.Name
	}
	if s.TimeSignature != nil {
		p.TimeSignature = *s.TimeSignature
	}
}
