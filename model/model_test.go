package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteNormalizeClampsInsteadOfRejecting(t *testing.T) {
	n := Note{ID: "n1", Pitch: "C4", Velocity: 300, Channel: -2, Duration: 1}.Normalize()

	assert := assert.New(t)
	assert.Equal(127, n.Velocity)
	assert.Equal(0, n.Channel)

	n = Note{Velocity: -5, Channel: 40}.Normalize()
	assert.Equal(0, n.Velocity)
	assert.Equal(15, n.Channel)
}

func TestNoteValid(t *testing.T) {
	cases := []struct {
		name string
		note Note
		want bool
	}{
		{"complete", Note{Pitch: "C4", StartTime: 0, Duration: 0.5}, true},
		{"missing pitch", Note{StartTime: 0, Duration: 0.5}, false},
		{"zero duration", Note{Pitch: "C4", Duration: 0}, false},
		{"negative start", Note{Pitch: "C4", StartTime: -1, Duration: 1}, false},
		{"nan duration", Note{Pitch: "C4", Duration: math.NaN()}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.note.Valid())
		})
	}
}

func TestNoteUnmarshalDefaultsVelocity(t *testing.T) {
	var n Note
	require.NoError(t, json.Unmarshal([]byte(`{"id":"n1","note":"E4","startTime":1,"duration":0.5}`), &n))
	assert.Equal(t, 100, n.Velocity)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"n1","note":"E4","velocity":0}`), &n))
	assert.Equal(t, 0, n.Velocity)
}

func TestNormalizeTracksSavePath(t *testing.T) {
	tracks := []Track{{
		ID:     "t1",
		Volume: 3,
		Pan:    -9,
		Notes: []Note{
			{ID: "a", Pitch: "C4", Velocity: 200, StartTime: -2, Duration: 0},
			{ID: "b", Pitch: "", Duration: 1},
		},
	}}
	res := NormalizeTracks(tracks)

	assert := assert.New(t)
	assert.Len(res, 1)
	track := res[0]
	assert.Equal("Track 1", track.Name)
	assert.Equal("piano", track.Instrument)
	assert.Equal(1.0, track.Volume)
	assert.Equal(-1.0, track.Pan)
	assert.Equal("hsl(0, 70%, 50%)", track.Color)
	assert.Len(track.Notes, 1)
	assert.Equal(127, track.Notes[0].Velocity)
	assert.Equal(0.0, track.Notes[0].StartTime)
	assert.Equal(0.1, track.Notes[0].Duration)

	// the input is left untouched
	assert.Len(tracks[0].Notes, 2)
}

func TestNormalizeBPM(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(120, NormalizeBPM(0))
	assert.Equal(120, NormalizeBPM(301))
	assert.Equal(300, NormalizeBPM(300))
	assert.Equal(1, NormalizeBPM(1))
}

func TestUpdatesShallowMerge(t *testing.T) {
	n := Note{ID: "n1", Pitch: "C4", Velocity: 90, StartTime: 1, Duration: 1}
	pitch := "D4"
	NoteUpdate{Pitch: &pitch}.Apply(&n)

	assert := assert.New(t)
	assert.Equal(Note{ID: "n1", Pitch: "D4", Velocity: 90, StartTime: 1, Duration: 1}, n)

	track := Track{ID: "t1", Name: "Lead", Volume: 0.7}
	vol := 0.2
	TrackUpdate{Volume: &vol}.Apply(&track)
	assert.Equal("Lead", track.Name)
	assert.Equal(0.2, track.Volume)

	p := Project{BPM: 120, Name: "song"}
	bpm := 140
	Settings{BPM: &bpm}.Apply(&p)
	assert.Equal(140, p.BPM)
	assert.Equal("song", p.Name)
}

func TestCloneIsDeep(t *testing.T) {
	p := Project{Tracks: []Track{{ID: "t1", Notes: []Note{{ID: "n1"}}}}}
	c := p.Clone()
	c.Tracks[0].Notes[0].ID = "changed"
	c.Tracks[0].Name = "changed"

	assert.Equal(t, "n1", p.Tracks[0].Notes[0].ID)
	assert.Equal(t, "", p.Tracks[0].Name)
}
