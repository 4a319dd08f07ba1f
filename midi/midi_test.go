package midi

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/bucket"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

func testProject() model.Project {
	return model.Project{
		ID:   "p1",
		Name: "demo",
		BPM:  90,
		Tracks: []model.Track{
			{
				ID:   "t1",
				Name: "Piano",
				Notes: []model.Note{
					{ID: "b", Pitch: "E4", Velocity: 90, StartTime: 1, Duration: 0.5},
					{ID: "a", Pitch: "C4", Velocity: 100, StartTime: 0, Duration: 1},
					{ID: "c", Pitch: "G4", Velocity: 80, StartTime: 1, Duration: 2.5},
				},
			},
			{ID: "t2", Name: "Empty"},
		},
	}
}

func TestKeyOf(t *testing.T) {
	cases := map[string]uint8{
		"C4": 60, "C#4": 61, "Db4": 61, "A4": 69, "B3": 59, "C0": 12, "G9": 127,
		"Cb4": 59, "Fb4": 64, "E#4": 65, "B#3": 60,
	}
	for pitch, want := range cases {
		t.Run(pitch, func(t *testing.T) {
			got, ok := KeyOf(pitch)
			assert.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	_, ok := KeyOf("H2")
	assert.False(t, ok)
	_, ok = KeyOf("B9")
	assert.False(t, ok)
	assert.Equal(t, "F#3", PitchName(54))
}

func TestEncodeIsDeterministic(t *testing.T) {
	first, err := Encode(testProject())
	require.NoError(t, err)
	second, err := Encode(testProject())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStartTickIgnoresTempo(t *testing.T) {
	for _, bpm := range []int{40, 120, 300} {
		p := model.Project{BPM: bpm, Tracks: []model.Track{{
			ID:    "t1",
			Notes: []model.Note{{ID: "n", Pitch: "C4", Velocity: 100, StartTime: 1.5, Duration: 1}},
		}}}
		events := TrackEvents(p.Tracks[0])
		require.Len(t, events, 1)
		assert.Equal(t, uint32(720), events[0].StartTick)
	}
}

func TestTrackEventsOrderAndBuckets(t *testing.T) {
	events := TrackEvents(testProject().Tracks[0])

	assert := assert.New(t)
	require.Len(t, events, 3)
	assert.Equal(uint8(60), events[0].Key)
	// E4 and G4 share tick 480 and keep insertion order
	assert.Equal(uint8(64), events[1].Key)
	assert.Equal(uint8(67), events[2].Key)
	assert.Equal(bucket.Quarter, events[0].Length)
	assert.Equal(bucket.Eighth, events[1].Length)
	assert.Equal(bucket.Whole, events[2].Length)
	assert.Equal(uint32(1200), events[2].DurationTicks)
}

func TestTrackEventsSkipsBrokenNotes(t *testing.T) {
	track := model.Track{Notes: []model.Note{
		{ID: "ok", Pitch: "C4", Velocity: 100, StartTime: 0, Duration: 1},
		{ID: "no-pitch", StartTime: 1, Duration: 1},
		{ID: "no-duration", Pitch: "D4", StartTime: 2},
		{ID: "odd-name", Pitch: "???", Velocity: 100, StartTime: 3, Duration: 0.6},
	}}
	events := TrackEvents(track)

	require.Len(t, events, 2)
	assert.Equal(t, DefaultKey, events[1].Key)
	assert.Equal(t, bucket.Quarter, events[1].Length)
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Encode(testProject())
	require.NoError(t, err)

	s, err := Decode(data)
	require.NoError(t, err)

	summaries := Summarize(s)
	assert := assert.New(t)
	require.Len(t, summaries, 3)
	require.Len(t, summaries[0].Tempos, 1)
	assert.InDelta(90, summaries[0].Tempos[0], 0.01)
	assert.Empty(summaries[2].Notes)

	notes := summaries[1].Notes
	require.Len(t, notes, 3)
	assert.Equal(NoteSpan{StartTick: 0, EndTick: 480, Key: 60, Velocity: 100}, notes[0])
	assert.Equal(NoteSpan{StartTick: 480, EndTick: 720, Key: 64, Velocity: 90}, notes[1])
	assert.Equal(NoteSpan{StartTick: 480, EndTick: 2400, Key: 67, Velocity: 80}, notes[2])
}

func TestEmptyProjectStillHasATrack(t *testing.T) {
	data, err := Encode(model.Project{})
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	s, err := Decode(data)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(s.Tracks), 2)

	summaries := Summarize(s)
	require.Len(t, summaries[0].Tempos, 1)
	assert.InDelta(t, 120, summaries[0].Tempos[0], 0.01)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not a midi file"))
	assert.Error(t, err)
}

func TestExcerpt(t *testing.T) {
	data, err := Encode(testProject())
	require.NoError(t, err)
	s, err := Decode(data)
	require.NoError(t, err)

	summaries := Summarize(Excerpt(s, 480, 0))
	require.Len(t, summaries, 3)
	require.Len(t, summaries[0].Tempos, 1)
	assert.InDelta(t, 90, summaries[0].Tempos[0], 0.01)

	notes := summaries[1].Notes
	require.Len(t, notes, 2)
	assert.Equal(t, NoteSpan{StartTick: 0, EndTick: 240, Key: 64, Velocity: 90}, notes[0])
	assert.Equal(t, NoteSpan{StartTick: 0, EndTick: 1920, Key: 67, Velocity: 80}, notes[1])
}

func TestExcerptLimit(t *testing.T) {
	data, err := Encode(testProject())
	require.NoError(t, err)
	s, err := Decode(data)
	require.NoError(t, err)

	excerpt := Excerpt(s, 0, 1)
	notes := Summarize(excerpt)[1].Notes
	require.Len(t, notes, 1)
	assert.Equal(t, uint8(60), notes[0].Key)
	assert.Equal(t, notes[0].StartTick, notes[0].EndTick)

	var out bytes.Buffer
	_, err = excerpt.WriteTo(&out)
	require.NoError(t, err)
	_, err = Decode(out.Bytes())
	assert.NoError(t, err)
}
