package reconcile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/db"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

type save struct {
	tracks []model.Track
	bpm    int
}

type fakeStore struct {
	mu    sync.Mutex
	saves []save
	errs  []error
}

func (f *fakeStore) Save(_ context.Context, _ string, tracks []model.Track, bpm int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return err
	}
	f.saves = append(f.saves, save{tracks: tracks, bpm: bpm})
	return nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

type fakeTransport struct {
	active  bool
	started int
	stopped int
}

func (f *fakeTransport) Active() bool { return f.active }
func (f *fakeTransport) Start()       { f.started++ }
func (f *fakeTransport) Stop()        { f.stopped++ }

func project() model.Project {
	return model.Project{
		ID:  "p1",
		BPM: 120,
		Tracks: []model.Track{
			{ID: "t1", Name: "lead", Notes: []model.Note{{ID: "n1", Pitch: "C4", Velocity: 100, Duration: 1}}},
			{ID: "t2", Name: "bass"},
		},
	}
}

func intPtr(i int) *int { return &i }

func TestApplyNoteEdits(t *testing.T) {
	assert := assert.New(t)
	r := New(project(), Config{})

	assert.True(r.Apply(event.AddNote{TrackID: "t1", Note: model.Note{ID: "n2", Pitch: "E4", Duration: 1}}))
	assert.False(r.Apply(event.AddNote{TrackID: "missing", Note: model.Note{ID: "n3"}}))

	assert.True(r.Apply(event.UpdateNote{TrackID: "t1", NoteID: "n1", Fields: model.NoteUpdate{Velocity: intPtr(60)}}))
	assert.False(r.Apply(event.UpdateNote{TrackID: "t1", NoteID: "nope", Fields: model.NoteUpdate{Velocity: intPtr(1)}}))
	assert.False(r.Apply(event.UpdateNote{TrackID: "t9", NoteID: "n1"}))

	p := r.Snapshot()
	notes := p.Tracks[0].Notes
	require.Len(t, notes, 2)
	assert.Equal("n1", notes[0].ID)
	assert.Equal(60, notes[0].Velocity)
	assert.Equal("C4", notes[0].Pitch)
	assert.Equal("n2", notes[1].ID)

	assert.True(r.Apply(event.DeleteNote{TrackID: "t1", NoteID: "n1"}))
	assert.False(r.Apply(event.DeleteNote{TrackID: "t1", NoteID: "n1"}))
	p = r.Snapshot()
	require.Len(t, p.Tracks[0].Notes, 1)
	assert.Equal("n2", p.Tracks[0].Notes[0].ID)
}

func TestApplyDuplicateNoteReplaces(t *testing.T) {
	r := New(project(), Config{})
	r.Apply(event.AddNote{TrackID: "t1", Note: model.Note{ID: "n1", Pitch: "G4", Duration: 2}})

	notes := r.Snapshot().Tracks[0].Notes
	require.Len(t, notes, 1)
	assert.Equal(t, "G4", notes[0].Pitch)
}

func TestApplySameNoteIDAcrossTracks(t *testing.T) {
	r := New(project(), Config{})
	r.Apply(event.AddNote{TrackID: "t2", Note: model.Note{ID: "n1", Pitch: "A2", Duration: 1}})
	r.Apply(event.DeleteNote{TrackID: "t2", NoteID: "n1"})

	p := r.Snapshot()
	assert.Len(t, p.Tracks[0].Notes, 1)
	assert.Empty(t, p.Tracks[1].Notes)
}

func TestApplyTrackEdits(t *testing.T) {
	assert := assert.New(t)
	r := New(project(), Config{})

	assert.True(r.Apply(event.AddTrack{Track: model.Track{ID: "t3", Name: "pad"}}))
	name := "drums"
	vol := 0.2
	assert.True(r.Apply(event.UpdateTrack{TrackID: "t2", Updates: model.TrackUpdate{Name: &name, Volume: &vol}}))
	assert.False(r.Apply(event.UpdateTrack{TrackID: "t9", Updates: model.TrackUpdate{Name: &name}}))
	assert.True(r.Apply(event.DeleteTrack{TrackID: "t1"}))
	assert.False(r.Apply(event.DeleteTrack{TrackID: "t1"}))

	p := r.Snapshot()
	require.Len(t, p.Tracks, 2)
	assert.Equal("drums", p.Tracks[0].Name)
	assert.Equal(0.2, p.Tracks[0].Volume)
	assert.Equal("pad", p.Tracks[1].Name)
}

func TestSettingsLastWriterWins(t *testing.T) {
	r := New(project(), Config{})
	r.Apply(event.ChangeSettings{Settings: model.Settings{BPM: intPtr(90)}})
	r.Apply(event.ChangeSettings{Settings: model.Settings{BPM: intPtr(150)}})
	r.Apply(event.ChangeSettings{Settings: model.Settings{BPM: intPtr(0)}})
	assert.Equal(t, 150, r.Snapshot().BPM)
}

func TestPlaybackNeverActivatesAudio(t *testing.T) {
	passive := &fakeTransport{}
	r := New(project(), Config{Transport: passive})
	assert.False(t, r.Apply(event.Playback{IsPlaying: true, CurrentTime: 3.5}))
	assert.Equal(t, 0, passive.started)
	assert.Equal(t, 3.5, r.Playhead())

	live := &fakeTransport{active: true}
	r = New(project(), Config{Transport: live})
	r.Apply(event.Playback{IsPlaying: true, CurrentTime: 1})
	r.Apply(event.Playback{IsPlaying: false})
	assert.Equal(t, 1, live.started)
	assert.Equal(t, 1, live.stopped)
	assert.Equal(t, 0.0, r.Playhead())
}

func TestSnapshotIsACopy(t *testing.T) {
	r := New(project(), Config{})
	p := r.Snapshot()
	p.Tracks[0].Notes[0].Pitch = "B9"
	assert.Equal(t, "C4", r.Snapshot().Tracks[0].Notes[0].Pitch)
}

func TestBurstCoalescesIntoOneFlush(t *testing.T) {
	store := &fakeStore{}
	r := New(project(), Config{Store: store, Debounce: 30 * time.Millisecond})
	defer r.Close()

	for i := 0; i < 10; i++ {
		r.Apply(event.AddNote{TrackID: "t2", Note: model.Note{ID: string(rune('a' + i)), Pitch: "C3", Duration: -1}})
	}
	require.Eventually(t, func() bool { return store.count() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, store.count())

	s := store.saves[0]
	assert.Equal(t, 120, s.bpm)
	require.Len(t, s.tracks, 2)
	require.Len(t, s.tracks[1].Notes, 10)
	assert.Equal(t, 0.1, s.tracks[1].Notes[0].Duration)
}

func TestPlaybackDoesNotFlush(t *testing.T) {
	store := &fakeStore{}
	r := New(project(), Config{Store: store, Debounce: 10 * time.Millisecond})
	defer r.Close()

	r.Apply(event.Playback{IsPlaying: true})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, store.count())
}

func TestCloseDropsPendingFlush(t *testing.T) {
	store := &fakeStore{}
	r := New(project(), Config{Store: store, Debounce: 30 * time.Millisecond})

	r.Apply(event.DeleteTrack{TrackID: "t2"})
	r.Close()
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, store.count())

	r.Apply(event.DeleteTrack{TrackID: "t1"})
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, store.count())
}

func TestFlushRetriesUnavailableStore(t *testing.T) {
	unavailable := errors.Wrap(db.ErrUnavailable, "connection refused")
	store := &fakeStore{errs: []error{unavailable, unavailable}}
	r := New(project(), Config{Store: store, Retries: 3})
	r.flusher.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	defer r.Close()

	require.NoError(t, r.Flush(context.Background()))
	assert.Equal(t, 1, store.count())
}

func TestFlushGivesUpAfterRetries(t *testing.T) {
	unavailable := errors.Wrap(db.ErrUnavailable, "connection refused")
	store := &fakeStore{errs: []error{unavailable, unavailable, unavailable}}
	r := New(project(), Config{Store: store, Retries: 2})
	r.flusher.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	defer r.Close()

	err := r.Flush(context.Background())
	assert.ErrorIs(t, err, db.ErrUnavailable)
	assert.Equal(t, 0, store.count())
}

func TestFlushDoesNotRetryOtherErrors(t *testing.T) {
	store := &fakeStore{errs: []error{db.ErrNotFound}}
	r := New(project(), Config{Store: store, Retries: 3})
	r.flusher.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	defer r.Close()

	assert.ErrorIs(t, r.Flush(context.Background()), db.ErrNotFound)
	assert.Empty(t, store.errs)
	require.NoError(t, r.Flush(context.Background()))
}

func TestNewNoteAndTrack(t *testing.T) {
	n := NewNote("D4", -2, 0.01, 200)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, 0.0, n.StartTime)
	assert.Equal(t, 0.1, n.Duration)
	assert.Equal(t, 127, n.Velocity)
	assert.Equal(t, 0.25, NewNote("D4", 0, 0, 100).Duration)

	tr := NewTrack(2)
	assert.NotEmpty(t, tr.ID)
	assert.Equal(t, "Track 3", tr.Name)
	assert.Equal(t, "hsl(120, 70%, 50%)", tr.Color)
	assert.Equal(t, "piano", tr.Instrument)
	assert.Equal(t, 0.7, tr.Volume)
}
