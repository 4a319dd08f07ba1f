package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/reconcile"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/relay"
)

func relayURL(t *testing.T) string {
	t.Helper()
	r := relay.New(nil, 64)
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func project() model.Project {
	return model.Project{ID: "p1", BPM: 120, Tracks: []model.Track{{ID: "t1", Name: "lead"}}}
}

func TestSessionsConverge(t *testing.T) {
	url := relayURL(t)
	ctx := context.Background()

	recA := reconcile.New(project(), reconcile.Config{})
	a, err := Dial(ctx, Config{URL: url, ProjectID: "p1"}, recA)
	require.NoError(t, err)
	defer a.Close()

	var mu sync.Mutex
	var seen []event.Kind
	recB := reconcile.New(project(), reconcile.Config{})
	b, err := Dial(ctx, Config{URL: url, ProjectID: "p1", OnFrame: func(f event.Frame) {
		mu.Lock()
		seen = append(seen, f.Type)
		mu.Unlock()
	}}, recB)
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.ID(), b.ID())
	require.Eventually(t, func() bool { return a.Collaborators() == 2 && b.Collaborators() == 2 }, 2*time.Second, 10*time.Millisecond)

	note := reconcile.NewNote("E4", 2, 1, 90)
	require.NoError(t, a.Do(event.AddNote{TrackID: "t1", Note: note}))
	require.Len(t, recA.Snapshot().Tracks[0].Notes, 1)

	require.Eventually(t, func() bool {
		return len(recB.Snapshot().Tracks[0].Notes) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, note, recB.Snapshot().Tracks[0].Notes[0])

	bpm := 95
	require.NoError(t, b.Do(event.ChangeSettings{Settings: model.Settings{BPM: &bpm}}))
	require.Eventually(t, func() bool { return recA.Snapshot().BPM == 95 }, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Contains(t, seen, event.NoteAdded)
	assert.NotContains(t, seen, event.SettingsChanged)
	mu.Unlock()
}

func TestCloseAnnouncesDeparture(t *testing.T) {
	url := relayURL(t)
	ctx := context.Background()

	a, err := Dial(ctx, Config{URL: url, ProjectID: "p1"}, nil)
	require.NoError(t, err)
	defer a.Close()
	b, err := Dial(ctx, Config{URL: url, ProjectID: "p1"}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return a.Collaborators() == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return a.Collaborators() == 1 }, 2*time.Second, 10*time.Millisecond)

	select {
	case <-b.Done():
	default:
		t.Fatal("closed session still running")
	}
}

func TestDialRequiresProject(t *testing.T) {
	_, err := Dial(context.Background(), Config{URL: "ws://127.0.0.1:1/ws"}, nil)
	assert.Error(t, err)
}

func TestDialGivesUp(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := Dial(ctx, Config{URL: "ws://127.0.0.1:1/ws", ProjectID: "p1"}, nil)
	assert.Error(t, err)
}

func TestHTTPOrigin(t *testing.T) {
	assert.Equal(t, "http://localhost:5000/ws", httpOrigin("ws://localhost:5000/ws"))
	assert.Equal(t, "https://example.com/ws", httpOrigin("wss://example.com/ws"))
}
