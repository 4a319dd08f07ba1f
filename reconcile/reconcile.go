// Package reconcile keeps a client's copy of a project in step with its
// peers. Remote and local edits go through the same merge rules and both
// restart the persistence countdown. There is no server side merge: every
// client flushes its own view and the last flush to reach the store wins.
package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

// Transport is the local playback engine.
type Transport interface {
	// Active reports whether audio output is already running. A remote play
	// never turns it on.
	Active() bool
	Start()
	Stop()
}

// Saver is the part of the durable store a flush needs.
type Saver interface {
	Save(ctx context.Context, projectID string, tracks []model.Track, bpm int) error
}

type Config struct {
	// Store may be nil, in which case nothing is persisted.
	Store     Saver
	Transport Transport
	Debounce  time.Duration
	Retries   int
	Log       *zap.Logger
}

type Reconciler struct {
	mu       sync.Mutex
	project  model.Project
	playhead float64

	transport Transport
	flusher   *Flusher
	log       *zap.Logger
}

func New(p model.Project, cfg Config) *Reconciler {
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = constants.DefaultSaveDebounce
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	r := &Reconciler{
		project:   p.Clone(),
		transport: cfg.Transport,
		log:       cfg.Log.With(zap.String("project", p.ID)),
	}
	if cfg.Store != nil {
		r.flusher = newFlusher(p.ID, cfg.Store, r.Snapshot, cfg.Debounce, cfg.Retries, r.log)
	}
	return r
}

// Snapshot returns a copy of the current local project.
func (r *Reconciler) Snapshot() model.Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.project.Clone()
}

// Playhead is the last position set by a playback-state edit, in seconds.
func (r *Reconciler) Playhead() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.playhead
}

// Apply merges e into the local project and reports whether the project
// changed. Edits naming a missing track or note are ignored.
func (r *Reconciler) Apply(e event.Edit) bool {
	if pb, ok := e.(event.Playback); ok {
		r.playback(pb)
		return false
	}

	r.mu.Lock()
	changed := r.apply(e)
	r.mu.Unlock()

	if changed {
		r.log.Debug("applied edit", zap.String("kind", string(e.Kind())), zap.String("from", e.Source().UserID))
		if r.flusher != nil {
			r.flusher.Touch()
		}
	}
	return changed
}

func (r *Reconciler) apply(e event.Edit) bool {
	p := &r.project
	switch e := e.(type) {
	case event.AddNote:
		i := p.TrackIndex(e.TrackID)
		if i < 0 {
			return false
		}
		t := &p.Tracks[i]
		if j := t.NoteIndex(e.Note.ID); j >= 0 {
			t.Notes[j] = e.Note
		} else {
			t.Notes = append(t.Notes, e.Note)
		}
		return true
	case event.UpdateNote:
		i := p.TrackIndex(e.TrackID)
		if i < 0 {
			return false
		}
		t := &p.Tracks[i]
		j := t.NoteIndex(e.NoteID)
		if j < 0 {
			return false
		}
		e.Fields.Apply(&t.Notes[j])
		return true
	case event.DeleteNote:
		i := p.TrackIndex(e.TrackID)
		if i < 0 {
			return false
		}
		t := &p.Tracks[i]
		j := t.NoteIndex(e.NoteID)
		if j < 0 {
			return false
		}
		t.Notes = append(t.Notes[:j:j], t.Notes[j+1:]...)
		return true
	case event.AddTrack:
		if i := p.TrackIndex(e.Track.ID); i >= 0 {
			p.Tracks[i] = e.Track
		} else {
			p.Tracks = append(p.Tracks, e.Track)
		}
		return true
	case event.UpdateTrack:
		i := p.TrackIndex(e.TrackID)
		if i < 0 {
			return false
		}
		e.Updates.Apply(&p.Tracks[i])
		return true
	case event.DeleteTrack:
		i := p.TrackIndex(e.TrackID)
		if i < 0 {
			return false
		}
		p.Tracks = append(p.Tracks[:i:i], p.Tracks[i+1:]...)
		return true
	case event.ChangeSettings:
		e.Settings.Apply(p)
		return true
	}
	return false
}

func (r *Reconciler) playback(e event.Playback) {
	if r.transport != nil {
		if e.IsPlaying {
			if r.transport.Active() {
				r.transport.Start()
			}
		} else {
			r.transport.Stop()
		}
	}
	r.mu.Lock()
	r.playhead = e.CurrentTime
	r.mu.Unlock()
}

// Flush saves the current project now, bypassing the countdown.
func (r *Reconciler) Flush(ctx context.Context) error {
	if r.flusher == nil {
		return nil
	}
	return r.flusher.Flush(ctx)
}

// Close ends the session. A flush still waiting on the countdown is lost.
func (r *Reconciler) Close() {
	if r.flusher != nil {
		r.flusher.Close()
	}
}
