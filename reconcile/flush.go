package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/db"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

// Flusher writes the whole track list and tempo to the store once edits
// have been quiet for the debounce interval.
type Flusher struct {
	projectID string
	store     Saver
	snapshot  func() model.Project
	retries   int
	log       *zap.Logger

	debounced  func(func())
	newBackOff func() backoff.BackOff

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func newFlusher(projectID string, store Saver, snapshot func() model.Project, interval time.Duration, retries int, log *zap.Logger) *Flusher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Flusher{
		projectID: projectID,
		store:     store,
		snapshot:  snapshot,
		retries:   retries,
		log:       log,
		debounced: debounce.New(interval),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			return b
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// Touch restarts the countdown.
func (f *Flusher) Touch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.debounced(f.fire)
}

func (f *Flusher) fire() {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return
	}
	if err := f.Flush(f.ctx); err != nil {
		f.log.Warn("gave up saving project", zap.Error(err))
	}
}

// Flush saves a normalized snapshot. An unavailable store is retried with
// backoff a bounded number of times; any other error fails at once.
func (f *Flusher) Flush(ctx context.Context) error {
	p := f.snapshot()
	tracks := model.NormalizeTracks(p.Tracks)
	bpm := model.NormalizeBPM(p.BPM)

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := f.store.Save(ctx, f.projectID, tracks, bpm)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, db.ErrUnavailable):
			f.log.Debug("store unavailable, retrying", zap.Error(err))
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, backoff.WithBackOff(f.newBackOff()), backoff.WithMaxTries(uint(f.retries)+1))
	if err != nil {
		return errors.Wrap(err, "could not save project")
	}
	f.log.Debug("saved project", zap.Int("tracks", len(tracks)), zap.Int("bpm", bpm))
	return nil
}

// Close drops a pending flush and cancels one in progress.
func (f *Flusher) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cancel()
}
