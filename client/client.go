// Package client is the collaborator side of the relay: one websocket
// session joined to one project room.
package client

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/reconcile"
)

const helloTimeout = 5 * time.Second

type Config struct {
	URL string
	// Origin defaults to URL with an http scheme.
	Origin    string
	ProjectID string
	// DialRetries bounds reconnect attempts after the first dial.
	DialRetries int
	Log         *zap.Logger
	// OnFrame, when set, sees every frame received, before it is applied.
	OnFrame func(event.Frame)
}

type Session struct {
	conn      *websocket.Conn
	id        string
	projectID string
	rec       *reconcile.Reconciler
	onFrame   func(event.Frame)
	log       *zap.Logger

	sendMu sync.Mutex
	peers  atomic.Int64

	done chan struct{}
	once sync.Once
}

// Dial connects, waits for the relay to name this session and joins the
// project room. rec may be nil for a session that only watches.
func Dial(ctx context.Context, cfg Config, rec *reconcile.Reconciler) (*Session, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("project id is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	origin := cfg.Origin
	if origin == "" {
		origin = httpOrigin(cfg.URL)
	}
	wsCfg, err := websocket.NewConfig(cfg.URL, origin)
	if err != nil {
		return nil, errors.Wrap(err, "bad relay url")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		conn, err := wsCfg.DialContext(ctx)
		if err != nil {
			cfg.Log.Debug("dial failed", zap.String("url", cfg.URL), zap.Error(err))
		}
		return conn, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(max(cfg.DialRetries, 0))+1))
	if err != nil {
		return nil, errors.Wrapf(err, "could not reach relay at %s", cfg.URL)
	}

	id, err := readHello(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	s := &Session{
		conn:      conn,
		id:        id,
		projectID: cfg.ProjectID,
		rec:       rec,
		onFrame:   cfg.OnFrame,
		log:       cfg.Log.With(zap.String("session", id), zap.String("project", cfg.ProjectID)),
		done:      make(chan struct{}),
	}
	if err := s.send(event.JoinProject, event.Membership{ProjectID: cfg.ProjectID}); err != nil {
		_ = conn.Close()
		return nil, err
	}
	go s.readLoop()
	return s, nil
}

func readHello(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(helloTimeout))
	defer func() {
		_ = conn.SetReadDeadline(time.Time{})
	}()
	var msg []byte
	if err := websocket.Message.Receive(conn, &msg); err != nil {
		return "", errors.Wrap(err, "no hello from relay")
	}
	var f event.Frame
	if err := json.Unmarshal(msg, &f); err != nil || f.Type != event.Hello {
		return "", errors.Errorf("expected %s frame", event.Hello)
	}
	var g event.Greeting
	if err := json.Unmarshal(f.Payload, &g); err != nil || g.UserID == "" {
		return "", errors.New("hello frame without a user id")
	}
	return g.UserID, nil
}

func httpOrigin(url string) string {
	if rest, ok := strings.CutPrefix(url, "wss://"); ok {
		return "https://" + rest
	}
	if rest, ok := strings.CutPrefix(url, "ws://"); ok {
		return "http://" + rest
	}
	return url
}

// ID is the handle the relay gave this session.
func (s *Session) ID() string { return s.id }

// Collaborators is the last member count the relay reported for the room.
func (s *Session) Collaborators() int { return int(s.peers.Load()) }

// Done is closed when the connection ends.
func (s *Session) Done() <-chan struct{} { return s.done }

// Do applies a local edit and publishes it to the room.
func (s *Session) Do(e event.Edit) error {
	if s.rec != nil {
		s.rec.Apply(e)
	}
	frame, err := event.EncodeEdit(s.projectID, e)
	if err != nil {
		return err
	}
	return s.write(frame)
}

func (s *Session) send(kind event.Kind, payload any) error {
	frame, err := event.Encode(kind, payload)
	if err != nil {
		return err
	}
	return s.write(frame)
}

func (s *Session) write(frame []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return errors.Wrap(websocket.Message.Send(s.conn, string(frame)), "could not send frame")
}

func (s *Session) readLoop() {
	defer s.finish()
	for {
		var msg []byte
		if err := websocket.Message.Receive(s.conn, &msg); err != nil {
			s.log.Debug("connection ended", zap.Error(err))
			return
		}
		var f event.Frame
		if err := json.Unmarshal(msg, &f); err != nil {
			s.log.Debug("ignored frame", zap.Error(err))
			continue
		}
		if s.onFrame != nil {
			s.onFrame(f)
		}
		s.handle(f)
	}
}

func (s *Session) handle(f event.Frame) {
	switch f.Type {
	case event.RoomUpdate:
		var c event.RoomCount
		if err := json.Unmarshal(f.Payload, &c); err == nil {
			s.peers.Store(int64(c.UserCount))
		}
	case event.UserJoined, event.UserLeft:
		var p event.Presence
		if err := json.Unmarshal(f.Payload, &p); err == nil {
			s.log.Info(string(f.Type), zap.String("user", p.UserID))
		}
	default:
		e, err := event.DecodeEdit(f.Type, f.Payload)
		if err != nil {
			s.log.Debug("ignored frame", zap.Error(err))
			return
		}
		if e.Source().UserID == s.id || s.rec == nil {
			return
		}
		s.rec.Apply(e)
	}
}

func (s *Session) finish() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Close leaves the room and ends the connection. A save still waiting on
// the countdown is lost.
func (s *Session) Close() error {
	_ = s.send(event.LeaveProject, event.Membership{ProjectID: s.projectID})
	err := s.conn.Close()
	<-s.done
	if s.rec != nil {
		s.rec.Close()
	}
	return err
}
