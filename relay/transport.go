package relay

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
)

const maxFrameBytes = 1 << 20

// Handler serves the relay over websocket text frames.
func (r *Relay) Handler() http.Handler {
	return websocket.Handler(r.ServeConn)
}

// ServeConn runs one connection until it closes. Each connection is its own
// session with a fresh handle.
func (r *Relay) ServeConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	conn.MaxPayloadBytes = maxFrameBytes

	p := r.NewPeer(uuid.NewString())
	log := r.log.With(zap.String("session", p.id))
	log.Info("connected", zap.String("remote", remoteAddr(conn)))

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.writeLoop(conn, p, log)
	}()
	r.Greet(p)

	for {
		var msg []byte
		if err := websocket.Message.Receive(conn, &msg); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				log.Warn("dropped oversized frame")
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.Debug("read failed", zap.Error(err))
			}
			break
		}
		r.handleFrame(p, msg, log)
	}

	r.Disconnect(p)
	<-done
}

func (r *Relay) writeLoop(conn *websocket.Conn, p *Peer, log *zap.Logger) {
	for frame := range p.Outbox() {
		if err := websocket.Message.Send(conn, string(frame)); err != nil {
			log.Debug("write failed", zap.Error(err))
			_ = conn.Close()
			// keep draining so Disconnect can close the queue
			for range p.Outbox() {
			}
			return
		}
	}
	// the queue closes on disconnect, which includes eviction
	_ = conn.Close()
}

func (r *Relay) handleFrame(p *Peer, msg []byte, log *zap.Logger) {
	req, err := event.ParseRequest(msg)
	if err != nil {
		log.Debug("ignored frame", zap.Error(err))
		return
	}
	switch req.Kind {
	case event.JoinProject:
		if _, err := r.Join(req.ProjectID, p); err != nil {
			log.Warn("join failed", zap.String("room", req.ProjectID), zap.Error(err))
		}
	case event.LeaveProject:
		r.Leave(req.ProjectID, p)
	default:
		r.Publish(req.ProjectID, p, req.Edit)
	}
}

func remoteAddr(conn *websocket.Conn) string {
	if req := conn.Request(); req != nil {
		return req.RemoteAddr
	}
	return ""
}
