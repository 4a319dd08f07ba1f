// Package relay forwards edits between the sessions of a collaboration room.
//
// The relay keeps no musical state. It stamps each edit with the sender and
// the server time and hands it to every other member of the room. Edits from
// one sender reach each peer in the order they were sent; nothing is promised
// across senders or rooms.
package relay

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/event"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/room"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Relay struct {
	rooms     *room.Registry[*Peer]
	log       *zap.Logger
	now       func() time.Time
	queueSize int
}

func New(log *zap.Logger, queueSize int) *Relay {
	if log == nil {
		log = zap.NewNop()
	}
	if queueSize <= 0 {
		queueSize = constants.DefaultPeerQueueSize
	}
	return &Relay{
		rooms:     room.New[*Peer](),
		log:       log,
		now:       time.Now,
		queueSize: queueSize,
	}
}

func (r *Relay) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// NewPeer creates a session handle with the relay's queue size.
func (r *Relay) NewPeer(id string) *Peer {
	return NewPeer(id, r.queueSize)
}

// Join adds p to the room. The joiner and everyone already there get the new
// member count; the others also learn who joined.
func (r *Relay) Join(roomID string, p *Peer) (int, error) {
	p.memberMu.Lock()
	if p.left {
		p.memberMu.Unlock()
		return 0, room.ErrSessionGone
	}
	count, err := r.rooms.Join(roomID, p)
	p.memberMu.Unlock()
	if err != nil {
		return 0, err
	}

	r.log.Info("joined room", zap.String("room", roomID), zap.String("session", p.id), zap.Int("members", count))
	presence := event.Presence{UserID: p.id, Timestamp: r.timestamp()}
	r.broadcast(roomID, p, event.UserJoined, presence)
	r.broadcast(roomID, nil, event.RoomUpdate, event.RoomCount{UserCount: count})
	return count, nil
}

// Leave removes p from the room. ok is false when the room was destroyed,
// in which case nobody is notified.
func (r *Relay) Leave(roomID string, p *Peer) (int, bool) {
	p.memberMu.Lock()
	if p.left {
		p.memberMu.Unlock()
		return 0, false
	}
	count, ok := r.rooms.Leave(roomID, p)
	p.memberMu.Unlock()

	r.log.Info("left room", zap.String("room", roomID), zap.String("session", p.id), zap.Bool("room_alive", ok))
	if ok {
		r.announceDeparture(roomID, p, count)
	}
	return count, ok
}

// Disconnect drops p from every room and closes its queue. Nothing is queued
// to p afterwards.
func (r *Relay) Disconnect(p *Peer) []room.Departure {
	p.memberMu.Lock()
	if p.left {
		p.memberMu.Unlock()
		return nil
	}
	p.left = true
	p.closeQueue()
	deps := r.rooms.DropAll(p)
	p.memberMu.Unlock()

	r.log.Info("disconnected", zap.String("session", p.id), zap.Int("rooms", len(deps)))
	for _, d := range deps {
		if !d.Destroyed {
			r.announceDeparture(d.Room, p, d.Count)
		}
	}
	return deps
}

func (r *Relay) announceDeparture(roomID string, p *Peer, count int) {
	presence := event.Presence{UserID: p.id, Timestamp: r.timestamp()}
	r.broadcast(roomID, p, event.UserLeft, presence)
	r.broadcast(roomID, p, event.RoomUpdate, event.RoomCount{UserCount: count})
}

// Publish forwards e to every member of the room except origin and returns
// how many peers it was queued for. The forwarded payload names the
// originator instead of the project. An originator that is not in the room
// publishes nothing.
func (r *Relay) Publish(roomID string, origin *Peer, e event.Edit) int {
	if !r.rooms.Contains(roomID, origin) {
		r.log.Debug("dropped edit from non-member", zap.String("room", roomID), zap.String("session", origin.id), zap.String("kind", string(e.Kind())))
		return 0
	}
	e = event.Stamp(e, event.Origin{UserID: origin.id, Timestamp: r.timestamp()})
	return r.broadcast(roomID, origin, e.Kind(), e)
}

// broadcast queues one frame to every member but except. Send failures are
// logged and never undo membership changes already made.
func (r *Relay) broadcast(roomID string, except *Peer, kind event.Kind, payload any) int {
	frame, err := event.Encode(kind, payload)
	if err != nil {
		r.log.Error("could not encode frame", zap.String("kind", string(kind)), zap.Error(err))
		return 0
	}
	return r.fanout(roomID, except, frame)
}

func (r *Relay) fanout(roomID string, except *Peer, frame []byte) int {
	sent := 0
	for _, p := range r.rooms.Members(roomID) {
		if p == except {
			continue
		}
		if r.deliver(p, frame) {
			sent++
		}
	}
	return sent
}

func (r *Relay) deliver(p *Peer, frame []byte) bool {
	err := p.send(frame)
	if err == nil {
		return true
	}
	if errors.Is(err, errQueueFull) {
		r.log.Warn("evicting slow peer", zap.String("session", p.id))
		go r.Disconnect(p)
	}
	return false
}

// Greet queues the hello frame that tells a fresh connection its handle.
func (r *Relay) Greet(p *Peer) {
	frame, err := event.Encode(event.Hello, event.Greeting{UserID: p.id})
	if err != nil {
		r.log.Error("could not encode hello", zap.Error(err))
		return
	}
	r.deliver(p, frame)
}

// Rooms lists the ids of rooms that currently have members.
func (r *Relay) Rooms() []string {
	return r.rooms.Rooms()
}

func (r *Relay) Members(roomID string) int {
	n, _ := r.rooms.Count(roomID)
	return n
}

// Close forgets every room. Call it on shutdown after connections are done.
func (r *Relay) Close() {
	r.rooms.Close()
}
