package relay

import (
	"sync"

	"github.com/pkg/errors"
)

var (
	errPeerClosed = errors.New("peer closed")
	errQueueFull  = errors.New("peer queue full")
)

// Peer is one connected session. Frames queued to it are written by a single
// writer in queue order.
type Peer struct {
	id string

	// memberMu makes room membership changes and disconnect atomic for this
	// peer.
	memberMu sync.Mutex
	left     bool

	qmu     sync.Mutex
	qclosed bool
	out     chan []byte
}

func NewPeer(id string, queueSize int) *Peer {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Peer{id: id, out: make(chan []byte, queueSize)}
}

func (p *Peer) ID() string { return p.id }

// Outbox yields queued frames until the peer is closed.
func (p *Peer) Outbox() <-chan []byte { return p.out }

func (p *Peer) send(frame []byte) error {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if p.qclosed {
		return errPeerClosed
	}
	select {
	case p.out <- frame:
		return nil
	default:
		return errQueueFull
	}
}

func (p *Peer) closeQueue() {
	p.qmu.Lock()
	defer p.qmu.Unlock()
	if !p.qclosed {
		p.qclosed = true
		close(p.out)
	}
}
