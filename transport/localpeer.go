package transport

import (
	"errors"
	"sync"

	"github.com/gammazero/wampv1/wamp"
)

const defaultRToCQueueSize = 64

// ErrPeerClosed is returned when sending on a peer that has been closed.
var ErrPeerClosed = errors.New("peer closed")

// LinkedPeers creates two connected peers.  Messages sent to one peer appear
// in the Recv of the other.  This is used for connecting in-process clients,
// and tests, to the engine.
//
// The first peer returned is the client side and the second is the side that
// is attached to the engine.
func LinkedPeers() (wamp.Peer, wamp.Peer) {
	return LinkedPeersQSize(defaultRToCQueueSize)
}

// LinkedPeersQSize is the same as LinkedPeers with the ability to specify the
// engine-to-client queue size.  Specifying size 0 uses default size.
func LinkedPeersQSize(queueSize int) (wamp.Peer, wamp.Peer) {
	if queueSize == 0 {
		queueSize = defaultRToCQueueSize
	}

	// The channel used for the engine to send messages to the client should
	// be large enough to prevent blocking while waiting for a slow client, as
	// a client may block on I/O.  If the client does block, then the message
	// is dropped.
	rToC := make(chan wamp.List, queueSize)

	// The engine reads from this channel and immediately dispatches the
	// message.  Therefore, this channel can be unbuffered.
	cToR := make(chan wamp.List)

	done := make(chan struct{})
	once := &sync.Once{}

	// engine reads from and writes to client
	r := &localPeer{rd: cToR, wr: rToC, drop: true, done: done, once: once}
	// client reads from and writes to engine
	c := &localPeer{rd: rToC, wr: cToR, done: done, once: once}

	return c, r
}

// localPeer implements wamp.Peer
type localPeer struct {
	rd   <-chan wamp.List
	wr   chan<- wamp.List
	drop bool

	mu     sync.Mutex
	closed bool

	// done is shared by both sides so that a blocked client send is released
	// when either side closes.
	done chan struct{}
	once *sync.Once
}

// Recv returns the channel this peer reads incoming messages from.
func (p *localPeer) Recv() <-chan wamp.List { return p.rd }

// Send writes a message to the channel the peer sends outgoing messages to.
// The engine side drops the message, returning wamp.ErrBlocked, if the
// client is not keeping up.  The client side blocks until the engine reads
// the message.
func (p *localPeer) Send(list wamp.List) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPeerClosed
	}
	if p.drop {
		return wamp.TrySend(p.wr, list)
	}
	select {
	case p.wr <- list:
	case <-p.done:
		return ErrPeerClosed
	}
	return nil
}

// Close closes the outgoing channel, waking any readers waiting on data from
// this peer.
func (p *localPeer) Close() {
	p.once.Do(func() { close(p.done) })
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.wr)
}
