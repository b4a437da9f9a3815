package wamp

import (
	"context"
	"errors"
	"time"
)

// Peer is the interface implemented by the transport side of a connection.
// Messages cross the peer in their wire form; the transport is responsible for
// framing and serialization only.
type Peer interface {
	// Send queues the wire form of a message for delivery to the remote side.
	Send(List) error

	// Recv returns a channel of wire-form messages from the remote side.  The
	// channel is closed when the connection is lost.
	Recv() <-chan List

	// Close closes the peer connection.
	Close()
}

// ErrBlocked is returned by TrySend when the channel is full.
var ErrBlocked = errors.New("blocked")

// RecvTimeout receives a wire message from a peer within the specified time.
func RecvTimeout(p Peer, t time.Duration) (List, error) {
	timer := time.NewTimer(t)
	defer timer.Stop()
	select {
	case list, open := <-p.Recv():
		if !open {
			return nil, errors.New("receive channel closed")
		}
		return list, nil
	case <-timer.C:
		return nil, errors.New("timeout waiting for message")
	}
}

// RecvMessage receives and decodes a message from a peer within the specified
// time.
func RecvMessage(p Peer, t time.Duration) (Message, error) {
	list, err := RecvTimeout(p, t)
	if err != nil {
		return nil, err
	}
	return Decode(list)
}

// SendCtx sends a wire message to the write-only channel, using a context to
// cancel sending if blocked.
func SendCtx(ctx context.Context, wr chan<- List, list List) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case wr <- list:
	}
	return nil
}

// TrySend sends a wire message to the write-only channel and returns
// ErrBlocked if the channel blocks.
func TrySend(wr chan<- List, list List) error {
	select {
	case wr <- list:
	default:
		return ErrBlocked
	}
	return nil
}
