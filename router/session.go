package router

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/gammazero/wampv1/wamp"
)

// SessionState is the lifecycle state of a session.
type SessionState int

const (
	// Connecting is the state of an accepted connection that has not yet
	// been sent WELCOME.
	Connecting SessionState = iota
	// Welcomed means WELCOME was sent and the session ID is valid.
	Welcomed
	// Active sessions exchange calls and events.
	Active
	// Closed is terminal.  No further messages flow.
	Closed
)

func (s SessionState) String() string {
	switch s {
	case Connecting:
		return "CONNECTING"
	case Welcomed:
		return "WELCOMED"
	case Active:
		return "ACTIVE"
	case Closed:
		return "CLOSED"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Session is the server side of one WAMP connection.
type Session struct {
	// ID is unique per connection and never reused.
	ID string

	peer   wamp.Peer
	broker *Broker

	mu       sync.Mutex
	state    SessionState
	closing  bool
	topics   map[wamp.URI]struct{}
	prefixes map[string]wamp.URI

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func newSession(ctx context.Context, peer wamp.Peer, broker *Broker) *Session {
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		ID:       wamp.NewSessionID(),
		peer:     peer,
		broker:   broker,
		state:    Connecting,
		topics:   map[wamp.URI]struct{}{},
		prefixes: map[string]wamp.URI{},
		ctx:      ctx,
		cancel:   cancel,
	}
}

// String returns the session ID.
func (s *Session) String() string { return s.ID }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Context returns a context that is cancelled when the session closes.
func (s *Session) Context() context.Context { return s.ctx }

// Done returns a channel that is closed when the session closes.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Send delivers a message to the client.  Messages can only be sent to an
// active session; ErrSessionClosed is returned otherwise.
func (s *Session) Send(msg wamp.Message) error {
	return s.sendList(wamp.Encode(msg))
}

func (s *Session) sendList(list wamp.List) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Active {
		return ErrSessionClosed
	}
	return s.peer.Send(list)
}

// welcome sends WELCOME and moves the session through WELCOMED to ACTIVE.
func (s *Session) welcome(serverIdent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connecting {
		return fmt.Errorf("cannot welcome session in state %s", s.state)
	}
	err := s.peer.Send(wamp.Encode(&wamp.Welcome{
		SessionID:       s.ID,
		ProtocolVersion: wamp.ProtocolVersion,
		ServerIdent:     serverIdent,
	}))
	if err != nil {
		return err
	}
	s.state = Welcomed
	// ACTIVE follows WELCOMED with no separate trigger.
	s.state = Active
	return nil
}

// Topics returns the sorted topics the session is subscribed to.
func (s *Session) Topics() []wamp.URI {
	s.mu.Lock()
	topics := make([]wamp.URI, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t)
	}
	s.mu.Unlock()
	sort.Slice(topics, func(i, j int) bool { return topics[i] < topics[j] })
	return topics
}

// trackTopic records a subscription.  It returns false once the session has
// started closing.  The caller holds the topic lock.
func (s *Session) trackTopic(topic wamp.URI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.topics[topic] = struct{}{}
	return true
}

func (s *Session) untrackTopic(topic wamp.URI) {
	s.mu.Lock()
	delete(s.topics, topic)
	s.mu.Unlock()
}

// setPrefix maps a CURIE prefix to a URI for the rest of the session.
func (s *Session) setPrefix(prefix string, uri wamp.URI) {
	s.mu.Lock()
	s.prefixes[prefix] = uri
	s.mu.Unlock()
}

// resolve expands a CURIE using the session's prefixes.  URIs that are not a
// CURIE of a known prefix are returned unchanged.
func (s *Session) resolve(uri wamp.URI) wamp.URI {
	prefix, ref, ok := uri.SplitCURIE()
	if !ok {
		return uri
	}
	s.mu.Lock()
	base, ok := s.prefixes[prefix]
	s.mu.Unlock()
	if !ok {
		return uri
	}
	return base + wamp.URI(ref)
}

// Close removes the session from every topic, then enters CLOSED and closes
// the peer.  Close is safe to call more than once and from any goroutine.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		topics := make([]wamp.URI, 0, len(s.topics))
		for t := range s.topics {
			topics = append(topics, t)
		}
		s.mu.Unlock()

		if s.broker != nil {
			s.broker.removeSession(s, topics)
		}

		s.mu.Lock()
		s.state = Closed
		s.topics = nil
		s.mu.Unlock()

		s.cancel()
		s.peer.Close()
	})
}
