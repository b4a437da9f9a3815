package router

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/wamp"
)

// Version of the engine and its daemon.
const Version = "1.0.0"

// Engine attaches client connections as sessions and dispatches their
// messages to the dealer and broker.  Each session is served by its own
// goroutine.
//
// The engine takes its service registry and broker as explicit collaborators.
// Application code registers services and publishes events through the engine
// or directly through those collaborators.
type Engine struct {
	cfg      Config
	registry *Registry
	broker   *Broker
	dealer   *dealer
	metrics  *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[*Session]struct{}
	closed   bool
	wg       sync.WaitGroup

	log   stdlog.StdLog
	debug bool
}

// NewEngine creates a WAMP engine serving the services of registry and the
// topics of broker.  A broker can serve only one engine.
func NewEngine(cfg *Config, registry *Registry, broker *Broker, logger stdlog.StdLog) (*Engine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if registry == nil || broker == nil {
		return nil, configError{Err: errors.New("engine requires a registry and a broker")}
	}
	if logger == nil {
		logger = log.New(os.Stdout, "", log.LstdFlags)
	}
	// A broker reports to the metrics of one engine only.
	if !broker.bound.CompareAndSwap(false, true) {
		return nil, configError{Err: errors.New("broker is already used by another engine")}
	}
	metrics, err := NewMetrics(cfg.MetricsRegisterer)
	if err != nil {
		broker.bound.Store(false)
		return nil, configError{Err: err}
	}
	broker.metrics = metrics

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:      *cfg,
		registry: registry,
		broker:   broker,
		dealer:   newDealer(registry, metrics, logger, cfg.Debug),
		metrics:  metrics,

		ctx:    ctx,
		cancel: cancel,

		sessions: map[*Session]struct{}{},

		log:   logger,
		debug: cfg.Debug,
	}, nil
}

// Logger returns the logger the engine was created with.
func (e *Engine) Logger() stdlog.StdLog { return e.log }

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Attach creates a session for a newly accepted connection, sends WELCOME,
// and starts serving the session.  The returned session is ACTIVE.
func (e *Engine) Attach(peer wamp.Peer) (*Session, error) {
	sess := newSession(e.ctx, peer, e.broker)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		peer.Close()
		return nil, errors.New("engine is closing, not accepting new clients")
	}
	e.sessions[sess] = struct{}{}
	e.wg.Add(1)
	e.mu.Unlock()
	e.metrics.sessionAdded()

	if err := sess.welcome(e.cfg.serverIdent()); err != nil {
		e.removeSession(sess)
		e.wg.Done()
		return nil, err
	}
	e.log.Println("Attached session", sess)

	go e.handleSession(sess)
	return sess, nil
}

// maxPending bounds the messages a session's reader holds while the session
// is busy dispatching.  The reader stops reading the peer when it is full.
const maxPending = 256

// handleSession dispatches the session's messages until the peer closes, the
// session is closed, or a message cannot be handled.  Messages are read by a
// separate goroutine so that a lost connection closes the session even while
// a call is being dispatched.
func (e *Engine) handleSession(sess *Session) {
	msgs := make(chan wamp.List)
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		e.readSession(sess, msgs)
	}()

	defer e.wg.Done()
	defer func() { <-readerDone }()
	defer e.removeSession(sess)

	for {
		var list wamp.List
		var open bool
		select {
		case list, open = <-msgs:
			if !open {
				return
			}
		case <-sess.Done():
			return
		}

		msg, err := wamp.Decode(list)
		if err != nil {
			e.metrics.malformedMessage()
			e.log.Printf("Closing session %s: %s", sess, err)
			if e.debug {
				e.log.Print(spew.Sdump(list))
			}
			return
		}
		if e.debug {
			e.log.Printf("Session %s %s: %+v", sess, msg.MessageType(), msg)
		}

		switch msg := msg.(type) {
		case *wamp.Prefix:
			sess.setPrefix(msg.Prefix, msg.URI)
		case *wamp.Call:
			e.dealer.call(sess, msg)
		case *wamp.Subscribe:
			e.broker.Subscribe(sess, sess.resolve(msg.TopicURI))
		case *wamp.Unsubscribe:
			e.broker.Unsubscribe(sess, sess.resolve(msg.TopicURI))
		case *wamp.Publish:
			e.broker.publishMsg(sess, msg)
		default:
			// Only the server sends the remaining message types.
			e.log.Printf("Closing session %s: protocol violation, received %s",
				sess, msg.MessageType())
			return
		}
	}
}

// readSession forwards the lists received from the session's peer to msgs,
// in order, until the session closes.  When the peer's receive channel
// closes, the session is closed at once and msgs is closed.
func (e *Engine) readSession(sess *Session, msgs chan<- wamp.List) {
	defer close(msgs)
	var pending []wamp.List
	for {
		recv := sess.peer.Recv()
		if len(pending) >= maxPending {
			recv = nil
		}
		var out chan<- wamp.List
		var next wamp.List
		if len(pending) != 0 {
			out = msgs
			next = pending[0]
		}
		select {
		case list, open := <-recv:
			if !open {
				e.log.Println("Lost session:", sess)
				sess.Close()
				return
			}
			pending = append(pending, list)
		case out <- next:
			pending[0] = nil
			pending = pending[1:]
		case <-sess.Done():
			return
		}
	}
}

func (e *Engine) removeSession(sess *Session) {
	sess.Close()
	e.mu.Lock()
	_, ok := e.sessions[sess]
	delete(e.sessions, sess)
	e.mu.Unlock()
	if ok {
		e.metrics.sessionRemoved()
	}
}

// SessionCount returns the number of attached sessions.
func (e *Engine) SessionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

// Register exports obj under uri.  See Registry.Register.
func (e *Engine) Register(uri wamp.URI, obj interface{}) (*ExportedService, error) {
	return e.registry.Register(uri, obj)
}

// Unregister removes a service registered with Register.
func (e *Engine) Unregister(handle *ExportedService) error {
	return e.registry.Unregister(handle)
}

// Services returns the URIs of the registered services.
func (e *Engine) Services() []wamp.URI { return e.registry.Services() }

// Publish sends an event to the subscribers of topic and returns the number
// of events delivered.  This is how events raised by the application reach
// sessions.
func (e *Engine) Publish(topic wamp.URI, payload interface{}) int {
	return e.broker.Publish(topic, payload)
}

// Close closes every session and waits for session handlers to finish.
// Procedures still running are allowed to complete, but their results are
// discarded.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	sessions := make([]*Session, 0, len(e.sessions))
	for sess := range e.sessions {
		sessions = append(sessions, sess)
	}
	e.mu.Unlock()

	for _, sess := range sessions {
		sess.Close()
	}
	e.cancel()
	e.wg.Wait()
	e.log.Println("Engine stopped")
}
