/*
Package client provides a WAMP v1 client that calls procedures, subscribes to
topics and publishes events over any wamp.Peer.

*/
package client

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/wamp"
)

const defaultResponseTimeout = 5 * time.Second

// EventHandler handles an EVENT received for a subscribed topic.
type EventHandler func(topic wamp.URI, event interface{})

// Client is a WAMP v1 client session.  It is safe for concurrent use.
type Client struct {
	peer        wamp.Peer
	id          string
	serverIdent string

	// Accessed only by the action goroutine.
	awaitingReply map[string]chan wamp.Message
	eventHandlers map[wamp.URI]EventHandler

	actionChan chan func()
	callID     uint64

	responseTimeout time.Duration
	closed          int32
	done            chan struct{}

	log   stdlog.StdLog
	debug bool
}

// NewClient takes a connected Peer, waits for the server's WELCOME, and
// returns a new Client.
func NewClient(p wamp.Peer, cfg Config) (*Client, error) {
	if cfg.ResponseTimeout == 0 {
		cfg.ResponseTimeout = defaultResponseTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}

	msg, err := wamp.RecvMessage(p, cfg.ResponseTimeout)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("did not receive WELCOME: %w", err)
	}
	welcome, ok := msg.(*wamp.Welcome)
	if !ok {
		p.Close()
		return nil, unexpectedMsgError(msg, wamp.WELCOME)
	}
	if welcome.ProtocolVersion != wamp.ProtocolVersion {
		p.Close()
		return nil, fmt.Errorf("unsupported protocol version %d",
			welcome.ProtocolVersion)
	}

	c := &Client{
		peer:        p,
		id:          welcome.SessionID,
		serverIdent: welcome.ServerIdent,

		awaitingReply: map[string]chan wamp.Message{},
		eventHandlers: map[wamp.URI]EventHandler{},

		actionChan: make(chan func()),

		responseTimeout: cfg.ResponseTimeout,
		done:            make(chan struct{}),

		log:   cfg.Logger,
		debug: cfg.Debug,
	}
	go c.run()
	go c.receiveFromServer()
	return c, nil
}

// Done returns a channel that signals when the client is no longer connected
// to the server.
func (c *Client) Done() <-chan struct{} { return c.done }

// ID returns the session ID the server assigned in WELCOME.
func (c *Client) ID() string { return c.id }

// ServerIdent returns the server identity sent in WELCOME.
func (c *Client) ServerIdent() string { return c.serverIdent }

// Prefix establishes a CURIE prefix on the server for the rest of the
// session.
func (c *Client) Prefix(prefix string, uri wamp.URI) error {
	return c.send(&wamp.Prefix{Prefix: prefix, URI: uri})
}

// Subscribe subscribes the client to the specified topic.  The handler is
// called, in order of arrival, for every EVENT received for the topic.
func (c *Client) Subscribe(topic wamp.URI, fn EventHandler) error {
	if !c.do(func() { c.eventHandlers[topic] = fn }) {
		return ErrNotConn
	}
	return c.send(&wamp.Subscribe{TopicURI: topic})
}

// Unsubscribe removes the client's subscription to the specified topic.
func (c *Client) Unsubscribe(topic wamp.URI) error {
	var ok bool
	if !c.do(func() {
		if _, ok = c.eventHandlers[topic]; ok {
			delete(c.eventHandlers, topic)
		}
	}) {
		return ErrNotConn
	}
	if !ok {
		return ErrNotSubscribed
	}
	return c.send(&wamp.Unsubscribe{TopicURI: topic})
}

// PublishOption restricts the sessions a publication is delivered to.
type PublishOption func(*wamp.Publish)

// ExcludeMe excludes the publishing client from receiving the event.
func ExcludeMe() PublishOption {
	return func(msg *wamp.Publish) { msg.Exclude = true }
}

// Exclude excludes the given session IDs from receiving the event.
func Exclude(sessionIDs ...string) PublishOption {
	return func(msg *wamp.Publish) { msg.Exclude = stringList(sessionIDs) }
}

// Eligible limits delivery of the event to the given session IDs.  The
// eligible list follows the exclude list on the wire, so Eligible replaces
// ExcludeMe with an empty exclude list.
func Eligible(sessionIDs ...string) PublishOption {
	return func(msg *wamp.Publish) {
		msg.Eligible = stringList(sessionIDs)
		if _, ok := msg.Exclude.(wamp.List); !ok {
			msg.Exclude = wamp.List{}
		}
	}
}

func stringList(strs []string) wamp.List {
	list := make(wamp.List, len(strs))
	for i := range strs {
		list[i] = strs[i]
	}
	return list
}

// Publish publishes an event to the topic.  There is no acknowledgement in
// WAMP v1.
func (c *Client) Publish(topic wamp.URI, event interface{}, opts ...PublishOption) error {
	msg := &wamp.Publish{TopicURI: topic, Event: event}
	for _, opt := range opts {
		opt(msg)
	}
	return c.send(msg)
}

// Call calls the procedure with the given arguments and waits for its
// CALLRESULT or CALLERROR.  A CALLERROR is returned as a RPCError.
//
// If ctx has no deadline, the client's response timeout applies.
func (c *Client) Call(ctx context.Context, procedure wamp.URI, args ...interface{}) (interface{}, error) {
	id := strconv.FormatUint(atomic.AddUint64(&c.callID, 1), 10)
	wait := make(chan wamp.Message, 1)
	if !c.do(func() { c.awaitingReply[id] = wait }) {
		return nil, ErrNotConn
	}
	defer c.do(func() { delete(c.awaitingReply, id) })

	if err := c.send(&wamp.Call{CallID: id, ProcURI: procedure, Arguments: wamp.List(args)}); err != nil {
		return nil, err
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.responseTimeout)
		defer cancel()
	}

	var msg wamp.Message
	select {
	case msg = <-wait:
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrReplyTimeout
		}
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrNotConn
	}
	switch msg := msg.(type) {
	case *wamp.CallResult:
		return msg.Result, nil
	case *wamp.CallError:
		return nil, RPCError{Err: msg, Procedure: procedure}
	}
	return nil, unexpectedMsgError(msg, wamp.CALLRESULT)
}

// Close closes the connection to the server and waits for the client to
// stop.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return ErrAlreadyClosed
	}
	c.peer.Close()
	<-c.done
	return nil
}

func (c *Client) send(msg wamp.Message) error {
	if atomic.LoadInt32(&c.closed) != 0 {
		return ErrNotConn
	}
	return c.peer.Send(wamp.Encode(msg))
}

// run executes actions that access client data until the client stops.
func (c *Client) run() {
	for {
		select {
		case action := <-c.actionChan:
			action()
		case <-c.done:
			return
		}
	}
}

// do runs fn on the action goroutine and waits for it to finish.  It returns
// false if the client stopped.
func (c *Client) do(fn func()) bool {
	sync := make(chan struct{})
	select {
	case c.actionChan <- func() { fn(); close(sync) }:
	case <-c.done:
		return false
	}
	<-sync
	return true
}

func defaultLogger() stdlog.StdLog {
	return log.New(os.Stderr, "", log.LstdFlags)
}

func unexpectedMsgError(msg wamp.Message, expected wamp.MessageType) error {
	return fmt.Errorf("received %s when expecting %s", msg.MessageType(), expected)
}

// receiveFromServer handles messages from the server until the connection
// closes.
func (c *Client) receiveFromServer() {
	defer close(c.done)
	if c.debug {
		defer c.log.Println("Client", c.id, "closed")
	}
	for list := range c.peer.Recv() {
		msg, err := wamp.Decode(list)
		if err != nil {
			c.log.Println("Client", c.id, "bad message from server:", err)
			continue
		}
		if c.debug {
			c.log.Println("Client", c.id, "received", msg.MessageType())
		}
		switch msg := msg.(type) {
		case *wamp.Event:
			c.handleEvent(msg)
		case *wamp.CallResult:
			c.signalReply(msg, msg.CallID)
		case *wamp.CallError:
			c.signalReply(msg, msg.CallID)
		default:
			c.log.Println("Unhandled message from server:", msg.MessageType())
		}
	}
}

// handleEvent calls the handler the subscriber designated for the topic.
//
// The eventHandlers are called serially so that they execute in the same order
// as the messages are received in.  This could not be guaranteed if executing
// concurrently.
func (c *Client) handleEvent(msg *wamp.Event) {
	var handler EventHandler
	c.do(func() { handler = c.eventHandlers[msg.TopicURI] })
	if handler == nil {
		c.log.Println("No handler registered for topic:", msg.TopicURI)
		return
	}
	handler(msg.TopicURI, msg.Event)
}

func (c *Client) signalReply(msg wamp.Message, callID string) {
	c.do(func() {
		w, ok := c.awaitingReply[callID]
		if !ok {
			c.log.Println("Received", msg.MessageType(), callID,
				"that client is no longer waiting for")
			return
		}
		select {
		case w <- msg:
		default:
		}
	})
}
