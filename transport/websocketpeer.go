package transport

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/transport/serialize"
	"github.com/gammazero/wampv1/wamp"
	"github.com/gorilla/websocket"
)

// websocketPeer implements the wamp.Peer interface, connecting the Send and
// Recv methods to a websocket.
type websocketPeer struct {
	conn        *websocket.Conn
	serializer  serialize.Serializer
	payloadType int

	// Used to signal the websocket is closed.
	closed    chan struct{}
	closeOnce sync.Once

	// Channels communicate with the engine.
	rd chan wamp.List
	wr chan wamp.List

	metrics *TransportMetrics
	log     stdlog.StdLog
}

const (
	// WebsocketProtocol is the WebSocket subprotocol identifier of WAMP
	// version 1.  Messages are JSON text frames.
	WebsocketProtocol = "wamp"
	// MsgpackWebsocketProtocol carries MessagePack binary frames.
	MsgpackWebsocketProtocol = "wamp.msgpack"
	// CBORWebsocketProtocol carries CBOR binary frames.
	CBORWebsocketProtocol = "wamp.cbor"

	defaultOutQueueSize = 160
	ctrlTimeout         = 5 * time.Second
)

type DialFunc func(network, addr string) (net.Conn, error)

// ConnectWebsocketPeer creates a new websocketPeer with the specified config,
// and connects it to the websocket server at the specified URL.
//
// outQueueSize is the maximum number of messages that can be queued to be
// written to the websocket.  Once the queue has reached this limit, messages
// are dropped in order to not block.  A value of < 1 uses the default size.
func ConnectWebsocketPeer(url string, serialization serialize.Serialization, tlsConfig *tls.Config, dial DialFunc, outQueueSize int, logger stdlog.StdLog) (wamp.Peer, error) {
	var (
		protocol    string
		payloadType int
		serializer  serialize.Serializer
	)

	switch serialization {
	case serialize.JSON:
		protocol = WebsocketProtocol
		payloadType = websocket.TextMessage
		serializer = &serialize.JSONSerializer{}
	case serialize.MSGPACK:
		protocol = MsgpackWebsocketProtocol
		payloadType = websocket.BinaryMessage
		serializer = &serialize.MessagePackSerializer{}
	case serialize.CBOR:
		protocol = CBORWebsocketProtocol
		payloadType = websocket.BinaryMessage
		serializer = &serialize.CBORSerializer{}
	default:
		return nil, fmt.Errorf("unsupported serialization: %v", serialization)
	}

	dialer := websocket.Dialer{
		Subprotocols:    []string{protocol},
		TLSClientConfig: tlsConfig,
		Proxy:           http.ProxyFromEnvironment,
		NetDial:         dial,
	}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocketPeer(conn, serializer, payloadType, outQueueSize, logger), nil
}

// NewWebsocketPeer creates a websocket peer from an existing websocket
// connection.  This is used for handling clients connecting to the WAMP
// service.
func NewWebsocketPeer(conn *websocket.Conn, serializer serialize.Serializer, payloadType int, outQueueSize int, logger stdlog.StdLog) wamp.Peer {
	if outQueueSize < 1 {
		outQueueSize = defaultOutQueueSize
	}
	w := &websocketPeer{
		conn:        conn,
		serializer:  serializer,
		payloadType: payloadType,
		closed:      make(chan struct{}),

		// Messages read from the websocket can be handled immediately, since
		// they have traveled over the websocket and the read channel does not
		// need to be more than size 1.
		rd: make(chan wamp.List, 1),

		// The channel for messages being written to the websocket should be
		// large enough to prevent blocking while waiting for a slow websocket
		// to send messages.
		wr: make(chan wamp.List, outQueueSize),

		metrics: NewTransportMetrics("websocket"),
		log:     logger,
	}
	// Sending to and receiving from websocket is handled concurrently.
	go w.recvHandler()
	go w.sendHandler()

	return w
}

func (w *websocketPeer) Recv() <-chan wamp.List { return w.rd }

// Send queues a message for writing to the websocket.  The message is dropped
// if the outbound queue is full.
func (w *websocketPeer) Send(list wamp.List) error {
	select {
	case <-w.closed:
		return ErrPeerClosed
	default:
	}
	if err := wamp.TrySend(w.wr, list); err != nil {
		w.log.Println("WARNING: client blocked engine.  Dropped message:", list[0])
		return err
	}
	return nil
}

// Close sends a websocket close message and closes the connection.  The
// receive channel is closed once the read loop notices the closed connection.
func (w *websocketPeer) Close() {
	w.closeOnce.Do(func() {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure,
			"goodbye")
		close(w.closed)
		err := w.conn.WriteControl(websocket.CloseMessage, closeMsg,
			time.Now().Add(ctrlTimeout))
		if err != nil {
			w.log.Println("error sending close message:", err)
		}
		if err = w.conn.Close(); err != nil {
			w.log.Println("error closing connection:", err)
		}
	})
}

// sendHandler pulls messages from the write channel, and pushes them to the
// websocket.
func (w *websocketPeer) sendHandler() {
	for {
		select {
		case list := <-w.wr:
			b, err := w.serializer.Serialize(list)
			if err != nil {
				w.log.Println("error serializing message:", err)
				continue
			}
			if err = w.conn.WriteMessage(w.payloadType, b); err != nil {
				w.log.Println("error writing to peer:", err)
				continue
			}
			w.metrics.CountOutgoing(len(b))
		case <-w.closed:
			return
		}
	}
}

// recvHandler pulls messages from the websocket and pushes them to the read
// channel.
func (w *websocketPeer) recvHandler() {
	// Close read channel, causing the engine to remove the session.
	defer close(w.rd)
	for {
		msgType, b, err := w.conn.ReadMessage()
		if err != nil {
			select {
			case <-w.closed:
			default:
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					w.log.Println("error reading from peer:", err)
				}
				w.Close()
			}
			return
		}
		w.metrics.CountIncoming(len(b))

		if msgType == websocket.CloseMessage {
			w.Close()
			return
		}

		list, err := w.serializer.Deserialize(b)
		if err != nil {
			// A frame that cannot be deserialized cannot be answered, since
			// nothing identifies the request.  Terminate the connection.
			w.log.Println("error deserializing peer message:", err)
			w.Close()
			return
		}
		// It is OK for the engine to block a client since dispatch runs on
		// this client's own session worker, and a blocked client will not
		// block other clients.
		select {
		case w.rd <- list:
		case <-w.closed:
			return
		}
	}
}
