package router

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/transport"
	"github.com/gammazero/wampv1/transport/serialize"
	"github.com/gorilla/websocket"
)

type protocol struct {
	payloadType int
	serializer  serialize.Serializer
}

// WebsocketServer handles websocket connections.
type WebsocketServer struct {
	Upgrader *websocket.Upgrader

	engine       *Engine
	protocols    map[string]protocol
	outQueueSize int
	log          stdlog.StdLog
}

// NewWebsocketServer takes an engine instance and creates a new websocket
// server.  To run the websocket server, call one of the server's
// ListenAndServe methods:
//
//     s := NewWebsocketServer(e)
//     closer, err := s.ListenAndServe(address)
//
// Or, use the various ListenAndServe functions provided by net/http.  This
// works because WebsocketServer implements the http.Handler interface:
//
//     s := NewWebsocketServer(e)
//     server := &http.Server{
//         Handler: s,
//         Addr:    address,
//     }
//     server.ListenAndServe()
//
// The server speaks the WAMP v1 "wamp" subprotocol with JSON text frames, and
// also accepts the "wamp.msgpack" and "wamp.cbor" subprotocols with binary
// frames.
func NewWebsocketServer(e *Engine) *WebsocketServer {
	s := &WebsocketServer{
		Upgrader:     &websocket.Upgrader{},
		engine:       e,
		protocols:    map[string]protocol{},
		outQueueSize: e.cfg.OutQueueSize,
		log:          e.Logger(),
	}
	s.AddProtocol(transport.WebsocketProtocol, websocket.TextMessage,
		&serialize.JSONSerializer{})
	s.AddProtocol(transport.MsgpackWebsocketProtocol, websocket.BinaryMessage,
		&serialize.MessagePackSerializer{})
	s.AddProtocol(transport.CBORWebsocketProtocol, websocket.BinaryMessage,
		&serialize.CBORSerializer{})
	return s
}

// AddProtocol registers a serializer for protocol and payload type.
func (s *WebsocketServer) AddProtocol(proto string, payloadType int, serializer serialize.Serializer) error {
	if payloadType != websocket.TextMessage && payloadType != websocket.BinaryMessage {
		return fmt.Errorf("invalid payload type: %d", payloadType)
	}
	if _, ok := s.protocols[proto]; ok {
		return errors.New("protocol already registered: " + proto)
	}
	s.protocols[proto] = protocol{payloadType, serializer}
	s.Upgrader.Subprotocols = append(s.Upgrader.Subprotocols, proto)
	return nil
}

// AllowOrigins sets the websocket upgrader to accept a request whose Origin
// header is absent, names the request host, or matches one of origins.  An
// origin is a host, optionally with port, or a pattern in the form of
// path.Match.  The single origin "*" allows every request.
func (s *WebsocketServer) AllowOrigins(origins []string) error {
	if len(origins) == 0 {
		return nil
	}
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			s.Upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return nil
		}
		o = strings.ToLower(o)
		if _, err := path.Match(o, ""); err != nil {
			return fmt.Errorf("bad origin pattern %q: %w", o, err)
		}
		patterns = append(patterns, o)
	}
	s.Upgrader.CheckOrigin = func(r *http.Request) bool {
		return originAllowed(patterns, r)
	}
	return nil
}

func originAllowed(patterns []string, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	if host == strings.ToLower(r.Host) {
		return true
	}
	for _, p := range patterns {
		if ok, _ := path.Match(p, host); ok {
			return true
		}
	}
	return false
}

// ListenAndServe listens on the specified TCP address and starts a goroutine
// that accepts new client connections until the returned io.closer is closed.
func (s *WebsocketServer) ListenAndServe(address string) (io.Closer, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		s.log.Print(err)
		return nil, err
	}

	// Run service on configured port.
	server := &http.Server{
		Handler: s,
		Addr:    l.Addr().String(),
	}
	go server.Serve(l)
	return l, nil
}

// ListenAndServeTLS is the same as ListenAndServe, but accepts TLS
// connections using the X509 certificate loaded from certFile and keyFile.
func (s *WebsocketServer) ListenAndServeTLS(address, certFile, keyFile string) (io.Closer, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		s.log.Print(err)
		return nil, err
	}
	server := &http.Server{
		Handler: s,
		Addr:    l.Addr().String(),
	}
	go func() {
		err := server.ServeTLS(l, certFile, keyFile)
		if err != nil && !errors.Is(err, net.ErrClosed) {
			s.log.Println("TLS server error:", err)
		}
	}()
	return l, nil
}

// ServeHTTP handles HTTP connections.
func (s *WebsocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("Error upgrading to websocket connection:", err)
		return
	}
	s.handleWebsocket(conn)
}

func (s *WebsocketServer) handleWebsocket(conn *websocket.Conn) {
	subprotocol := conn.Subprotocol()
	if subprotocol == "" {
		// Clients that do not ask for a subprotocol get WAMP v1 JSON.
		subprotocol = transport.WebsocketProtocol
	}
	proto, ok := s.protocols[subprotocol]
	if !ok {
		// Although gorilla rejects connections with unregistered protocols,
		// other websocket implementations may not.
		s.log.Println("Unsupported websocket subprotocol:", subprotocol)
		conn.Close()
		return
	}

	// Create a websocket peer from the websocket connection and attach the
	// peer to the engine.
	peer := transport.NewWebsocketPeer(conn, proto.serializer, proto.payloadType,
		s.outQueueSize, s.log)
	if _, err := s.engine.Attach(peer); err != nil {
		s.log.Println("Error attaching to engine:", err)
	}
}
