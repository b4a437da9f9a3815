package client

import (
	"crypto/tls"
	"time"

	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/transport"
	"github.com/gammazero/wampv1/transport/serialize"
)

// Config configures a client with everything needed to begin a session
// with a WAMP v1 server.
type Config struct {
	// ResponseTimeout specifies the amount of time that the client will block
	// waiting for a response from the server.  A value of 0 uses the default.
	ResponseTimeout time.Duration

	// Enable debug logging for client.
	Debug bool

	// Set to JSON, MSGPACK or CBOR.  Default (zero-value) is JSON, which is
	// the only serialization standard WAMP v1 servers speak.
	Serialization serialize.Serialization

	// Provide a tls.Config to connect the client using TLS.  The zero
	// configuration specifies using defaults.  A nil tls.Config means do not
	// use TLS.
	TlsCfg *tls.Config

	// Dial is an optional custom dialer for the websocket connection.
	Dial transport.DialFunc

	// OutQueueSize is the number of outbound messages the websocket transport
	// queues before dropping.  Zero uses the default.
	OutQueueSize int

	// Logger for client to use.  If not set, client logs to os.Stderr.
	Logger stdlog.StdLog
}
