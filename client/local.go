package client

import (
	"github.com/gammazero/wampv1/router"
	"github.com/gammazero/wampv1/transport"
)

// ConnectLocal creates a new client directly connected to the engine
// instance.  This is used to connect clients, embedded in the same
// application as the engine, to the engine.  Doing this eliminates the need
// to serialize messages.
func ConnectLocal(e *router.Engine, cfg Config) (*Client, error) {
	localSide, engineSide := transport.LinkedPeers()
	if _, err := e.Attach(engineSide); err != nil {
		return nil, err
	}
	return NewClient(localSide, cfg)
}
