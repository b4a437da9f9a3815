package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gammazero/wampv1/transport"
)

// ConnectNet creates a new client connected to a WAMP v1 server at the
// given URL.  The URL scheme must be one of "ws", "wss", "http" or "https".
func ConnectNet(ctx context.Context, routerURL string, cfg Config) (*Client, error) {
	u, err := url.Parse(routerURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("invalid url scheme: %s", u.Scheme)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if cfg.Logger == nil {
		cfg.Logger = defaultLogger()
	}

	p, err := transport.ConnectWebsocketPeer(u.String(), cfg.Serialization,
		cfg.TlsCfg, cfg.Dial, cfg.OutQueueSize, cfg.Logger)
	if err != nil {
		return nil, err
	}
	return NewClient(p, cfg)
}
