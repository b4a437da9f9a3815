package router

import (
	"errors"

	"github.com/gammazero/wampv1/wamp"
	"github.com/prometheus/client_golang/prometheus"
)

// Config configures the engine.  The zero value is usable.
type Config struct {
	// ServerIdent is sent to clients in WELCOME.  Defaults to
	// wamp.ServerIdent.
	ServerIdent string `json:"server_ident" toml:"server_ident" yaml:"server_ident"`

	// OutQueueSize is the number of outbound messages a transport queues for
	// a slow client before dropping messages.  Zero uses the transport
	// default.
	OutQueueSize int `json:"out_queue_size" toml:"out_queue_size" yaml:"out_queue_size"`

	// Enable debug logging for engine, registry, broker, dealer
	Debug bool `json:"debug" toml:"debug" yaml:"debug"`

	// MetricsRegisterer, if set, has the engine's prometheus collectors
	// registered with it.  This value is not set via config file, but is
	// configured when embedding the engine.
	MetricsRegisterer prometheus.Registerer `json:"-" toml:"-" yaml:"-"`
}

func (c *Config) validate() error {
	if c.OutQueueSize < 0 {
		return configError{Err: errors.New("out_queue_size must not be negative")}
	}
	return nil
}

func (c *Config) serverIdent() string {
	if c.ServerIdent == "" {
		return wamp.ServerIdent
	}
	return c.ServerIdent
}
