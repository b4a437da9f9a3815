package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gammazero/wampv1/router"
	"gopkg.in/yaml.v3"
)

const (
	defaultWebsocketAddress = "localhost:8080"
	defaultPublishTopic     = "simple"
	defaultPublishInterval  = "5s"
)

// Config is the daemon configuration.  The file format is chosen by the file
// extension: .json, .toml, .yaml or .yml.
type Config struct {
	WebSocket struct {
		Address           string   `json:"address" toml:"address" yaml:"address"`
		CertFile          string   `json:"cert_file" toml:"cert_file" yaml:"cert_file"`
		KeyFile           string   `json:"key_file" toml:"key_file" yaml:"key_file"`
		AllowOrigins      []string `json:"allow_origins" toml:"allow_origins" yaml:"allow_origins"`
		EnableCompression bool     `json:"enable_compression" toml:"enable_compression" yaml:"enable_compression"`
	} `json:"websocket" toml:"websocket" yaml:"websocket"`

	Metrics struct {
		// Address serves prometheus metrics at /metrics.  Empty disables it.
		Address string `json:"address" toml:"address" yaml:"address"`
	} `json:"metrics" toml:"metrics" yaml:"metrics"`

	Log struct {
		Path   string `json:"path" toml:"path" yaml:"path"`
		Level  string `json:"level" toml:"level" yaml:"level"`
		Format string `json:"format" toml:"format" yaml:"format"`
	} `json:"log" toml:"log" yaml:"log"`

	Demo struct {
		// Topic the demo publisher sends {"message":"hello"} to.
		PublishTopic    string `json:"publish_topic" toml:"publish_topic" yaml:"publish_topic"`
		PublishInterval string `json:"publish_interval" toml:"publish_interval" yaml:"publish_interval"`
		// Disable turns off the Calc service and the publisher.
		Disable bool `json:"disable" toml:"disable" yaml:"disable"`
	} `json:"demo" toml:"demo" yaml:"demo"`

	Router router.Config `json:"router" toml:"router" yaml:"router"`

	publishInterval time.Duration
}

// LoadConfig reads and validates the config file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file missing: %w", err)
	}

	conf := &Config{}
	conf.WebSocket.Address = defaultWebsocketAddress
	conf.Log.Level = "info"
	conf.Log.Format = "json"
	conf.Demo.PublishTopic = defaultPublishTopic
	conf.Demo.PublishInterval = defaultPublishInterval

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, conf)
	case ".toml":
		err = toml.Unmarshal(data, conf)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, conf)
	default:
		return nil, fmt.Errorf("unsupported config file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config parse error: %w", err)
	}
	if err = conf.validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

func (c *Config) validate() error {
	if c.WebSocket.Address == "" {
		return errors.New("websocket address required")
	}
	if (c.WebSocket.CertFile == "") != (c.WebSocket.KeyFile == "") {
		return errors.New("websocket TLS requires both cert_file and key_file")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	d, err := time.ParseDuration(c.Demo.PublishInterval)
	if err != nil {
		return fmt.Errorf("bad publish_interval: %w", err)
	}
	if d <= 0 && !c.Demo.Disable {
		return errors.New("publish_interval must be positive")
	}
	c.publishInterval = d
	return nil
}
