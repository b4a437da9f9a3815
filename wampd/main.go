/*
Stand-alone WAMP v1 server.

Serves the demo Calc service at /calc and publishes {"message":"hello"} to the
demo topic on an interval.  Prometheus metrics are served at /metrics when a
metrics address is configured.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gammazero/wampv1/router"
	"github.com/gammazero/wampv1/stdlog"
	"github.com/gammazero/wampv1/transport"
	"github.com/gammazero/wampv1/wamp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-c wampd.toml]\n", os.Args[0])
}

func flagSet(cfgFile *string, showVersion *bool) *flag.FlagSet {
	fs := flag.NewFlagSet("wampd", flag.ExitOnError)
	fs.StringVar(cfgFile, "c", "etc/wampd.toml", "Path to config file")
	fs.BoolVar(showVersion, "version", false, "print version")
	fs.Usage = usage
	return fs
}

func main() {
	var cfgFile string
	var showVersion bool
	fs := flagSet(&cfgFile, &showVersion)
	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}
	if showVersion {
		fmt.Println("version", router.Version)
		os.Exit(0)
	}
	conf, err := LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	zl, closeLog, err := newLogger(conf)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, conf, zl); err != nil {
		zl.Error().Err(err).Msg("wampd exited with error")
		closeLog()
		os.Exit(1)
	}
}

func newLogger(conf *Config) (zerolog.Logger, func(), error) {
	level, err := zerolog.ParseLevel(conf.Log.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	var out io.Writer = os.Stdout
	closeLog := func() {}
	if conf.Log.Path != "" {
		f, err := os.OpenFile(conf.Log.Path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		out = f
		closeLog = func() { f.Close() }
	}
	if conf.Log.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: conf.Log.Path != ""}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), closeLog, nil
}

// run serves until ctx is canceled or a server fails.
func run(ctx context.Context, conf *Config, zl zerolog.Logger) error {
	logger := stdlog.NewZerolog(zl)
	debug := conf.Router.Debug
	if debug {
		logger = logger.WithLevel(zerolog.DebugLevel)
	}

	if conf.Metrics.Address != "" {
		conf.Router.MetricsRegisterer = prometheus.DefaultRegisterer
		transport.RegisterMetrics()
	}
	engine, err := router.NewEngine(&conf.Router, router.NewRegistry(logger, debug),
		router.NewBroker(logger, nil, debug), logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	if !conf.Demo.Disable {
		calc, err := engine.Register("/calc", &Calc{})
		if err != nil {
			return err
		}
		defer engine.Unregister(calc)
		zl.Info().Strs("procedures", calc.ProcedureNames()).Msg("registered /calc")
	}
	services := make([]string, 0)
	for _, uri := range engine.Services() {
		services = append(services, string(uri))
	}
	zl.Info().Strs("services", services).Msg("services")

	wss := router.NewWebsocketServer(engine)
	wss.Upgrader.EnableCompression = conf.WebSocket.EnableCompression
	if len(conf.WebSocket.AllowOrigins) != 0 {
		if err = wss.AllowOrigins(conf.WebSocket.AllowOrigins); err != nil {
			return err
		}
		zl.Info().Msgf("Allowing origins matching: %s",
			strings.Join(conf.WebSocket.AllowOrigins, "|"))
	}
	var closer io.Closer
	sockDesc := "websocket"
	if conf.WebSocket.CertFile != "" {
		closer, err = wss.ListenAndServeTLS(conf.WebSocket.Address,
			conf.WebSocket.CertFile, conf.WebSocket.KeyFile)
		sockDesc = "TLS websocket"
	} else {
		closer, err = wss.ListenAndServe(conf.WebSocket.Address)
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	zl.Info().Msgf("Listening for %s connections on ws://%s/", sockDesc,
		conf.WebSocket.Address)

	g, ctx := errgroup.WithContext(ctx)

	if conf.Metrics.Address != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: conf.Metrics.Address, Handler: mux}
		g.Go(func() error {
			zl.Info().Msgf("Serving metrics on http://%s/metrics", conf.Metrics.Address)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if !conf.Demo.Disable {
		g.Go(func() error {
			publishLoop(ctx, engine, wamp.URI(conf.Demo.PublishTopic),
				conf.publishInterval, zl)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		zl.Info().Msg("shutting down")
		return nil
	})

	return g.Wait()
}

// publishLoop publishes the demo event to topic every interval until ctx is
// canceled.
func publishLoop(ctx context.Context, engine *router.Engine, topic wamp.URI, interval time.Duration, zl zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n := engine.Publish(topic, wamp.Dict{"message": "hello"})
			zl.Debug().Str("topic", string(topic)).Int("subscribers", n).Msg("published")
		case <-ctx.Done():
			return
		}
	}
}
