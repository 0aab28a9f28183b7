package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/stagehand/remote/internal/bridge"
	"github.com/stagehand/remote/internal/listener"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/mdns"
)

// runListener is the body of the listener child process. Commands arrive on
// stdin and events leave on stdout, one JSON object per line. Logs go to
// stderr as JSON so the host can re-level them.
func runListener(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("listener", flag.ContinueOnError)
	fs.SetOutput(stderr)

	logLevel := fs.String("log-level", "info", "Log level")
	rateLimit := fs.Float64("rate-limit", listener.DefaultRateLimit, "Messages per second accepted from one remote")
	rateBurst := fs.Int("rate-burst", listener.DefaultRateBurst, "Burst size for --rate-limit")
	mdnsEnabled := fs.Bool("mdns", false, "Advertise via mDNS while serving")
	mdnsName := fs.String("mdns-name", "", "mDNS instance name")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	logging.Init(logging.Config{Level: *logLevel, Component: "listener", Out: stderr})
	log := logging.L()

	if err := setParentDeathSignal(); err != nil {
		log.Warn().Err(err).Msg("parent death signal unavailable")
	}

	// Ctrl-C reaches the whole process group; the host decides when the
	// listener stops.
	signal.Ignore(os.Interrupt)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	opts := listener.Options{
		RateLimit: rate.Limit(*rateLimit),
		RateBurst: *rateBurst,
	}
	if *mdnsEnabled {
		opts.Advertiser = mdns.NewAdvertiser(mdns.Config{Name: *mdnsName})
	}

	log.Info().Int(logging.FieldPID, os.Getpid()).Msg("listener process ready")
	if err := bridge.RunChild(ctx, stdin, stdout, opts); err != nil {
		log.Error().Err(err).Msg("listener failed")
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
