package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"golang.org/x/time/rate"

	"github.com/stagehand/remote/internal/bridge"
	"github.com/stagehand/remote/internal/config"
	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/ipc"
	"github.com/stagehand/remote/internal/keepawake"
	"github.com/stagehand/remote/internal/library"
	"github.com/stagehand/remote/internal/listener"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/mdns"
	"github.com/stagehand/remote/internal/presenter"
)

// RunConfig holds the configuration for the run command after flags and the
// config file have been merged.
type RunConfig struct {
	Config          string
	Port            int
	AutoStart       bool
	MdnsEnabled     bool
	MdnsName        string
	QR              bool
	LibraryPath     string
	ControlSocket   string
	LogLevel        string
	LogPretty       bool
	InProcess       bool
	KeepAwake       bool
	ClientRateLimit float64
	ClientRateBurst int
}

// parseRunConfig parses run flags and merges them over the config file.
// It returns ok=false with an exit code when the command should stop.
func parseRunConfig(args []string, stderr io.Writer) (cfg *RunConfig, code int, ok bool) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)

	cfg = &RunConfig{}
	fs.StringVar(&cfg.Config, "config", "", "Path to config file (default: ~/.stagehand/config.toml)")
	fs.IntVar(&cfg.Port, "port", 0, "Port remotes connect to (default: 3456)")
	fs.BoolVar(&cfg.AutoStart, "auto-start", false, "Start the remote listener immediately")
	fs.BoolVar(&cfg.MdnsEnabled, "mdns", false, "Advertise the remote page via mDNS/Bonjour")
	fs.StringVar(&cfg.MdnsName, "mdns-name", "", "mDNS instance name (default: hostname)")
	fs.BoolVar(&cfg.QR, "qr", false, "Print the remote URL as a QR code when the listener starts")
	fs.StringVar(&cfg.LibraryPath, "library", "", "Path to the library database (default: ~/.stagehand/library.db)")
	fs.StringVar(&cfg.ControlSocket, "control-socket", "", "Path to the control socket (default: ~/.stagehand/control.sock)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default: info)")
	fs.BoolVar(&cfg.LogPretty, "log-pretty", false, "Human-readable console logs")
	fs.BoolVar(&cfg.InProcess, "inprocess", false, "Run the remote listener inside this process")
	fs.BoolVar(&cfg.KeepAwake, "keep-awake", false, "Keep the display awake while output is live")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: stagehand run [options]\n\nRun the host with its remote-control bridge.\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, 0, false
		}
		return nil, 1, false
	}

	explicitFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		explicitFlags[f.Name] = true
	})

	fileCfg, err := config.Load(cfg.Config)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, 1, false
	}

	// String and numeric flags win when non-zero; booleans only when set.
	if cfg.Port == 0 {
		cfg.Port = fileCfg.Port
	}
	if cfg.MdnsName == "" {
		cfg.MdnsName = fileCfg.MdnsName
	}
	if cfg.LibraryPath == "" {
		cfg.LibraryPath = fileCfg.LibraryPath
	}
	if cfg.ControlSocket == "" {
		cfg.ControlSocket = fileCfg.ControlSocket
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = fileCfg.LogLevel
	}
	if !explicitFlags["auto-start"] {
		cfg.AutoStart = fileCfg.AutoStartRemote
	}
	if !explicitFlags["mdns"] {
		cfg.MdnsEnabled = fileCfg.MdnsEnabled
	}
	if !explicitFlags["qr"] {
		cfg.QR = fileCfg.QR
	}
	if !explicitFlags["log-pretty"] {
		cfg.LogPretty = fileCfg.LogPretty
	}
	if !explicitFlags["inprocess"] {
		cfg.InProcess = fileCfg.RemoteInProcess
	}
	if !explicitFlags["keep-awake"] {
		cfg.KeepAwake = fileCfg.KeepAwake
	}
	cfg.ClientRateLimit = fileCfg.ClientRateLimit
	cfg.ClientRateBurst = fileCfg.ClientRateBurst

	// Run the merged values through the file defaults and validation.
	merged := config.Config{
		Port:            cfg.Port,
		MdnsName:        cfg.MdnsName,
		LibraryPath:     cfg.LibraryPath,
		ControlSocket:   cfg.ControlSocket,
		LogLevel:        cfg.LogLevel,
		ClientRateLimit: cfg.ClientRateLimit,
		ClientRateBurst: cfg.ClientRateBurst,
	}
	if err := merged.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return nil, 1, false
	}
	merged.ApplyDefaults()
	cfg.Port = merged.Port
	cfg.MdnsName = merged.MdnsName
	cfg.LibraryPath = merged.LibraryPath
	cfg.ControlSocket = merged.ControlSocket
	cfg.LogLevel = merged.LogLevel
	cfg.ClientRateLimit = merged.ClientRateLimit
	cfg.ClientRateBurst = merged.ClientRateBurst

	return cfg, 0, true
}

// runHost implements "stagehand run".
func runHost(args []string, stdout, stderr io.Writer) int {
	cfg, code, ok := parseRunConfig(args, stderr)
	if !ok {
		return code
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty, Component: "host"})
	log := logging.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	store, err := library.Open(cfg.LibraryPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer store.Close()

	pres := presenter.New(store)
	b := bridge.New(newSpawner(cfg), pres, bridge.Options{})
	defer b.Close()

	sinks := presenter.Sinks{b}
	var keeper *keepawake.Keeper
	if cfg.KeepAwake {
		keeper = keepawake.New(keepawake.NewDefaultAdapter(), keepawake.Options{})
		keeperCtx, cancelKeeper := context.WithCancel(ctx)
		keeperDone := make(chan struct{})
		go func() {
			keeper.Run(keeperCtx)
			close(keeperDone)
		}()
		defer func() {
			cancelKeeper()
			<-keeperDone
		}()
		sinks = append(sinks, keeper)
	}
	pres.SetSink(sinks)

	b.SetStatusListener(statusPrinter(cfg, stdout))

	controlLog := logging.Component("control")
	control := ipc.NewControlSocketServer(cfg.ControlSocket, controlHandler(b, pres, keeper, cfg.Port), &controlLog)
	if err := control.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer control.Stop()

	log.Info().
		Str("library", cfg.LibraryPath).
		Str("control_socket", control.Path()).
		Bool("inprocess", cfg.InProcess).
		Msg("host ready")

	if cfg.AutoStart {
		if err := <-b.StartRemoteServer(cfg.Port); err != nil {
			// The host stays up; the remote can be started later.
			log.Error().Err(err).Int(logging.FieldPort, cfg.Port).Msg("remote auto-start failed")
			fmt.Fprintf(stderr, "Warning: remote listener did not start: %v\n", err)
		}
	} else {
		fmt.Fprintf(stdout, "Remote listener is off. Run 'stagehand remote start' to enable it.\n")
	}

	<-ctx.Done()
	log.Info().Msg("shutting down")
	return 0
}

// newSpawner picks how the listener runs: re-exec of this binary, or a
// goroutine in this process.
func newSpawner(cfg *RunConfig) bridge.Spawner {
	if cfg.InProcess {
		opts := listener.Options{
			RateLimit: rate.Limit(cfg.ClientRateLimit),
			RateBurst: cfg.ClientRateBurst,
		}
		if cfg.MdnsEnabled {
			opts.Advertiser = mdns.NewAdvertiser(mdns.Config{Name: cfg.MdnsName})
		}
		return bridge.InProcSpawner{Options: opts}
	}
	return bridge.ExecSpawner{Args: listenerArgs(cfg)}
}

// listenerArgs are the child's arguments for the given host config.
func listenerArgs(cfg *RunConfig) []string {
	args := []string{
		"listener",
		"--log-level", cfg.LogLevel,
		"--rate-limit", strconv.FormatFloat(cfg.ClientRateLimit, 'f', -1, 64),
		"--rate-burst", strconv.Itoa(cfg.ClientRateBurst),
	}
	if cfg.MdnsEnabled {
		args = append(args, "--mdns", "--mdns-name", cfg.MdnsName)
	}
	return args
}

// statusPrinter reports listener transitions on stdout, with a QR code of
// the page URL when enabled.
func statusPrinter(cfg *RunConfig, stdout io.Writer) func(bridge.ServerStatus) {
	running := false
	return func(s bridge.ServerStatus) {
		if s.Running == running {
			return
		}
		running = s.Running
		if !running {
			fmt.Fprintln(stdout, "Remote listener stopped.")
			return
		}
		url := remoteURL(s.Addresses, s.Port)
		if cfg.QR {
			DisplayRemoteQR(stdout, url)
			return
		}
		fmt.Fprintf(stdout, "Remote listener running: %s\n", url)
	}
}

// controlHandler combines the remote listener, output and keep-awake routes
// served on the control socket. keeper is nil when keep-awake is off.
func controlHandler(b *bridge.Bridge, pres *presenter.Presenter, keeper *keepawake.Keeper, defaultPort int) http.Handler {
	output := presenter.ControlHandler(pres)
	mux := http.NewServeMux()
	mux.Handle("/output", output)
	mux.Handle("/output/", output)
	mux.HandleFunc("/keepawake", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if keeper == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(bridge.ErrorResponse{
				Code:  apperrors.CodeKeepAwakeDisabled,
				Error: "keep-awake is off (run with --keep-awake)",
			})
			return
		}
		json.NewEncoder(w).Encode(keeper.Status())
	})
	mux.Handle("/", bridge.ControlHandler(b, defaultPort))
	return mux
}
