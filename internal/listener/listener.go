// Package listener implements the network-facing half of the remote bridge.
//
// A Listener serves the control page, a health check and the /ws WebSocket
// endpoint. It receives host commands (start, stop, state and data updates)
// and reports events (started, client connections, remote commands) back to
// the host through an EventSink.
//
// All mutable state (the connection registry, the cached app state and the
// HTTP server) is owned by the goroutine running Run. HTTP handlers and
// socket pumps never touch it directly; they post closures to the loop.
package listener

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
	"github.com/stagehand/remote/internal/registry"
)

// channelBufferSize is the buffer size for the loop's action queue and for
// per-client send channels. A client whose buffer fills up has frames dropped.
const channelBufferSize = 256

// Default per-client inbound limits.
const (
	DefaultRateLimit = 20
	DefaultRateBurst = 40
)

// EventSink receives listener → host events.
type EventSink interface {
	Emit(hostmsg.Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(hostmsg.Event)

// Emit calls f(e).
func (f EventSinkFunc) Emit(e hostmsg.Event) { f(e) }

// Advertiser announces the listener on the local network while it runs.
type Advertiser interface {
	Start(port int) error
	Stop()
}

// Options configures a Listener. The zero value is usable.
type Options struct {
	// RateLimit is the sustained number of frames per second accepted from
	// one remote. Defaults to DefaultRateLimit.
	RateLimit rate.Limit

	// RateBurst is the limiter burst. Defaults to DefaultRateBurst.
	RateBurst int

	// Advertiser, if set, is started after every successful bind and
	// stopped on stop.
	Advertiser Advertiser

	// Addresses returns the addresses reported in the started event.
	// Defaults to NonInternalIPv4.
	Addresses func() []string

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// Listener is one remote-control server. Create it with New and drive it
// with Run.
type Listener struct {
	opts     Options
	sink     EventSink
	log      zerolog.Logger
	upgrader websocket.Upgrader

	// actions carries closures to run on the loop goroutine.
	actions chan func()
	// quit is closed when Run returns.
	quit chan struct{}

	// clientCount mirrors reg.Len() for the /health handler.
	clientCount atomic.Int64

	// Owned by the loop goroutine.
	reg        *registry.Registry
	snapshot   *protocol.RemoteAppState
	httpServer *http.Server
	port       int
}

// New creates a stopped listener that reports to sink.
func New(sink EventSink, opts Options) *Listener {
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultRateLimit
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = DefaultRateBurst
	}
	if opts.Addresses == nil {
		opts.Addresses = NonInternalIPv4
	}

	l := &Listener{
		opts:    opts,
		sink:    sink,
		actions: make(chan func(), channelBufferSize),
		quit:    make(chan struct{}),
		reg:     registry.New(),
		upgrader: websocket.Upgrader{
			// Any device on the LAN may connect.
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if opts.Logger != nil {
		l.log = *opts.Logger
	} else {
		l.log = logging.Component("listener")
	}
	return l
}

// Run processes host commands until cmds is closed or ctx is done, then
// stops the server. Run must be called at most once.
func (l *Listener) Run(ctx context.Context, cmds <-chan hostmsg.Command) error {
	defer close(l.quit)
	defer l.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case cmd, ok := <-cmds:
			if !ok {
				return nil
			}
			l.log.Debug().Str(logging.FieldMessageType, cmd.MessageType()).Msg("host command")
			hostmsg.DispatchCommand(cmd, l)

		case fn := <-l.actions:
			fn()
		}
	}
}

// shutdown stops a running server on the way out of Run and tells the host.
func (l *Listener) shutdown() {
	if l.httpServer != nil {
		l.stop()
		l.emit(hostmsg.Stopped{})
	}
}

// post queues fn for the loop. It is dropped once Run has returned.
func (l *Listener) post(fn func()) {
	select {
	case l.actions <- fn:
	case <-l.quit:
	}
}

func (l *Listener) emit(e hostmsg.Event) {
	if l.sink != nil {
		l.sink.Emit(e)
	}
}

// ClientCount returns the number of registered remotes. Safe from any goroutine.
func (l *Listener) ClientCount() int {
	return int(l.clientCount.Load())
}
