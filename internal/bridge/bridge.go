// Package bridge connects the host application to its remote-control listener.
//
// The Bridge supervises the listener (spawn, stop, crash detection), relays
// remote commands to a CommandHandler, forwards state snapshots to the
// listener for broadcast, and keeps a ServerStatus for the local UI.
//
// All supervision state is owned by one loop goroutine. Public methods post
// closures to it and never block on the listener; start and stop results
// arrive on returned channels.
package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// DefaultShutdownTimeout bounds how long Close waits for a clean listener exit
// before killing it.
const DefaultShutdownTimeout = 5 * time.Second

// actionBufferSize is the buffer of the loop's action queue.
const actionBufferSize = 256

// ServerStatus is the bridge's view of the listener. It is derived from
// listener events only.
type ServerStatus struct {
	Running   bool                  `json:"running"`
	Port      int                   `json:"port"`
	Addresses []string              `json:"addresses"`
	Clients   []protocol.ClientInfo `json:"clients"`
}

func (s ServerStatus) clone() ServerStatus {
	s.Addresses = append([]string(nil), s.Addresses...)
	s.Clients = append([]protocol.ClientInfo(nil), s.Clients...)
	return s
}

// Options configures a Bridge.
type Options struct {
	// ShutdownTimeout overrides DefaultShutdownTimeout.
	ShutdownTimeout time.Duration

	// Logger overrides the "bridge" component logger.
	Logger *zerolog.Logger
}

// Bridge is the host half of the remote-control system.
type Bridge struct {
	spawner Spawner
	handler CommandHandler
	log     zerolog.Logger
	timeout time.Duration

	// ctx is passed to handler calls and cancelled on Close.
	ctx    context.Context
	cancel context.CancelFunc

	actions chan func()
	quit    chan struct{}
	done    chan struct{}

	// postMu makes Close wait for in-flight posts, so no action is queued
	// after the loop's final drain.
	postMu sync.RWMutex
	closed bool

	mu       sync.RWMutex
	status   ServerStatus
	onStatus func(ServerStatus)

	// Owned by the loop goroutine.
	proc         Process
	procEvents   <-chan hostmsg.Event
	expectExit   bool
	pendingStart []chan error
	pendingStop  []chan error
	lastState    *protocol.RemoteAppState
	stopping     bool
}

// New creates a bridge and starts its loop. No listener runs until
// StartRemoteServer is called.
func New(spawner Spawner, handler CommandHandler, opts Options) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		spawner: spawner,
		handler: handler,
		timeout: opts.ShutdownTimeout,
		ctx:     ctx,
		cancel:  cancel,
		actions: make(chan func(), actionBufferSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if b.timeout <= 0 {
		b.timeout = DefaultShutdownTimeout
	}
	if opts.Logger != nil {
		b.log = *opts.Logger
	} else {
		b.log = logging.Component("bridge")
	}
	go b.run()
	return b
}

// Status returns a copy of the current status. Safe from any goroutine.
func (b *Bridge) Status() ServerStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status.clone()
}

// SetStatusListener registers fn to receive every status change. fn runs on
// the bridge loop and must not block.
func (b *Bridge) SetStatusListener(fn func(ServerStatus)) {
	b.mu.Lock()
	b.onStatus = fn
	b.mu.Unlock()
}

// StartRemoteServer spawns the listener if needed and asks it to bind port.
// The channel yields nil once the listener reports started, or the error it
// reported. Starting while running, or while another start is in flight,
// yields an "already running" error at once and leaves the server untouched.
func (b *Bridge) StartRemoteServer(port int) <-chan error {
	res := make(chan error, 1)
	if !b.post(func() { b.startServer(port, res) }) {
		res <- apperrors.NotRunning()
	}
	return res
}

// StopRemoteServer asks the listener to stop. The channel yields nil once it
// reports stopped, and immediately when no listener exists.
func (b *Bridge) StopRemoteServer() <-chan error {
	res := make(chan error, 1)
	if !b.post(func() { b.stopServer(res) }) {
		res <- nil
	}
	return res
}

// UpdateRemoteState forwards a snapshot for broadcast. The last snapshot is
// replayed to the listener after every start.
func (b *Bridge) UpdateRemoteState(state protocol.RemoteAppState) {
	if state.CurrentItem != nil {
		item := *state.CurrentItem
		state.CurrentItem = &item
	}
	b.post(func() {
		b.lastState = &state
		b.send(hostmsg.StateUpdate{State: state})
	})
}

// Close stops the listener, waits for it to exit and ends the loop.
// Pending start and stop results are resolved.
func (b *Bridge) Close() error {
	b.postMu.Lock()
	if !b.closed {
		b.closed = true
		close(b.quit)
	}
	b.postMu.Unlock()
	<-b.done
	return nil
}

// post queues fn for the loop. It reports false once Close has begun.
func (b *Bridge) post(fn func()) bool {
	b.postMu.RLock()
	defer b.postMu.RUnlock()
	if b.closed {
		return false
	}
	b.actions <- fn
	return true
}

func (b *Bridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.quit:
			b.shutdown()
			return

		case fn := <-b.actions:
			fn()

		case evt, ok := <-b.procEvents:
			if !ok {
				b.processExited()
				continue
			}
			b.log.Debug().Str(logging.FieldMessageType, evt.MessageType()).Msg("listener event")
			hostmsg.DispatchEvent(evt, eventRouter{b})
		}
	}
}

func (b *Bridge) startServer(port int, res chan error) {
	if b.stopping {
		res <- apperrors.NotRunning()
		return
	}
	// One start at a time. A running server with no stop queued ahead of
	// this start would only be rejected by the listener.
	if len(b.pendingStart) > 0 || (b.Status().Running && len(b.pendingStop) == 0) {
		b.log.Warn().Int(logging.FieldPort, port).Msg("start requested while already running")
		res <- apperrors.AlreadyRunning()
		return
	}
	if b.proc == nil {
		proc, err := b.spawner.Spawn()
		if err != nil {
			b.log.Error().Err(err).Msg("failed to spawn listener")
			res <- err
			return
		}
		b.proc = proc
		b.procEvents = proc.Events()
		b.expectExit = false
	}

	if err := b.proc.Send(hostmsg.Start{Port: port}); err != nil {
		res <- err
		return
	}
	b.pendingStart = append(b.pendingStart, res)
}

func (b *Bridge) stopServer(res chan error) {
	if b.proc == nil {
		res <- nil
		return
	}
	if err := b.proc.Send(hostmsg.Stop{}); err != nil {
		res <- err
		return
	}
	b.pendingStop = append(b.pendingStop, res)
}

// send forwards cmd to the listener. Without a listener it is dropped.
func (b *Bridge) send(cmd hostmsg.Command) {
	if b.proc == nil {
		b.log.Debug().Str(logging.FieldMessageType, cmd.MessageType()).Msg("no listener, dropping command")
		return
	}
	if err := b.proc.Send(cmd); err != nil {
		b.log.Error().Err(err).Str(logging.FieldMessageType, cmd.MessageType()).Msg("failed to send to listener")
	}
}

// setStatus applies fn under the lock and notifies the status listener.
func (b *Bridge) setStatus(fn func(*ServerStatus)) {
	b.mu.Lock()
	fn(&b.status)
	snapshot := b.status.clone()
	onStatus := b.onStatus
	b.mu.Unlock()

	if onStatus != nil {
		onStatus(snapshot)
	}
}

func resolve(pending []chan error, err error) {
	for _, ch := range pending {
		ch <- err
	}
}

// processExited handles the end of the listener's event stream.
func (b *Bridge) processExited() {
	err := b.proc.Wait()
	expected := b.expectExit
	b.proc = nil
	b.procEvents = nil
	b.expectExit = false

	if expected {
		b.log.Info().Msg("listener exited")
	} else {
		err = apperrors.ListenerCrashed(err)
		b.log.Error().Err(err).Msg("listener exited unexpectedly")
	}

	failure := err
	if expected {
		failure = apperrors.NotRunning()
	}
	resolve(b.pendingStart, failure)
	b.pendingStart = nil
	resolve(b.pendingStop, nil)
	b.pendingStop = nil

	b.setStatus(func(s *ServerStatus) { *s = ServerStatus{} })
}

// shutdown runs once on Close: stop the listener, wait for it, and resolve
// everything still pending.
func (b *Bridge) shutdown() {
	b.stopping = true
	b.cancel()

	if b.proc != nil {
		b.expectExit = true
		if err := b.proc.Shutdown(); err != nil {
			b.log.Warn().Err(err).Msg("failed to signal listener shutdown")
		}

		timer := time.NewTimer(b.timeout)
		defer timer.Stop()
		killed := false
		for b.proc != nil {
			select {
			case evt, ok := <-b.procEvents:
				if !ok {
					b.processExited()
					continue
				}
				hostmsg.DispatchEvent(evt, eventRouter{b})
			case <-timer.C:
				if !killed {
					killed = true
					b.log.Warn().Dur("timeout", b.timeout).Msg("listener did not exit, killing it")
					b.proc.Kill()
				}
			}
		}
	}

	// Run whatever was posted before Close; start and stop resolve at once
	// because stopping is set and no listener remains.
	for {
		select {
		case fn := <-b.actions:
			fn()
		default:
			resolve(b.pendingStart, apperrors.NotRunning())
			resolve(b.pendingStop, nil)
			b.pendingStart, b.pendingStop = nil, nil
			return
		}
	}
}
