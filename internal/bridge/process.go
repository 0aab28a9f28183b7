package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/ipc"
	"github.com/stagehand/remote/internal/listener"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// eventBufferSize is the buffer between a listener and the bridge loop.
const eventBufferSize = 256

// Process is a running listener as seen from the host.
type Process interface {
	// Send delivers a command. It never blocks on a stuck listener.
	Send(hostmsg.Command) error

	// Events yields listener events. It is closed once the listener has
	// exited, after which Wait returns immediately.
	Events() <-chan hostmsg.Event

	// Shutdown asks the listener to stop serving and exit.
	Shutdown() error

	// Kill ends the listener without waiting for a clean stop.
	Kill() error

	// Wait returns the exit error. Call it after Events is closed.
	Wait() error
}

// Spawner starts listener processes.
type Spawner interface {
	Spawn() (Process, error)
}

// ExecSpawner runs the listener as a child process, re-executing the
// current binary with the listener subcommand. Commands go to the child's
// stdin and events come back on its stdout, one JSON message per line.
type ExecSpawner struct {
	// Path is the binary to run. Defaults to os.Executable().
	Path string

	// Args are the child's arguments. Defaults to ["listener"].
	Args []string

	// Env is appended to the parent's environment.
	Env []string

	// Logger receives the child's stderr. Defaults to the "listener" component.
	Logger *zerolog.Logger
}

// Spawn starts the child and its supervision goroutines.
func (s ExecSpawner) Spawn() (Process, error) {
	path := s.Path
	if path == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, apperrors.SpawnFailed(err)
		}
		path = exe
	}
	args := s.Args
	if args == nil {
		args = []string{"listener"}
	}

	cmd := exec.Command(path, args...)
	cmd.Env = append(os.Environ(), s.Env...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, apperrors.SpawnFailed(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.SpawnFailed(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apperrors.SpawnFailed(err)
	}

	if err := cmd.Start(); err != nil {
		return nil, apperrors.SpawnFailed(err)
	}

	log := logging.Component("listener")
	if s.Logger != nil {
		log = *s.Logger
	}
	log = log.With().Int(logging.FieldPID, cmd.Process.Pid).Logger()

	p := &execProcess{
		cmd:    cmd,
		stdin:  stdin,
		writer: ipc.NewWriter(stdin),
		outbox: make(chan hostmsg.Command, eventBufferSize),
		events: make(chan hostmsg.Event, eventBufferSize),
		log:    log,
	}
	go p.writeCommands()
	go p.supervise(stdout, stderr)

	log.Info().Str("path", path).Msg("listener process started")
	return p, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	writer *ipc.Writer
	log    zerolog.Logger

	// outbox is drained by writeCommands; closed once under mu.
	mu     sync.Mutex
	closed bool
	outbox chan hostmsg.Command

	events chan hostmsg.Event

	// waitErr is written before events is closed.
	waitErr error
}

// writeCommands copies queued commands to the child's stdin and closes it
// once the outbox is closed. A failed write drops the command; the reader
// side notices a dead child on its own.
func (p *execProcess) writeCommands() {
	defer p.stdin.Close()
	for cmd := range p.outbox {
		if err := p.writer.Write(cmd); err != nil {
			p.log.Warn().Err(err).Str(logging.FieldMessageType, cmd.MessageType()).Msg("failed to write command")
		}
	}
}

// supervise drains the child's stdout and stderr, reaps it, then closes
// the event channel. A broken event stream kills the child, since it would
// otherwise block on a pipe nobody reads.
func (p *execProcess) supervise(stdout, stderr io.Reader) {
	var g errgroup.Group
	g.Go(func() error {
		err := ipc.PumpEvents(ipc.NewReader(stdout), p.events, p.log)
		if err != nil {
			p.log.Error().Err(err).Msg("event stream failed, killing listener")
			p.Kill()
		}
		return err
	})
	g.Go(func() error {
		err := forwardLogs(stderr, p.log)
		if err != nil {
			io.Copy(io.Discard, stderr)
		}
		return err
	})
	pumpErr := g.Wait()

	err := p.cmd.Wait()
	if err == nil && pumpErr != nil {
		err = pumpErr
	}
	p.waitErr = err
	p.closeOutbox()

	if err != nil {
		p.log.Warn().Err(err).Msg("listener process exited")
	} else {
		p.log.Info().Msg("listener process exited")
	}
	close(p.events)
}

// Send queues cmd without blocking. A full queue is reported as an error.
func (p *execProcess) Send(cmd hostmsg.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperrors.IPCFailed("send "+cmd.MessageType(), errInputClosed)
	}
	select {
	case p.outbox <- cmd:
		return nil
	default:
		return apperrors.IPCFailed("send "+cmd.MessageType(), errQueueFull)
	}
}

func (p *execProcess) Events() <-chan hostmsg.Event { return p.events }

// Shutdown closes the outbox. Queued commands are still written, then the
// child's stdin is closed; the child stops its server and exits on EOF.
func (p *execProcess) Shutdown() error {
	p.closeOutbox()
	return nil
}

func (p *execProcess) closeOutbox() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.outbox)
	}
}

func (p *execProcess) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *execProcess) Wait() error { return p.waitErr }

// childLogLine is the subset of a zerolog JSON line the parent re-levels.
type childLogLine struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// forwardLogs copies the child's log lines into log at their original level.
// Lines that are not zerolog JSON are logged verbatim at info.
func forwardLogs(r io.Reader, log zerolog.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec childLogLine
		if err := json.Unmarshal(line, &rec); err == nil && rec.Message != "" {
			log.WithLevel(logging.ParseLevel(rec.Level)).RawJSON("child", line).Msg(rec.Message)
			continue
		}
		log.Info().Str(logging.FieldSource, "stderr").Msg(string(line))
	}
	return sc.Err()
}

// InProcSpawner runs the listener on goroutines inside the host. It speaks
// the same typed messages as ExecSpawner without the process boundary.
type InProcSpawner struct {
	Options listener.Options
}

// Spawn starts a listener loop.
func (s InProcSpawner) Spawn() (Process, error) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &inProcProcess{
		cmds:   make(chan hostmsg.Command, eventBufferSize),
		events: make(chan hostmsg.Event, eventBufferSize),
		cancel: cancel,
	}
	l := listener.New(listener.EventSinkFunc(func(e hostmsg.Event) { p.events <- e }), s.Options)

	go func() {
		err := l.Run(ctx, p.cmds)
		p.waitErr = err
		close(p.events)
	}()
	return p, nil
}

var (
	errInputClosed = errors.New("listener input closed")
	errQueueFull   = errors.New("command queue full")
)

type inProcProcess struct {
	mu     sync.Mutex
	closed bool
	cmds   chan hostmsg.Command
	events chan hostmsg.Event
	cancel context.CancelFunc

	// waitErr is written before events is closed.
	waitErr error
}

// Send queues cmd without blocking. A full queue is reported as an error.
func (p *inProcProcess) Send(cmd hostmsg.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return apperrors.IPCFailed("send "+cmd.MessageType(), errInputClosed)
	}
	select {
	case p.cmds <- cmd:
		return nil
	default:
		return apperrors.IPCFailed("send "+cmd.MessageType(), errQueueFull)
	}
}

func (p *inProcProcess) Events() <-chan hostmsg.Event { return p.events }

// Shutdown closes the command channel; the loop stops its server and returns.
func (p *inProcProcess) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.cmds)
	}
	return nil
}

func (p *inProcProcess) Kill() error {
	p.cancel()
	return nil
}

func (p *inProcProcess) Wait() error { return p.waitErr }
