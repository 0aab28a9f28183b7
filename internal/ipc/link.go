package ipc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// maxLineSize bounds one IPC frame. Library listings are the largest frames.
const maxLineSize = 4 * 1024 * 1024

// ErrBadFrame marks a line that could not be decoded. The stream itself is
// still usable; callers log and continue.
var ErrBadFrame = errors.New("bad ipc frame")

// Writer writes one JSON message per line. Safe for concurrent use.
type Writer struct {
	mu  sync.Mutex
	w   io.Writer
	log zerolog.Logger
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w, log: logging.Component("ipc")}
}

// Write encodes m and writes it followed by a newline.
func (w *Writer) Write(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return apperrors.IPCFailed("encode", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.w.Write(data); err != nil {
		return apperrors.IPCFailed("write "+m.MessageType(), err)
	}
	return nil
}

// Emit writes e and logs a failure. It lets a Writer act as the listener's
// event sink.
func (w *Writer) Emit(e hostmsg.Event) {
	if err := w.Write(e); err != nil {
		w.log.Error().Err(err).Str(logging.FieldMessageType, e.MessageType()).Msg("failed to emit event")
	}
}

// Reader reads newline-delimited JSON messages.
type Reader struct {
	sc *bufio.Scanner
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &Reader{sc: sc}
}

// next returns the next non-empty line, or io.EOF.
func (r *Reader) next() ([]byte, error) {
	for r.sc.Scan() {
		line := r.sc.Bytes()
		if len(line) == 0 {
			continue
		}
		return line, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, apperrors.IPCFailed("read", err)
	}
	return nil, io.EOF
}

// ReadCommand returns the next host → listener command. Undecodable lines
// yield an error wrapping ErrBadFrame.
func (r *Reader) ReadCommand() (hostmsg.Command, error) {
	line, err := r.next()
	if err != nil {
		return nil, err
	}
	cmd, err := hostmsg.DecodeCommand(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return cmd, nil
}

// ReadEvent returns the next listener → host event. Undecodable lines yield
// an error wrapping ErrBadFrame.
func (r *Reader) ReadEvent() (hostmsg.Event, error) {
	line, err := r.next()
	if err != nil {
		return nil, err
	}
	evt, err := hostmsg.DecodeEvent(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return evt, nil
}

// PumpCommands reads commands into out until the stream ends. Bad frames are
// logged and skipped. It returns nil on a clean EOF and never closes out.
func PumpCommands(r *Reader, out chan<- hostmsg.Command, log zerolog.Logger) error {
	for {
		cmd, err := r.ReadCommand()
		switch {
		case err == nil:
			out <- cmd
		case errors.Is(err, ErrBadFrame):
			log.Warn().Err(err).Msg("skipping bad command frame")
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}

// PumpEvents reads events into out until the stream ends. Bad frames are
// logged and skipped. It returns nil on a clean EOF and never closes out.
func PumpEvents(r *Reader, out chan<- hostmsg.Event, log zerolog.Logger) error {
	for {
		evt, err := r.ReadEvent()
		switch {
		case err == nil:
			out <- evt
		case errors.Is(err, ErrBadFrame):
			log.Warn().Err(err).Msg("skipping bad event frame")
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}
