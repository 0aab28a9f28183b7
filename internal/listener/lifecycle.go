package listener

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	apperrors "github.com/stagehand/remote/internal/errors"
	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

// bindHost is the fixed bind address. The port comes from the host.
const bindHost = "0.0.0.0"

// HandleStart binds the HTTP server. Success and failure are both reported
// as events; a start while bound fails fast without touching the server.
func (l *Listener) HandleStart(cmd hostmsg.Start) {
	if l.httpServer != nil {
		l.log.Warn().Int(logging.FieldPort, l.port).Msg("start requested while running")
		l.emit(hostmsg.Error{Error: apperrors.AlreadyRunning().Message})
		return
	}

	port, err := l.start(cmd.Port)
	if err != nil {
		l.log.Error().Err(err).Int(logging.FieldPort, cmd.Port).Msg("failed to start remote server")
		l.emit(hostmsg.Error{Error: errorText(err)})
		return
	}

	addresses := l.opts.Addresses()
	l.log.Info().
		Int(logging.FieldPort, port).
		Strs(logging.FieldAddresses, addresses).
		Msg("remote server listening")
	l.emit(hostmsg.Started{Port: port, Addresses: addresses})

	if l.opts.Advertiser != nil {
		if err := l.opts.Advertiser.Start(port); err != nil {
			l.log.Warn().Err(err).Msg("mDNS advertisement failed")
		}
	}
}

// HandleStop closes every socket and the HTTP server, then reports stopped.
// It reports stopped even when nothing was running.
func (l *Listener) HandleStop(hostmsg.Stop) {
	l.stop()
	l.emit(hostmsg.Stopped{})
}

// start creates the listener first to detect port conflicts immediately,
// then serves in a goroutine. It returns the bound port, which differs from
// the requested one only when port is 0.
func (l *Listener) start(port int) (int, error) {
	addr := net.JoinHostPort(bindHost, fmt.Sprint(port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, apperrors.BindFailed(addr, err)
	}

	srv := &http.Server{
		Handler:           l.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	l.httpServer = srv
	l.port = ln.Addr().(*net.TCPAddr).Port

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			l.post(func() { l.serveFailed(srv, err) })
		}
	}()

	return l.port, nil
}

// serveFailed handles a server that stopped accepting on its own.
func (l *Listener) serveFailed(srv *http.Server, err error) {
	if l.httpServer != srv {
		return
	}
	l.log.Error().Err(err).Msg("remote server failed")
	l.stop()
	l.emit(hostmsg.Error{Error: err.Error()})
	l.emit(hostmsg.Stopped{})
}

// stop tears the server down. Safe to call when already stopped.
func (l *Listener) stop() {
	if l.httpServer == nil {
		return
	}

	if l.opts.Advertiser != nil {
		l.opts.Advertiser.Stop()
	}

	// Each writePump sends a close frame and closes its socket once its
	// client is closed. The readPumps then post removals that find nothing,
	// so no disconnect is reported twice.
	removed := l.reg.Clear()
	l.clientCount.Store(0)

	if err := l.httpServer.Close(); err != nil {
		l.log.Warn().Err(err).Msg("error closing remote server")
	}
	l.httpServer = nil

	l.log.Info().
		Int(logging.FieldPort, l.port).
		Int(logging.FieldClients, len(removed)).
		Msg("remote server stopped")
	l.port = 0
}

// errorText renders an error for the host's error event.
func errorText(err error) string {
	var coded *apperrors.CodedError
	if errors.As(err, &coded) && coded.Cause != nil {
		return fmt.Sprintf("%s: %v", coded.Message, coded.Cause)
	}
	return apperrors.GetMessage(err)
}
