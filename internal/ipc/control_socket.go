// Package ipc provides the local transports of the host: the Unix control
// socket used by the CLI, and the newline-delimited JSON link between the
// host and its listener process.
package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stagehand/remote/internal/logging"
)

// ControlSocketServer serves an HTTP handler over a Unix socket.
// It ensures the socket directory and file permissions are locked down.
type ControlSocketServer struct {
	// path is the filesystem location of the Unix socket.
	path string

	// handler is the HTTP handler served over the socket.
	handler http.Handler

	// server is the HTTP server serving the handler.
	server *http.Server

	// listener is the Unix socket listener.
	listener net.Listener

	log zerolog.Logger

	// mu guards start/stop operations.
	mu sync.Mutex
}

// NewControlSocketServer creates a control server for the given path.
// If logger is nil, the "ipc" component logger is used.
func NewControlSocketServer(path string, handler http.Handler, logger *zerolog.Logger) *ControlSocketServer {
	s := &ControlSocketServer{
		path:    path,
		handler: handler,
	}
	if logger != nil {
		s.log = *logger
	} else {
		s.log = logging.Component("ipc")
	}
	return s
}

// Path returns the socket path.
func (s *ControlSocketServer) Path() string { return s.path }

// Start begins listening on the configured Unix socket.
// It removes stale socket files, but fails if another process is active.
func (s *ControlSocketServer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return fmt.Errorf("control socket already started")
	}
	if s.path == "" {
		return fmt.Errorf("control socket path is empty")
	}
	if err := validateSocketPath(s.path); err != nil {
		return err
	}
	if s.handler == nil {
		return fmt.Errorf("control socket handler is nil")
	}

	if err := s.prepareSocketDir(); err != nil {
		return err
	}

	if err := s.ensureSocketAvailable(); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("failed to listen on control socket: %w", err)
	}

	if err := os.Chmod(s.path, 0600); err != nil {
		listener.Close()
		_ = os.Remove(s.path)
		return fmt.Errorf("failed to set control socket permissions: %w", err)
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           logging.HTTPMiddleware(s.log)(s.handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func(srv *http.Server) {
		err := srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("control socket server stopped")
		}
	}(s.server)

	s.log.Debug().Str("path", s.path).Msg("control socket listening")
	return nil
}

// Stop shuts down the server and removes the socket file.
func (s *ControlSocketServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stopErr error
	if s.server != nil {
		if err := s.server.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			stopErr = fmt.Errorf("failed to stop control socket server: %w", err)
		}
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.path != "" && s.listener != nil {
		if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) && stopErr == nil {
			stopErr = fmt.Errorf("failed to remove control socket: %w", err)
		}
	}

	s.server = nil
	s.listener = nil

	return stopErr
}

func (s *ControlSocketServer) prepareSocketDir() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create control socket directory: %w", err)
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return fmt.Errorf("failed to set control socket directory permissions: %w", err)
	}
	return nil
}

func (s *ControlSocketServer) ensureSocketAvailable() error {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat control socket: %w", err)
	}

	if info.Mode()&os.ModeSocket == 0 {
		return fmt.Errorf("control socket path is not a socket: %s", s.path)
	}

	conn, err := net.DialTimeout("unix", s.path, 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
		return fmt.Errorf("control socket already in use: %s", s.path)
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("permission denied accessing control socket: %w", err)
	}

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale control socket: %w", err)
	}

	return nil
}

// ControlBaseURL is the placeholder origin used for requests over the socket.
const ControlBaseURL = "http://stagehand"

// NewControlClient returns an HTTP client whose connections all go to the
// Unix socket at path.
func NewControlClient(path string, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				var dialer net.Dialer
				return dialer.DialContext(ctx, "unix", path)
			},
		},
	}
}
