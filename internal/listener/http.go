package listener

import (
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/stagehand/remote/internal/logging"
	"github.com/stagehand/remote/internal/protocol"
	"github.com/stagehand/remote/internal/protocol/clientmsg"
	"github.com/stagehand/remote/internal/protocol/hostmsg"
)

//go:embed ui/index.html
var indexHTML []byte

// handler builds the HTTP handler with all endpoints.
func (l *Listener) handler() http.Handler {
	mux := http.NewServeMux()

	// WebSocket sessions for remotes
	mux.HandleFunc("/ws", l.handleWebSocket)

	// Health check for monitoring and the host's status command
	mux.HandleFunc("/health", l.handleHealth)

	// The control page; every other path is a 404
	mux.HandleFunc("/", handleIndex)

	return logging.HTTPMiddleware(l.log)(corsMiddleware(mux))
}

// corsMiddleware adds permissive CORS headers and answers preflight requests.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML)
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (l *Listener) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Clients: l.ClientCount()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// handleWebSocket upgrades a request to /ws and hands the new client to the loop.
func (l *Listener) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log := logging.Ctx(r.Context())
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		listener: l,
		conn:     conn,
		send:     make(chan []byte, channelBufferSize),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(l.opts.RateLimit, l.opts.RateBurst),
		info: protocol.ClientInfo{
			ID:                 uuid.NewString(),
			RemoteAddress:      remoteHost(r.RemoteAddr),
			UserAgent:          r.UserAgent(),
			ConnectedAtEpochMs: time.Now().UnixMilli(),
		},
	}

	go c.writePump()

	// Registration is posted before readPump starts, so every frame the
	// client sends is handled after it is registered.
	l.post(func() { l.addClient(c) })
	go c.readPump()
}

// addClient registers c, reports it to the host, and primes it with the
// connected message and the cached state.
func (l *Listener) addClient(c *client) {
	if l.httpServer == nil {
		// Stopped between upgrade and registration.
		c.Close()
		return
	}
	if !l.reg.Add(c, c.info) {
		l.log.Error().Str(logging.FieldClientID, c.info.ID).Msg("duplicate client id")
		c.Close()
		return
	}
	l.clientCount.Store(int64(l.reg.Len()))

	l.log.Info().
		Str(logging.FieldClientID, c.info.ID).
		Str(logging.FieldRemoteAddr, c.info.RemoteAddress).
		Int(logging.FieldClients, l.reg.Len()).
		Msg("remote connected")

	l.emit(hostmsg.ClientConnected{ClientID: c.info.ID, ClientInfo: c.info})
	l.sendTo(c.info.ID, clientmsg.Connected{ClientID: c.info.ID})
	if l.snapshot != nil {
		l.sendTo(c.info.ID, clientmsg.State{State: *l.snapshot})
	}
}

// removeClient deregisters id and reports it once.
func (l *Listener) removeClient(id string) {
	if _, ok := l.reg.Remove(id); !ok {
		return
	}
	l.clientCount.Store(int64(l.reg.Len()))

	l.log.Info().
		Str(logging.FieldClientID, id).
		Int(logging.FieldClients, l.reg.Len()).
		Msg("remote disconnected")
	l.emit(hostmsg.ClientDisconnected{ClientID: id})
}
