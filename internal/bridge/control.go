package bridge

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	apperrors "github.com/stagehand/remote/internal/errors"
)

// StartRequest is the body of POST /remote/start. A zero port means the
// configured default.
type StartRequest struct {
	Port int `json:"port"`
}

// ErrorResponse is the body of a failed control request.
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// ControlHandler serves the local control API:
//
//	GET  /status        current ServerStatus
//	POST /remote/start  start the listener and wait for the result
//	POST /remote/stop   stop the listener and wait for the result
func ControlHandler(b *Bridge, defaultPort int) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, b.Status())
	})

	mux.HandleFunc("/remote/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, apperrors.InvalidMessage("invalid JSON body"))
			return
		}
		if req.Port < 0 || req.Port > 65535 {
			writeError(w, http.StatusBadRequest, apperrors.InvalidMessage("port out of range"))
			return
		}
		port := req.Port
		if port == 0 {
			port = defaultPort
		}

		select {
		case err := <-b.StartRemoteServer(port):
			if err != nil {
				status := http.StatusInternalServerError
				if apperrors.IsCode(err, apperrors.CodeServerAlreadyRunning) {
					status = http.StatusConflict
				}
				writeError(w, status, err)
				return
			}
		case <-r.Context().Done():
			return
		}
		writeJSON(w, http.StatusOK, b.Status())
	})

	mux.HandleFunc("/remote/stop", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		select {
		case err := <-b.StopRemoteServer():
			if err != nil {
				writeError(w, http.StatusInternalServerError, err)
				return
			}
		case <-r.Context().Done():
			return
		}
		writeJSON(w, http.StatusOK, b.Status())
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code, message := apperrors.ToCodeAndMessage(err)
	writeJSON(w, status, ErrorResponse{Code: code, Error: message})
}
