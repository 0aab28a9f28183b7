package presenter

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/stagehand/remote/internal/errors"
)

// ToggleRequest is the body of the overlay routes.
type ToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// ControlHandler serves the operator's output controls on the control socket:
//
//	GET  /output        current RemoteAppState
//	POST /output/logo   {"enabled": bool} shows or hides the logo overlay
//	POST /output/hide   {"enabled": bool} hides or restores the live output
//	POST /output/blank  takes the output off air, keeping the item
//
// Every route answers with the resulting state.
func ControlHandler(p *Presenter) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/output", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, p.State())
	})

	mux.HandleFunc("/output/logo", toggleRoute(p, p.SetShowLogo))
	mux.HandleFunc("/output/hide", toggleRoute(p, p.SetHideLive))

	mux.HandleFunc("/output/blank", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := p.GoBlank(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, p.State())
	})

	return mux
}

func toggleRoute(p *Presenter, set func(bool)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req ToggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, apperrors.InvalidMessage("body must be {\"enabled\": bool}"))
			return
		}
		set(req.Enabled)
		writeJSON(w, http.StatusOK, p.State())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	code, message := apperrors.ToCodeAndMessage(err)
	writeJSON(w, status, struct {
		Code  string `json:"code"`
		Error string `json:"error"`
	}{code, message})
}
