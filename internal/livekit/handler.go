package livekit

import (
	"encoding/json"
	"log"
	"net/http"

	"lingopal/internal/realtime"
)

// Handler serves GET /api/livekit-token/
type Handler struct {
	issuer *TokenIssuer
}

// NewHandler creates a token endpoint backed by issuer
func NewHandler(issuer *TokenIssuer) *Handler {
	return &Handler{issuer: issuer}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeToken(w, http.StatusMethodNotAllowed, realtime.TokenResponse{Error: "method not allowed"})
		return
	}
	if !h.issuer.Configured() {
		writeToken(w, http.StatusServiceUnavailable, realtime.TokenResponse{Error: "LiveKit credentials not configured"})
		return
	}

	room := r.URL.Query().Get("room")
	identity := r.URL.Query().Get("identity")
	if room == "" || identity == "" {
		writeToken(w, http.StatusBadRequest, realtime.TokenResponse{Error: "room and identity are required"})
		return
	}

	token, err := h.issuer.Issue(room, identity)
	if err != nil {
		log.Printf("Error issuing room token: %v", err)
		writeToken(w, http.StatusInternalServerError, realtime.TokenResponse{Error: "could not issue token"})
		return
	}
	writeToken(w, http.StatusOK, realtime.TokenResponse{Token: token})
}

func writeToken(w http.ResponseWriter, status int, body realtime.TokenResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error writing token response: %v", err)
	}
}
