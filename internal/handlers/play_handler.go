package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"lingopal/internal/game"
)

// PlayHandler exposes the game state to the room page and the tutor agent
type PlayHandler struct {
	game *game.Store
}

// NewPlayHandler creates a new play handler
func NewPlayHandler(gameStore *game.Store) *PlayHandler {
	return &PlayHandler{game: gameStore}
}

type scoreRequest struct {
	Delta int `json:"delta"`
}

// State returns the current play state
func (h *PlayHandler) State(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.game.State())
}

// Start begins a play session for the selected child
func (h *PlayHandler) Start(w http.ResponseWriter, r *http.Request) {
	child := h.game.SelectedChild()
	if child == nil {
		respondWithJSON(w, http.StatusConflict, map[string]string{"error": "no child selected"})
		return
	}
	respondWithJSON(w, http.StatusOK, h.game.BeginSession(child.ID))
}

// End stops the play session
func (h *PlayHandler) End(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.game.EndSession())
}

// Score adds a delta, sent as JSON {"delta": n} or as a form value
func (h *PlayHandler) Score(w http.ResponseWriter, r *http.Request) {
	delta, err := parseDelta(r)
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid score delta"})
		return
	}
	respondWithJSON(w, http.StatusOK, h.game.AddScore(delta))
}

// LoseLife takes one life
func (h *PlayHandler) LoseLife(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.game.LoseLife())
}

// AdvanceLevel moves to the next level
func (h *PlayHandler) AdvanceLevel(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.game.AdvanceLevel())
}

func parseDelta(r *http.Request) (int, error) {
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType == "application/json" {
		var req scoreRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return 0, err
		}
		return req.Delta, nil
	}
	return strconv.Atoi(r.FormValue("delta"))
}
