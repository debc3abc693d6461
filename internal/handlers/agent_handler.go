package handlers

import (
	"net/http"
	"sync"

	"lingopal/internal/game"
	"lingopal/internal/realtime"
)

// AgentHandler runs the real-time agent room. Each visit to the page gets
// its own controller; a new visit or leaving tears the previous one down.
type AgentHandler struct {
	game          *game.Store
	newController func() *realtime.Controller
	middleware    *Middleware

	mu      sync.Mutex
	current *realtime.Controller
}

// NewAgentHandler creates a new agent handler
func NewAgentHandler(gameStore *game.Store, newController func() *realtime.Controller, middleware *Middleware) *AgentHandler {
	return &AgentHandler{
		game:          gameStore,
		newController: newController,
		middleware:    middleware,
	}
}

// ShowAgent starts a visit for the room and identity in the query string.
// The page renders while the credential is still being fetched and then
// follows the visit through State.
func (h *AgentHandler) ShowAgent(w http.ResponseWriter, r *http.Request) {
	if h.game.SelectedChild() == nil {
		redirectWithFlash(w, r, "/dashboard", flashSelectFirst)
		return
	}

	ctrl := h.newController()
	h.swap(ctrl)
	ctrl.Start(r.URL.Query())

	h.renderAgent(w, r, ctrl.Snapshot())
}

// State reports the current visit's state for polling
func (h *AgentHandler) State(w http.ResponseWriter, r *http.Request) {
	ctrl := h.active()
	if ctrl == nil {
		respondWithJSON(w, http.StatusOK, realtime.Snapshot{State: realtime.StateDisconnected})
		return
	}
	respondWithJSON(w, http.StatusOK, ctrl.Snapshot())
}

// Retry starts a new credential attempt after an error or disconnect
func (h *AgentHandler) Retry(w http.ResponseWriter, r *http.Request) {
	ctrl := h.active()
	if ctrl == nil {
		http.Redirect(w, r, "/agent", http.StatusSeeOther)
		return
	}
	ctrl.Restart()
	h.renderAgent(w, r, ctrl.Snapshot())
}

// Leave ends the visit and returns to the dashboard
func (h *AgentHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.swap(nil)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Close ends any visit in progress
func (h *AgentHandler) Close() {
	h.swap(nil)
}

func (h *AgentHandler) swap(next *realtime.Controller) {
	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	if prev != nil {
		prev.Exit()
	}
}

func (h *AgentHandler) active() *realtime.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *AgentHandler) renderAgent(w http.ResponseWriter, r *http.Request, snap realtime.Snapshot) {
	data := AgentViewData{
		PageData: h.middleware.page(w, r, titleAgent),
		Child:    h.game.SelectedChild(),
		Room:     snap,
	}
	h.middleware.render(w, "agent.tmpl", data)
}
