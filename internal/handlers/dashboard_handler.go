package handlers

import (
	"context"
	"log"
	"net/http"

	"lingopal/internal/game"
	"lingopal/internal/models"
	"lingopal/internal/session"
)

// ChildrenClient reads and writes child profiles
type ChildrenClient interface {
	List(ctx context.Context) ([]models.ChildProfile, error)
	Create(ctx context.Context, draft models.ChildDraft) (*models.ChildProfile, error)
	Update(ctx context.Context, id string, patch models.ChildPatch) (*models.ChildProfile, error)
}

// DashboardHandler serves the profile picker
type DashboardHandler struct {
	sessions   *session.Store
	game       *game.Store
	children   ChildrenClient
	middleware *Middleware
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(sessions *session.Store, gameStore *game.Store, children ChildrenClient, middleware *Middleware) *DashboardHandler {
	return &DashboardHandler{
		sessions:   sessions,
		game:       gameStore,
		children:   children,
		middleware: middleware,
	}
}

// Dashboard lists the child profiles, loading them once per page load
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := DashboardViewData{
		PageData: h.middleware.page(w, r, titleDashboard),
		User:     h.sessions.Identity(),
	}

	children, err := h.children.List(r.Context())
	if err != nil {
		log.Printf("Error loading children: %v", err)
		data.Notice = noticeChildrenFailed
	}
	data.Children = children

	if selected := h.game.SelectedChild(); selected != nil {
		data.SelectedID = selected.ID
		data.Selected = true
	}

	h.middleware.render(w, "dashboard.tmpl", data)
}

// SelectChild makes a profile the active child. Only the game state changes.
func (h *DashboardHandler) SelectChild(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	children, err := h.children.List(r.Context())
	if err != nil {
		log.Printf("Error loading children: %v", err)
		h.renderWithNotice(w, r, nil, noticeChildrenFailed)
		return
	}

	for _, child := range children {
		if child.ID == id {
			h.game.SelectChild(child)
			redirectWithFlash(w, r, "/dashboard", flashWelcome)
			return
		}
	}

	h.renderWithNotice(w, r, children, noticeChildMissing)
}

// TalkToAgent opens the agent room once a child is selected; otherwise the
// dashboard shows a blocking notice
func (h *DashboardHandler) TalkToAgent(w http.ResponseWriter, r *http.Request) {
	if h.game.SelectedChild() == nil {
		redirectWithFlash(w, r, "/dashboard", flashSelectFirst)
		return
	}
	http.Redirect(w, r, "/agent", http.StatusSeeOther)
}

func (h *DashboardHandler) renderWithNotice(w http.ResponseWriter, r *http.Request, children []models.ChildProfile, notice *Notice) {
	data := DashboardViewData{
		PageData: h.middleware.page(w, r, titleDashboard),
		User:     h.sessions.Identity(),
		Children: children,
	}
	data.Notice = notice
	if selected := h.game.SelectedChild(); selected != nil {
		data.SelectedID = selected.ID
		data.Selected = true
	}
	h.middleware.render(w, "dashboard.tmpl", data)
}
