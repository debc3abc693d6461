package handlers

import (
	"context"
	"log"
	"net/http"
	"sync"

	"lingopal/internal/game"
	"lingopal/internal/models"
	"lingopal/internal/service"
	"lingopal/internal/session"
)

// SessionsClient reads a child's session records
type SessionsClient interface {
	ListByChild(ctx context.Context, childID string) ([]models.SessionRecord, error)
}

// historyCache holds the session list loaded for one selection
type historyCache struct {
	version  uint64
	childID  string
	sessions []models.SessionRecord
}

// HistoryHandler shows the selected child's sessions
type HistoryHandler struct {
	sessions   *session.Store
	game       *game.Store
	records    SessionsClient
	mailer     Mailer
	middleware *Middleware

	mu    sync.Mutex
	cache *historyCache
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(sessions *session.Store, gameStore *game.Store, records SessionsClient, mailer Mailer, middleware *Middleware) *HistoryHandler {
	return &HistoryHandler{
		sessions:   sessions,
		game:       gameStore,
		records:    records,
		mailer:     mailer,
		middleware: middleware,
	}
}

// History renders the selected child's sessions and their summary
func (h *HistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	data := HistoryViewData{PageData: h.middleware.page(w, r, titleHistory)}

	child := h.game.SelectedChild()
	if child == nil {
		h.middleware.render(w, "history.tmpl", data)
		return
	}

	sessions, current, err := h.load(r.Context(), child)
	if !current {
		// The selection moved on while loading; show the new child instead.
		http.Redirect(w, r, "/history", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Printf("Error loading sessions for child %s: %v", child.ID, err)
		data.Notice = noticeHistoryFailed
	}

	data.Child = child
	data.Sessions = sessions
	data.Summary = models.Summarize(sessions)
	data.CanEmail = h.mailer != nil && h.mailer.IsEnabled()
	h.middleware.render(w, "history.tmpl", data)
}

// EmailReport mails the history summary to the signed-in parent
func (h *HistoryHandler) EmailReport(w http.ResponseWriter, r *http.Request) {
	child := h.game.SelectedChild()
	if child == nil || h.mailer == nil || !h.mailer.IsEnabled() {
		http.Redirect(w, r, "/history", http.StatusSeeOther)
		return
	}
	identity := h.sessions.Identity()
	if identity == nil || !identity.HasEmail() {
		redirectWithFlash(w, r, "/history", flashNoEmail)
		return
	}

	sessions, current, err := h.load(r.Context(), child)
	if !current || err != nil {
		if err != nil {
			log.Printf("Error loading sessions for report: %v", err)
		}
		redirectWithFlash(w, r, "/history", flashReportFailed)
		return
	}

	report := service.ProgressReport{
		ParentName: identity.Username,
		Child:      *child,
		Summary:    models.Summarize(sessions),
		Sessions:   sessions,
	}
	if err := h.mailer.SendProgressReport(r.Context(), identity.Email, report); err != nil {
		log.Printf("Error sending progress report: %v", err)
		redirectWithFlash(w, r, "/history", flashReportFailed)
		return
	}
	redirectWithFlash(w, r, "/history", flashReportSent)
}

// load returns child's sessions, fetching them only when the selection has
// changed since the last load. current is false when the selection changed
// while the fetch was in flight; the result is then discarded.
func (h *HistoryHandler) load(ctx context.Context, child *models.ChildProfile) (sessions []models.SessionRecord, current bool, err error) {
	version := h.game.SelectionVersion()

	h.mu.Lock()
	if c := h.cache; c != nil && c.version == version && c.childID == child.ID {
		h.mu.Unlock()
		return c.sessions, true, nil
	}
	h.mu.Unlock()

	sessions, err = h.records.ListByChild(ctx, child.ID)
	if h.game.SelectionVersion() != version {
		return nil, false, nil
	}
	if err != nil {
		return nil, true, err
	}

	h.mu.Lock()
	h.cache = &historyCache{version: version, childID: child.ID, sessions: sessions}
	h.mu.Unlock()
	return sessions, true, nil
}
