package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"lingopal/internal/api"
	"lingopal/internal/service"
	"lingopal/internal/session"
	"lingopal/internal/validation"
)

// Mailer sends parent-facing emails
type Mailer interface {
	IsEnabled() bool
	SendWelcomeEmail(ctx context.Context, toEmail, toName string) error
	SendProgressReport(ctx context.Context, toEmail string, report service.ProgressReport) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	sessions   *session.Store
	mailer     Mailer
	middleware *Middleware
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(sessions *session.Store, mailer Mailer, middleware *Middleware) *AuthHandler {
	return &AuthHandler{
		sessions:   sessions,
		mailer:     mailer,
		middleware: middleware,
	}
}

// Home waits for session restoration and routes to the dashboard or login
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if err := h.sessions.EnsureRestored(r.Context()); err != nil {
		log.Printf("Error restoring session: %v", err)
	}
	if h.sessions.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin renders the login page
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EnsureRestored(r.Context()); err != nil {
		log.Printf("Error restoring session: %v", err)
	}
	if h.sessions.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, "", nil)
}

// Login handles login form submission
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")

	if err := validation.ValidateLogin(username, password); err != nil {
		h.renderLogin(w, r, username, validationNotice(err))
		return
	}

	if err := h.sessions.Login(r.Context(), username, password); err != nil {
		log.Printf("Login failed for %s: %v", username, err)
		h.renderLogin(w, r, username, noticeLoginFailed)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, username string, notice *Notice) {
	data := LoginViewData{
		PageData: h.middleware.page(w, r, titleLogin),
		Username: username,
	}
	if notice != nil {
		data.Notice = notice
	}
	h.middleware.render(w, "login.tmpl", data)
}

// ShowRegister renders the registration page
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.EnsureRestored(r.Context()); err != nil {
		log.Printf("Error restoring session: %v", err)
	}
	if h.sessions.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.renderRegister(w, r, RegisterViewData{})
}

// Register handles registration form submission
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, ErrInvalidFormData, http.StatusBadRequest)
		return
	}

	req := api.RegisterRequest{
		Username: strings.TrimSpace(r.FormValue("username")),
		Email:    strings.TrimSpace(r.FormValue("email")),
		Password: r.FormValue("password"),
	}
	view := RegisterViewData{Username: req.Username, Email: req.Email}

	if err := validation.ValidateRegistration(req.Username, req.Email, req.Password); err != nil {
		view.Notice = validationNotice(err)
		h.renderRegister(w, r, view)
		return
	}

	if err := h.sessions.Register(r.Context(), req); err != nil {
		log.Printf("Registration failed for %s: %v", req.Username, err)
		view.Notice = noticeRegisterFailed
		h.renderRegister(w, r, view)
		return
	}

	if h.mailer != nil && h.mailer.IsEnabled() && req.Email != "" {
		if err := h.mailer.SendWelcomeEmail(r.Context(), req.Email, req.Username); err != nil {
			log.Printf("Error sending welcome email: %v", err)
		}
	}

	http.Redirect(w, r, "/profile?mode=new", http.StatusSeeOther)
}

func (h *AuthHandler) renderRegister(w http.ResponseWriter, r *http.Request, view RegisterViewData) {
	notice := view.Notice
	view.PageData = h.middleware.page(w, r, titleRegister)
	if notice != nil {
		view.Notice = notice
	}
	h.middleware.render(w, "register.tmpl", view)
}

// Logout handles logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		log.Printf("Error logging out: %v", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
