package handlers

import (
	"html/template"
	"log"
	"net/http"
	"time"

	"lingopal/internal/game"
	"lingopal/internal/security"
	"lingopal/internal/session"
)

// Middleware holds dependencies for middleware functions and the pieces of
// page state every handler renders
type Middleware struct {
	sessions  *session.Store
	game      *game.Store
	csrf      *security.CSRFGenerator
	limiter   *security.RateLimiter
	templates *template.Template
	fallback  bool
}

// NewMiddleware creates a new middleware instance. A nil limiter disables
// rate limiting.
func NewMiddleware(sessions *session.Store, gameStore *game.Store, csrf *security.CSRFGenerator, limiter *security.RateLimiter, templates *template.Template, fallback bool) *Middleware {
	return &Middleware{
		sessions:  sessions,
		game:      gameStore,
		csrf:      csrf,
		limiter:   limiter,
		templates: templates,
		fallback:  fallback,
	}
}

// RequireAuth redirects to the login page unless an identity is held
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := m.sessions.EnsureRestored(r.Context()); err != nil {
			log.Printf("Error restoring session: %v", err)
		}
		if !m.sessions.Authenticated() {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

// RateLimit caps requests per client address
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.limiter != nil && !m.limiter.Allow(security.GetClientIP(r)) {
			http.Error(w, ErrTooManyRequests, http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// CSRFProtect rejects state-changing requests without a token bound to the
// browser's device cookie. JSON callers send the token in a header.
func (m *Middleware) CSRFProtect(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get(CSRFHeaderName)
		if token == "" {
			token = r.FormValue(security.CSRFFieldName)
		}
		if !m.csrf.ValidateToken(security.DeviceID(r), token) {
			http.Error(w, ErrInvalidCSRFToken, http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

// page assembles the shared page data, issuing the device cookie and
// consuming any pending flash
func (m *Middleware) page(w http.ResponseWriter, r *http.Request, title string) PageData {
	data := PageData{
		Title:           title,
		Authenticated:   m.sessions.Authenticated(),
		FallbackEnabled: m.fallback,
	}

	deviceID := security.EnsureDeviceID(w, r)
	token, err := m.csrf.GenerateToken(deviceID)
	if err != nil {
		log.Printf("Error generating CSRF token: %v", err)
	}
	data.CSRFToken = token

	if code := popFlash(w, r); code != "" {
		data.Notice = flashNotice(code, m.game.SelectedChild())
	}
	return data
}

// render executes a page template
func (m *Middleware) render(w http.ResponseWriter, name string, data any) {
	if err := m.templates.ExecuteTemplate(w, name, data); err != nil {
		respondWithError(w, http.StatusInternalServerError, ErrInternalServerError, "Error rendering "+name, err)
	}
}

// setFlash stores a flash code for the next page render
func setFlash(w http.ResponseWriter, r *http.Request, code string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    code,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectWithFlash stores code and redirects with 303
func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, code string) {
	setFlash(w, r, code)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func popFlash(w http.ResponseWriter, r *http.Request) string {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	return cookie.Value
}

// Logging middleware logs HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Call next handler
		next.ServeHTTP(w, r)

		// Log request
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
