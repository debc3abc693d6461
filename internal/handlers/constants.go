package handlers

const (
	FlashCookieName = "lingopal_flash"
	CSRFHeaderName  = "X-CSRF-Token"

	ErrInvalidFormData     = "Invalid form data"
	ErrInvalidCSRFToken    = "Invalid CSRF token"
	ErrTooManyRequests     = "Too many requests. Please try again later."
	ErrInternalServerError = "Internal server error"
)

// Page titles
const (
	titleLogin     = "Login - LingoPal"
	titleRegister  = "Register - LingoPal"
	titleDashboard = "Dashboard - LingoPal"
	titleProfile   = "Child Profile - LingoPal"
	titleHistory   = "History - LingoPal"
	titleAgent     = "Agent - LingoPal"
)
