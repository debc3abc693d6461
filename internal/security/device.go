package security

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DeviceCookieName names the cookie that identifies a browser on this device
const DeviceCookieName = "lingopal_device"

const deviceCookieTTL = 365 * 24 * time.Hour

// GenerateDeviceID creates a new random browser id
func GenerateDeviceID() string {
	return uuid.New().String()
}

// IsSecureRequest determines if the request is over HTTPS
// Checks TLS connection, X-Forwarded-Proto header (for reverse proxies), and URL scheme
func IsSecureRequest(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" {
		return true
	}
	return r.URL.Scheme == "https"
}

// DeviceID returns the browser id from the request, or "" when absent or
// malformed
func DeviceID(r *http.Request) string {
	cookie, err := r.Cookie(DeviceCookieName)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// EnsureDeviceID returns the request's browser id, issuing a cookie with a
// fresh one when needed
func EnsureDeviceID(w http.ResponseWriter, r *http.Request) string {
	if id := DeviceID(r); id != "" {
		return id
	}
	id := GenerateDeviceID()
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(deviceCookieTTL),
		HttpOnly: true,
		Secure:   IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
