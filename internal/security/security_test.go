package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCSRFToken(t *testing.T) {
	g := NewCSRFGenerator("secret")

	token, err := g.GenerateToken("device-1")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	flip := byte('0')
	if token[len(token)-1] == '0' {
		flip = '1'
	}
	tampered := token[:len(token)-1] + string(flip)

	tests := []struct {
		name     string
		deviceID string
		token    string
		want     bool
	}{
		{name: "matching", deviceID: "device-1", token: token, want: true},
		{name: "other device", deviceID: "device-2", token: token, want: false},
		{name: "empty token", deviceID: "device-1", token: "", want: false},
		{name: "empty device", deviceID: "", token: token, want: false},
		{name: "tampered", deviceID: "device-1", token: tampered, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.ValidateToken(tt.deviceID, tt.token); got != tt.want {
				t.Errorf("ValidateToken() = %v, want %v", got, tt.want)
			}
		})
	}

	if other := NewCSRFGenerator("other"); other.ValidateToken("device-1", token) {
		t.Error("token must not validate under another secret")
	}
	if _, err := g.GenerateToken(""); err == nil {
		t.Error("GenerateToken(\"\") should fail")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	defer rl.Close()
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow("a") {
		t.Error("third request in the window should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other keys have their own budget")
	}

	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("budget refills after the window")
	}

	now = now.Add(5 * time.Minute)
	rl.cleanup()
	if len(rl.visitors) != 0 {
		t.Errorf("cleanup left %d visitors", len(rl.visitors))
	}
	rl.Close()
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "remote addr", remote: "10.0.0.1:5555", want: "10.0.0.1"},
		{name: "forwarded chain", headers: map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, remote: "10.0.0.1:1", want: "1.2.3.4"},
		{name: "real ip", headers: map[string]string{"X-Real-IP": "5.6.7.8"}, remote: "10.0.0.1:1", want: "5.6.7.8"},
		{name: "no port", remote: "pipe", want: "pipe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureDeviceID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	id := EnsureDeviceID(w, r)
	if id == "" {
		t.Fatal("EnsureDeviceID() returned empty id")
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DeviceCookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	again := httptest.NewRequest(http.MethodGet, "/", nil)
	again.AddCookie(cookies[0])
	w2 := httptest.NewRecorder()
	if got := EnsureDeviceID(w2, again); got != id {
		t.Errorf("EnsureDeviceID() = %q, want existing %q", got, id)
	}
	if len(w2.Result().Cookies()) != 0 {
		t.Error("no new cookie for a known device")
	}

	bogus := httptest.NewRequest(http.MethodGet, "/", nil)
	bogus.AddCookie(&http.Cookie{Name: DeviceCookieName, Value: "not-a-uuid"})
	if DeviceID(bogus) != "" {
		t.Error("malformed device id should be ignored")
	}
}

func TestIsSecureRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/", nil)
	if IsSecureRequest(r) {
		t.Error("plain request reported secure")
	}
	r.Header.Set("X-Forwarded-Proto", "https")
	if !IsSecureRequest(r) {
		t.Error("forwarded https not detected")
	}
}
