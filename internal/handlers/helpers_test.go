package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"lingopal/internal/api"
	"lingopal/internal/game"
	"lingopal/internal/localstore"
	"lingopal/internal/models"
	"lingopal/internal/security"
	"lingopal/internal/service"
	"lingopal/internal/session"
	"lingopal/internal/web"
)

type fakeAuth struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeAuth) Login(ctx context.Context, username, password string) (*api.LoginResponse, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if username != "demo" || password != "demo" {
		return nil, api.ErrInvalidCredentials
	}
	return &api.LoginResponse{
		Token: "tok-1",
		User:  api.UserPayload{ID: "user_1", Username: "demo", Email: "demo@example.com"},
	}, nil
}

func (f *fakeAuth) Register(ctx context.Context, req api.RegisterRequest) (*api.LoginResponse, error) {
	return nil, api.ErrRegistrationFailed
}

func (f *fakeAuth) Logout(ctx context.Context, credential string) error { return nil }

type fakeChildren struct {
	mu      sync.Mutex
	list    []models.ChildProfile
	listErr error
	saveErr error
	lists   int
	created []models.ChildDraft
	updated map[string]models.ChildPatch
}

func newFakeChildren() *fakeChildren {
	return &fakeChildren{list: api.SampleChildren(), updated: map[string]models.ChildPatch{}}
}

func (f *fakeChildren) List(ctx context.Context) ([]models.ChildProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *fakeChildren) Create(ctx context.Context, draft models.ChildDraft) (*models.ChildProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, draft)
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &models.ChildProfile{ID: "new-1", Name: draft.Name, Age: draft.Age, NativeLanguage: draft.NativeLanguage, Avatar: draft.Avatar, Level: draft.Level, Lives: models.MaxLives}, nil
}

func (f *fakeChildren) Update(ctx context.Context, id string, patch models.ChildPatch) (*models.ChildProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = patch
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &models.ChildProfile{ID: id, Name: *patch.Name, Age: *patch.Age, NativeLanguage: *patch.NativeLanguage, Avatar: *patch.Avatar, Level: *patch.Level}, nil
}

type fakeMailer struct {
	enabled bool
	err     error
	reports []service.ProgressReport
	to      []string
}

func (f *fakeMailer) IsEnabled() bool { return f.enabled }

func (f *fakeMailer) SendWelcomeEmail(ctx context.Context, toEmail, toName string) error {
	return f.err
}

func (f *fakeMailer) SendProgressReport(ctx context.Context, toEmail string, report service.ProgressReport) error {
	f.to = append(f.to, toEmail)
	f.reports = append(f.reports, report)
	return f.err
}

var errBackendDown = errors.New("backend down")

type testEnv struct {
	sessions   *session.Store
	game       *game.Store
	auth       *fakeAuth
	children   *fakeChildren
	csrf       *security.CSRFGenerator
	middleware *Middleware
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	templates, err := web.Templates()
	require.NoError(t, err)

	auth := &fakeAuth{}
	sessions := session.NewStore(localstore.NewMemory(), auth)
	require.NoError(t, sessions.Restore(context.Background()))
	gameStore := game.NewStore()
	csrf := security.NewCSRFGenerator("test-secret")

	return &testEnv{
		sessions:   sessions,
		game:       gameStore,
		auth:       auth,
		children:   newFakeChildren(),
		csrf:       csrf,
		middleware: NewMiddleware(sessions, gameStore, csrf, nil, templates, true),
	}
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	require.NoError(t, e.sessions.Login(context.Background(), "demo", "demo"))
}

func (e *testEnv) selectChild(index int) models.ChildProfile {
	child := e.children.list[index]
	e.game.SelectChild(child)
	return child
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// flashFrom returns the flash cookie set on a response
func flashFrom(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == FlashCookieName && c.MaxAge >= 0 {
			return c.Value
		}
	}
	return ""
}

// withFlash attaches a flash cookie to req
func withFlash(req *http.Request, code string) *http.Request {
	req.AddCookie(&http.Cookie{Name: FlashCookieName, Value: code})
	return req
}
