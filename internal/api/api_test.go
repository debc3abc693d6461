package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingopal/internal/models"
	"lingopal/internal/validation"
)

type staticCredential string

func (s staticCredential) Credential() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, fallback bool, cred string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, Fallback: fallback}, staticCredential(cred))
}

// unreachableClient points at a server that has already been shut down
func unreachableClient(t *testing.T, fallback bool) *Client {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()
	return NewClient(Options{BaseURL: base, Timeout: time.Second, Fallback: fallback}, staticCredential(""))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "transport", err: &RequestError{Method: "GET", Path: "/x", Err: errors.New("refused")}, want: true},
		{name: "decode", err: &DecodeError{Path: "/x", Err: errors.New("bad json")}, want: true},
		{name: "server error", err: &StatusError{StatusCode: 502}, want: true},
		{name: "client error", err: &StatusError{StatusCode: 404}, want: false},
		{name: "wrapped server error", err: mutationFailed("op", &StatusError{StatusCode: 500}), want: true},
		{name: "other", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnavailable(tt.err))
		})
	}
}

func TestLogin(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/auth/login/", r.URL.Path)
			assert.Empty(t, r.Header.Get("Authorization"))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ana", body["username"])
			writeJSON(w, http.StatusOK, map[string]any{
				"token": "tok-1",
				"user":  map[string]string{"id": "u9", "username": "ana"},
			})
		}, true, "")

		resp, err := NewAuthAPI(c).Login(context.Background(), "ana", "secret")
		require.NoError(t, err)
		id := resp.Identity()
		assert.Equal(t, "tok-1", id.Token)
		assert.Equal(t, "u9", id.ID)
		assert.Empty(t, id.Email)
	})

	t.Run("rejected is never masked", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "nope"})
		}, true, "")

		_, err := NewAuthAPI(c).Login(context.Background(), DemoUsername, DemoPassword)
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("missing token is a decode error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"user": map[string]string{"id": "u1"}})
		}, false, "")

		_, err := NewAuthAPI(c).Login(context.Background(), "ana", "secret")
		var decErr *DecodeError
		require.ErrorAs(t, err, &decErr)
		assert.ErrorIs(t, err, ErrRequestFailed)
	})

	t.Run("unavailable with demo pair", func(t *testing.T) {
		c := unreachableClient(t, true)
		c.now = func() time.Time { return time.UnixMilli(1700000000123) }

		resp, err := NewAuthAPI(c).Login(context.Background(), "demo", "demo")
		require.NoError(t, err)
		assert.Equal(t, "mock_token_1700000000123", resp.Token)
		assert.Equal(t, UserPayload{ID: "user_1", Username: "demo", Email: "demo@example.com"}, resp.User)
	})

	t.Run("unavailable with other pair", func(t *testing.T) {
		_, err := NewAuthAPI(unreachableClient(t, true)).Login(context.Background(), "ana", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unavailable without fallback", func(t *testing.T) {
		_, err := NewAuthAPI(unreachableClient(t, false)).Login(context.Background(), "demo", "demo")
		assert.ErrorIs(t, err, ErrRequestFailed)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestRegister(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/register/", r.URL.Path)
		writeJSON(w, http.StatusBadRequest, map[string]string{"username": "taken"})
	}, true, "")

	_, err := NewAuthAPI(c).Register(context.Background(), RegisterRequest{Username: "ana", Email: "a@b.co", Password: "longenough"})
	assert.ErrorIs(t, err, ErrRegistrationFailed)
}

func TestLogoutSendsCredential(t *testing.T) {
	var got atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}, true, "")

	require.NoError(t, NewAuthAPI(c).Logout(context.Background(), "tok-7"))
	assert.Equal(t, "Bearer tok-7", got.Load())
}

func TestChildrenList(t *testing.T) {
	t.Run("backend answer", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, []map[string]any{
				{"id": "k1", "name": "Mia", "age": 5, "nativeLanguage": "German", "avatar": "🦊", "userId": "u1", "level": 1, "totalScore": 10, "lives": 5},
			})
		}, true, "tok")

		children, err := NewChildrenAPI(c).List(context.Background())
		require.NoError(t, err)
		require.Len(t, children, 1)
		assert.Equal(t, "German", children[0].NativeLanguage)
		assert.Equal(t, models.MaxLives, children[0].Lives, "lives clamped")
	})

	t.Run("unavailable serves samples", func(t *testing.T) {
		children, err := NewChildrenAPI(unreachableClient(t, true)).List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, SampleChildren(), children)
	})

	t.Run("server error serves samples", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}, true, "tok")
		children, err := NewChildrenAPI(c).List(context.Background())
		require.NoError(t, err)
		assert.Len(t, children, 2)
	})

	t.Run("undecodable body serves samples", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>proxy error</html>"))
		}, true, "tok")
		children, err := NewChildrenAPI(c).List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Emma", children[0].Name)
	})

	t.Run("forbidden is surfaced", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, true, "tok")
		_, err := NewChildrenAPI(c).List(context.Background())
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	})

	t.Run("fallback off surfaces unavailability", func(t *testing.T) {
		_, err := NewChildrenAPI(unreachableClient(t, false)).List(context.Background())
		var reqErr *RequestError
		assert.ErrorAs(t, err, &reqErr)
	})
}

func TestChildrenCreate(t *testing.T) {
	t.Run("validation happens before the request", func(t *testing.T) {
		var calls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		}, true, "tok")

		for _, age := range []int{2, 18} {
			_, err := NewChildrenAPI(c).Create(context.Background(), models.ChildDraft{Name: "Ana", Age: age, NativeLanguage: "Spanish"})
			var ve validation.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "age", ve.Field)
		}
		assert.Zero(t, calls.Load())
	})

	t.Run("success", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			var draft models.ChildDraft
			require.NoError(t, json.NewDecoder(r.Body).Decode(&draft))
			writeJSON(w, http.StatusCreated, map[string]any{
				"id": "k2", "name": draft.Name, "age": draft.Age, "nativeLanguage": draft.NativeLanguage,
				"avatar": draft.Avatar, "userId": "u1", "level": draft.Level, "totalScore": 0, "lives": 3,
			})
		}, true, "tok")

		child, err := NewChildrenAPI(c).Create(context.Background(), models.ChildDraft{Name: "Ana", Age: 4, NativeLanguage: "Korean", Avatar: "🐻", Level: 1})
		require.NoError(t, err)
		assert.Equal(t, "k2", child.ID)
		assert.Equal(t, "Korean", child.NativeLanguage)
	})

	t.Run("mutations never degrade", func(t *testing.T) {
		_, err := NewChildrenAPI(unreachableClient(t, true)).Create(context.Background(), models.ChildDraft{Name: "Ana", Age: 4, NativeLanguage: "Korean"})
		assert.ErrorIs(t, err, ErrRequestFailed)
	})
}

func TestChildrenUpdateAndDelete(t *testing.T) {
	var lastPath, lastMethod string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		lastPath, lastMethod = r.URL.Path, r.Method
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "child_1", "name": "Emma", "age": 7, "level": 2, "lives": 3})
	}, true, "tok")
	children := NewChildrenAPI(c)

	age := 7
	child, err := children.Update(context.Background(), "child_1", models.ChildPatch{Age: &age})
	require.NoError(t, err)
	assert.Equal(t, 7, child.Age)
	assert.Equal(t, "/children/child_1/", lastPath)
	assert.Equal(t, http.MethodPatch, lastMethod)

	require.NoError(t, children.Delete(context.Background(), "child_1"))
	assert.Equal(t, http.MethodDelete, lastMethod)

	tooOld := 18
	_, err = children.Update(context.Background(), "child_1", models.ChildPatch{Age: &tooOld})
	var ve validation.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, http.MethodDelete, lastMethod, "no request for invalid patch")
}

func TestSessionsListByChild(t *testing.T) {
	t.Run("query parameter", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/sessions/", r.URL.Path)
			assert.Equal(t, "k 1", r.URL.Query().Get("child_id"))
			writeJSON(w, http.StatusOK, []map[string]any{{"id": "s1", "childId": "k 1", "score": 40, "activities": []any{}}})
		}, true, "tok")

		sessions, err := NewSessionsAPI(c).ListByChild(context.Background(), "k 1")
		require.NoError(t, err)
		require.Len(t, sessions, 1)
		assert.Equal(t, 40, sessions[0].Score)
	})

	t.Run("unavailable serves samples for the requested child", func(t *testing.T) {
		sessions, err := NewSessionsAPI(unreachableClient(t, true)).ListByChild(context.Background(), "child_2")
		require.NoError(t, err)
		require.Len(t, sessions, 3)
		for _, s := range sessions {
			assert.Equal(t, "child_2", s.ChildID)
		}
		assert.Len(t, sessions[0].Activities, 2)
		assert.Equal(t, "cat", sessions[0].Activities[1].Word)
		assert.Equal(t, 2, sessions[0].Activities[1].Attempts)
	})

	malformed := []struct {
		name   string
		record map[string]any
	}{
		{name: "record without id", record: map[string]any{"score": 40}},
		{name: "unknown activity type", record: map[string]any{"id": "s1", "activities": []any{
			map[string]any{"id": "a1", "type": "spelling", "word": "cat", "attempts": 1},
		}}},
		{name: "activity with zero attempts", record: map[string]any{"id": "s1", "activities": []any{
			map[string]any{"id": "a1", "type": "vocabulary", "word": "cat", "attempts": 0},
		}}},
		{name: "activity without attempts", record: map[string]any{"id": "s1", "activities": []any{
			map[string]any{"id": "a1", "type": "listening", "word": "cat"},
		}}},
	}
	for _, tt := range malformed {
		t.Run(tt.name+" is a decode error", func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, []map[string]any{tt.record})
			}, false, "tok")
			_, err := NewSessionsAPI(c).ListByChild(context.Background(), "k1")
			var decErr *DecodeError
			assert.ErrorAs(t, err, &decErr)
		})
	}
}

func TestSessionsMutations(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			writeJSON(w, http.StatusCreated, map[string]any{"id": "s9", "childId": "k1", "score": 0})
		case http.MethodPatch:
			assert.Equal(t, "/sessions/s9/", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]any{"id": "s9", "childId": "k1", "score": 30, "completed": true})
		}
	}, true, "tok")
	sessions := NewSessionsAPI(c)

	created, err := sessions.Create(context.Background(), models.SessionDraft{ChildID: "k1", Date: "2024-02-01"})
	require.NoError(t, err)
	assert.Equal(t, "s9", created.ID)

	score, done := 30, true
	updated, err := sessions.Update(context.Background(), "s9", models.SessionPatch{Score: &score, Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	_, err = NewSessionsAPI(unreachableClient(t, true)).Create(context.Background(), models.SessionDraft{ChildID: "k1"})
	assert.ErrorIs(t, err, ErrRequestFailed)
}
