package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingopal/internal/audio"
)

type clipFunc func(ctx context.Context, word string) (string, error)

func (f clipFunc) Clip(ctx context.Context, word string) (string, error) { return f(ctx, word) }

func TestAudioWord(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "word_hello.mp3")
	require.NoError(t, os.WriteFile(clip, []byte("ID3"), 0o644))

	tests := []struct {
		name       string
		word       string
		clips      clipFunc
		wantStatus int
	}{
		{
			name:       "served",
			word:       "hello",
			clips:      func(ctx context.Context, word string) (string, error) { return clip, nil },
			wantStatus: http.StatusOK,
		},
		{
			name:       "invalid word",
			word:       "..",
			clips:      func(ctx context.Context, word string) (string, error) { return "", audio.ErrInvalidWord },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "upstream failure",
			word:       "cat",
			clips:      func(ctx context.Context, word string) (string, error) { return "", errors.New("tts down") },
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewAudioHandler(tt.clips)
			req := httptest.NewRequest(http.MethodGet, "/audio/"+tt.word, nil)
			req.SetPathValue("word", tt.word)
			rec := httptest.NewRecorder()
			h.Word(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
				assert.Equal(t, "ID3", rec.Body.String())
			}
		})
	}
}
