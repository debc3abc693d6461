package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"lingopal/internal/audio"
)

// ClipSource resolves a word to a pronunciation clip on disk
type ClipSource interface {
	Clip(ctx context.Context, word string) (string, error)
}

// AudioHandler serves pronunciation clips
type AudioHandler struct {
	clips ClipSource
}

// NewAudioHandler creates a new audio handler
func NewAudioHandler(clips ClipSource) *AudioHandler {
	return &AudioHandler{clips: clips}
}

// Word serves the clip for the word in the path
func (h *AudioHandler) Word(w http.ResponseWriter, r *http.Request) {
	path, err := h.clips.Clip(r.Context(), r.PathValue("word"))
	if err != nil {
		if errors.Is(err, audio.ErrInvalidWord) {
			http.Error(w, "Invalid word", http.StatusBadRequest)
			return
		}
		log.Printf("Error generating audio: %v", err)
		http.Error(w, "Audio unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeFile(w, r, path)
}
