// Package audio produces pronunciation clips for activity words.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
)

// GoogleTTSEndpoint is the free Translate speech endpoint
const GoogleTTSEndpoint = "https://translate.google.com/translate_tts"

const (
	ttsRequestTimeout = 10 * time.Second
	maxWordLength     = 64
)

// ErrInvalidWord is returned for text that cannot name a clip
var ErrInvalidWord = errors.New("invalid word")

// TTSService fetches clips from a speech endpoint and caches them on disk
type TTSService struct {
	audioDir string
	endpoint string
	lang     string
	client   *http.Client

	mu sync.Mutex // serializes generation so a clip is fetched once
}

// NewTTSService creates a service that stores clips in audioDir
func NewTTSService(audioDir string) *TTSService {
	return &TTSService{
		audioDir: audioDir,
		endpoint: GoogleTTSEndpoint,
		lang:     "en",
		client:   &http.Client{Timeout: ttsRequestTimeout},
	}
}

// WithEndpoint points the service at another speech endpoint
func (s *TTSService) WithEndpoint(endpoint string) *TTSService {
	s.endpoint = endpoint
	return s
}

// Filename maps a word onto its clip's file name
func Filename(word string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" || len(w) > maxWordLength {
		return "", ErrInvalidWord
	}
	var b strings.Builder
	for _, r := range w {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '\'':
			b.WriteRune('_')
		default:
			return "", ErrInvalidWord
		}
	}
	return "word_" + b.String() + ".mp3", nil
}

// Clip returns the path of word's clip, generating it on first use
func (s *TTSService) Clip(ctx context.Context, word string) (string, error) {
	filename, err := Filename(word)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.audioDir, filename)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.MkdirAll(s.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}
	if err := s.fetch(ctx, strings.TrimSpace(word), path); err != nil {
		return "", fmt.Errorf("failed to generate audio: %w", err)
	}
	return path, nil
}

// fetch downloads the clip into a temporary file and renames it into place
func (s *TTSService) fetch(ctx context.Context, text, outputPath string) error {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", s.lang)
	params.Set("client", "tw-ob")
	params.Set("textlen", strconv.Itoa(len(text)))

	ctx, cancel := context.WithTimeout(ctx, ttsRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Set user agent (required by Google)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.audioDir, ".clip-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}
	return os.Rename(tmp.Name(), outputPath)
}

// Cached lists the clips already on disk
func (s *TTSService) Cached() ([]string, error) {
	files, err := os.ReadDir(s.audioDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audio directory: %w", err)
	}

	var clips []string
	for _, file := range files {
		if !file.IsDir() && filepath.Ext(file.Name()) == ".mp3" {
			clips = append(clips, file.Name())
		}
	}
	return clips, nil
}
