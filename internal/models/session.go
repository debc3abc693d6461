package models

import "time"

// ActivityKind is the type of exercise an activity records
type ActivityKind string

const (
	ActivityPronunciation ActivityKind = "pronunciation"
	ActivityVocabulary    ActivityKind = "vocabulary"
	ActivityListening     ActivityKind = "listening"
)

// Valid reports whether k is one of the known activity kinds
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityPronunciation, ActivityVocabulary, ActivityListening:
		return true
	}
	return false
}

// Activity is a single exercise inside a session record
type Activity struct {
	ID        string       `json:"id"`
	Type      ActivityKind `json:"type"`
	Word      string       `json:"word"`
	Correct   bool         `json:"correct"`
	Attempts  int          `json:"attempts"`
	Timestamp time.Time    `json:"timestamp"`
}

// SessionRecord summarizes one play session of a child
type SessionRecord struct {
	ID         string     `json:"id"`
	ChildID    string     `json:"childId"`
	Date       string     `json:"date"`
	Score      int        `json:"score"`
	Level      int        `json:"level"`
	Duration   int        `json:"duration"` // seconds
	Completed  bool       `json:"completed"`
	Activities []Activity `json:"activities"`
}

// DurationMinutes returns the whole minutes of the session
func (s SessionRecord) DurationMinutes() int {
	return s.Duration / 60
}

// Day parses Date as a calendar day; the zero time is returned when it
// cannot be parsed
func (s SessionRecord) Day() time.Time {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SessionDraft is the payload for recording a new session
type SessionDraft struct {
	ChildID    string     `json:"childId"`
	Date       string     `json:"date"`
	Score      int        `json:"score"`
	Level      int        `json:"level"`
	Duration   int        `json:"duration"`
	Completed  bool       `json:"completed"`
	Activities []Activity `json:"activities"`
}

// SessionPatch is a partial update of a session record
type SessionPatch struct {
	Score      *int       `json:"score,omitempty"`
	Level      *int       `json:"level,omitempty"`
	Duration   *int       `json:"duration,omitempty"`
	Completed  *bool      `json:"completed,omitempty"`
	Activities []Activity `json:"activities,omitempty"`
}

// HistorySummary is the client-side aggregate shown on the history screen
type HistorySummary struct {
	Count     int
	MeanScore float64
	Completed int
	TotalTime int // seconds
}

// Summarize computes the aggregate over a fetched list of sessions
func Summarize(sessions []SessionRecord) HistorySummary {
	summary := HistorySummary{Count: len(sessions)}
	if len(sessions) == 0 {
		return summary
	}
	total := 0
	for _, s := range sessions {
		total += s.Score
		summary.TotalTime += s.Duration
		if s.Completed {
			summary.Completed++
		}
	}
	summary.MeanScore = float64(total) / float64(len(sessions))
	return summary
}
