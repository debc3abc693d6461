package api

import (
	"time"

	"lingopal/internal/models"
)

// SampleChildren returns the fixed profiles served while the backend is
// unavailable
func SampleChildren() []models.ChildProfile {
	return []models.ChildProfile{
		{
			ID:             "child_1",
			Name:           "Emma",
			Age:            6,
			NativeLanguage: "Spanish",
			Avatar:         "👧",
			UserID:         "user_1",
			Level:          2,
			TotalScore:     150,
			Lives:          3,
		},
		{
			ID:             "child_2",
			Name:           "Lucas",
			Age:            8,
			NativeLanguage: "French",
			Avatar:         "👦",
			UserID:         "user_1",
			Level:          3,
			TotalScore:     280,
			Lives:          3,
		},
	}
}

// SampleSessions returns the fixed history for any child id
func SampleSessions(childID string) []models.SessionRecord {
	return []models.SessionRecord{
		{
			ID:        "session_1",
			ChildID:   childID,
			Date:      "2024-01-15",
			Score:     85,
			Level:     2,
			Duration:  1200,
			Completed: true,
			Activities: []models.Activity{
				{
					ID:        "activity_1",
					Type:      models.ActivityPronunciation,
					Word:      "hello",
					Correct:   true,
					Attempts:  1,
					Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
				},
				{
					ID:        "activity_2",
					Type:      models.ActivityVocabulary,
					Word:      "cat",
					Correct:   true,
					Attempts:  2,
					Timestamp: time.Date(2024, 1, 15, 10, 5, 0, 0, time.UTC),
				},
			},
		},
		{
			ID:         "session_2",
			ChildID:    childID,
			Date:       "2024-01-14",
			Score:      72,
			Level:      2,
			Duration:   900,
			Completed:  true,
			Activities: []models.Activity{},
		},
		{
			ID:         "session_3",
			ChildID:    childID,
			Date:       "2024-01-13",
			Score:      95,
			Level:      1,
			Duration:   1500,
			Completed:  true,
			Activities: []models.Activity{},
		},
	}
}
