package models

// PlayState is the device's ephemeral play state
type PlayState struct {
	SessionID     string        `json:"sessionId,omitempty"`
	CurrentLevel  int           `json:"currentLevel"`
	Score         int           `json:"score"`
	Lives         int           `json:"lives"`
	IsPlaying     bool          `json:"isPlaying"`
	SelectedChild *ChildProfile `json:"selectedChild,omitempty"`
}

// InitialPlayState returns the state the device starts with
func InitialPlayState() PlayState {
	return PlayState{
		CurrentLevel: 1,
		Lives:        MaxLives,
	}
}
