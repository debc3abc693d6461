package models

// Bounds for a child's ephemeral lives and editable age
const (
	MaxLives = 3
	MinAge   = 3
	MaxAge   = 17
)

// ChildProfile represents a child learner managed by the signed-in parent
type ChildProfile struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Age            int    `json:"age"`
	NativeLanguage string `json:"nativeLanguage"`
	Avatar         string `json:"avatar"`
	UserID         string `json:"userId"`
	Level          int    `json:"level"`
	TotalScore     int    `json:"totalScore"`
	Lives          int    `json:"lives"`
}

// Normalize clamps the stored counters into their valid ranges
func (c *ChildProfile) Normalize() {
	c.Lives = ClampLives(c.Lives)
	if c.Level < 1 {
		c.Level = 1
	}
	if c.TotalScore < 0 {
		c.TotalScore = 0
	}
}

// ChildDraft is the payload for creating a child profile
type ChildDraft struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	NativeLanguage string `json:"nativeLanguage"`
	Avatar         string `json:"avatar"`
	Level          int    `json:"level"`
}

// ChildPatch is a partial update; nil fields are left untouched
type ChildPatch struct {
	Name           *string `json:"name,omitempty"`
	Age            *int    `json:"age,omitempty"`
	NativeLanguage *string `json:"nativeLanguage,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
	Level          *int    `json:"level,omitempty"`
	TotalScore     *int    `json:"totalScore,omitempty"`
	Lives          *int    `json:"lives,omitempty"`
}

// PatchFromDraft builds a patch that overwrites every editable field
func PatchFromDraft(d ChildDraft) ChildPatch {
	return ChildPatch{
		Name:           &d.Name,
		Age:            &d.Age,
		NativeLanguage: &d.NativeLanguage,
		Avatar:         &d.Avatar,
		Level:          &d.Level,
	}
}

// ClampLives keeps a lives counter within [0, MaxLives]
func ClampLives(lives int) int {
	if lives < 0 {
		return 0
	}
	if lives > MaxLives {
		return MaxLives
	}
	return lives
}

// Avatars are the glyphs a parent can pick for a child
var Avatars = []string{"👧", "👦", "🧒", "👶", "🧑", "👩", "👨", "🦄", "🐱", "🐶", "🐻", "🦊"}

// DefaultAvatar is preselected on the create form
const DefaultAvatar = "👧"
