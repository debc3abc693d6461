package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lingopal/internal/models"
)

func emma() models.ChildProfile {
	return models.ChildProfile{ID: "child_1", Name: "Emma", Age: 6, NativeLanguage: "Spanish", Level: 2, TotalScore: 150, Lives: 3}
}

func TestInitialState(t *testing.T) {
	s := NewStore()
	assert.Equal(t, models.InitialPlayState(), s.State())
	assert.Zero(t, s.SelectionVersion())
	assert.Nil(t, s.SelectedChild())
}

func TestLivesNeverNegative(t *testing.T) {
	s := NewStore()
	for i := 0; i < 5; i++ {
		state := s.LoseLife()
		assert.GreaterOrEqual(t, state.Lives, 0)
	}
	assert.Equal(t, 0, s.State().Lives)
}

func TestAddScore(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int
		want   int
	}{
		{name: "positive", deltas: []int{10, 5}, want: 15},
		{name: "negative allowed", deltas: []int{10, -25}, want: -15},
		{name: "zero", deltas: []int{0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			for _, d := range tt.deltas {
				s.AddScore(d)
			}
			assert.Equal(t, tt.want, s.State().Score)
		})
	}
}

func TestAdvanceLevel(t *testing.T) {
	s := NewStore()
	s.AddScore(40)
	s.LoseLife()
	s.LoseLife()

	state := s.AdvanceLevel()
	assert.Equal(t, 2, state.CurrentLevel)
	assert.Equal(t, models.MaxLives, state.Lives)
	assert.Equal(t, 40, state.Score)
}

func TestSessionLifecycle(t *testing.T) {
	s := NewStore()
	ids := []string{"sess-a", "sess-b"}
	s.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}

	s.AddScore(9)
	state := s.BeginSession("child_1")
	assert.Equal(t, "sess-a", state.SessionID)
	assert.True(t, state.IsPlaying)
	assert.Zero(t, state.Score)
	assert.Equal(t, models.MaxLives, state.Lives)

	s.AddScore(20)
	s.LoseLife()
	state = s.EndSession()
	assert.Empty(t, state.SessionID)
	assert.False(t, state.IsPlaying)
	assert.Equal(t, 20, state.Score, "counters kept after end")
	assert.Equal(t, 2, state.Lives)

	assert.Equal(t, "sess-b", s.BeginSession("child_1").SessionID)
}

func TestBeginSessionUsesUUID(t *testing.T) {
	a := NewStore().BeginSession("child_1").SessionID
	b := NewStore().BeginSession("child_1").SessionID
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestSelectChildResets(t *testing.T) {
	s := NewStore()
	s.BeginSession("child_2")
	s.AddScore(70)
	s.LoseLife()

	state := s.SelectChild(emma())
	require.NotNil(t, state.SelectedChild)
	assert.Equal(t, "child_1", state.SelectedChild.ID)
	assert.Equal(t, 2, state.CurrentLevel)
	assert.Zero(t, state.Score)
	assert.Equal(t, models.MaxLives, state.Lives)
	assert.True(t, state.IsPlaying, "session flag untouched")
	assert.Equal(t, uint64(1), s.SelectionVersion())

	s.SelectChild(emma())
	assert.Equal(t, uint64(2), s.SelectionVersion(), "reselecting bumps the version")
}

func TestStateIsACopy(t *testing.T) {
	s := NewStore()
	s.SelectChild(emma())

	state := s.State()
	state.SelectedChild.Name = "Changed"
	state.Score = 999
	assert.Equal(t, "Emma", s.State().SelectedChild.Name)
	assert.Zero(t, s.State().Score)
}

func TestConcurrentMutators(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); s.AddScore(1) }()
		go func() { defer wg.Done(); s.LoseLife() }()
	}
	wg.Wait()

	state := s.State()
	assert.Equal(t, 50, state.Score)
	assert.Equal(t, 0, state.Lives)
}

func TestMutatorsReturnTheirOwnResult(t *testing.T) {
	s := NewStore()
	const n = 200

	scores := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scores <- s.AddScore(1).Score
		}()
	}
	wg.Wait()
	close(scores)

	seen := make(map[int]bool, n)
	for score := range scores {
		assert.False(t, seen[score], "score %d returned twice", score)
		seen[score] = true
	}
	assert.Len(t, seen, n)
	assert.Equal(t, n, s.State().Score)
}
