package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero levels", func(s *Settings) { s.MaxLevel = 0 }},
		{"too many levels", func(s *Settings) { s.MaxLevel = MaxLevelLimit + 1 }},
		{"shop after last level", func(s *Settings) { s.ShopLevels = []int{10} }},
		{"shop before first level", func(s *Settings) { s.ShopLevels = []int{0} }},
		{"negative countdown", func(s *Settings) { s.CountdownDuration = -time.Second }},
		{"long countdown", func(s *Settings) { s.CountdownDuration = time.Minute }},
		{"zero shop", func(s *Settings) { s.ShopDuration = 0 }},
		{"long transition", func(s *Settings) { s.TransitionDuration = time.Minute }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSettingsEqualIgnoresShopOrder(t *testing.T) {
	a := DefaultSettings()
	b := DefaultSettings()
	b.ShopLevels = []int{9, 3, 6, 3}

	assert.True(t, a.Equal(b))

	b.ShopDuration = time.Second
	assert.False(t, a.Equal(b))
}

func TestShouldOpenShop(t *testing.T) {
	s, _ := newTestSession(t, DefaultSettings())

	for level := 1; level <= 10; level++ {
		want := level == 3 || level == 6 || level == 9
		assert.Equal(t, want, s.ShouldOpenShop(level), "level %d", level)
	}
}
