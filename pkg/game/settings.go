package game

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// ModeSolo is the timed single-player speedrun mode.
const ModeSolo = "solo"

var (
	// ErrUnknownMode is returned when a session is requested for a mode the
	// server does not run.
	ErrUnknownMode = errors.New("unknown game mode")
	// ErrInvalidConfig wraps every Settings validation failure.
	ErrInvalidConfig = errors.New("invalid game configuration")
)

// Bounds accepted for custom configurations.
const (
	MaxLevelLimit         = 50
	MaxCountdownDuration  = 10 * time.Second
	MaxShopDuration       = 5 * time.Minute
	MaxTransitionDuration = 10 * time.Second
)

// Settings fixes the shape of one solo run. It is immutable for the lifetime
// of a session.
type Settings struct {
	MaxLevel           int
	ShopLevels         []int
	CountdownDuration  time.Duration
	ShopDuration       time.Duration
	TransitionDuration time.Duration
}

// DefaultSettings returns the standard ten-level run.
func DefaultSettings() Settings {
	return Settings{
		MaxLevel:           10,
		ShopLevels:         []int{3, 6, 9},
		CountdownDuration:  3 * time.Second,
		ShopDuration:       30 * time.Second,
		TransitionDuration: 1500 * time.Millisecond,
	}
}

// Validate rejects settings a session cannot run with.
func (s Settings) Validate() error {
	if s.MaxLevel < 1 || s.MaxLevel > MaxLevelLimit {
		return fmt.Errorf("%w: max level %d outside 1..%d", ErrInvalidConfig, s.MaxLevel, MaxLevelLimit)
	}
	for _, l := range s.ShopLevels {
		// A shop after the final level would never close into a next level.
		if l < 1 || l >= s.MaxLevel {
			return fmt.Errorf("%w: shop level %d outside 1..%d", ErrInvalidConfig, l, s.MaxLevel-1)
		}
	}
	if s.CountdownDuration < 0 || s.CountdownDuration > MaxCountdownDuration {
		return fmt.Errorf("%w: countdown %s outside 0..%s", ErrInvalidConfig, s.CountdownDuration, MaxCountdownDuration)
	}
	if s.ShopDuration <= 0 || s.ShopDuration > MaxShopDuration {
		return fmt.Errorf("%w: shop duration %s outside (0, %s]", ErrInvalidConfig, s.ShopDuration, MaxShopDuration)
	}
	if s.TransitionDuration < 0 || s.TransitionDuration > MaxTransitionDuration {
		return fmt.Errorf("%w: transition %s outside 0..%s", ErrInvalidConfig, s.TransitionDuration, MaxTransitionDuration)
	}
	return nil
}

// clone returns a copy with a sorted, de-duplicated shop level list.
func (s Settings) clone() Settings {
	levels := make([]int, 0, len(s.ShopLevels))
	seen := make(map[int]bool, len(s.ShopLevels))
	for _, l := range s.ShopLevels {
		if !seen[l] {
			seen[l] = true
			levels = append(levels, l)
		}
	}
	sort.Ints(levels)
	s.ShopLevels = levels
	return s
}

// Equal reports whether two settings describe the same run.
func (s Settings) Equal(o Settings) bool {
	a, b := s.clone(), o.clone()
	if a.MaxLevel != b.MaxLevel ||
		a.CountdownDuration != b.CountdownDuration ||
		a.ShopDuration != b.ShopDuration ||
		a.TransitionDuration != b.TransitionDuration ||
		len(a.ShopLevels) != len(b.ShopLevels) {
		return false
	}
	for i := range a.ShopLevels {
		if a.ShopLevels[i] != b.ShopLevels[i] {
			return false
		}
	}
	return true
}
