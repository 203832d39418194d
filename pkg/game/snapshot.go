package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/tecu23/maze-server/pkg/maze"
)

// PhaseSnapshot describes one timed window. StartTime is nil while inactive.
type PhaseSnapshot struct {
	Active    bool
	Duration  time.Duration
	StartTime *time.Time
	Elapsed   time.Duration
}

// PlayerSnapshot is the read-only view of the runner.
type PlayerSnapshot struct {
	ID         uuid.UUID
	Skin       string
	Position   maze.Point
	Gems       int
	Features   []string
	Checkpoint *maze.Point
}

// ShopOffer is a catalog item as seen by this player.
type ShopOffer struct {
	ShopItem
	Owned      bool
	Affordable bool
}

// Snapshot is the read-only state of a session at one instant.
type Snapshot struct {
	SessionID        uuid.UUID
	State            State
	TakenAt          time.Time
	Player           PlayerSnapshot
	CurrentLevel     int
	MaxLevel         int
	IsGameFinished   bool
	RunTotalTime     float64
	CurrentLevelTime float64
	SplitTimes       []float64
	Countdown        PhaseSnapshot
	Shop             PhaseSnapshot
	ShopItems        []ShopOffer
	Transition       PhaseSnapshot
	Map              maze.Grid
	Coin             maze.Point
}

func (s *Session) phaseSnapshot(state State, duration time.Duration, now time.Time) PhaseSnapshot {
	if s.state != state {
		return PhaseSnapshot{Duration: duration}
	}
	start := s.phase.start
	return PhaseSnapshot{
		Active:    true,
		Duration:  s.phase.duration,
		StartTime: &start,
		Elapsed:   s.phase.elapsed(now),
	}
}

func (s *Session) snapshotAt(now time.Time) Snapshot {
	features := make([]string, 0, len(s.player.Features))
	for _, item := range Catalog {
		if s.player.Has(item.ID) {
			features = append(features, item.ID)
		}
	}

	var checkpoint *maze.Point
	if s.player.Checkpoint != nil {
		cp := *s.player.Checkpoint
		checkpoint = &cp
	}

	offers := make([]ShopOffer, 0, len(Catalog))
	for _, item := range Catalog {
		owned := s.player.Has(item.ID)
		offers = append(offers, ShopOffer{
			ShopItem:   item,
			Owned:      owned,
			Affordable: !owned && s.player.Gems >= item.Price,
		})
	}

	grid := make(maze.Grid, len(s.level.Grid))
	for y, row := range s.level.Grid {
		grid[y] = append([]int(nil), row...)
	}

	return Snapshot{
		SessionID: s.ID,
		State:     s.state,
		TakenAt:   now,
		Player: PlayerSnapshot{
			ID:         s.player.ID,
			Skin:       s.player.Skin,
			Position:   s.player.Position,
			Gems:       s.player.Gems,
			Features:   features,
			Checkpoint: checkpoint,
		},
		CurrentLevel:     s.currentLevel,
		MaxLevel:         s.settings.MaxLevel,
		IsGameFinished:   s.finished,
		RunTotalTime:     s.runTotalTimeAt(now),
		CurrentLevelTime: s.currentLevelTimeAt(now),
		SplitTimes:       s.splits.Times(),
		Countdown:        s.phaseSnapshot(StateCountdown, s.settings.CountdownDuration, now),
		Shop:             s.phaseSnapshot(StateShop, s.settings.ShopDuration, now),
		ShopItems:        offers,
		Transition:       s.phaseSnapshot(StateTransition, s.settings.TransitionDuration, now),
		Map:              grid,
		Coin:             s.level.Coin,
	}
}
