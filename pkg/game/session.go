package game

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/clock"
	"github.com/tecu23/maze-server/pkg/maze"
)

// CreateSessionParams carries everything needed to start a solo run.
type CreateSessionParams struct {
	SessionID    uuid.UUID
	PlayerID     uuid.UUID
	ConnectionID uuid.UUID
	Skin         string
	Settings     Settings
	// Custom marks runs whose settings came from the client.
	Custom bool
}

// Session is the authoritative state of one solo run. All mutation goes
// through its methods; every method first resolves timed phases that have
// run out, so the session never needs a background timer.
//
// A session is meant to be driven by a single owner goroutine. The mutex only
// guards against the occasional read from elsewhere.
type Session struct {
	ID           uuid.UUID
	ConnectionID uuid.UUID
	Custom       bool
	CreatedAt    time.Time

	mu sync.Mutex

	settings   Settings
	shopLevels map[int]bool
	clock      clock.Clock
	timer      *clock.SessionClock
	rng        *rand.Rand

	state State
	phase phase

	currentLevel int
	splits       SplitRecorder
	finished     bool
	totalTime    float64

	level  maze.Level
	player *Player

	saved      bool
	terminated atomic.Bool

	logger *zap.Logger
}

// NewSession creates a session in its countdown state.
func NewSession(
	params CreateSessionParams,
	clk clock.Clock,
	rng *rand.Rand,
	logger *zap.Logger,
) (*Session, error) {
	settings := params.Settings.clone()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.System
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	id := params.SessionID
	if id == uuid.Nil {
		id = uuid.New()
	}
	playerID := params.PlayerID
	if playerID == uuid.Nil {
		playerID = uuid.New()
	}

	shopLevels := make(map[int]bool, len(settings.ShopLevels))
	for _, l := range settings.ShopLevels {
		shopLevels[l] = true
	}

	now := clk.Now()
	s := &Session{
		ID:           id,
		ConnectionID: params.ConnectionID,
		Custom:       params.Custom,
		CreatedAt:    now,
		settings:     settings,
		shopLevels:   shopLevels,
		clock:        clk,
		timer:        clock.NewSessionClock(),
		rng:          rng,
		currentLevel: 1,
		player:       newPlayer(playerID, params.Skin),
		logger: logger.With(
			zap.String("session_id", id.String()),
			zap.String("player_id", playerID.String()),
		),
	}
	s.loadLevel()
	s.enter(StateCountdown, now)
	// A zero countdown starts the run immediately.
	s.advance(now)

	return s, nil
}

func (s *Session) loadLevel() {
	w, h := maze.SizeForLevel(s.currentLevel)
	s.level = maze.Generate(w, h, s.rng)
	s.player.placeAt(s.level.Start)
}

// Settings returns the run settings.
func (s *Session) Settings() Settings {
	return s.settings.clone()
}

// PlayerID returns the runner's identifier.
func (s *Session) PlayerID() uuid.UUID {
	return s.player.ID
}

// Skin returns the runner's skin.
func (s *Session) Skin() string {
	return s.player.Skin
}

// Tick resolves expired phases. It reports whether the state changed.
func (s *Session) Tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.advance(s.clock.Now())
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(s.clock.Now())
	return s.state
}

// AcceptsInput reports whether movement and checkpoint actions are allowed.
// Input is rejected during the countdown, while the shop is open and after
// the run is finished.
func (s *Session) AcceptsInput() bool {
	switch s.State() {
	case StateCountdown, StateShop, StateFinished:
		return false
	default:
		return true
	}
}

// ShouldOpenShop reports whether completing level opens the shop.
func (s *Session) ShouldOpenShop(level int) bool {
	return s.shopLevels[level]
}

// RunTotalTime returns the unpaused run time in seconds. Once the run is
// finished it returns the frozen total.
func (s *Session) RunTotalTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.runTotalTimeAt(now)
}

func (s *Session) runTotalTimeAt(now time.Time) float64 {
	if s.finished {
		return s.totalTime
	}
	return s.timer.RunTotalTime(now)
}

// CurrentLevelTime returns the time spent on the current level in seconds,
// or exactly zero while the level clock is paused or the run is over.
func (s *Session) CurrentLevelTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.currentLevelTimeAt(now)
}

func (s *Session) currentLevelTimeAt(now time.Time) float64 {
	if s.finished {
		return 0
	}
	return s.timer.CurrentLevelTime(now)
}

// OpenShop opens the shop and pauses the clock. It is a no-op unless the
// session is playing.
func (s *Session) OpenShop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.openShopAt(now)
}

// CloseShop closes an open shop, resumes the clock and restarts the level
// clock. It is a no-op when the shop is not open.
func (s *Session) CloseShop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.closeShopAt(now)
}

// StartTransition opens the between-level transition window.
func (s *Session) StartTransition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.startTransitionAt(now)
}

// EndTransition closes the transition window early.
func (s *Session) EndTransition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.endTransitionAt(now)
}

// FinishLevel records the current level's split and moves on: to the shop
// or a transition for the next level, or to the finished state after the
// last one. It is a no-op unless the session is playing, so a duplicated
// completion cannot append a second split.
func (s *Session) FinishLevel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.finishLevelAt(now)
}

func (s *Session) finishLevelAt(now time.Time) bool {
	if s.state != StatePlaying {
		return false
	}

	// Read before any mutation.
	split := s.timer.CurrentLevelTime(now)
	completed := s.currentLevel

	s.splits.Record(split)
	s.currentLevel++
	s.player.Gems += GemsPerLevel

	if s.currentLevel > s.settings.MaxLevel {
		s.finished = true
		s.totalTime = s.timer.RunTotalTime(now)
		s.enter(StateFinished, now)
		s.logger.Info("run finished",
			zap.Float64("total_time", s.totalTime),
			zap.Int("levels", s.splits.Len()),
		)
		return true
	}

	s.timer.RestartLevel(now)
	s.loadLevel()
	s.logger.Debug("level finished",
		zap.Int("level", completed),
		zap.Float64("split", split),
	)

	if s.ShouldOpenShop(completed) {
		s.openShopAt(now)
	} else {
		s.startTransitionAt(now)
	}
	return true
}

// MoveResult describes the outcome of one movement or checkpoint action.
type MoveResult struct {
	Moved         bool
	LevelFinished bool
}

// Move steps the player one cell in dir. Reaching the coin finishes the
// level.
func (s *Session) Move(dir maze.Direction) MoveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	if !s.inputAllowed() || dir == maze.None {
		return MoveResult{}
	}
	s.player.Facing = dir
	return s.stepAt(now, dir, 1)
}

// CheckpointAction is one request from the checkpoint message.
type CheckpointAction int

// Checkpoint actions.
const (
	ActionSetCheckpoint CheckpointAction = iota + 1
	ActionTeleportCheckpoint
	ActionDash
)

// UseAbility performs a checkpoint or dash action. Actions need the matching
// shop feature and are ignored otherwise.
func (s *Session) UseAbility(action CheckpointAction) MoveResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	if !s.inputAllowed() {
		return MoveResult{}
	}

	switch action {
	case ActionSetCheckpoint:
		if !s.player.Has(ItemCheckpoint) {
			return MoveResult{}
		}
		cp := s.player.Position
		s.player.Checkpoint = &cp
		return MoveResult{}
	case ActionTeleportCheckpoint:
		if !s.player.Has(ItemCheckpoint) || s.player.Checkpoint == nil {
			return MoveResult{}
		}
		moved := s.player.Position != *s.player.Checkpoint
		s.player.Position = *s.player.Checkpoint
		return MoveResult{Moved: moved, LevelFinished: s.collectAt(now)}
	case ActionDash:
		if !s.player.Has(ItemDash) {
			return MoveResult{}
		}
		return s.stepAt(now, s.player.Facing, DashDistance)
	}
	return MoveResult{}
}

func (s *Session) inputAllowed() bool {
	return s.state == StatePlaying || s.state == StateTransition
}

func (s *Session) stepAt(now time.Time, dir maze.Direction, cells int) MoveResult {
	var moved int
	// Walk cell by cell so a dash picks up a coin it passes over.
	for i := 0; i < cells; i++ {
		next, n := s.level.Grid.Step(s.player.Position, dir, 1)
		if n == 0 {
			break
		}
		s.player.Position = next
		moved++
		if s.coinReached() {
			break
		}
	}
	return MoveResult{Moved: moved > 0, LevelFinished: s.collectAt(now)}
}

func (s *Session) coinReached() bool {
	radius := 0
	if s.player.Has(ItemMagnet) {
		radius = 1
	}
	return maze.Within(s.player.Position, s.level.Coin, radius)
}

func (s *Session) collectAt(now time.Time) bool {
	if !s.coinReached() {
		return false
	}
	// A coin reached during the transition window still counts: the level
	// clock is already running.
	if s.state == StateTransition {
		s.endTransitionAt(now)
	}
	return s.finishLevelAt(now)
}

// Purchase buys a shop item for the player. Purchases are only accepted
// while the shop is open.
func (s *Session) Purchase(itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(s.clock.Now())
	if s.state != StateShop {
		return ErrShopClosed
	}
	if err := s.player.purchase(itemID); err != nil {
		return err
	}
	s.logger.Debug("item purchased", zap.String("item", itemID), zap.Int("gems_left", s.player.Gems))
	return nil
}

// Finished reports whether the run is complete.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Result returns the frozen total and the split times of a finished run.
func (s *Session) Result() (totalTime float64, splits []float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finished {
		return 0, nil, fmt.Errorf("session %s: run not finished", s.ID)
	}
	return s.totalTime, s.splits.Times(), nil
}

// MarkSaved records that the run has been persisted. It reports false if it
// already was.
func (s *Session) MarkSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved {
		return false
	}
	s.saved = true
	return true
}

// Saved reports whether the run has been persisted.
func (s *Session) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// Terminate marks the session as destroyed. Pending asynchronous results for
// a terminated session must be discarded.
func (s *Session) Terminate() {
	if s.terminated.CompareAndSwap(false, true) {
		s.logger.Debug("session terminated")
	}
}

// Terminated reports whether Terminate has been called.
func (s *Session) Terminated() bool {
	return s.terminated.Load()
}

// Snapshot returns the read-only view pushed to the client.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	s.advance(now)
	return s.snapshotAt(now)
}
