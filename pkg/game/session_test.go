package game

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tecu23/maze-server/pkg/clock"
	"github.com/tecu23/maze-server/pkg/maze"
	"github.com/tecu23/maze-server/pkg/validation"
)

var epoch = time.Date(2026, time.March, 14, 9, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, settings Settings) (*Session, *clock.Manual) {
	t.Helper()

	clk := clock.NewManual(epoch)
	s, err := NewSession(
		CreateSessionParams{Skin: "#4a9eff", Settings: settings},
		clk,
		rand.New(rand.NewPCG(42, 7)),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return s, clk
}

func noCountdown(shopLevels ...int) Settings {
	s := DefaultSettings()
	s.CountdownDuration = 0
	s.ShopLevels = shopLevels
	return s
}

// pathTo returns the moves leading from one cell to another.
func pathTo(t *testing.T, g maze.Grid, from, to maze.Point) []maze.Direction {
	t.Helper()

	prev := map[maze.Point]maze.Point{from: from}
	how := map[maze.Point]maze.Direction{}
	queue := []maze.Point{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == to {
			break
		}
		for _, d := range []maze.Direction{maze.Up, maze.Down, maze.Left, maze.Right} {
			next := d.Apply(cur)
			if _, seen := prev[next]; seen || !g.Open(next) {
				continue
			}
			prev[next] = cur
			how[next] = d
			queue = append(queue, next)
		}
	}
	_, ok := prev[to]
	require.True(t, ok, "no path from %v to %v", from, to)

	var dirs []maze.Direction
	for cur := to; cur != from; cur = prev[cur] {
		dirs = append([]maze.Direction{how[cur]}, dirs...)
	}
	return dirs
}

func TestCountdownGatesInputAndStartsClockAtDeadline(t *testing.T) {
	s, clk := newTestSession(t, DefaultSettings())

	assert.Equal(t, StateCountdown, s.State())
	assert.False(t, s.AcceptsInput())
	assert.Equal(t, MoveResult{}, s.Move(maze.Right))
	assert.False(t, s.FinishLevel())
	assert.Equal(t, 0.0, s.RunTotalTime())

	clk.Advance(2999 * time.Millisecond)
	assert.Equal(t, StateCountdown, s.State())

	clk.Advance(1001 * time.Millisecond)
	assert.Equal(t, StatePlaying, s.State())
	assert.True(t, s.AcceptsInput())
	assert.Equal(t, 1.0, s.RunTotalTime())
	assert.Equal(t, 1.0, s.CurrentLevelTime())
}

func TestShopTimingScenario(t *testing.T) {
	s, clk := newTestSession(t, noCountdown(1))

	clk.Advance(5 * time.Second)
	require.True(t, s.FinishLevel())
	assert.Equal(t, StateShop, s.State())
	assert.Equal(t, []float64{5.0}, s.Snapshot().SplitTimes)
	assert.Equal(t, 0.0, s.CurrentLevelTime())
	assert.False(t, s.AcceptsInput())

	clk.Advance(15 * time.Second)
	require.True(t, s.CloseShop())
	assert.Equal(t, StatePlaying, s.State())

	clk.Advance(5 * time.Second)
	assert.Equal(t, 5.0, s.CurrentLevelTime())
	assert.Equal(t, 10.0, s.RunTotalTime())
}

func TestOpenShopTwiceIsSameAsOnce(t *testing.T) {
	s, clk := newTestSession(t, noCountdown())

	clk.Advance(2 * time.Second)
	require.True(t, s.OpenShop())
	clk.Advance(3 * time.Second)
	assert.False(t, s.OpenShop())
	clk.Advance(1 * time.Second)
	require.True(t, s.CloseShop())
	assert.False(t, s.CloseShop())

	// Four seconds of shop, paused once.
	assert.Equal(t, 2.0, s.RunTotalTime())
	assert.Equal(t, 0.0, s.CurrentLevelTime())
}

func TestRunTotalTimeDoesNotMoveDuringShop(t *testing.T) {
	s, clk := newTestSession(t, noCountdown())

	clk.Advance(4 * time.Second)
	require.True(t, s.OpenShop())
	for i := 0; i < 10; i++ {
		clk.Advance(time.Second)
		assert.Equal(t, 4.0, s.RunTotalTime())
	}
}

func TestSplitInvariant(t *testing.T) {
	settings := noCountdown(2)
	settings.MaxLevel = 4
	s, clk := newTestSession(t, settings)

	for k := 1; k <= settings.MaxLevel; k++ {
		clk.Advance(2 * time.Second)
		require.True(t, s.FinishLevel(), "level %d", k)

		snap := s.Snapshot()
		assert.Len(t, snap.SplitTimes, k)
		assert.Equal(t, k == settings.MaxLevel, snap.IsGameFinished)
		if !snap.IsGameFinished {
			assert.Equal(t, k+1, snap.CurrentLevel)
		}

		// Leave whichever interstitial opened.
		s.CloseShop()
		s.EndTransition()
	}

	assert.Equal(t, settings.MaxLevel+1, s.Snapshot().CurrentLevel)
	assert.False(t, s.FinishLevel())
	assert.Len(t, s.Snapshot().SplitTimes, settings.MaxLevel)
}

func TestDuplicateFinishLevelDoesNotAppend(t *testing.T) {
	s, clk := newTestSession(t, noCountdown())

	clk.Advance(3 * time.Second)
	require.True(t, s.FinishLevel())
	assert.False(t, s.FinishLevel())
	assert.Equal(t, StateTransition, s.State())
	assert.Len(t, s.Snapshot().SplitTimes, 1)
}

func TestTransitionDoesNotPauseAndEndsAtDeadline(t *testing.T) {
	s, clk := newTestSession(t, noCountdown())

	clk.Advance(3 * time.Second)
	require.True(t, s.FinishLevel())
	assert.Equal(t, StateTransition, s.State())
	assert.True(t, s.AcceptsInput())

	clk.Advance(2 * time.Second)
	assert.Equal(t, StatePlaying, s.State())
	assert.Equal(t, 2.0, s.CurrentLevelTime())
	assert.Equal(t, 5.0, s.RunTotalTime())
}

func TestShopClosesItselfAtDeadline(t *testing.T) {
	s, clk := newTestSession(t, noCountdown(1))

	clk.Advance(4 * time.Second)
	require.True(t, s.FinishLevel())

	clk.Advance(45 * time.Second)
	assert.True(t, s.Tick())
	assert.Equal(t, StatePlaying, s.State())
	// Resumed at the 30s deadline, not at the 45s poll.
	assert.Equal(t, 15.0, s.CurrentLevelTime())
	assert.Equal(t, 19.0, s.RunTotalTime())
}

func TestFinishedRunPassesValidation(t *testing.T) {
	s, clk := newTestSession(t, DefaultSettings())
	clk.Advance(3 * time.Second)

	for level := 1; level <= 10; level++ {
		clk.Advance(time.Duration(2000+level*250) * time.Millisecond)
		require.True(t, s.FinishLevel(), "level %d", level)
		if s.State() == StateShop {
			clk.Advance(10 * time.Second)
			require.True(t, s.CloseShop())
		} else {
			s.EndTransition()
		}
	}

	require.True(t, s.Finished())
	total, splits, err := s.Result()
	require.NoError(t, err)
	assert.Len(t, splits, 10)
	assert.NoError(t, validation.Validate(splits, 10, total))

	// Frozen after the finish.
	clk.Advance(time.Minute)
	assert.Equal(t, total, s.RunTotalTime())
	assert.Equal(t, 0.0, s.CurrentLevelTime())
	assert.Equal(t, StateFinished, s.State())
}

func TestResultBeforeFinishFails(t *testing.T) {
	s, _ := newTestSession(t, noCountdown())
	_, _, err := s.Result()
	assert.Error(t, err)
}

func TestPhasesAreMutuallyExclusive(t *testing.T) {
	settings := noCountdown(1, 2, 4)
	settings.CountdownDuration = time.Second
	settings.MaxLevel = 6
	s, clk := newTestSession(t, settings)

	rng := rand.New(rand.NewPCG(3, 9))
	ops := []func() bool{s.OpenShop, s.CloseShop, s.StartTransition, s.EndTransition, s.FinishLevel, s.Tick}
	for i := 0; i < 400; i++ {
		clk.Advance(time.Duration(rng.IntN(4000)) * time.Millisecond)
		ops[rng.IntN(len(ops))]()

		snap := s.Snapshot()
		active := 0
		for _, p := range []PhaseSnapshot{snap.Countdown, snap.Shop, snap.Transition} {
			if p.Active {
				active++
				require.NotNil(t, p.StartTime)
			} else {
				require.Nil(t, p.StartTime)
			}
		}
		require.LessOrEqual(t, active, 1)
		require.Equal(t, snap.IsGameFinished, snap.State == StateFinished)
		if !snap.IsGameFinished {
			require.Len(t, snap.SplitTimes, snap.CurrentLevel-1)
		}
	}
}

func TestWalkingToCoinFinishesLevel(t *testing.T) {
	s, clk := newTestSession(t, noCountdown())

	snap := s.Snapshot()
	moves := pathTo(t, snap.Map, snap.Player.Position, snap.Coin)
	require.NotEmpty(t, moves)

	for i, d := range moves {
		clk.Advance(100 * time.Millisecond)
		res := s.Move(d)
		require.True(t, res.Moved, "move %d", i)
		require.Equal(t, i == len(moves)-1, res.LevelFinished, "move %d", i)
	}

	after := s.Snapshot()
	assert.Equal(t, 2, after.CurrentLevel)
	assert.Equal(t, []float64{float64(len(moves)) / 10}, after.SplitTimes)
	assert.Equal(t, 1, after.Player.Gems)
	assert.Equal(t, maze.Point{X: 1, Y: 1}, after.Player.Position)
}

func TestMoveIntoWallDoesNothing(t *testing.T) {
	s, _ := newTestSession(t, noCountdown())

	// (1,1) always has the outer wall above and to the left.
	assert.False(t, s.Move(maze.Up).Moved)
	assert.False(t, s.Move(maze.Left).Moved)
	assert.False(t, s.Move(maze.None).Moved)
}

func TestPurchaseRules(t *testing.T) {
	s, clk := newTestSession(t, noCountdown(2))

	assert.ErrorIs(t, s.Purchase(ItemDash), ErrShopClosed)

	clk.Advance(time.Second)
	require.True(t, s.FinishLevel())
	s.EndTransition()
	clk.Advance(time.Second)
	require.True(t, s.FinishLevel())
	require.Equal(t, StateShop, s.State())

	assert.ErrorIs(t, s.Purchase("jetpack"), ErrUnknownItem)
	assert.ErrorIs(t, s.Purchase(ItemMagnet), ErrInsufficientGems)
	require.NoError(t, s.Purchase(ItemDash))
	assert.ErrorIs(t, s.Purchase(ItemDash), ErrAlreadyOwned)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.Player.Gems)
	assert.Equal(t, []string{ItemDash}, snap.Player.Features)
	for _, offer := range snap.ShopItems {
		assert.Equal(t, offer.ID == ItemDash, offer.Owned, offer.ID)
		assert.False(t, offer.Affordable, offer.ID)
	}
}

func TestAbilitiesNeedFeatures(t *testing.T) {
	s, _ := newTestSession(t, noCountdown())

	assert.Equal(t, MoveResult{}, s.UseAbility(ActionDash))
	assert.Equal(t, MoveResult{}, s.UseAbility(ActionSetCheckpoint))
	assert.Equal(t, MoveResult{}, s.UseAbility(ActionTeleportCheckpoint))
	assert.Nil(t, s.Snapshot().Player.Checkpoint)
}

func TestCheckpointAndDash(t *testing.T) {
	s, clk := newTestSession(t, noCountdown(2))
	s.player.Gems = 10

	clk.Advance(time.Second)
	require.True(t, s.OpenShop())
	require.NoError(t, s.Purchase(ItemCheckpoint))
	require.NoError(t, s.Purchase(ItemDash))
	require.True(t, s.CloseShop())

	start := s.Snapshot().Player.Position
	s.UseAbility(ActionSetCheckpoint)
	require.NotNil(t, s.Snapshot().Player.Checkpoint)

	// Move somewhere, then come back.
	moved := false
	for _, d := range []maze.Direction{maze.Right, maze.Down} {
		if s.Move(d).Moved {
			moved = true
			break
		}
	}
	require.True(t, moved)
	assert.NotEqual(t, start, s.Snapshot().Player.Position)

	res := s.UseAbility(ActionTeleportCheckpoint)
	assert.True(t, res.Moved)
	assert.Equal(t, start, s.Snapshot().Player.Position)

	// Dash follows the last facing direction until a wall or four cells.
	before := s.Snapshot().Player.Position
	res = s.UseAbility(ActionDash)
	after := s.Snapshot().Player.Position
	if res.Moved {
		assert.NotEqual(t, before, after)
	}
	assert.LessOrEqual(t, abs(after.X-before.X)+abs(after.Y-before.Y), DashDistance)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func TestSnapshotPhases(t *testing.T) {
	s, clk := newTestSession(t, DefaultSettings())
	clk.Advance(1200 * time.Millisecond)

	snap := s.Snapshot()
	assert.Equal(t, StateCountdown, snap.State)
	assert.True(t, snap.Countdown.Active)
	require.NotNil(t, snap.Countdown.StartTime)
	assert.Equal(t, epoch, *snap.Countdown.StartTime)
	assert.Equal(t, 1200*time.Millisecond, snap.Countdown.Elapsed)
	assert.Equal(t, 3*time.Second, snap.Countdown.Duration)

	assert.False(t, snap.Shop.Active)
	assert.Nil(t, snap.Shop.StartTime)
	assert.Equal(t, 30*time.Second, snap.Shop.Duration)
	assert.Equal(t, 1500*time.Millisecond, snap.Transition.Duration)
	assert.Len(t, snap.ShopItems, len(Catalog))
	assert.Equal(t, 1, snap.CurrentLevel)
	assert.Equal(t, 10, snap.MaxLevel)
	assert.NotEmpty(t, snap.Map)

	// The snapshot owns its grid.
	snap.Map[0][0] = maze.Floor
	assert.Equal(t, maze.Wall, s.Snapshot().Map[0][0])
}

func TestNewSessionRejectsBadSettings(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxLevel = 0
	_, err := NewSession(CreateSessionParams{Settings: settings}, clock.NewManual(epoch), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSavedAndTerminated(t *testing.T) {
	s, _ := newTestSession(t, noCountdown())

	assert.False(t, s.Saved())
	assert.True(t, s.MarkSaved())
	assert.False(t, s.MarkSaved())
	assert.True(t, s.Saved())

	assert.False(t, s.Terminated())
	s.Terminate()
	s.Terminate()
	assert.True(t, s.Terminated())
}
