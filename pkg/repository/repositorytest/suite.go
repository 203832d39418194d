// Package repositorytest holds the behaviour every repository.Store must
// share. Store implementations call Run from their own tests.
package repositorytest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecu23/maze-server/pkg/repository"
)

var base = time.Date(2026, time.January, 2, 15, 4, 5, 0, time.UTC)

// NewRun builds a valid run whose splits sum to its total.
func NewRun(skin string, createdAt time.Time, splits ...float64) repository.Run {
	var total float64
	for _, s := range splits {
		total += s
	}
	return repository.Run{
		ID:         uuid.New(),
		PlayerID:   uuid.New(),
		PlayerSkin: skin,
		TotalTime:  total,
		SplitTimes: splits,
		FinalLevel: len(splits),
		CreatedAt:  createdAt,
	}
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) repository.Store) {
	t.Run("save and get", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		run := NewRun("#ff4a4a", base, 3, 4.5, 2.25)
		require.NoError(t, store.SaveRun(ctx, run))

		got, err := store.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, run.PlayerID, got.PlayerID)
		assert.Equal(t, run.PlayerSkin, got.PlayerSkin)
		assert.Equal(t, run.TotalTime, got.TotalTime)
		assert.Equal(t, run.SplitTimes, got.SplitTimes)
		assert.Equal(t, run.FinalLevel, got.FinalLevel)
		assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("missing run", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetRun(context.Background(), uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("duplicate run", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		run := NewRun("#4a9eff", base, 3)
		require.NoError(t, store.SaveRun(ctx, run))
		assert.ErrorIs(t, store.SaveRun(ctx, run), repository.ErrDuplicateRun)
	})

	t.Run("invalid run", func(t *testing.T) {
		store := newStore(t)
		run := NewRun("#4a9eff", base, 3, 3)
		run.FinalLevel = 5
		assert.ErrorIs(t, store.SaveRun(context.Background(), run), repository.ErrInvalidRun)
	})

	t.Run("leaderboard order", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		slow := NewRun("slow", base, 10, 10)
		fast := NewRun("fast", base.Add(time.Minute), 5, 5)
		tieLate := NewRun("tie-late", base.Add(2*time.Minute), 6, 6)
		tieEarly := NewRun("tie-early", base.Add(time.Second), 6, 6)
		for _, r := range []repository.Run{slow, fast, tieLate, tieEarly} {
			require.NoError(t, store.SaveRun(ctx, r))
		}

		top, err := store.TopRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, top, 4)
		var skins []string
		for _, r := range top {
			skins = append(skins, r.PlayerSkin)
		}
		assert.Equal(t, []string{"fast", "tie-early", "tie-late", "slow"}, skins)

		top, err = store.TopRuns(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, top, 2)

		top, err = store.TopRuns(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, top)
	})

	t.Run("best splits", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		best, err := store.BestSplits(ctx)
		require.NoError(t, err)
		assert.Empty(t, best)

		require.NoError(t, store.SaveRun(ctx, NewRun("a", base, 3, 2, 5)))
		require.NoError(t, store.SaveRun(ctx, NewRun("b", base.Add(time.Second), 2.5, 2, 6)))
		require.NoError(t, store.SaveRun(ctx, NewRun("c", base.Add(2*time.Second), 4, 4, 1.5)))

		best, err = store.BestSplits(ctx)
		require.NoError(t, err)
		assert.Equal(t, []repository.BestSplit{
			{Level: 1, BestSplitTime: 2.5, PlayerSkin: "b"},
			// Ties go to the earlier run.
			{Level: 2, BestSplitTime: 2, PlayerSkin: "a"},
			{Level: 3, BestSplitTime: 1.5, PlayerSkin: "c"},
		}, best)
	})

	t.Run("best split ties follow creation time", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		// Saved out of creation order.
		require.NoError(t, store.SaveRun(ctx, NewRun("late", base.Add(time.Hour), 2, 3)))
		require.NoError(t, store.SaveRun(ctx, NewRun("early", base, 2, 4)))

		best, err := store.BestSplits(ctx)
		require.NoError(t, err)
		assert.Equal(t, []repository.BestSplit{
			{Level: 1, BestSplitTime: 2, PlayerSkin: "early"},
			{Level: 2, BestSplitTime: 3, PlayerSkin: "late"},
		}, best)
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := newStore(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Error(t, store.SaveRun(ctx, NewRun("a", base, 3)))
		_, err := store.TopRuns(ctx, 5)
		assert.Error(t, err)
	})
}
