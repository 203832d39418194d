// Package repository persists finished solo runs and answers the leaderboard
// and best-split queries.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a run does not exist.
	ErrNotFound = errors.New("run not found")
	// ErrDuplicateRun is returned when a run id is saved twice.
	ErrDuplicateRun = errors.New("run already saved")
	// ErrInvalidRun is returned for records that cannot be stored.
	ErrInvalidRun = errors.New("invalid run record")
)

// Run is one finished, validated solo run.
type Run struct {
	ID         uuid.UUID
	PlayerID   uuid.UUID
	PlayerSkin string
	TotalTime  float64
	SplitTimes []float64
	FinalLevel int
	CreatedAt  time.Time
}

// BestSplit is the fastest recorded time for one level.
type BestSplit struct {
	Level         int
	BestSplitTime float64
	PlayerSkin    string
}

// Store is implemented by every run store.
type Store interface {
	SaveRun(ctx context.Context, run Run) error
	GetRun(ctx context.Context, id uuid.UUID) (Run, error)
	// TopRuns returns up to limit runs, fastest first. Equal times are
	// ordered by submission, earliest first.
	TopRuns(ctx context.Context, limit int) ([]Run, error)
	// BestSplits returns the fastest split per level, ordered by level.
	// Equal splits go to the run created first.
	BestSplits(ctx context.Context) ([]BestSplit, error)
	Close() error
}

// Validate checks the fields every store relies on.
func (r Run) Validate() error {
	switch {
	case r.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidRun)
	case r.PlayerID == uuid.Nil:
		return fmt.Errorf("%w: missing player id", ErrInvalidRun)
	case len(r.SplitTimes) == 0:
		return fmt.Errorf("%w: no split times", ErrInvalidRun)
	case r.FinalLevel != len(r.SplitTimes):
		return fmt.Errorf("%w: final level %d with %d splits", ErrInvalidRun, r.FinalLevel, len(r.SplitTimes))
	case r.TotalTime <= 0:
		return fmt.Errorf("%w: total time %.3f", ErrInvalidRun, r.TotalTime)
	case r.CreatedAt.IsZero():
		return fmt.Errorf("%w: missing creation time", ErrInvalidRun)
	}
	return nil
}

// clone returns a copy that shares no slices with r.
func (r Run) clone() Run {
	r.SplitTimes = append([]float64(nil), r.SplitTimes...)
	return r
}

// SortRuns orders runs the way TopRuns returns them.
func SortRuns(runs []Run) {
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := runs[i], runs[j]
		if a.TotalTime != b.TotalTime {
			return a.TotalTime < b.TotalTime
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}
