package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InMemoryRunRepository is an in-memory implementation of Store. Runs are
// lost when the process exits.
type InMemoryRunRepository struct {
	runs   map[uuid.UUID]Run
	order  []uuid.UUID
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository(logger *zap.Logger) *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs:   make(map[uuid.UUID]Run),
		logger: logger,
	}
}

// SaveRun saves a run to the repository
func (r *InMemoryRunRepository) SaveRun(ctx context.Context, run Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.runs[run.ID]; ok {
		return ErrDuplicateRun
	}
	r.runs[run.ID] = run.clone()
	r.order = append(r.order, run.ID)

	r.logger.Debug("run stored",
		zap.String("run_id", run.ID.String()),
		zap.Float64("total_time", run.TotalTime),
	)
	return nil
}

// GetRun retrieves a run by ID
func (r *InMemoryRunRepository) GetRun(ctx context.Context, id uuid.UUID) (Run, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return Run{}, ErrNotFound
	}
	return run.clone(), nil
}

// TopRuns returns the fastest runs
func (r *InMemoryRunRepository) TopRuns(ctx context.Context, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Run{}, nil
	}

	r.mu.RLock()
	runs := make([]Run, 0, len(r.order))
	for _, id := range r.order {
		runs = append(runs, r.runs[id].clone())
	}
	r.mu.RUnlock()

	// Stable over insertion order, so equal timestamps keep submission order.
	SortRuns(runs)
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// BestSplits returns the fastest split of every level
func (r *InMemoryRunRepository) BestSplits(ctx context.Context) ([]BestSplit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	runs := make([]Run, 0, len(r.order))
	for _, id := range r.order {
		runs = append(runs, r.runs[id])
	}
	r.mu.RUnlock()

	// Scan in creation order so a tie goes to the earliest run, as in the
	// sqlite store, whatever order the runs were saved in.
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].CreatedAt.Before(runs[j].CreatedAt)
	})

	var best []BestSplit
	for _, run := range runs {
		for i, split := range run.SplitTimes {
			if i == len(best) {
				best = append(best, BestSplit{Level: i + 1, BestSplitTime: split, PlayerSkin: run.PlayerSkin})
				continue
			}
			if split < best[i].BestSplitTime {
				best[i].BestSplitTime = split
				best[i].PlayerSkin = run.PlayerSkin
			}
		}
	}
	if best == nil {
		best = []BestSplit{}
	}
	return best, nil
}

// Close is a no-op.
func (r *InMemoryRunRepository) Close() error {
	return nil
}

var _ Store = (*InMemoryRunRepository)(nil)
