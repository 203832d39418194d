// Package sqlite provides a SQLite-backed run store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/tecu23/maze-server/pkg/repository"
	"github.com/tecu23/maze-server/pkg/repository/sqlite/migrations"
)

var tracer = otel.Tracer("github.com/tecu23/maze-server/pkg/repository/sqlite")

// Store persists runs in SQLite.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies the embedded migrations.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("run store opened", zap.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, "sqlite."+name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SaveRun inserts a run and its per-level splits in one transaction.
func (s *Store) SaveRun(ctx context.Context, run repository.Run) (err error) {
	ctx, span := startSpan(ctx, "SaveRun", attribute.String("run.id", run.ID.String()))
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := run.Validate(); err != nil {
		return err
	}

	splits, err := json.Marshal(run.SplitTimes)
	if err != nil {
		return fmt.Errorf("encode split times: %w", err)
	}
	createdAt := toMillis(run.CreatedAt)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save run: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, player_id, player_skin, total_time, split_times, final_level, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(),
		run.PlayerID.String(),
		run.PlayerSkin,
		run.TotalTime,
		string(splits),
		run.FinalLevel,
		createdAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateRun
		}
		return fmt.Errorf("insert run: %w", err)
	}

	for i, split := range run.SplitTimes {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_splits (run_id, level, split_time, player_skin, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID.String(), i+1, split, run.PlayerSkin, createdAt,
		)
		if err != nil {
			return fmt.Errorf("insert split %d: %w", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save run: %w", err)
	}
	return nil
}

// GetRun returns one run by id.
func (s *Store) GetRun(ctx context.Context, id uuid.UUID) (run repository.Run, err error) {
	ctx, span := startSpan(ctx, "GetRun", attribute.String("run.id", id.String()))
	defer func() { endSpan(span, err) }()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, player_id, player_skin, total_time, split_times, final_level, created_at
		   FROM runs
		  WHERE id = ?`,
		id.String(),
	)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.Run{}, repository.ErrNotFound
	}
	if err != nil {
		return repository.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// TopRuns returns the fastest runs.
func (s *Store) TopRuns(ctx context.Context, limit int) (runs []repository.Run, err error) {
	ctx, span := startSpan(ctx, "TopRuns", attribute.Int("limit", limit))
	defer func() { endSpan(span, err) }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []repository.Run{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, player_id, player_skin, total_time, split_times, final_level, created_at
		   FROM runs
		  ORDER BY total_time ASC, created_at ASC, rowid ASC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top runs: %w", err)
	}
	defer rows.Close()

	runs = make([]repository.Run, 0, limit)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// BestSplits returns the fastest split per level. Ties go to the earliest
// submitted run.
func (s *Store) BestSplits(ctx context.Context) (best []repository.BestSplit, err error) {
	ctx, span := startSpan(ctx, "BestSplits")
	defer func() { endSpan(span, err) }()

	rows, err := s.db.QueryContext(ctx,
		`SELECT level, split_time, player_skin
		   FROM (
		     SELECT level, split_time, player_skin,
		            ROW_NUMBER() OVER (
		              PARTITION BY level
		              ORDER BY split_time ASC, created_at ASC, rowid ASC
		            ) AS pos
		       FROM run_splits
		   )
		  WHERE pos = 1
		  ORDER BY level ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query best splits: %w", err)
	}
	defer rows.Close()

	best = []repository.BestSplit{}
	for rows.Next() {
		var b repository.BestSplit
		if err := rows.Scan(&b.Level, &b.BestSplitTime, &b.PlayerSkin); err != nil {
			return nil, fmt.Errorf("scan best split: %w", err)
		}
		best = append(best, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate best splits: %w", err)
	}
	return best, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (repository.Run, error) {
	var (
		id, playerID, splits string
		createdAt            int64
		run                  repository.Run
	)
	if err := row.Scan(&id, &playerID, &run.PlayerSkin, &run.TotalTime, &splits, &run.FinalLevel, &createdAt); err != nil {
		return repository.Run{}, err
	}

	var err error
	if run.ID, err = uuid.Parse(id); err != nil {
		return repository.Run{}, fmt.Errorf("parse run id: %w", err)
	}
	if run.PlayerID, err = uuid.Parse(playerID); err != nil {
		return repository.Run{}, fmt.Errorf("parse player id: %w", err)
	}
	if err := json.Unmarshal([]byte(splits), &run.SplitTimes); err != nil {
		return repository.Run{}, fmt.Errorf("decode split times: %w", err)
	}
	run.CreatedAt = fromMillis(createdAt)
	return run, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

var _ repository.Store = (*Store)(nil)
