// Package jobs runs slow I/O off the connection goroutines on a fixed number
// of workers.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned for jobs submitted after Shutdown.
	ErrPoolClosed = errors.New("job pool closed")
	// ErrNoWorker is reported when no worker frees up in time.
	ErrNoWorker = errors.New("no workers available in the pool")
)

var tracer = otel.Tracer("github.com/tecu23/maze-server/pkg/jobs")

// Job is one unit of work. Done, when set, receives the result of Run, or
// the reason Run never started.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
	Done func(err error)
}

// Options tunes a pool. Zero values fall back to the defaults.
type Options struct {
	Workers        int
	JobTimeout     time.Duration
	AcquireTimeout time.Duration
}

// Pool manages a fixed set of workers
type Pool struct {
	available      chan string // IDs of idle workers
	workers        int
	jobTimeout     time.Duration
	acquireTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	logger *zap.Logger
}

// NewPool creates a pool with opts.Workers idle workers
func NewPool(opts Options, logger *zap.Logger) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 5 * time.Second
	}
	if opts.AcquireTimeout <= 0 {
		opts.AcquireTimeout = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		available:      make(chan string, opts.Workers),
		workers:        opts.Workers,
		jobTimeout:     opts.JobTimeout,
		acquireTimeout: opts.AcquireTimeout,
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger,
	}
	for i := 1; i <= opts.Workers; i++ {
		p.available <- fmt.Sprintf("worker-%d", i)
	}

	logger.Info("Job pool initialized", zap.Int("workers", opts.Workers))
	return p
}

// Submit queues job and returns immediately. The job waits for a free
// worker, then runs under its own timeout.
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	p.wg.Add(1)
	go p.run(job)
	return nil
}

func (p *Pool) run(job Job) {
	defer p.wg.Done()

	workerID, err := p.acquire()
	if err != nil {
		p.logger.Warn("Job dropped", zap.String("job", job.Name), zap.Error(err))
		job.finish(err)
		return
	}
	defer p.release(workerID)

	ctx, cancel := context.WithTimeout(p.ctx, p.jobTimeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "jobs."+job.Name, trace.WithAttributes(
		attribute.String("worker.id", workerID),
	))

	start := time.Now()
	err = job.Run(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	p.logger.Debug("Job finished",
		zap.String("job", job.Name),
		zap.String("worker_id", workerID),
		zap.Duration("took", time.Since(start)),
		zap.Error(err),
	)
	job.finish(err)
}

func (j Job) finish(err error) {
	if j.Done != nil {
		j.Done(err)
	}
}

// acquire takes an idle worker, waiting at most the acquire timeout
func (p *Pool) acquire() (string, error) {
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	select {
	case id := <-p.available:
		return id, nil
	case <-p.ctx.Done():
		return "", ErrPoolClosed
	case <-timer.C:
		return "", ErrNoWorker
	}
}

// release returns a worker to the pool
func (p *Pool) release(id string) {
	select {
	case p.available <- id:
	default:
		p.logger.Warn("Failed to return worker to pool, channel full", zap.String("worker_id", id))
	}
}

// Idle returns the number of idle workers.
func (p *Pool) Idle() int {
	return len(p.available)
}

// Shutdown stops accepting jobs, cancels running ones and waits for them to
// return or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Job pool shut down")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job pool shutdown: %w", ctx.Err())
	}
}
