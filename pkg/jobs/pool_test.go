package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPool(t *testing.T, opts Options) *Pool {
	t.Helper()

	p := NewPool(opts, zap.NewNop())
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })
	return p
}

func TestSubmitRunsJob(t *testing.T) {
	p := newTestPool(t, Options{Workers: 2})

	done := make(chan error, 1)
	var ran atomic.Bool
	require.NoError(t, p.Submit(Job{
		Name: "ok",
		Run: func(ctx context.Context) error {
			ran.Store(true)
			return nil
		},
		Done: func(err error) { done <- err },
	}))

	select {
	case err := <-done:
		assert.NoError(t, err)
		assert.True(t, ran.Load())
	case <-time.After(time.Second):
		t.Fatal("job did not finish")
	}
	assert.Eventually(t, func() bool { return p.Idle() == 2 }, time.Second, 5*time.Millisecond)
}

func TestJobErrorIsReported(t *testing.T) {
	p := newTestPool(t, Options{Workers: 1})
	boom := errors.New("boom")

	done := make(chan error, 1)
	require.NoError(t, p.Submit(Job{
		Name: "fail",
		Run:  func(context.Context) error { return boom },
		Done: func(err error) { done <- err },
	}))
	assert.ErrorIs(t, <-done, boom)
}

func TestJobTimeout(t *testing.T) {
	p := newTestPool(t, Options{Workers: 1, JobTimeout: 20 * time.Millisecond})

	done := make(chan error, 1)
	require.NoError(t, p.Submit(Job{
		Name: "slow",
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		Done: func(err error) { done <- err },
	}))
	assert.ErrorIs(t, <-done, context.DeadlineExceeded)
}

func TestNoWorkerAvailable(t *testing.T) {
	p := newTestPool(t, Options{Workers: 1, AcquireTimeout: 20 * time.Millisecond})

	release := make(chan struct{})
	require.NoError(t, p.Submit(Job{
		Name: "hog",
		Run: func(ctx context.Context) error {
			<-release
			return nil
		},
	}))
	require.Eventually(t, func() bool { return p.Idle() == 0 }, time.Second, time.Millisecond)

	done := make(chan error, 1)
	require.NoError(t, p.Submit(Job{
		Name: "starved",
		Run:  func(context.Context) error { return nil },
		Done: func(err error) { done <- err },
	}))
	assert.ErrorIs(t, <-done, ErrNoWorker)
	close(release)
}

func TestSubmitAfterShutdown(t *testing.T) {
	p := NewPool(Options{Workers: 1}, zap.NewNop())
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))

	err := p.Submit(Job{Name: "late", Run: func(context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestShutdownCancelsRunningJobs(t *testing.T) {
	p := NewPool(Options{Workers: 1, JobTimeout: time.Minute}, zap.NewNop())

	started := make(chan struct{})
	done := make(chan error, 1)
	require.NoError(t, p.Submit(Job{
		Name: "long",
		Run: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
		Done: func(err error) { done <- err },
	}))
	<-started

	require.NoError(t, p.Shutdown(context.Background()))
	assert.ErrorIs(t, <-done, context.Canceled)
}
