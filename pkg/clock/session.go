package clock

import "time"

// SessionClock accounts elapsed run and level time while excluding paused
// intervals. It holds no goroutines or timers; every reading is computed from
// the instant it is given.
//
// The clock is idle until Start is called. An idle clock reads zero.
type SessionClock struct {
	started      bool
	sessionStart time.Time
	levelStart   time.Time

	// totalPaused accumulates every completed pause of the run.
	totalPaused time.Duration

	paused   bool
	pausedAt time.Time
}

// NewSessionClock returns an idle session clock.
func NewSessionClock() *SessionClock {
	return &SessionClock{}
}

// Start begins run and level accounting at at. Calling Start again is a no-op.
func (c *SessionClock) Start(at time.Time) {
	if c.started {
		return
	}
	c.started = true
	c.sessionStart = at
	c.levelStart = at
}

// Started reports whether Start has been called.
func (c *SessionClock) Started() bool {
	return c.started
}

// Paused reports whether a pause is in progress.
func (c *SessionClock) Paused() bool {
	return c.paused
}

// TotalPaused returns the accumulated duration of completed pauses.
func (c *SessionClock) TotalPaused() time.Duration {
	return c.totalPaused
}

// SessionStart returns the instant run accounting began.
func (c *SessionClock) SessionStart() time.Time {
	return c.sessionStart
}

// LevelStart returns the instant the current level clock began.
func (c *SessionClock) LevelStart() time.Time {
	return c.levelStart
}

// RunElapsed returns now - sessionStart - totalPaused, never negative. A pause
// that is still open at now is excluded as well.
func (c *SessionClock) RunElapsed(now time.Time) time.Duration {
	if !c.started {
		return 0
	}
	elapsed := now.Sub(c.sessionStart) - c.totalPaused - c.openPause(now)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// RunTotalTime returns the run time in seconds at now.
func (c *SessionClock) RunTotalTime(now time.Time) float64 {
	return Seconds(c.RunElapsed(now))
}

// LevelElapsed returns the time spent on the current level. While a pause is
// in progress the level clock reports zero, not a frozen value. Every pause
// ends by restarting the level clock, so no paused time can fall inside the
// current level.
func (c *SessionClock) LevelElapsed(now time.Time) time.Duration {
	if !c.started || c.paused {
		return 0
	}
	elapsed := now.Sub(c.levelStart)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// CurrentLevelTime returns the level time in seconds at now.
func (c *SessionClock) CurrentLevelTime(now time.Time) float64 {
	return Seconds(c.LevelElapsed(now))
}

// Pause marks the start of a pause at now. It is idempotent.
func (c *SessionClock) Pause(now time.Time) {
	if c.paused {
		return
	}
	c.paused = true
	c.pausedAt = now
}

// Resume closes the pause in progress at now, adds its duration to the paused
// total and restarts the level clock from zero. It returns the length of the
// closed pause, or zero when the clock was not paused.
func (c *SessionClock) Resume(now time.Time) time.Duration {
	if !c.paused {
		return 0
	}
	d := now.Sub(c.pausedAt)
	if d < 0 {
		d = 0
	}
	c.totalPaused += d
	c.paused = false
	c.pausedAt = time.Time{}
	c.levelStart = now
	return d
}

// RestartLevel starts a fresh level clock at now.
func (c *SessionClock) RestartLevel(now time.Time) {
	c.levelStart = now
}

func (c *SessionClock) openPause(now time.Time) time.Duration {
	if !c.paused {
		return 0
	}
	d := now.Sub(c.pausedAt)
	if d < 0 {
		return 0
	}
	return d
}
