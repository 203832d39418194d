package game

import (
	"time"

	"go.uber.org/zap"
)

// State is the mutually exclusive phase a solo session is in.
type State int

// Session states. Playing is the only state without a timed phase.
const (
	StateCountdown State = iota
	StatePlaying
	StateShop
	StateTransition
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCountdown:
		return "countdown"
	case StatePlaying:
		return "playing"
	case StateShop:
		return "shop"
	case StateTransition:
		return "transition"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// timed reports whether the state carries a bounded phase.
func (s State) timed() bool {
	return s == StateCountdown || s == StateShop || s == StateTransition
}

// phase is the window of the active timed state. Only one exists at a time,
// which is what keeps countdown, shop and transition mutually exclusive.
type phase struct {
	start    time.Time
	duration time.Duration
}

func (p phase) deadline() time.Time {
	return p.start.Add(p.duration)
}

func (p phase) elapsed(now time.Time) time.Duration {
	d := now.Sub(p.start)
	if d < 0 {
		return 0
	}
	if d > p.duration {
		return p.duration
	}
	return d
}

func (p phase) expired(now time.Time) bool {
	return !now.Before(p.deadline())
}

// enter switches to state and, for timed states, opens its phase at now.
func (s *Session) enter(state State, now time.Time) {
	s.state = state
	s.phase = phase{}
	switch state {
	case StateCountdown:
		s.phase = phase{start: now, duration: s.settings.CountdownDuration}
	case StateShop:
		s.phase = phase{start: now, duration: s.settings.ShopDuration}
	case StateTransition:
		s.phase = phase{start: now, duration: s.settings.TransitionDuration}
	}
}

// advance resolves every timed phase that has run out by now. Expiry is
// applied at the phase deadline rather than at now, so the result does not
// depend on how often the session is polled. It reports whether the state
// changed.
func (s *Session) advance(now time.Time) bool {
	changed := false
	for s.state.timed() && s.phase.expired(now) {
		deadline := s.phase.deadline()
		switch s.state {
		case StateCountdown:
			s.timer.Start(deadline)
			s.enter(StatePlaying, deadline)
		case StateShop:
			s.closeShopAt(deadline)
		case StateTransition:
			s.endTransitionAt(deadline)
		}
		changed = true
	}
	return changed
}

func (s *Session) openShopAt(now time.Time) bool {
	if s.state != StatePlaying {
		return false
	}
	s.enter(StateShop, now)
	s.timer.Pause(now)
	return true
}

func (s *Session) closeShopAt(now time.Time) bool {
	if s.state != StateShop {
		return false
	}
	shopDuration := now.Sub(s.phase.start)
	// Resume is the only place paused time is accounted; the shop duration
	// is reported, not added a second time.
	paused := s.timer.Resume(now)
	s.enter(StatePlaying, now)
	s.logger.Debug("shop closed",
		zap.Duration("shop_duration", shopDuration),
		zap.Duration("paused", paused),
	)
	return true
}

func (s *Session) startTransitionAt(now time.Time) bool {
	if s.state != StatePlaying {
		return false
	}
	s.enter(StateTransition, now)
	return true
}

func (s *Session) endTransitionAt(now time.Time) bool {
	if s.state != StateTransition {
		return false
	}
	s.enter(StatePlaying, now)
	return true
}
