// Package redirect owns the detection-and-redirect sequence of a single
// page view and the timed, cancellable handoff to the native browser.
package redirect

import (
	"errors"
	"sync"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

// DefaultDelay is how long an armed scheduler waits before navigating.
const DefaultDelay = 2 * time.Second

// ErrNotIdle is returned when Arm is called on a scheduler that already left Idle.
var ErrNotIdle = errors.New("scheduler is not idle")

// Timer is a pending callback that can be released.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. It exists so tests can drive time manually.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Scheduler is a one-shot timed task: Arm, then either Cancel or fire.
//
// States: Idle -> Armed -> Firing -> Done, or Armed -> Cancelled.
type Scheduler struct {
	mu     sync.Mutex
	clock  Clock
	onFire func(domain.RedirectTarget)
	state  domain.RedirectState
	target domain.RedirectTarget
	timer  Timer
	done   chan struct{}
}

// NewScheduler returns an idle scheduler that calls onFire once on expiry.
func NewScheduler(clock Clock, onFire func(domain.RedirectTarget)) *Scheduler {
	if clock == nil {
		clock = SystemClock
	}
	return &Scheduler{
		clock:  clock,
		onFire: onFire,
		state:  domain.StateIdle,
		done:   make(chan struct{}),
	}
}

// Arm starts the delay for target. A scheduler can be armed at most once.
func (s *Scheduler) Arm(target domain.RedirectTarget, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateIdle {
		return ErrNotIdle
	}
	if delay < 0 {
		delay = 0
	}
	s.state = domain.StateArmed
	s.target = target
	s.timer = s.clock.AfterFunc(delay, s.fire)
	return nil
}

// Cancel releases a pending timer. It reports whether the scheduler moved
// from Armed to Cancelled; in any other state it does nothing.
func (s *Scheduler) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateArmed {
		return false
	}
	s.timer.Stop()
	s.timer = nil
	s.state = domain.StateCancelled
	close(s.done)
	return true
}

// State returns the current state.
func (s *Scheduler) State() domain.RedirectState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Target returns the armed target, if any.
func (s *Scheduler) Target() (domain.RedirectTarget, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.target, s.state != domain.StateIdle
}

// Done is closed once the scheduler reaches Done or Cancelled.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.state != domain.StateArmed {
		// Cancelled while the timer callback was already queued.
		s.mu.Unlock()
		return
	}
	s.state = domain.StateFiring
	s.timer = nil
	target := s.target
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.state = domain.StateDone
		close(s.done)
		s.mu.Unlock()
	}()

	if s.onFire != nil {
		s.onFire(target)
	}
}
