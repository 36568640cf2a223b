package redirect

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/eventlog"
)

// Session is the state of one page view. It is owned by the page instance
// that opened it and must be closed when that page goes away.
type Session struct {
	id       string
	ctx      context.Context
	ctrl     *Controller
	page     Page
	log      *eventlog.Log
	sched    *Scheduler
	decision Decision
	openedAt time.Time

	mu       sync.Mutex
	fallback string
	navErr   error

	closeOnce sync.Once
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Decision returns the detection outcome.
func (s *Session) Decision() Decision { return s.decision }

// State returns the scheduler state.
func (s *Session) State() domain.RedirectState { return s.sched.State() }

// Log returns the diagnostic log entries so far.
func (s *Session) Log() []domain.LogEntry { return s.log.Entries() }

// Done is closed when the redirect has fired or been cancelled. It is never
// closed for an Idle session.
func (s *Session) Done() <-chan struct{} { return s.sched.Done() }

// Fallback returns the manual link URI once the redirect has fired.
func (s *Session) Fallback() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// Close tears the session down. A pending redirect is cancelled; a redirect
// that is already firing is allowed to finish. The session summary is
// recorded once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.sched.Cancel() {
			s.log.Info("Page closed before the timer finished. Redirect cancelled.")
			s.ctrl.logger.Info("Redirect cancelled", "session_id", s.id)
		} else if s.sched.State() == domain.StateFiring {
			<-s.sched.Done()
		}

		rec := s.Record()
		s.ctrl.metrics.PageClosed(rec.FinalState)
		if s.ctrl.recorder == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), 5*time.Second)
		defer cancel()
		if err := s.ctrl.recorder.SaveSession(ctx, rec); err != nil {
			s.ctrl.logger.Error("Failed to record session", "session_id", s.id, "error", err)
		}
	})
}

// Record returns the journal summary of the session as it stands.
func (s *Session) Record() *domain.SessionRecord {
	rec := &domain.SessionRecord{
		ID:         s.id,
		Detection:  s.decision.Detection,
		Platform:   s.decision.Platform,
		LoopGuard:  s.decision.LoopGuard,
		Mode:       s.ctrl.Mode(),
		FinalState: s.sched.State(),
		Log:        s.log.Entries(),
		OpenedAt:   s.openedAt,
		ClosedAt:   s.ctrl.now(),
	}
	if s.decision.Target != nil {
		rec.TargetURI = s.decision.Target.URI
	}
	s.mu.Lock()
	if s.navErr != nil {
		rec.NavigationErr = s.navErr.Error()
	}
	s.mu.Unlock()
	return rec
}

// fire runs on the scheduler's timer goroutine.
func (s *Session) fire(tgt domain.RedirectTarget) {
	s.log.Info("Timer finished. Attempting auto-redirect...")
	s.ctrl.metrics.RedirectAttempted(tgt.Platform, s.ctrl.Mode())

	if err := s.navigate(tgt.URI); err != nil {
		s.ctrl.metrics.NavigationFailed()
		s.ctrl.logger.Warn("Navigation attempt failed", "session_id", s.id, "error", err)
		s.mu.Lock()
		s.navErr = err
		s.mu.Unlock()
		s.log.Error("ERROR: Auto-redirect failed: %v. Waiting for user click.", err)
	} else {
		s.log.Info("Navigation requested: %s", tgt.URI)
	}

	// Success of the navigation cannot be observed, so the link is always shown.
	s.mu.Lock()
	s.fallback = tgt.URI
	s.mu.Unlock()
	if err := s.page.ShowFallback(s.ctx, tgt.URI); err != nil {
		s.ctrl.logger.Debug("Failed to render fallback link", "session_id", s.id, "error", err)
	}
}

func (s *Session) navigate(uri string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("navigation panic: %v", r)
		}
	}()
	return s.page.Navigate(s.ctx, uri)
}

func (s *Session) render(entry domain.LogEntry) {
	if err := s.page.AppendLog(s.ctx, entry); err != nil {
		s.ctrl.logger.Debug("Failed to render log entry", "session_id", s.id, "error", err)
	}
}
