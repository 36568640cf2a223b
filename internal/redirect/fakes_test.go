package redirect

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

// fakeClock records scheduled callbacks and runs them on demand.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, delay: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance fires every pending timer whose delay is within d.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.delay <= d {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// spyPage records every call made by a session.
type spyPage struct {
	mu          sync.Mutex
	replaced    []string
	navigations []string
	fallbacks   []string
	logs        []domain.LogEntry
	navErr      error
}

func (p *spyPage) ReplaceURL(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replaced = append(p.replaced, url)
	return nil
}

func (p *spyPage) Navigate(_ context.Context, uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.navigations = append(p.navigations, uri)
	return p.navErr
}

func (p *spyPage) ShowFallback(_ context.Context, uri string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallbacks = append(p.fallbacks, uri)
	return nil
}

func (p *spyPage) AppendLog(_ context.Context, entry domain.LogEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logs = append(p.logs, entry)
	return nil
}

func (p *spyPage) navigationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.navigations)
}

// memRecorder keeps saved records in memory.
type memRecorder struct {
	mu      sync.Mutex
	records []*domain.SessionRecord
}

func (r *memRecorder) SaveSession(_ context.Context, rec *domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}
