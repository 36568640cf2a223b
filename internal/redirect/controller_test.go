package redirect

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/inapp"
	"github.com/ashureev/inapp-redirector/internal/target"
)

const (
	uaInstagramAndroid = "Mozilla/5.0 (Linux; Android 13; Pixel 7 Build/TQ3A.230805.001; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/116.0.5845.163 Mobile Safari/537.36 Instagram 298.0.0.31.110 Android"
	uaInstagramIOS     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Instagram 300.0.0.16.111"
	uaMobileSafari     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaUnknownInApp     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36 Instagram 300.0"
)

// embedded reports every user agent as an in-app browser.
var embedded = inapp.ClassifierFunc(func(_ context.Context, ua string) (inapp.Result, error) {
	return inapp.Result{IsInApp: true, AppName: "TestApp", UA: ua}, nil
})

type harness struct {
	ctrl  *Controller
	clock *fakeClock
	page  *spyPage
	rec   *memRecorder
}

func newHarness(t *testing.T, c inapp.Classifier, opts target.Options) *harness {
	t.Helper()
	b, err := target.New(opts)
	if err != nil {
		t.Fatalf("target.New: %v", err)
	}
	h := &harness{clock: &fakeClock{}, page: &spyPage{}, rec: &memRecorder{}}
	h.ctrl = NewController(Config{
		Classifier: c,
		Builder:    b,
		Clock:      h.clock,
		Recorder:   h.rec,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID:      func() string { return "test-session" },
	})
	return h
}

func countMatching(entries []domain.LogEntry, substr string) int {
	n := 0
	for _, e := range entries {
		if strings.Contains(e.Message, substr) {
			n++
		}
	}
	return n
}

func countErrors(entries []domain.LogEntry) int {
	n := 0
	for _, e := range entries {
		if e.IsError {
			n++
		}
	}
	return n
}

func TestOpen_AndroidEmbeddedArmsAndFires(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})
	page := "https://example.com/promo?ref=ig"

	s := h.ctrl.Open(context.Background(), uaInstagramAndroid, page, h.page)
	defer s.Close()

	if s.State() != domain.StateArmed {
		t.Fatalf("Expected armed, got %v", s.State())
	}
	if h.clock.pending() != 1 || h.clock.timers[0].delay != DefaultDelay {
		t.Fatalf("Expected one %v timer", DefaultDelay)
	}
	if h.page.navigationCount() != 0 {
		t.Fatal("Navigated before the timer expired")
	}

	h.clock.Advance(DefaultDelay)

	want := "intent:example.com/promo?ref=ig&redirected=true#Intent;scheme=https;package=com.android.chrome;end"
	if len(h.page.navigations) != 1 || h.page.navigations[0] != want {
		t.Fatalf("Expected single navigation to %q, got %v", want, h.page.navigations)
	}
	if len(h.page.fallbacks) != 1 || h.page.fallbacks[0] != want {
		t.Errorf("Expected fallback %q, got %v", want, h.page.fallbacks)
	}
	if s.Fallback() != want {
		t.Errorf("Session fallback = %q, want %q", s.Fallback(), want)
	}
	if s.State() != domain.StateDone {
		t.Errorf("Expected done, got %v", s.State())
	}
	if len(h.page.replaced) != 0 {
		t.Errorf("Expected no URL rewrite, got %v", h.page.replaced)
	}
}

func TestOpen_LoopbackStripsAndStaysIdle(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})
	page := "https://example.com/promo?ref=ig&redirected=true"

	s := h.ctrl.Open(context.Background(), uaInstagramIOS, page, h.page)
	defer s.Close()

	if s.State() != domain.StateIdle {
		t.Fatalf("Expected idle, got %v", s.State())
	}
	if len(h.page.replaced) != 1 || h.page.replaced[0] != "https://example.com/promo?ref=ig" {
		t.Errorf("Expected marker stripped from displayed URL, got %v", h.page.replaced)
	}
	if h.clock.pending() != 0 {
		t.Error("Scheduler armed for a loopback")
	}
	h.clock.Advance(DefaultDelay * 10)
	if h.page.navigationCount() != 0 {
		t.Error("Navigation attempted on loopback")
	}
	d := s.Decision()
	if !d.LoopGuard.IsLoopback || d.Platform != domain.PlatformIOS || d.Reason != ReasonLoopback {
		t.Errorf("Unexpected decision: %+v", d)
	}
}

func TestOpen_UnknownPlatform(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})

	s := h.ctrl.Open(context.Background(), uaUnknownInApp, "https://example.com/", h.page)
	defer s.Close()

	d := s.Decision()
	if d.Platform != domain.PlatformUnknown || d.Target != nil || d.Reason != ReasonUnknownPlatform {
		t.Errorf("Unexpected decision: %+v", d)
	}
	if s.State() != domain.StateIdle {
		t.Errorf("Expected idle, got %v", s.State())
	}
	if n := countMatching(s.Log(), "Could not determine phone type"); n != 1 {
		t.Errorf("Expected 1 unresolved platform entry, got %d", n)
	}
	if h.clock.pending() != 0 || h.page.navigationCount() != 0 {
		t.Error("Expected no redirect activity")
	}
}

func TestOpen_TeardownWhileArmed(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})

	s := h.ctrl.Open(context.Background(), uaInstagramAndroid, "https://example.com/", h.page)
	if s.State() != domain.StateArmed {
		t.Fatalf("Expected armed, got %v", s.State())
	}

	s.Close()

	if s.State() != domain.StateCancelled {
		t.Errorf("Expected cancelled, got %v", s.State())
	}
	if h.clock.pending() != 0 {
		t.Error("Expected pending timer to be released")
	}
	h.clock.Advance(DefaultDelay)
	if h.page.navigationCount() != 0 {
		t.Error("Navigate invoked after teardown")
	}
	if len(h.rec.records) != 1 || h.rec.records[0].FinalState != domain.StateCancelled {
		t.Errorf("Expected one cancelled record, got %+v", h.rec.records)
	}
}

func TestOpen_ClassificationFailure(t *testing.T) {
	failing := inapp.ClassifierFunc(func(context.Context, string) (inapp.Result, error) {
		return inapp.Result{}, errors.New("classifier exploded")
	})
	h := newHarness(t, failing, target.Options{})

	s := h.ctrl.Open(context.Background(), uaInstagramAndroid, "https://example.com/", h.page)
	defer s.Close()

	d := s.Decision()
	if d.Detection.Embedded {
		t.Error("Expected embedded=false after classification failure")
	}
	if d.Reason != ReasonNotEmbedded {
		t.Errorf("Expected reason %q, got %q", ReasonNotEmbedded, d.Reason)
	}
	if n := countErrors(s.Log()); n != 1 {
		t.Errorf("Expected exactly 1 error entry, got %d", n)
	}
	h.clock.Advance(DefaultDelay)
	if h.page.navigationCount() != 0 {
		t.Error("Expected no redirect attempts")
	}
}

func TestOpen_NotEmbedded(t *testing.T) {
	h := newHarness(t, inapp.RuleClassifier{}, target.Options{})

	for _, page := range []string{"https://example.com/", "https://example.com/?redirected=true"} {
		s := h.ctrl.Open(context.Background(), uaMobileSafari, page, h.page)
		if s.State() != domain.StateIdle {
			t.Errorf("%s: expected idle, got %v", page, s.State())
		}
		if s.Decision().Platform != domain.PlatformUnknown {
			t.Errorf("%s: platform should not be resolved for a standard browser", page)
		}
		s.Close()
	}
	if h.page.navigationCount() != 0 {
		t.Error("Expected no navigation for a standard browser")
	}
}

func TestOpen_NavigationFailureKeepsFallback(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})
	h.page.navErr = errors.New("scheme not handled")

	s := h.ctrl.Open(context.Background(), uaInstagramIOS, "https://example.com/a", h.page)
	h.clock.Advance(DefaultDelay)
	s.Close()

	want := "x-safari-https://example.com/a?redirected=true"
	if len(h.page.fallbacks) != 1 || h.page.fallbacks[0] != want {
		t.Errorf("Expected fallback %q, got %v", want, h.page.fallbacks)
	}
	if countErrors(s.Log()) != 1 {
		t.Errorf("Expected one error entry, got %d", countErrors(s.Log()))
	}
	rec := h.rec.records[0]
	if rec.FinalState != domain.StateDone || rec.NavigationErr == "" || rec.TargetURI != want {
		t.Errorf("Unexpected record: %+v", rec)
	}
}

func TestOpen_FixedDestinationIOS(t *testing.T) {
	h := newHarness(t, embedded, target.Options{
		Mode:              domain.ModeFixedDestination,
		AndroidAppPackage: "com.example.app",
		IOSStoreURL:       "https://apps.apple.com/us/app/example/id123",
	})

	s := h.ctrl.Open(context.Background(), uaInstagramIOS, "https://example.com/", h.page)
	h.clock.Advance(DefaultDelay)
	s.Close()

	want := "https://apps.apple.com/us/app/example/id123?redirected=true"
	if len(h.page.navigations) != 1 || h.page.navigations[0] != want {
		t.Errorf("Expected navigation to %q, got %v", want, h.page.navigations)
	}
	if h.rec.records[0].Mode != domain.ModeFixedDestination {
		t.Errorf("Expected fixed-destination mode on record")
	}
}

func TestOpen_StreamsLogToPage(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})

	s := h.ctrl.Open(context.Background(), uaInstagramAndroid, "https://example.com/", h.page)
	defer s.Close()

	if len(h.page.logs) == 0 || len(h.page.logs) != len(s.Log()) {
		t.Errorf("Expected page to receive every log entry: page=%d session=%d", len(h.page.logs), len(s.Log()))
	}
}

func TestPreview_NoSideEffects(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})

	d, entries := h.ctrl.Preview(context.Background(), uaInstagramIOS, "https://example.com/x?redirected=true")
	if !d.LoopGuard.IsLoopback || d.CleanURL != "https://example.com/x" || d.ShouldRedirect() {
		t.Errorf("Unexpected decision: %+v", d)
	}
	if len(entries) == 0 {
		t.Error("Expected preview log entries")
	}

	d, _ = h.ctrl.Preview(context.Background(), uaInstagramIOS, "https://example.com/x")
	if !d.ShouldRedirect() || d.Target.URI != "x-safari-https://example.com/x?redirected=true" {
		t.Errorf("Unexpected decision: %+v", d)
	}
	if h.clock.pending() != 0 || len(h.rec.records) != 0 {
		t.Error("Preview must not arm or record")
	}
}

func TestOpen_InvalidPageURLIsConfigurationGap(t *testing.T) {
	h := newHarness(t, embedded, target.Options{})

	s := h.ctrl.Open(context.Background(), uaInstagramAndroid, "not a url", h.page)
	defer s.Close()

	if s.State() != domain.StateIdle || s.Decision().Reason != ReasonNoTarget {
		t.Errorf("Expected idle/no_target, got %v/%q", s.State(), s.Decision().Reason)
	}
	if countErrors(s.Log()) != 0 {
		t.Error("Target construction gaps are informational")
	}
}
