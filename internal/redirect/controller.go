package redirect

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/eventlog"
	"github.com/ashureev/inapp-redirector/internal/inapp"
	"github.com/ashureev/inapp-redirector/internal/loopguard"
	"github.com/ashureev/inapp-redirector/internal/metrics"
	"github.com/ashureev/inapp-redirector/internal/platform"
	"github.com/ashureev/inapp-redirector/internal/target"
	"github.com/google/uuid"
)

// Skip reasons reported by a Decision without a target.
const (
	ReasonNotEmbedded     = "not_embedded"
	ReasonUnknownPlatform = "unknown_platform"
	ReasonLoopback        = "loopback"
	ReasonNoTarget        = "no_target"
)

// Page is the browser side of a page view.
type Page interface {
	// ReplaceURL rewrites the displayed URL in place without navigating.
	ReplaceURL(ctx context.Context, url string) error
	// Navigate asks the browser to open uri.
	Navigate(ctx context.Context, uri string) error
	// ShowFallback renders a manual link to uri.
	ShowFallback(ctx context.Context, uri string) error
	// AppendLog renders one diagnostic log entry.
	AppendLog(ctx context.Context, entry domain.LogEntry) error
}

// Recorder persists the summary of a finished page view.
type Recorder interface {
	SaveSession(ctx context.Context, rec *domain.SessionRecord) error
}

// Decision is the outcome of the detection steps for one page load.
type Decision struct {
	Detection domain.DetectionResult `json:"detection"`
	Platform  domain.Platform        `json:"platform"`
	LoopGuard domain.LoopGuardState  `json:"loop_guard"`
	CleanURL  string                 `json:"clean_url,omitempty"`
	Target    *domain.RedirectTarget `json:"target,omitempty"`
	Reason    string                 `json:"reason,omitempty"`
}

// ShouldRedirect reports whether the scheduler is to be armed.
func (d Decision) ShouldRedirect() bool {
	return d.Target != nil
}

// Config holds the collaborators of a Controller.
type Config struct {
	Classifier inapp.Classifier
	Builder    *target.Builder
	Delay      time.Duration
	Clock      Clock
	Recorder   Recorder
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	NewID      func() string
}

// Controller creates and drives page sessions.
type Controller struct {
	classifier inapp.Classifier
	builder    *target.Builder
	delay      time.Duration
	clock      Clock
	recorder   Recorder
	metrics    *metrics.Metrics
	logger     *slog.Logger
	newID      func() string
	now        func() time.Time
}

// NewController creates a controller, filling unset fields with defaults.
func NewController(cfg Config) *Controller {
	c := &Controller{
		classifier: cfg.Classifier,
		builder:    cfg.Builder,
		delay:      cfg.Delay,
		clock:      cfg.Clock,
		recorder:   cfg.Recorder,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		newID:      cfg.NewID,
		now:        time.Now,
	}
	if c.classifier == nil {
		c.classifier = inapp.RuleClassifier{}
	}
	if c.builder == nil {
		c.builder, _ = target.New(target.Options{Mode: domain.ModeSelfReopen})
	}
	if c.delay <= 0 {
		c.delay = DefaultDelay
	}
	if c.clock == nil {
		c.clock = SystemClock
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Mode returns the deployment target mode.
func (c *Controller) Mode() domain.TargetMode {
	return c.builder.Mode()
}

// Preview evaluates a page load without touching any page. The returned
// entries are the diagnostic log the evaluation would produce.
func (c *Controller) Preview(ctx context.Context, ua, pageURL string) (Decision, []domain.LogEntry) {
	log := eventlog.New()
	d := c.evaluate(ctx, ua, pageURL, log, nil)
	return d, log.Entries()
}

// Open runs the page-load sequence for one page view: classification,
// platform resolution, loop-guard inspection, then the redirect decision.
// A qualifying session is returned Armed; every other session stays Idle.
// The caller must Close the session when the page goes away.
func (c *Controller) Open(ctx context.Context, ua, pageURL string, page Page) *Session {
	s := &Session{
		id:       c.newID(),
		ctx:      ctx,
		ctrl:     c,
		page:     page,
		openedAt: c.now(),
	}
	s.log = eventlog.New(eventlog.WithSubscriber(s.render))
	s.sched = NewScheduler(c.clock, s.fire)
	c.metrics.PageOpened()

	s.decision = c.evaluate(ctx, ua, pageURL, s.log, func(clean string) {
		if err := page.ReplaceURL(ctx, clean); err != nil {
			s.log.Error("ERROR: Failed to remove 'redirected' parameter from URL: %v", err)
			return
		}
		s.log.Info("Removed 'redirected' parameter from URL.")
	})

	if !s.decision.ShouldRedirect() {
		s.log.Info("Skipping redirection logic: conditions not met.")
		c.logger.Info("Redirect skipped", "session_id", s.id, "reason", s.decision.Reason)
		return s
	}

	tgt := *s.decision.Target
	s.log.Info("Starting %s timer before redirecting...", c.delay)
	if err := s.sched.Arm(tgt, c.delay); err != nil {
		s.log.Error("ERROR: Could not arm redirect: %v", err)
		return s
	}
	c.logger.Info("Redirect armed", "session_id", s.id, "platform", tgt.Platform.String(), "delay", c.delay)
	return s
}

// evaluate performs the detection steps in order and fills a Decision.
// onStrip, when set, is called as soon as a loopback marker is consumed and
// before the redirect decision is made.
func (c *Controller) evaluate(ctx context.Context, ua, pageURL string, log *eventlog.Log, onStrip func(string)) Decision {
	var d Decision

	log.Info("Process started: Initializing detection.")
	det, err := inapp.Detect(ctx, c.classifier, ua)
	if err != nil {
		c.metrics.ClassificationFailed()
		c.logger.Warn("User agent classification failed", "error", err)
		log.Error("ERROR: An exception occurred during detection: %v", err)
	}
	d.Detection = det
	log.Info("User Agent detected: %s", ua)

	if det.Embedded {
		app := det.HostAppName
		if app == "" {
			app = "Unknown"
		}
		log.Info("In-app browser check complete. Result: true (Detected App: %s).", app)
		d.Platform = platform.Resolve(det.RawUserAgent)
		if d.Platform.Known() {
			log.Info("Phone type identified as: %s.", d.Platform)
		} else {
			log.Info("Could not determine phone type. Redirection will be skipped.")
		}
	} else {
		log.Info("In-app browser check complete. Result: false.")
		log.Info("Not an in-app browser. No redirection necessary.")
	}

	log.Info("Checking URL for 'redirected' parameter to prevent loop...")
	d.LoopGuard = loopguard.Check(pageURL)
	if d.LoopGuard.IsLoopback {
		log.Info("Found 'redirected=true' parameter. Halting redirection process.")
		d.CleanURL = loopguard.Strip(pageURL)
		if onStrip != nil {
			onStrip(d.CleanURL)
		}
	} else {
		log.Info("No 'redirected' parameter found. Proceeding normally.")
	}

	switch {
	case !det.Embedded:
		d.Reason = ReasonNotEmbedded
	case !d.Platform.Known():
		d.Reason = ReasonUnknownPlatform
	case d.LoopGuard.IsLoopback:
		d.Reason = ReasonLoopback
	default:
		log.Info("All conditions met for redirection (in-app, known phone type, not a loop).")
		tgt, err := c.builder.Build(d.Platform, pageURL)
		if err != nil {
			d.Reason = ReasonNoTarget
			if errors.Is(err, target.ErrNoWrappingRule) {
				log.Info("Could not find a redirect rule for phone type: %s", d.Platform)
			} else {
				log.Info("Could not build redirect target: %v", err)
			}
			break
		}
		d.Target = &tgt
		log.Info("Final redirection URL: %s", tgt.URI)
	}
	return d
}
