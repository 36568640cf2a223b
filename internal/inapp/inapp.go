// Package inapp classifies whether a user agent belongs to an embedded
// browser hosted by a native application.
package inapp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

// ErrMalformedResult is returned when a classifier answers with data that
// does not describe the user agent it was given.
var ErrMalformedResult = errors.New("malformed classification result")

// Result is the raw answer of a classification service.
type Result struct {
	IsInApp bool
	AppName string
	UA      string
}

// Classifier is a user-agent classification service.
type Classifier interface {
	Classify(ctx context.Context, ua string) (Result, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, ua string) (Result, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, ua string) (Result, error) {
	return f(ctx, ua)
}

// appRule maps a user agent pattern to a host application name.
type appRule struct {
	pattern *regexp.Regexp
	name    string
}

var appRules = []appRule{
	{regexp.MustCompile(`\bInstagram\b`), "Instagram"},
	{regexp.MustCompile(`\bFBAN/Messenger|\bFB_IAB/MESSENGER|\bMessengerForiOS\b|\bMessengerLiteForiOS\b`), "Messenger"},
	{regexp.MustCompile(`\bFBAN/|\bFBAV/|\bFB_IAB/|\[FB`), "Facebook"},
	{regexp.MustCompile(`\bLinkedInApp\b`), "LinkedIn"},
	{regexp.MustCompile(`(?i)\bmusical_ly|\bBytedanceWebview\b|\bTikTok\b|\btrill_\d`), "TikTok"},
	{regexp.MustCompile(`\bSnapchat\b`), "Snapchat"},
	{regexp.MustCompile(`\bTwitter(Android)?\b`), "Twitter"},
	{regexp.MustCompile(`\bLine/\d`), "Line"},
	{regexp.MustCompile(`\bMicroMessenger\b`), "WeChat"},
	{regexp.MustCompile(`\bPinterest\b`), "Pinterest"},
	{regexp.MustCompile(`\bTelegram\b`), "Telegram"},
}

var (
	androidWebView = regexp.MustCompile(`; wv\)`)
	iosDevice      = regexp.MustCompile(`\((iPhone|iPad|iPod)`)
	iosBrowser     = regexp.MustCompile(`\b(Safari|CriOS|FxiOS|EdgiOS|OPiOS|YaBrowser)/`)
)

// RuleClassifier recognises known in-app browsers by their user agent
// tokens and falls back to generic WebView heuristics.
type RuleClassifier struct{}

// Classify implements Classifier. It never fails.
func (RuleClassifier) Classify(_ context.Context, ua string) (Result, error) {
	res := Result{UA: ua}
	for _, rule := range appRules {
		if rule.pattern.MatchString(ua) {
			res.IsInApp = true
			res.AppName = rule.name
			return res, nil
		}
	}

	switch {
	case androidWebView.MatchString(ua):
		res.IsInApp = true
	case iosDevice.MatchString(ua) && strings.Contains(ua, "AppleWebKit") && !iosBrowser.MatchString(ua):
		res.IsInApp = true
	}
	return res, nil
}

// Detect runs c exactly once and normalizes its answer. Any failure,
// including a panic inside the classifier, yields a non-embedded result
// together with the error so the caller can record it.
func Detect(ctx context.Context, c Classifier, ua string) (det domain.DetectionResult, err error) {
	det = domain.DetectionResult{RawUserAgent: ua}
	defer func() {
		if r := recover(); r != nil {
			det = domain.DetectionResult{RawUserAgent: ua}
			err = fmt.Errorf("classifier panic: %v", r)
		}
	}()

	res, err := c.Classify(ctx, ua)
	if err != nil {
		return det, fmt.Errorf("classify user agent: %w", err)
	}
	if res.UA != "" && res.UA != ua {
		return det, fmt.Errorf("%w: classified %q", ErrMalformedResult, res.UA)
	}

	det.Embedded = res.IsInApp
	if res.IsInApp {
		det.HostAppName = strings.TrimSpace(res.AppName)
	}
	return det, nil
}
