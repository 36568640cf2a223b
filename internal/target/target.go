// Package target builds the platform-specific URIs that ask the operating
// system to leave the embedded browser.
package target

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/ashureev/inapp-redirector/internal/loopguard"
)

const (
	// DefaultAndroidBrowserPackage is the browser an Android self-reopen targets.
	DefaultAndroidBrowserPackage = "com.android.chrome"
	playStorePackage             = "com.android.vending"
	playStoreWebURL              = "https://play.google.com/store/apps/details?id="
	iosSafariPrefix              = "x-safari-"
	intentPrefix                 = "intent:"
	intentMarker                 = "#Intent;"
)

var (
	// ErrNoWrappingRule is returned for platforms without a URI rule.
	ErrNoWrappingRule = errors.New("no wrapping rule for platform")
	// ErrInvalidPageURL is returned when a self-reopen page URL is not an
	// absolute http(s) URL.
	ErrInvalidPageURL = errors.New("page url must be absolute http or https")
	// ErrNotWrapped is returned by Unwrap for URIs it cannot decode.
	ErrNotWrapped = errors.New("uri is not a recognised redirect target")
)

// Options configures a Builder.
type Options struct {
	Mode                  domain.TargetMode
	AndroidBrowserPackage string
	AndroidAppPackage     string
	IOSStoreURL           string
}

// Builder produces redirect targets for one deployment mode.
type Builder struct {
	opts Options
}

// New validates opts and returns a Builder.
func New(opts Options) (*Builder, error) {
	if opts.AndroidBrowserPackage == "" {
		opts.AndroidBrowserPackage = DefaultAndroidBrowserPackage
	}
	if opts.Mode == domain.ModeFixedDestination {
		if opts.AndroidAppPackage == "" {
			return nil, fmt.Errorf("fixed-destination mode requires an android app package")
		}
		u, err := url.Parse(opts.IOSStoreURL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return nil, fmt.Errorf("fixed-destination mode requires an https ios store url, got %q", opts.IOSStoreURL)
		}
	}
	return &Builder{opts: opts}, nil
}

// Mode returns the configured target mode.
func (b *Builder) Mode() domain.TargetMode {
	return b.opts.Mode
}

// Build wraps the target for platform p. In self-reopen mode pageURL is the
// page's own URL; it is ignored in fixed-destination mode.
func (b *Builder) Build(p domain.Platform, pageURL string) (domain.RedirectTarget, error) {
	if !p.Known() {
		return domain.RedirectTarget{}, fmt.Errorf("%w: %s", ErrNoWrappingRule, p)
	}

	var (
		uri string
		err error
	)
	switch b.opts.Mode {
	case domain.ModeFixedDestination:
		uri = b.fixed(p)
	default:
		uri, err = b.selfReopen(p, pageURL)
	}
	if err != nil {
		return domain.RedirectTarget{}, err
	}
	return domain.RedirectTarget{URI: uri, Platform: p}, nil
}

func (b *Builder) selfReopen(p domain.Platform, pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPageURL, pageURL)
	}

	// The fragment would collide with the intent parameters.
	base := pageURL
	if i := strings.IndexByte(base, '#'); i >= 0 {
		base = base[:i]
	}
	base = loopguard.Mark(base)

	switch p {
	case domain.PlatformAndroid:
		rest := strings.TrimPrefix(base[len(u.Scheme):], "://")
		return intentPrefix + rest + intentMarker +
			"scheme=" + u.Scheme + ";package=" + b.opts.AndroidBrowserPackage + ";end", nil
	case domain.PlatformIOS:
		return iosSafariPrefix + base, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNoWrappingRule, p)
}

func (b *Builder) fixed(p domain.Platform) string {
	if p == domain.PlatformIOS {
		return loopguard.Mark(b.opts.IOSStoreURL)
	}
	pkg := url.QueryEscape(b.opts.AndroidAppPackage)
	fallback := playStoreWebURL + pkg
	return "intent://" + loopguard.Mark("details?id="+pkg) + intentMarker +
		"scheme=market;package=" + playStorePackage +
		";S.browser_fallback_url=" + encodeURIComponent(fallback) + ";end"
}

// Unwrap recovers the URL a redirect target asks the OS to open.
func Unwrap(uri string) (string, error) {
	switch {
	case strings.HasPrefix(uri, iosSafariPrefix):
		return strings.TrimPrefix(uri, iosSafariPrefix), nil
	case strings.HasPrefix(uri, intentPrefix):
		body, params, ok := strings.Cut(strings.TrimPrefix(uri, intentPrefix), intentMarker)
		if !ok {
			return "", fmt.Errorf("%w: missing intent parameters", ErrNotWrapped)
		}
		scheme := ""
		for _, kv := range strings.Split(params, ";") {
			if v, found := strings.CutPrefix(kv, "scheme="); found {
				scheme = v
			}
		}
		if scheme == "" {
			return "", fmt.Errorf("%w: intent without scheme", ErrNotWrapped)
		}
		return scheme + "://" + strings.TrimPrefix(body, "//"), nil
	case strings.HasPrefix(uri, "https://"):
		return uri, nil
	}
	return "", fmt.Errorf("%w: %q", ErrNotWrapped, uri)
}

// encodeURIComponent escapes s the way browsers do for URI components.
func encodeURIComponent(s string) string {
	var b strings.Builder
	const hex = "0123456789ABCDEF"
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
