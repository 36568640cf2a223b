// Package platform maps a raw user agent to the closed set of mobile
// platforms a redirect can be built for.
package platform

import (
	"strings"

	"github.com/ashureev/inapp-redirector/internal/domain"
	"github.com/mileusna/useragent"
)

var iosTokens = []string{"iphone", "ipad", "ipod"}

// Resolve returns the platform of ua. It never panics; anything that is
// neither Android nor iOS, including the empty string, is Unknown.
func Resolve(ua string) (p domain.Platform) {
	if strings.TrimSpace(ua) == "" {
		return domain.PlatformUnknown
	}
	defer func() {
		if recover() != nil {
			p = fallback(ua)
		}
	}()

	parsed := useragent.Parse(ua)
	switch {
	case parsed.IsAndroid():
		return domain.PlatformAndroid
	case parsed.IsIOS():
		return domain.PlatformIOS
	}
	return fallback(ua)
}

// fallback covers embedded-browser agents the parser does not recognise,
// which often drop the tokens it keys on.
func fallback(ua string) domain.Platform {
	lower := strings.ToLower(ua)
	if strings.Contains(lower, "android") {
		return domain.PlatformAndroid
	}
	for _, tok := range iosTokens {
		if strings.Contains(lower, tok) {
			return domain.PlatformIOS
		}
	}
	return domain.PlatformUnknown
}
