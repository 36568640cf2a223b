package platform

import (
	"testing"

	"github.com/ashureev/inapp-redirector/internal/domain"
)

const (
	uaInstagramAndroid = "Mozilla/5.0 (Linux; Android 13; Pixel 7 Build/TQ3A.230805.001; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/116.0.5845.163 Mobile Safari/537.36 Instagram 298.0.0.31.110 Android"
	uaInstagramIOS     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148 Instagram 300.0.0.16.111"
	uaChromeAndroid    = "Mozilla/5.0 (Linux; Android 14; SM-S911B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	uaSafariIPad       = "Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1"
	uaDesktopChrome    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	uaMacSafari        = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want domain.Platform
	}{
		{"instagram android", uaInstagramAndroid, domain.PlatformAndroid},
		{"instagram ios", uaInstagramIOS, domain.PlatformIOS},
		{"chrome android", uaChromeAndroid, domain.PlatformAndroid},
		{"safari ipad", uaSafariIPad, domain.PlatformIOS},
		{"desktop chrome", uaDesktopChrome, domain.PlatformUnknown},
		{"mac safari", uaMacSafari, domain.PlatformUnknown},
		{"empty", "", domain.PlatformUnknown},
		{"whitespace", "   ", domain.PlatformUnknown},
		{"garbled", "\x00\xff((;;))", domain.PlatformUnknown},
		{"bare token", "SomeApp/1.0 android", domain.PlatformAndroid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.ua); got != tt.want {
				t.Errorf("Resolve(%q) = %v, want %v", tt.ua, got, tt.want)
			}
		})
	}
}

func TestResolve_Deterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		if Resolve(uaInstagramIOS) != domain.PlatformIOS {
			t.Fatal("Resolve is not deterministic")
		}
	}
}
