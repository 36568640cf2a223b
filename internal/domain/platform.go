// Package domain contains core domain types for the in-app browser escape service.
package domain

import "fmt"

// Platform is the resolved mobile operating system family.
type Platform int

const (
	// PlatformUnknown is terminal: no redirect is attempted.
	PlatformUnknown Platform = iota
	PlatformAndroid
	PlatformIOS
)

// String returns the lowercase platform name used in logs, metrics and JSON.
func (p Platform) String() string {
	switch p {
	case PlatformAndroid:
		return "android"
	case PlatformIOS:
		return "ios"
	default:
		return "unknown"
	}
}

// Known reports whether a wrapping rule may exist for the platform.
func (p Platform) Known() bool {
	return p == PlatformAndroid || p == PlatformIOS
}

// MarshalText implements encoding.TextMarshaler.
func (p Platform) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Platform) UnmarshalText(b []byte) error {
	v, err := ParsePlatform(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParsePlatform converts a platform name back into a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch s {
	case "android":
		return PlatformAndroid, nil
	case "ios":
		return PlatformIOS, nil
	case "unknown", "":
		return PlatformUnknown, nil
	default:
		return PlatformUnknown, fmt.Errorf("unknown platform %q", s)
	}
}
