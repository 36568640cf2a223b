package domain

import "fmt"

// RedirectState is the lifecycle of a page's redirect scheduler.
type RedirectState int

const (
	StateIdle RedirectState = iota
	StateArmed
	StateFiring
	StateDone
	StateCancelled
)

func (s RedirectState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s RedirectState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *RedirectState) UnmarshalText(b []byte) error {
	v, err := ParseRedirectState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// ParseRedirectState converts a state name back into a RedirectState.
func ParseRedirectState(s string) (RedirectState, error) {
	for st := StateIdle; st <= StateCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return StateIdle, fmt.Errorf("unknown redirect state %q", s)
}

// Terminal reports whether no further transition can occur.
func (s RedirectState) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// TargetMode selects what the redirect hands the user off to.
type TargetMode int

const (
	// ModeSelfReopen reopens the current page in the native browser.
	ModeSelfReopen TargetMode = iota
	// ModeFixedDestination opens a fixed store listing.
	ModeFixedDestination
)

func (m TargetMode) String() string {
	if m == ModeFixedDestination {
		return "fixed-destination"
	}
	return "self-reopen"
}

// MarshalText implements encoding.TextMarshaler.
func (m TargetMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *TargetMode) UnmarshalText(b []byte) error {
	v, err := ParseTargetMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseTargetMode parses a mode name as used in configuration.
func ParseTargetMode(s string) (TargetMode, error) {
	switch s {
	case "self-reopen", "self", "":
		return ModeSelfReopen, nil
	case "fixed-destination", "fixed", "store":
		return ModeFixedDestination, nil
	default:
		return ModeSelfReopen, fmt.Errorf("unknown redirect mode %q", s)
	}
}
