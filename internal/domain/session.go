package domain

import "time"

// SessionRecord is the journaled summary of one page view.
type SessionRecord struct {
	ID            string          `json:"id"`
	Detection     DetectionResult `json:"detection"`
	Platform      Platform        `json:"platform"`
	LoopGuard     LoopGuardState  `json:"loop_guard"`
	Mode          TargetMode      `json:"mode"`
	TargetURI     string          `json:"target_uri,omitempty"`
	FinalState    RedirectState   `json:"final_state"`
	NavigationErr string          `json:"navigation_error,omitempty"`
	Log           []LogEntry      `json:"log"`
	OpenedAt      time.Time       `json:"opened_at"`
	ClosedAt      time.Time       `json:"closed_at"`
}

// Redirected reports whether a navigation attempt was made for the session.
func (r *SessionRecord) Redirected() bool {
	return r.FinalState == StateDone
}
