package domain

// DetectionResult is the normalized output of the environment classifier.
// It is produced once per page load and never modified afterwards.
type DetectionResult struct {
	Embedded     bool   `json:"embedded"`
	HostAppName  string `json:"host_app_name,omitempty"`
	RawUserAgent string `json:"raw_user_agent"`
}

// LoopGuardState records whether the current page load is the result of a
// previous redirect.
type LoopGuardState struct {
	IsLoopback bool `json:"is_loopback"`
}

// RedirectTarget is the platform-wrapped URI handed to the operating system.
type RedirectTarget struct {
	URI      string   `json:"uri"`
	Platform Platform `json:"platform"`
}
