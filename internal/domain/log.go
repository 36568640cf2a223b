package domain

// LogEntry is one line of a page's diagnostic log.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
	IsError   bool   `json:"is_error"`
}
