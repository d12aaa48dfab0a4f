package domain

// EventKind classifies a relayed log event.
type EventKind string

const (
	// EventInfo is a plain informational event.
	EventInfo EventKind = "info"
	// EventSuccess marks successful completion.
	EventSuccess EventKind = "success"
	// EventError marks a failure.
	EventError EventKind = "error"
)

// LogEvent is one entry in an enrichment job's live event feed. The JSON
// field names match the upstream pipeline's framing.
type LogEvent struct {
	Message string    `json:"message"`
	Kind    EventKind `json:"type"`
}
