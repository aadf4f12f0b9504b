package realtime

import "strings"

type SSEEvent string

const (
	SSEEventSynthesisProgress SSEEvent = "SynthesisProgress"
	SSEEventSynthesisFailed   SSEEvent = "SynthesisFailed"
	SSEEventRevisionCommitted SSEEvent = "RevisionCommitted"
	SSEEventRolledBack        SSEEvent = "RolledBack"
)

type SSEMessage struct {
	Channel string   `json:"channel"`
	Event   SSEEvent `json:"event"`
	Data    any      `json:"data,omitempty"`
}

const projectChannelPrefix = "project:"

// ProjectChannel is the channel progress for one project is published on.
func ProjectChannel(projectID string) string { return projectChannelPrefix + projectID }

// IsProjectChannel reports whether channel names a project stream.
func IsProjectChannel(channel string) bool {
	return strings.HasPrefix(channel, projectChannelPrefix) && len(channel) > len(projectChannelPrefix)
}
