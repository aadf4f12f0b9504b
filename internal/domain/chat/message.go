package chat

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ActionType is a structured hint attached to an assistant reply.
type ActionType string

const (
	ActionProjectCreated ActionType = "project_created"
	ActionCodeUpdate     ActionType = "code_update"
	ActionBugAnalysis    ActionType = "bug_analysis"
	ActionDesignUpdate   ActionType = "design_update"
)

type Action struct {
	Type       ActionType `json:"type"`
	ProjectID  string     `json:"project_id,omitempty"`
	RevisionID string     `json:"revision_id,omitempty"`
	Detail     string     `json:"detail,omitempty"`
}

// Reply is the result of one send.
type Reply struct {
	Success bool     `json:"success"`
	Message Message  `json:"message"`
	Actions []Action `json:"actions"`
	Error   string   `json:"error,omitempty"`
}
