package project

import (
	"time"

	"github.com/yungbote/vibecode-backend/internal/domain/intent"
)

// EntryFile is the primary entry point every web project must carry.
const EntryFile = "index.html"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type Recommendation struct {
	Rule     string   `json:"rule"`
	Message  string   `json:"message"`
	Priority Priority `json:"priority"`
	Path     string   `json:"path,omitempty"`
}

type Summary struct {
	Features         []string         `json:"features"`
	Recommendations  []Recommendation `json:"recommendations"`
	ImprovementAreas []string         `json:"improvement_areas"`
}

// Generated is the immutable snapshot produced by one synthesis run.
type Generated struct {
	ProjectID    string             `json:"project_id"`
	RevisionID   string             `json:"revision_id,omitempty"`
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Kind         intent.ProjectKind `json:"project_kind"`
	Files        map[string]string  `json:"files"`
	Technologies []string           `json:"technologies"`
	Features     []string           `json:"features"`
	CreatedAt    time.Time          `json:"created_at"`
	Summary      Summary            `json:"summary"`
}

// Reference points at one revision of a project.
type Reference struct {
	ProjectID  string `json:"project_id"`
	RevisionID string `json:"revision_id,omitempty"`
}

func (r Reference) IsZero() bool { return r.ProjectID == "" }

// Snapshot is the cached project metadata a chat session works against.
type Snapshot struct {
	Name               string             `json:"name"`
	Kind               intent.ProjectKind `json:"project_kind"`
	FileNames          []string           `json:"file_names"`
	DatabaseConfigured bool               `json:"database_configured"`
}
