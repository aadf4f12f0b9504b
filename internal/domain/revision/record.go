package revision

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Record is the relational mirror of an Entry. The filesystem store stays authoritative.
type Record struct {
	RevisionID  string         `gorm:"column:revision_id;type:varchar(64);primaryKey" json:"revision_id"`
	ProjectID   string         `gorm:"column:project_id;type:varchar(128);not null;index:idx_project_revision_project_time,priority:1" json:"project_id"`
	CommittedAt time.Time      `gorm:"column:committed_at;not null;index:idx_project_revision_project_time,priority:2" json:"committed_at"`
	Name        string         `gorm:"column:name" json:"name,omitempty"`
	ProjectKind string         `gorm:"column:project_kind;index" json:"project_kind,omitempty"`
	AuthorTag   string         `gorm:"column:author_tag" json:"author_tag"`
	Description string         `gorm:"column:description" json:"description"`
	FileCount   int            `gorm:"column:file_count" json:"file_count"`
	FileDigests datatypes.JSON `gorm:"column:file_digests" json:"file_digests"`
	Attributes  datatypes.JSON `gorm:"column:attributes" json:"attributes,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Record) TableName() string { return "project_revision" }

// RecordFromEntry flattens an entry into its index row.
func RecordFromEntry(e Entry) (Record, error) {
	digests, err := json.Marshal(e.FileDigests)
	if err != nil {
		return Record{}, err
	}
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return Record{}, err
	}
	return Record{
		RevisionID:  e.RevisionID,
		ProjectID:   e.ProjectID,
		CommittedAt: e.Timestamp.UTC(),
		Name:        e.Attributes[AttrName],
		ProjectKind: e.Attributes[AttrProjectKind],
		AuthorTag:   e.AuthorTag,
		Description: e.Description,
		FileCount:   len(e.FilePaths),
		FileDigests: datatypes.JSON(digests),
		Attributes:  datatypes.JSON(attrs),
	}, nil
}

// ProjectSummary is one row of the project listing built from the index.
type ProjectSummary struct {
	ProjectID      string    `json:"project_id"`
	Name           string    `json:"name,omitempty"`
	ProjectKind    string    `json:"project_kind,omitempty"`
	LatestRevision string    `json:"latest_revision_id"`
	Revisions      int       `json:"revisions"`
	UpdatedAt      time.Time `json:"updated_at"`
}
