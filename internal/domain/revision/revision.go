package revision

import (
	"sort"
	"time"
)

// Well-known attribute keys carried on a revision entry.
const (
	AttrName         = "name"
	AttrProjectKind  = "project_kind"
	AttrRollbackFrom = "rollback_from"
	AttrFeatures     = "features"
)

// Entry describes one committed revision. Entries are never mutated after commit.
type Entry struct {
	RevisionID  string            `json:"revision_id"`
	ProjectID   string            `json:"project_id"`
	Timestamp   time.Time         `json:"timestamp"`
	AuthorTag   string            `json:"author_tag"`
	Description string            `json:"description"`
	FilePaths   []string          `json:"file_paths"`
	FileDigests map[string]string `json:"file_digests"`
	Attributes  map[string]string `json:"attributes,omitempty"`
}

// Diff lists paths by how they changed going from revision a to revision b.
type Diff struct {
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

// Compare computes the change from digests a to digests b.
func Compare(a, b map[string]string) Diff {
	d := Diff{Added: []string{}, Removed: []string{}, Modified: []string{}}
	for p, hb := range b {
		ha, ok := a[p]
		switch {
		case !ok:
			d.Added = append(d.Added, p)
		case ha != hb:
			d.Modified = append(d.Modified, p)
		}
	}
	for p := range a {
		if _, ok := b[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)
	sort.Strings(d.Modified)
	return d
}
