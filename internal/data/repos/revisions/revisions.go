package revisions

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/vibecode-backend/internal/domain/revision"
	"github.com/yungbote/vibecode-backend/internal/platform/dbctx"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

type Repo interface {
	Insert(dbc dbctx.Context, row *revision.Record) error
	ListByProject(dbc dbctx.Context, projectID string) ([]revision.Record, error)
	ListProjects(dbc dbctx.Context, limit int) ([]revision.ProjectSummary, error)
}

type GormRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) *GormRepo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &GormRepo{db: db, log: baseLog.With("repo", "ProjectRevisionRepo")}
}

// Insert stores a row. Re-inserting a known revision is a no-op.
func (r *GormRepo) Insert(dbc dbctx.Context, row *revision.Record) error {
	if row == nil || row.RevisionID == "" || row.ProjectID == "" {
		return fmt.Errorf("invalid revision record")
	}
	err := dbc.Conn(r.db).Create(row).Error
	if err != nil && isDuplicate(err) {
		r.log.Debug("revision already indexed", "revision_id", row.RevisionID)
		return nil
	}
	return err
}

func (r *GormRepo) ListByProject(dbc dbctx.Context, projectID string) ([]revision.Record, error) {
	if projectID == "" {
		return nil, nil
	}
	var out []revision.Record
	err := dbc.Conn(r.db).
		Where("project_id = ?", projectID).
		Order("committed_at ASC").
		Find(&out).Error
	return out, err
}

// ListProjects folds the index into one summary per project, most recently updated first.
// A non-positive limit lists every project.
func (r *GormRepo) ListProjects(dbc dbctx.Context, limit int) ([]revision.ProjectSummary, error) {
	var rows []revision.Record
	if err := dbc.Conn(r.db).
		Select("revision_id", "project_id", "committed_at", "name", "project_kind").
		Order("project_id ASC, committed_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	byProject := map[string]*revision.ProjectSummary{}
	for _, row := range rows {
		s, ok := byProject[row.ProjectID]
		if !ok {
			s = &revision.ProjectSummary{ProjectID: row.ProjectID}
			byProject[row.ProjectID] = s
		}
		s.Revisions++
		s.LatestRevision = row.RevisionID
		s.UpdatedAt = row.CommittedAt
		if row.Name != "" {
			s.Name = row.Name
		}
		if row.ProjectKind != "" {
			s.ProjectKind = row.ProjectKind
		}
	}
	out := make([]revision.ProjectSummary, 0, len(byProject))
	for _, s := range byProject {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ProjectID < out[j].ProjectID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IndexRevision mirrors a committed entry into the table.
func (r *GormRepo) IndexRevision(ctx context.Context, e revision.Entry) error {
	row, err := revision.RecordFromEntry(e)
	if err != nil {
		return err
	}
	return r.Insert(dbctx.New(ctx), &row)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.TrimSpace(pgErr.Code) == "23505" // unique_violation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") || strings.Contains(msg, "duplicate key")
}
