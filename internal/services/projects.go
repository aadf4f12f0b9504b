package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vibecode-backend/internal/domain/intent"
	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/domain/revision"
	intentmod "github.com/yungbote/vibecode-backend/internal/modules/intent"
	"github.com/yungbote/vibecode-backend/internal/modules/synth"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/dbctx"
	"github.com/yungbote/vibecode-backend/internal/platform/interactionlog"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/realtime"
)

// Author tags recorded on revisions.
const (
	AuthorAI   = "ai"
	AuthorUser = "user"
)

type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request, progress synth.ProgressFunc) (project.Generated, error)
}

type VersionStore interface {
	Commit(ctx context.Context, projectID string, files map[string]string, description, author string, attrs map[string]string) (revision.Entry, error)
	// Create commits the first revision and fails with a validation error
	// when the project already has one.
	Create(ctx context.Context, projectID string, files map[string]string, description, author string, attrs map[string]string) (revision.Entry, error)
	ListRevisions(ctx context.Context, projectID string) ([]revision.Entry, error)
	Latest(ctx context.Context, projectID string) (revision.Entry, error)
	Entry(ctx context.Context, projectID, revisionID string) (revision.Entry, error)
	Load(ctx context.Context, projectID, revisionID string) (map[string]string, error)
	Rollback(ctx context.Context, projectID, targetRevisionID, author string) (revision.Entry, error)
	Diff(ctx context.Context, projectID, a, b string) (revision.Diff, error)
	Projects(ctx context.Context) ([]string, error)
}

// ProjectIndex is the optional relational listing of projects.
type ProjectIndex interface {
	ListProjects(dbc dbctx.Context, limit int) ([]revision.ProjectSummary, error)
}

type SynthesisMetrics interface {
	ObserveSynthesis(mode, status string, dur time.Duration)
	IncRevision(author string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveSynthesis(string, string, time.Duration) {}
func (nopMetrics) IncRevision(string)                            {}

type GenerateInput struct {
	Description string
	Name        string
	// ProjectID lets a caller subscribe to progress before the project exists.
	ProjectID string
	Author    string
}

type SynthesisInput struct {
	Intent    intent.Record
	Mode      synth.Mode
	ProjectID string
	// RevisionID picks the base revision for non-create modes; empty means latest.
	RevisionID  string
	Kind        intent.ProjectKind
	Name        string
	Description string
	Patch       string
	Author      string
	SessionID   string
}

type ProjectService interface {
	Generate(ctx context.Context, in GenerateInput) (project.Generated, error)
	Synthesize(ctx context.Context, in SynthesisInput) (project.Generated, error)
	Revisions(ctx context.Context, projectID string) ([]revision.Entry, error)
	Rollback(ctx context.Context, projectID, revisionID, author string) (revision.Entry, error)
	Diff(ctx context.Context, projectID, a, b string) (revision.Diff, error)
	// Files returns one revision's files; an empty revisionID selects the latest.
	Files(ctx context.Context, projectID, revisionID string) (revision.Entry, map[string]string, error)
	Snapshot(ctx context.Context, ref project.Reference) (project.Reference, project.Snapshot, error)
	List(ctx context.Context, limit int) ([]revision.ProjectSummary, error)
}

type projectService struct {
	log      *logger.Logger
	synth    Synthesizer
	store    VersionStore
	index    ProjectIndex
	emitter  SSEEmitter
	metrics  SynthesisMetrics
	recorder interactionlog.Recorder
}

func NewProjectService(
	baseLog *logger.Logger,
	synthesizer Synthesizer,
	store VersionStore,
	index ProjectIndex,
	emitter SSEEmitter,
	metrics SynthesisMetrics,
	recorder interactionlog.Recorder,
) ProjectService {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	if emitter == nil {
		emitter = nopEmitter{}
	}
	if recorder == nil {
		recorder = interactionlog.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &projectService{
		log:      baseLog.With("service", "ProjectService"),
		synth:    synthesizer,
		store:    store,
		index:    index,
		emitter:  emitter,
		metrics:  metrics,
		recorder: recorder,
	}
}

func (s *projectService) Generate(ctx context.Context, in GenerateInput) (project.Generated, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return project.Generated{}, apierr.Newf(apierr.KindValidation, "description is required")
	}
	if in.ProjectID != "" {
		_, err := s.store.Latest(ctx, in.ProjectID)
		switch {
		case err == nil:
			return project.Generated{}, apierr.Newf(apierr.KindValidation, "project %s already exists", in.ProjectID)
		case !errors.Is(err, apierr.ErrProjectNotFound):
			return project.Generated{}, err
		}
	}
	rec := intentmod.Analyze(desc)
	kind := rec.ProjectKind
	if rec.RequestKind != intent.CreateNew {
		kind = intentmod.ProjectKindOf(desc)
	}
	author := in.Author
	if author == "" {
		author = AuthorAI
	}
	return s.Synthesize(ctx, SynthesisInput{
		Intent:      rec,
		Mode:        synth.ModeCreate,
		ProjectID:   in.ProjectID,
		Kind:        kind,
		Name:        strings.TrimSpace(in.Name),
		Description: desc,
		Author:      author,
	})
}

// Synthesize runs one synthesis and commits the result. Non-create modes load
// in.RevisionID (or the latest revision) as the base; without a project they
// create. A create with a caller-supplied ProjectID fails if that project
// gained a revision meanwhile.
func (s *projectService) Synthesize(ctx context.Context, in SynthesisInput) (project.Generated, error) {
	start := time.Now()
	req := synth.Request{
		Intent:      in.Intent,
		Mode:        in.Mode,
		ProjectID:   in.ProjectID,
		Kind:        in.Kind,
		Name:        in.Name,
		Description: in.Description,
		Patch:       in.Patch,
	}
	if req.Mode == "" {
		req.Mode = synth.ModeCreate
	}
	if req.Mode != synth.ModeCreate {
		if req.ProjectID == "" {
			req.Mode = synth.ModeCreate
		} else {
			entry, err := s.baseRevision(ctx, req.ProjectID, in.RevisionID)
			if err != nil {
				return project.Generated{}, err
			}
			if req.Prior, err = s.store.Load(ctx, req.ProjectID, entry.RevisionID); err != nil {
				return project.Generated{}, err
			}
			if req.Kind == "" && entry.Attributes[revision.AttrProjectKind] != "" {
				req.Kind = intent.ParseProjectKind(entry.Attributes[revision.AttrProjectKind])
			}
			if req.Name == "" {
				req.Name = entry.Attributes[revision.AttrName]
			}
		}
	}
	commit := s.store.Commit
	if req.Mode == synth.ModeCreate && req.ProjectID != "" {
		commit = s.store.Create
	}
	if req.ProjectID == "" {
		req.ProjectID = uuid.NewString()
	}
	author := in.Author
	if author == "" {
		author = AuthorAI
	}
	channel := realtime.ProjectChannel(req.ProjectID)

	gen, err := s.synth.Synthesize(ctx, req, func(stage string, percent int) {
		s.emitter.Emit(ctx, realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventSynthesisProgress,
			Data:    map[string]any{"project_id": req.ProjectID, "stage": stage, "percent": percent, "mode": string(req.Mode)},
		})
	})
	if err == nil {
		var entry revision.Entry
		entry, err = commit(ctx, gen.ProjectID, gen.Files, describe(req.Mode, gen), author, map[string]string{
			revision.AttrName:        gen.Name,
			revision.AttrProjectKind: string(gen.Kind),
			revision.AttrFeatures:    strings.Join(gen.Features, ","),
		})
		gen.RevisionID = entry.RevisionID
	}
	if err != nil {
		s.metrics.ObserveSynthesis(string(req.Mode), "error", time.Since(start))
		s.emitter.Emit(ctx, realtime.SSEMessage{
			Channel: channel,
			Event:   realtime.SSEEventSynthesisFailed,
			Data:    map[string]any{"project_id": req.ProjectID, "error": string(apierr.KindOf(err)), "message": err.Error()},
		})
		s.recorder.Record(ctx, interactionlog.Entry{
			Type:      interactionlog.TypeError,
			SessionID: in.SessionID,
			Data:      map[string]any{"operation": "synthesize", "mode": string(req.Mode), "error": err.Error()},
		})
		s.log.Warn("synthesis failed", "project_id", req.ProjectID, "mode", req.Mode, "error", err)
		return project.Generated{}, err
	}

	s.metrics.ObserveSynthesis(string(req.Mode), "ok", time.Since(start))
	s.metrics.IncRevision(author)
	s.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: channel,
		Event:   realtime.SSEEventRevisionCommitted,
		Data: map[string]any{
			"project_id":   gen.ProjectID,
			"revision_id":  gen.RevisionID,
			"files_count":  len(gen.Files),
			"project_kind": string(gen.Kind),
		},
	})
	if req.Mode == synth.ModeCreate {
		s.recorder.Record(ctx, interactionlog.Entry{
			Type:             interactionlog.TypeProjectCreation,
			SessionID:        in.SessionID,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
			Data: map[string]any{
				"project_id":   gen.ProjectID,
				"project_kind": string(gen.Kind),
				"name":         gen.Name,
				"files_count":  len(gen.Files),
			},
		})
	}
	return gen, nil
}

func (s *projectService) baseRevision(ctx context.Context, projectID, revisionID string) (revision.Entry, error) {
	if revisionID == "" {
		return s.store.Latest(ctx, projectID)
	}
	return s.store.Entry(ctx, projectID, revisionID)
}

func describe(mode synth.Mode, gen project.Generated) string {
	switch mode {
	case synth.ModeModify:
		return fmt.Sprintf("modify %s: %s", gen.Name, strings.Join(gen.Features, ", "))
	case synth.ModeRestyle:
		return fmt.Sprintf("restyle %s", gen.Name)
	case synth.ModePatch:
		return fmt.Sprintf("patch %s", gen.Name)
	default:
		return fmt.Sprintf("create %s (%s)", gen.Name, gen.Kind)
	}
}

func (s *projectService) Revisions(ctx context.Context, projectID string) ([]revision.Entry, error) {
	return s.store.ListRevisions(ctx, projectID)
}

func (s *projectService) Rollback(ctx context.Context, projectID, revisionID, author string) (revision.Entry, error) {
	if strings.TrimSpace(revisionID) == "" {
		return revision.Entry{}, apierr.Newf(apierr.KindValidation, "revision_id is required")
	}
	if author == "" {
		author = AuthorUser
	}
	e, err := s.store.Rollback(ctx, projectID, revisionID, author)
	if err != nil {
		return revision.Entry{}, err
	}
	s.metrics.IncRevision(author)
	s.emitter.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ProjectChannel(projectID),
		Event:   realtime.SSEEventRolledBack,
		Data:    map[string]any{"project_id": projectID, "revision_id": e.RevisionID, "rollback_from": revisionID},
	})
	s.log.Info("project rolled back", "project_id", projectID, "target", revisionID, "new_revision_id", e.RevisionID)
	return e, nil
}

func (s *projectService) Diff(ctx context.Context, projectID, a, b string) (revision.Diff, error) {
	if a == "" || b == "" {
		return revision.Diff{}, apierr.Newf(apierr.KindValidation, "both revisions are required")
	}
	return s.store.Diff(ctx, projectID, a, b)
}

func (s *projectService) Files(ctx context.Context, projectID, revisionID string) (revision.Entry, map[string]string, error) {
	e, err := s.baseRevision(ctx, projectID, revisionID)
	if err != nil {
		return revision.Entry{}, nil, err
	}
	files, err := s.store.Load(ctx, projectID, e.RevisionID)
	if err != nil {
		return revision.Entry{}, nil, err
	}
	return e, files, nil
}

// Snapshot resolves ref (latest revision when unset) and the metadata a chat session caches.
func (s *projectService) Snapshot(ctx context.Context, ref project.Reference) (project.Reference, project.Snapshot, error) {
	e, err := s.baseRevision(ctx, ref.ProjectID, ref.RevisionID)
	if err != nil {
		return project.Reference{}, project.Snapshot{}, err
	}
	return project.Reference{ProjectID: e.ProjectID, RevisionID: e.RevisionID}, SnapshotOf(e), nil
}

func SnapshotOf(e revision.Entry) project.Snapshot {
	snap := project.Snapshot{
		Name:      e.Attributes[revision.AttrName],
		Kind:      intent.ParseProjectKind(e.Attributes[revision.AttrProjectKind]),
		FileNames: append([]string{}, e.FilePaths...),
	}
	for _, f := range strings.Split(e.Attributes[revision.AttrFeatures], ",") {
		if f == "database" {
			snap.DatabaseConfigured = true
		}
	}
	for _, p := range e.FilePaths {
		if strings.HasSuffix(p, ".sql") {
			snap.DatabaseConfigured = true
		}
	}
	return snap
}

// List prefers the relational index and falls back to scanning the store.
func (s *projectService) List(ctx context.Context, limit int) ([]revision.ProjectSummary, error) {
	if s.index != nil {
		out, err := s.index.ListProjects(dbctx.New(ctx), limit)
		if err == nil {
			return out, nil
		}
		s.log.Warn("project index unavailable, scanning store", "error", err)
	}
	ids, err := s.store.Projects(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]revision.ProjectSummary, 0, len(ids))
	for _, id := range ids {
		h, err := s.store.ListRevisions(ctx, id)
		if err != nil {
			s.log.Warn("skipping unreadable project", "project_id", id, "error", err)
			continue
		}
		last := h[len(h)-1]
		out = append(out, revision.ProjectSummary{
			ProjectID:      id,
			Name:           last.Attributes[revision.AttrName],
			ProjectKind:    last.Attributes[revision.AttrProjectKind],
			LatestRevision: last.RevisionID,
			Revisions:      len(h),
			UpdatedAt:      last.Timestamp,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
