package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vibecode-backend/internal/domain/intent"
	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/domain/revision"
	"github.com/yungbote/vibecode-backend/internal/modules/synth"
	"github.com/yungbote/vibecode-backend/internal/modules/templates"
	"github.com/yungbote/vibecode-backend/internal/modules/versions"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/dbctx"
	"github.com/yungbote/vibecode-backend/internal/realtime"
)

type recordingEmitter struct {
	mu   sync.Mutex
	msgs []realtime.SSEMessage
}

func (e *recordingEmitter) Emit(_ context.Context, msg realtime.SSEMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
}

func (e *recordingEmitter) events(channel string) []realtime.SSEEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []realtime.SSEEvent
	for _, m := range e.msgs {
		if m.Channel == channel {
			out = append(out, m.Event)
		}
	}
	return out
}

type countingMetrics struct {
	mu        sync.Mutex
	runs      map[string]int
	revisions int
}

func (m *countingMetrics) ObserveSynthesis(mode, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = map[string]int{}
	}
	m.runs[mode+"/"+status]++
}

func (m *countingMetrics) IncRevision(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revisions++
}

type fakeIndex struct {
	rows []revision.ProjectSummary
	err  error
}

func (f *fakeIndex) ListProjects(_ dbctx.Context, _ int) ([]revision.ProjectSummary, error) {
	return f.rows, f.err
}

type fixture struct {
	svc     ProjectService
	store   *versions.Store
	emitter *recordingEmitter
	metrics *countingMetrics
}

func newFixture(t *testing.T, index ProjectIndex) fixture {
	t.Helper()
	lib, err := templates.New()
	require.NoError(t, err)
	store, err := versions.New(t.TempDir(), nil)
	require.NoError(t, err)
	em := &recordingEmitter{}
	m := &countingMetrics{}
	svc := NewProjectService(nil, synth.New(lib, nil, nil), store, index, em, m, nil)
	return fixture{svc: svc, store: store, emitter: em, metrics: m}
}

func TestGenerateCommitsAndStreamsProgress(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	gen, err := f.svc.Generate(ctx, GenerateInput{Description: "калькулятор", Name: "Calc", ProjectID: "calc-1"})
	require.NoError(t, err)
	require.Equal(t, "calc-1", gen.ProjectID)
	require.Equal(t, intent.Calculator, gen.Kind)
	require.NotEmpty(t, gen.RevisionID)
	require.Contains(t, gen.Files, project.EntryFile)

	revs, err := f.svc.Revisions(ctx, "calc-1")
	require.NoError(t, err)
	require.Len(t, revs, 1)
	require.Equal(t, AuthorAI, revs[0].AuthorTag)
	require.Equal(t, "Calc", revs[0].Attributes[revision.AttrName])
	require.Equal(t, "calculator", revs[0].Attributes[revision.AttrProjectKind])

	events := f.emitter.events(realtime.ProjectChannel("calc-1"))
	require.Equal(t, realtime.SSEEventRevisionCommitted, events[len(events)-1])
	require.Equal(t, 6, len(events)) // five progress milestones then the commit
	require.Equal(t, 1, f.metrics.runs["create/ok"])
	require.Equal(t, 1, f.metrics.revisions)
}

func TestGenerateValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.Generate(ctx, GenerateInput{Description: "   "})
	require.ErrorIs(t, err, apierr.ErrValidation)

	_, err = f.svc.Generate(ctx, GenerateInput{Description: "landing", ProjectID: "dup"})
	require.NoError(t, err)
	_, err = f.svc.Generate(ctx, GenerateInput{Description: "landing", ProjectID: "dup"})
	require.ErrorIs(t, err, apierr.ErrValidation)

	_, err = f.svc.Generate(ctx, GenerateInput{Description: "landing", ProjectID: "../bad"})
	require.ErrorIs(t, err, apierr.ErrValidation)
}

func TestSynthesizeModifyUsesLatestRevision(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	base, err := f.svc.Generate(ctx, GenerateInput{Description: "интернет магазин", Name: "Shop"})
	require.NoError(t, err)

	mod := intent.Record{RequestKind: intent.ModifyExisting, Features: []string{"search"}, ExtractedData: map[string]string{}}
	next, err := f.svc.Synthesize(ctx, SynthesisInput{Intent: mod, Mode: synth.ModeModify, ProjectID: base.ProjectID})
	require.NoError(t, err)
	require.Equal(t, base.ProjectID, next.ProjectID)
	require.Equal(t, "Shop", next.Name)
	require.Equal(t, base.Kind, next.Kind)
	require.Contains(t, next.Files[project.EntryFile], `data-feature="search"`)

	revs, err := f.svc.Revisions(ctx, base.ProjectID)
	require.NoError(t, err)
	require.Len(t, revs, 2)
	require.True(t, strings.HasPrefix(revs[1].Description, "modify Shop"))
}

func TestSynthesizeModifyBuildsOnGivenRevision(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	base, err := f.svc.Generate(ctx, GenerateInput{Description: "интернет магазин", Name: "Shop"})
	require.NoError(t, err)

	search := intent.Record{RequestKind: intent.ModifyExisting, Features: []string{"search"}, ExtractedData: map[string]string{}}
	_, err = f.svc.Synthesize(ctx, SynthesisInput{Intent: search, Mode: synth.ModeModify, ProjectID: base.ProjectID})
	require.NoError(t, err)

	cart := intent.Record{RequestKind: intent.ModifyExisting, Features: []string{"cart"}, ExtractedData: map[string]string{}}
	next, err := f.svc.Synthesize(ctx, SynthesisInput{Intent: cart, Mode: synth.ModeModify, ProjectID: base.ProjectID, RevisionID: base.RevisionID})
	require.NoError(t, err)
	require.Contains(t, next.Files[project.EntryFile], `data-feature="cart"`)
	require.NotContains(t, next.Files[project.EntryFile], `data-feature="search"`)

	_, err = f.svc.Synthesize(ctx, SynthesisInput{Intent: cart, Mode: synth.ModeModify, ProjectID: base.ProjectID, RevisionID: "nope"})
	require.ErrorIs(t, err, apierr.ErrRevisionNotFound)
}

func TestGenerateSameProjectIDConcurrently(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	const n = 6
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Generate(ctx, GenerateInput{Description: "landing", ProjectID: "contested"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				oks++
			} else if errors.Is(err, apierr.ErrValidation) {
				dups++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, oks)
	require.Equal(t, n-1, dups)
	revs, err := f.svc.Revisions(ctx, "contested")
	require.NoError(t, err)
	require.Len(t, revs, 1)
}

func TestSynthesizeModifyWithoutProjectCreates(t *testing.T) {
	f := newFixture(t, nil)
	mod := intent.Record{RequestKind: intent.ModifyExisting, Features: []string{"cart"}, ExtractedData: map[string]string{}}
	gen, err := f.svc.Synthesize(context.Background(), SynthesisInput{Intent: mod, Mode: synth.ModeModify})
	require.NoError(t, err)
	require.NotEmpty(t, gen.ProjectID)
	require.Equal(t, 1, f.metrics.runs["create/ok"])
}

func TestSynthesizeUnknownProject(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.Synthesize(context.Background(), SynthesisInput{Mode: synth.ModeRestyle, ProjectID: "ghost"})
	require.ErrorIs(t, err, apierr.ErrProjectNotFound)
}

func TestSynthesizeFailureEmitsEvent(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	base, err := f.svc.Generate(ctx, GenerateInput{Description: "game"})
	require.NoError(t, err)

	_, err = f.svc.Synthesize(ctx, SynthesisInput{Mode: synth.ModePatch, ProjectID: base.ProjectID, Patch: "no file names here"})
	require.ErrorIs(t, err, apierr.ErrValidation)
	events := f.emitter.events(realtime.ProjectChannel(base.ProjectID))
	require.Equal(t, realtime.SSEEventSynthesisFailed, events[len(events)-1])
	require.Equal(t, 1, f.metrics.runs["patch/error"])
}

func TestRollbackFilesAndSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first, err := f.svc.Generate(ctx, GenerateInput{Description: "portfolio", Name: "Me"})
	require.NoError(t, err)
	rec := intent.Record{RequestKind: intent.ImproveDesign, DesignHints: []string{"dark"}, ExtractedData: map[string]string{}}
	_, err = f.svc.Synthesize(ctx, SynthesisInput{Intent: rec, Mode: synth.ModeRestyle, ProjectID: first.ProjectID})
	require.NoError(t, err)

	_, err = f.svc.Rollback(ctx, first.ProjectID, "", "")
	require.ErrorIs(t, err, apierr.ErrValidation)

	e, err := f.svc.Rollback(ctx, first.ProjectID, first.RevisionID, "")
	require.NoError(t, err)
	require.Equal(t, AuthorUser, e.AuthorTag)
	require.Equal(t, first.RevisionID, e.Attributes[revision.AttrRollbackFrom])
	events := f.emitter.events(realtime.ProjectChannel(first.ProjectID))
	require.Equal(t, realtime.SSEEventRolledBack, events[len(events)-1])

	latest, files, err := f.svc.Files(ctx, first.ProjectID, "")
	require.NoError(t, err)
	require.Equal(t, e.RevisionID, latest.RevisionID)
	require.Equal(t, first.Files, files)

	d, err := f.svc.Diff(ctx, first.ProjectID, first.RevisionID, e.RevisionID)
	require.NoError(t, err)
	require.Empty(t, d.Added)
	require.Empty(t, d.Modified)

	ref, snap, err := f.svc.Snapshot(ctx, project.Reference{ProjectID: first.ProjectID})
	require.NoError(t, err)
	require.Equal(t, e.RevisionID, ref.RevisionID)
	require.Equal(t, "Me", snap.Name)
	require.Equal(t, intent.Portfolio, snap.Kind)
	require.ElementsMatch(t, e.FilePaths, snap.FileNames)
	require.False(t, snap.DatabaseConfigured)

	_, _, err = f.svc.Snapshot(ctx, project.Reference{ProjectID: first.ProjectID, RevisionID: "nope"})
	require.ErrorIs(t, err, apierr.ErrRevisionNotFound)
}

func TestSnapshotOfDetectsDatabase(t *testing.T) {
	snap := SnapshotOf(revision.Entry{FilePaths: []string{"index.html", "schema.sql"}})
	require.True(t, snap.DatabaseConfigured)
	require.Equal(t, intent.Other, snap.Kind)
}

func TestDatabaseFeatureReachesSnapshot(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	gen, err := f.svc.Generate(ctx, GenerateInput{Description: "создай интернет магазин с базой данных"})
	require.NoError(t, err)
	require.Contains(t, gen.Features, "database")

	_, snap, err := f.svc.Snapshot(ctx, project.Reference{ProjectID: gen.ProjectID})
	require.NoError(t, err)
	require.True(t, snap.DatabaseConfigured)
}

func TestListPrefersIndexThenFallsBack(t *testing.T) {
	idx := &fakeIndex{rows: []revision.ProjectSummary{{ProjectID: "from-index"}}}
	f := newFixture(t, idx)
	ctx := context.Background()
	_, err := f.svc.Generate(ctx, GenerateInput{Description: "blog", ProjectID: "on-disk"})
	require.NoError(t, err)

	got, err := f.svc.List(ctx, 0)
	require.NoError(t, err)
	require.Equal(t, "from-index", got[0].ProjectID)

	idx.err = errors.New("db down")
	got, err = f.svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "on-disk", got[0].ProjectID)
	require.Equal(t, 1, got[0].Revisions)
}
