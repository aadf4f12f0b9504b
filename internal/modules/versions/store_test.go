package versions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/vibecode-backend/internal/domain/revision"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
)

func newStore(t *testing.T, opts ...Option) (*Store, string) {
	t.Helper()
	root := t.TempDir()
	s, err := New(root, nil, opts...)
	require.NoError(t, err)
	return s, root
}

func TestCommitCommitRollback(t *testing.T) {
	s, root := newStore(t)
	ctx := context.Background()

	f1 := map[string]string{"index.html": "<!DOCTYPE html><p>one</p>", "styles.css": "p{}"}
	f2 := map[string]string{"index.html": "<!DOCTYPE html><p>two</p>", "script.js": "1;"}

	r1, err := s.Commit(ctx, "p1", f1, "initial", "ai", map[string]string{revision.AttrName: "Calc"})
	require.NoError(t, err)
	r2, err := s.Commit(ctx, "p1", f2, "second", "user", nil)
	require.NoError(t, err)
	r3, err := s.Rollback(ctx, "p1", r1.RevisionID, "user")
	require.NoError(t, err)

	require.Equal(t, "rollback to "+r1.RevisionID, r3.Description)
	require.Equal(t, r1.RevisionID, r3.Attributes[revision.AttrRollbackFrom])
	require.Equal(t, "Calc", r3.Attributes[revision.AttrName])

	latest, err := s.Latest(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, r3.RevisionID, latest.RevisionID)

	current, err := s.Load(ctx, "p1", latest.RevisionID)
	require.NoError(t, err)
	require.Equal(t, f1, current)

	revs, err := s.ListRevisions(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, revs, 3)
	require.Equal(t, []string{r1.RevisionID, r2.RevisionID, r3.RevisionID},
		[]string{revs[0].RevisionID, revs[1].RevisionID, revs[2].RevisionID})
	require.True(t, revs[0].Timestamp.Before(revs[1].Timestamp))
	require.True(t, revs[1].Timestamp.Before(revs[2].Timestamp))

	require.FileExists(t, filepath.Join(root, "versions", "p1", r1.RevisionID, "index.html"))
	require.FileExists(t, filepath.Join(root, "metadata", "p1_"+r2.RevisionID+".json"))
	require.FileExists(t, filepath.Join(root, "metadata", "p1_history.json"))
}

func TestLoadedDigestsMatchEntries(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	for i, files := range []map[string]string{
		{"index.html": "a"},
		{"index.html": "b", "js/app.js": "c"},
		{"index.html": "b", "README.md": ""},
	} {
		_, err := s.Commit(ctx, "proj", files, "rev", "ai", nil)
		require.NoError(t, err, i)
	}
	revs, err := s.ListRevisions(ctx, "proj")
	require.NoError(t, err)
	for _, r := range revs {
		files, err := s.Load(ctx, "proj", r.RevisionID)
		require.NoError(t, err)
		got := map[string]string{}
		for p, c := range files {
			got[p] = Digest(c)
		}
		require.Equal(t, r.FileDigests, got)
		require.Len(t, r.FilePaths, len(files))
	}
}

func TestDiffIsInverseSymmetric(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	a, err := s.Commit(ctx, "p", map[string]string{"index.html": "1", "a.css": "x", "old.js": "o"}, "", "ai", nil)
	require.NoError(t, err)
	b, err := s.Commit(ctx, "p", map[string]string{"index.html": "2", "a.css": "x", "new.js": "n"}, "", "ai", nil)
	require.NoError(t, err)

	ab, err := s.Diff(ctx, "p", a.RevisionID, b.RevisionID)
	require.NoError(t, err)
	ba, err := s.Diff(ctx, "p", b.RevisionID, a.RevisionID)
	require.NoError(t, err)

	require.Equal(t, []string{"new.js"}, ab.Added)
	require.Equal(t, []string{"old.js"}, ab.Removed)
	require.Equal(t, []string{"index.html"}, ab.Modified)
	require.Equal(t, ab.Added, ba.Removed)
	require.Equal(t, ab.Removed, ba.Added)
	require.Equal(t, ab.Modified, ba.Modified)
}

func TestNotFoundKinds(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	_, err := s.ListRevisions(ctx, "missing")
	require.True(t, errors.Is(err, apierr.ErrProjectNotFound))

	_, err = s.Commit(ctx, "p", map[string]string{"index.html": "x"}, "", "ai", nil)
	require.NoError(t, err)
	_, err = s.Load(ctx, "p", "nope")
	require.True(t, errors.Is(err, apierr.ErrRevisionNotFound))
	_, err = s.Rollback(ctx, "p", "nope", "user")
	require.True(t, errors.Is(err, apierr.ErrRevisionNotFound))
}

func TestCommitValidation(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	bad := []struct {
		pid   string
		files map[string]string
	}{
		{"", map[string]string{"index.html": "x"}},
		{"../etc", map[string]string{"index.html": "x"}},
		{"p", nil},
		{"p", map[string]string{"../escape.html": "x"}},
		{"p", map[string]string{"/abs.html": "x"}},
		{"p", map[string]string{"a//b.html": "x"}},
		{"p", map[string]string{`dir\file.js`: "x"}},
	}
	for _, tc := range bad {
		_, err := s.Commit(ctx, tc.pid, tc.files, "", "ai", nil)
		require.True(t, errors.Is(err, apierr.ErrValidation), "%q %v", tc.pid, tc.files)
	}
}

func TestDigestMismatchIsStorageError(t *testing.T) {
	s, root := newStore(t)
	ctx := context.Background()
	e, err := s.Commit(ctx, "p", map[string]string{"index.html": "x"}, "", "ai", nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "versions", "p", e.RevisionID, "index.html"), []byte("tampered"), 0o644))

	_, err = s.Load(ctx, "p", e.RevisionID)
	require.True(t, errors.Is(err, apierr.ErrStorage))
}

func TestConcurrentCommitsKeepTotalOrder(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Commit(ctx, "busy", map[string]string{"index.html": string(rune('a' + i))}, "", "ai", nil)
			assert.NoError(t, err)
		}(i)
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ListRevisions(ctx, "busy")
		}()
	}
	wg.Wait()

	revs, err := s.ListRevisions(ctx, "busy")
	require.NoError(t, err)
	require.Len(t, revs, n)
	for i := 1; i < n; i++ {
		require.True(t, revs[i-1].Timestamp.Before(revs[i].Timestamp))
	}
}

func TestCreateIsExclusive(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, "claimed", map[string]string{"index.html": string(rune('a' + i))}, "", "ai", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, apierr.ErrValidation):
				taken++
			default:
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, created)
	require.Equal(t, n-1, taken)
	revs, err := s.ListRevisions(ctx, "claimed")
	require.NoError(t, err)
	require.Len(t, revs, 1)
}

func TestProjectLocksAreReleased(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	first, err := s.Commit(ctx, "p1", map[string]string{"index.html": "x"}, "", "ai", nil)
	require.NoError(t, err)
	_, err = s.Load(ctx, "p1", first.RevisionID)
	require.NoError(t, err)
	_, err = s.Rollback(ctx, "p1", first.RevisionID, "user")
	require.NoError(t, err)
	_, err = s.Create(ctx, "p1", map[string]string{"index.html": "y"}, "", "ai", nil)
	require.Error(t, err)
	_, err = s.ListRevisions(ctx, "missing")
	require.Error(t, err)

	require.Zero(t, s.heldLocks())
}

type recordingIndexer struct {
	mu      sync.Mutex
	entries []revision.Entry
	err     error
}

func (r *recordingIndexer) IndexRevision(_ context.Context, e revision.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return r.err
}

func TestIndexerAndProjects(t *testing.T) {
	ix := &recordingIndexer{err: errors.New("db down")}
	s, _ := newStore(t, WithIndexer(ix))
	ctx := context.Background()

	_, err := s.Commit(ctx, "b-proj", map[string]string{"index.html": "x"}, "", "ai", nil)
	require.NoError(t, err, "index failures must not fail the commit")
	first, err := s.Commit(ctx, "a-proj", map[string]string{"index.html": "y"}, "", "ai", nil)
	require.NoError(t, err)
	_, err = s.Rollback(ctx, "a-proj", first.RevisionID, "user")
	require.NoError(t, err)

	require.Len(t, ix.entries, 3)
	ids, err := s.Projects(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a-proj", "b-proj"}, ids)
}
