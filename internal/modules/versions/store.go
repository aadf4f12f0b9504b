package versions

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/vibecode-backend/internal/domain/revision"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

const (
	versionsDir = "versions"
	metadataDir = "metadata"
)

var projectIDPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9-]{0,127}$`)

// Indexer mirrors committed revisions somewhere else. Failures are logged only.
type Indexer interface {
	IndexRevision(ctx context.Context, e revision.Entry) error
}

// Store is an append-only, content-addressed revision store on the local filesystem:
//
//	<root>/versions/<project_id>/<revision_id>/<path>
//	<root>/metadata/<project_id>_<revision_id>.json
//	<root>/metadata/<project_id>_history.json
//
// The history file is the commit point; a revision is visible once it is listed there.
type Store struct {
	root    string
	log     *logger.Logger
	indexer Indexer
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*projectLock

	loads singleflight.Group
}

type Option func(*Store)

func WithIndexer(ix Indexer) Option { return func(s *Store) { s.indexer = ix } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func New(root string, log *logger.Logger, opts ...Option) (*Store, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("version store root required")
	}
	if log == nil {
		log = logger.Nop()
	}
	for _, d := range []string{versionsDir, metadataDir} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", d, err)
		}
	}
	s := &Store{
		root:  root,
		log:   log.With("service", "VersionStore"),
		now:   time.Now,
		locks: map[string]*projectLock{},
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// projectLock is dropped from the map once no caller holds a reference.
type projectLock struct {
	sync.RWMutex
	refs int
}

func (s *Store) acquire(projectID string) *projectLock {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &projectLock{}
		s.locks[projectID] = l
	}
	l.refs++
	return l
}

func (s *Store) release(projectID string, l *projectLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, projectID)
	}
}

func (s *Store) heldLocks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// Commit stores files as a new revision of projectID. Unknown projects are created.
func (s *Store) Commit(ctx context.Context, projectID string, files map[string]string, description, author string, attrs map[string]string) (revision.Entry, error) {
	return s.commit(ctx, projectID, files, description, author, attrs, false)
}

// Create is Commit for a project that must not exist yet. The existence check
// and the first revision happen under one project lock.
func (s *Store) Create(ctx context.Context, projectID string, files map[string]string, description, author string, attrs map[string]string) (revision.Entry, error) {
	return s.commit(ctx, projectID, files, description, author, attrs, true)
}

func (s *Store) commit(ctx context.Context, projectID string, files map[string]string, description, author string, attrs map[string]string, exclusive bool) (revision.Entry, error) {
	if err := ctx.Err(); err != nil {
		return revision.Entry{}, err
	}
	if err := validateProjectID(projectID); err != nil {
		return revision.Entry{}, err
	}
	if len(files) == 0 {
		return revision.Entry{}, apierr.Newf(apierr.KindValidation, "commit %s: no files", projectID)
	}
	for p := range files {
		if err := validatePath(p); err != nil {
			return revision.Entry{}, err
		}
	}

	e, err := func() (revision.Entry, error) {
		l := s.acquire(projectID)
		defer s.release(projectID, l)
		l.Lock()
		defer l.Unlock()
		if exclusive {
			switch _, err := s.readHistory(projectID); {
			case err == nil:
				return revision.Entry{}, apierr.Newf(apierr.KindValidation, "project %s already exists", projectID)
			case !errors.Is(err, apierr.ErrProjectNotFound):
				return revision.Entry{}, err
			}
		}
		return s.commitLocked(projectID, files, description, author, attrs)
	}()
	if err != nil {
		return revision.Entry{}, err
	}
	s.index(ctx, e)
	return e, nil
}

func (s *Store) commitLocked(projectID string, files map[string]string, description, author string, attrs map[string]string) (revision.Entry, error) {
	history, err := s.readHistory(projectID)
	if err != nil && !errors.Is(err, apierr.ErrProjectNotFound) {
		return revision.Entry{}, err
	}

	ts := s.now().UTC()
	if n := len(history); n > 0 && !ts.After(history[n-1].Timestamp) {
		ts = history[n-1].Timestamp.Add(time.Microsecond)
	}
	e := revision.Entry{
		RevisionID:  uuid.NewString(),
		ProjectID:   projectID,
		Timestamp:   ts,
		AuthorTag:   author,
		Description: description,
		FilePaths:   make([]string, 0, len(files)),
		FileDigests: make(map[string]string, len(files)),
		Attributes:  cloneAttrs(attrs),
	}
	for p, content := range files {
		e.FilePaths = append(e.FilePaths, p)
		e.FileDigests[p] = Digest(content)
	}
	sort.Strings(e.FilePaths)

	projDir := filepath.Join(s.root, versionsDir, projectID)
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		return revision.Entry{}, storageErr("create project dir", err)
	}
	tmp, err := os.MkdirTemp(projDir, ".tmp-")
	if err != nil {
		return revision.Entry{}, storageErr("create temp dir", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()
	for _, p := range e.FilePaths {
		dst := filepath.Join(tmp, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return revision.Entry{}, storageErr("create file dir", err)
		}
		if err := os.WriteFile(dst, []byte(files[p]), 0o644); err != nil {
			return revision.Entry{}, storageErr("write "+p, err)
		}
	}
	meta, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return revision.Entry{}, storageErr("encode metadata", err)
	}
	if err := writeAtomic(s.metaPath(projectID, e.RevisionID), meta); err != nil {
		return revision.Entry{}, storageErr("write metadata", err)
	}
	if err := os.Rename(tmp, filepath.Join(projDir, e.RevisionID)); err != nil {
		return revision.Entry{}, storageErr("publish revision", err)
	}
	committed = true

	next := make([]revision.Entry, 0, len(history)+1)
	next = append(next, history...)
	next = append(next, e)
	raw, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return revision.Entry{}, storageErr("encode history", err)
	}
	if err := writeAtomic(s.historyPath(projectID), raw); err != nil {
		return revision.Entry{}, storageErr("write history", err)
	}
	s.log.Info("revision committed", "project_id", projectID, "revision_id", e.RevisionID, "files", len(e.FilePaths), "author", author)
	return e, nil
}

func (s *Store) index(ctx context.Context, e revision.Entry) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexRevision(ctx, e); err != nil {
		s.log.Warn("revision index failed", "project_id", e.ProjectID, "revision_id", e.RevisionID, "error", err)
	}
}

// ListRevisions returns the project's revisions in commit order.
func (s *Store) ListRevisions(ctx context.Context, projectID string) ([]revision.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}
	l := s.acquire(projectID)
	defer s.release(projectID, l)
	l.RLock()
	defer l.RUnlock()
	return s.readHistory(projectID)
}

func (s *Store) Latest(ctx context.Context, projectID string) (revision.Entry, error) {
	h, err := s.ListRevisions(ctx, projectID)
	if err != nil {
		return revision.Entry{}, err
	}
	return h[len(h)-1], nil
}

func (s *Store) Entry(ctx context.Context, projectID, revisionID string) (revision.Entry, error) {
	h, err := s.ListRevisions(ctx, projectID)
	if err != nil {
		return revision.Entry{}, err
	}
	return find(h, projectID, revisionID)
}

// Load reads back the files of one revision and checks them against its digests.
func (s *Store) Load(ctx context.Context, projectID, revisionID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}
	l := s.acquire(projectID)
	defer s.release(projectID, l)
	l.RLock()
	defer l.RUnlock()
	return s.loadLocked(projectID, revisionID)
}

func (s *Store) loadLocked(projectID, revisionID string) (map[string]string, error) {
	h, err := s.readHistory(projectID)
	if err != nil {
		return nil, err
	}
	e, err := find(h, projectID, revisionID)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.root, versionsDir, projectID, e.RevisionID)
	out := make(map[string]string, len(e.FilePaths))
	for _, p := range e.FilePaths {
		raw, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(p)))
		if err != nil {
			return nil, storageErr("read "+p, err)
		}
		if Digest(string(raw)) != e.FileDigests[p] {
			return nil, apierr.Newf(apierr.KindStorage, "revision %s: digest mismatch for %s", e.RevisionID, p)
		}
		out[p] = string(raw)
	}
	return out, nil
}

// Rollback commits a new revision whose files equal target's.
func (s *Store) Rollback(ctx context.Context, projectID, targetRevisionID, author string) (revision.Entry, error) {
	if err := ctx.Err(); err != nil {
		return revision.Entry{}, err
	}
	if err := validateProjectID(projectID); err != nil {
		return revision.Entry{}, err
	}
	e, err := func() (revision.Entry, error) {
		l := s.acquire(projectID)
		defer s.release(projectID, l)
		l.Lock()
		defer l.Unlock()
		files, err := s.loadLocked(projectID, targetRevisionID)
		if err != nil {
			return revision.Entry{}, err
		}
		h, _ := s.readHistory(projectID)
		target, _ := find(h, projectID, targetRevisionID)
		attrs := cloneAttrs(target.Attributes)
		if attrs == nil {
			attrs = map[string]string{}
		}
		attrs[revision.AttrRollbackFrom] = targetRevisionID
		return s.commitLocked(projectID, files, "rollback to "+targetRevisionID, author, attrs)
	}()
	if err != nil {
		return revision.Entry{}, err
	}
	s.index(ctx, e)
	return e, nil
}

// Diff reports what changed going from revision a to revision b.
func (s *Store) Diff(ctx context.Context, projectID, a, b string) (revision.Diff, error) {
	h, err := s.ListRevisions(ctx, projectID)
	if err != nil {
		return revision.Diff{}, err
	}
	ea, err := find(h, projectID, a)
	if err != nil {
		return revision.Diff{}, err
	}
	eb, err := find(h, projectID, b)
	if err != nil {
		return revision.Diff{}, err
	}
	return revision.Compare(ea.FileDigests, eb.FileDigests), nil
}

// Projects lists every project with at least one revision, sorted.
func (s *Store) Projects(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ents, err := os.ReadDir(filepath.Join(s.root, metadataDir))
	if err != nil {
		return nil, storageErr("list metadata", err)
	}
	out := []string{}
	for _, de := range ents {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, "_history.json") {
			continue
		}
		out = append(out, strings.TrimSuffix(name, "_history.json"))
	}
	sort.Strings(out)
	return out, nil
}

// readHistory is shared by concurrent readers of the same project; the
// returned slice is a private copy.
func (s *Store) readHistory(projectID string) ([]revision.Entry, error) {
	v, err, _ := s.loads.Do(projectID, func() (interface{}, error) {
		raw, err := os.ReadFile(s.historyPath(projectID))
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apierr.Newf(apierr.KindProjectNotFound, "project %s not found", projectID)
		}
		if err != nil {
			return nil, storageErr("read history", err)
		}
		var h []revision.Entry
		if err := json.Unmarshal(raw, &h); err != nil {
			return nil, storageErr("decode history", err)
		}
		if len(h) == 0 {
			return nil, apierr.Newf(apierr.KindProjectNotFound, "project %s has no revisions", projectID)
		}
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	h := v.([]revision.Entry)
	return append([]revision.Entry(nil), h...), nil
}

func (s *Store) historyPath(projectID string) string {
	return filepath.Join(s.root, metadataDir, projectID+"_history.json")
}

func (s *Store) metaPath(projectID, revisionID string) string {
	return filepath.Join(s.root, metadataDir, projectID+"_"+revisionID+".json")
}

func find(h []revision.Entry, projectID, revisionID string) (revision.Entry, error) {
	for _, e := range h {
		if e.RevisionID == revisionID {
			return e, nil
		}
	}
	return revision.Entry{}, apierr.Newf(apierr.KindRevisionNotFound, "revision %s not found in project %s", revisionID, projectID)
}

// Digest is the content address of a file: hex SHA-256 of its bytes.
func Digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func validateProjectID(id string) error {
	if !projectIDPattern.MatchString(id) {
		return apierr.Newf(apierr.KindValidation, "invalid project id %q", id)
	}
	return nil
}

// validatePath accepts clean, relative, slash-separated paths only.
func validatePath(p string) error {
	if p == "" || strings.Contains(p, `\`) || strings.HasPrefix(p, "/") || path.Clean(p) != p {
		return apierr.Newf(apierr.KindValidation, "invalid file path %q", p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." || seg == "." || strings.HasPrefix(seg, ".tmp-") {
			return apierr.Newf(apierr.KindValidation, "invalid file path %q", p)
		}
	}
	return nil
}

func writeAtomic(dst string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func storageErr(op string, err error) error {
	return apierr.New(apierr.KindStorage, fmt.Errorf("%s: %w", op, err))
}

func cloneAttrs(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
