package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	domain "github.com/yungbote/vibecode-backend/internal/domain/chat"
	"github.com/yungbote/vibecode-backend/internal/domain/intent"
	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/domain/revision"
	intentmod "github.com/yungbote/vibecode-backend/internal/modules/intent"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/interactionlog"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
	"github.com/yungbote/vibecode-backend/internal/services"
)

const (
	DefaultTTL = time.Hour
	// recentWindow bounds how many prior turns a consultation prompt carries.
	recentWindow = 10
)

// Projects is the part of the project service the chat flow drives.
type Projects interface {
	Synthesize(ctx context.Context, in services.SynthesisInput) (project.Generated, error)
	Snapshot(ctx context.Context, ref project.Reference) (project.Reference, project.Snapshot, error)
	Files(ctx context.Context, projectID, revisionID string) (revision.Entry, map[string]string, error)
}

type Metrics interface {
	ObserveChatTurn(requestKind string, success bool)
	SetSessions(n int)
}

type Deps struct {
	Log      *logger.Logger
	Projects Projects
	LLM      llm.Generator
	Recorder interactionlog.Recorder
	Metrics  Metrics
	Catalog  Catalog
	// TTL evicts sessions idle for longer; zero means DefaultTTL.
	TTL time.Duration
	// TurnDeadline bounds one dispatched turn; zero means none.
	TurnDeadline time.Duration
	Now          func() time.Time
}

type session struct {
	id        string
	createdAt time.Time
	// lastActivity is unix nanos; read by the janitor without the session locks.
	lastActivity atomic.Int64

	// sendMu serializes Send; stateMu guards the fields below it.
	sendMu   sync.Mutex
	stateMu  sync.RWMutex
	ref      project.Reference
	snap     project.Snapshot
	messages []domain.Message
}

func (s *session) context() (project.Reference, project.Snapshot) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.ref, s.snap
}

func (s *session) setContext(ref project.Reference, snap project.Snapshot) {
	s.stateMu.Lock()
	s.ref, s.snap = ref, snap
	s.stateMu.Unlock()
}

func (s *session) append(msgs ...domain.Message) {
	s.stateMu.Lock()
	s.messages = append(s.messages, msgs...)
	s.stateMu.Unlock()
}

// recent returns up to n trailing non-system messages.
func (s *session) recent(n int) []domain.Message {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	var out []domain.Message
	for i := len(s.messages) - 1; i >= 0 && len(out) < n; i-- {
		if s.messages[i].Role != domain.RoleSystem {
			out = append([]domain.Message{s.messages[i]}, out...)
		}
	}
	return out
}

// Manager owns the in-memory session table.
type Manager struct {
	log      *logger.Logger
	projects Projects
	llm      llm.Generator
	recorder interactionlog.Recorder
	metrics  Metrics
	catalog  Catalog
	ttl      time.Duration
	deadline time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func NewManager(deps Deps) *Manager {
	m := &Manager{
		log:      deps.Log,
		projects: deps.Projects,
		llm:      deps.LLM,
		recorder: deps.Recorder,
		metrics:  deps.Metrics,
		catalog:  deps.Catalog,
		ttl:      deps.TTL,
		deadline: deps.TurnDeadline,
		now:      deps.Now,
		sessions: map[string]*session{},
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	m.log = m.log.With("service", "ChatSessionManager")
	if m.recorder == nil {
		m.recorder = interactionlog.Nop()
	}
	if m.catalog.Locale == "" {
		m.catalog = CatalogFor("ru")
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) message(role domain.Role, content string, meta map[string]any) domain.Message {
	return domain.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: m.now().UTC(),
		Metadata:  meta,
	}
}

// OpenSession starts a session seeded with the system preamble and a greeting.
// A zero ref opens a session with no project yet.
func (m *Manager) OpenSession(ctx context.Context, ref project.Reference) (string, error) {
	var snap project.Snapshot
	if !ref.IsZero() {
		var err error
		if ref, snap, err = m.projects.Snapshot(ctx, ref); err != nil {
			return "", err
		}
	}
	now := m.now()
	s := &session{id: uuid.NewString(), createdAt: now, ref: ref, snap: snap}
	s.lastActivity.Store(now.UnixNano())
	s.messages = []domain.Message{
		m.message(domain.RoleSystem, m.catalog.SystemPreamble, nil),
		m.message(domain.RoleAssistant, m.greeting(ref, snap), nil),
	}

	m.mu.Lock()
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()
	m.setSessions(n)
	m.log.Info("chat session opened", "session_id", s.id, "project_id", ref.ProjectID)
	return s.id, nil
}

func (m *Manager) greeting(ref project.Reference, snap project.Snapshot) string {
	if ref.IsZero() {
		return m.catalog.GreetingNew
	}
	db := m.catalog.DBMissing
	if snap.DatabaseConfigured {
		db = m.catalog.DBConfigured
	}
	name := snap.Name
	if name == "" {
		name = ref.ProjectID
	}
	return fmt.Sprintf(m.catalog.Greeting, name, snap.Kind, len(snap.FileNames), db)
}

func (m *Manager) get(id string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, apierr.Newf(apierr.KindSessionNotFound, "session %s not found", id)
	}
	return s, nil
}

// Send runs one turn. Turns on the same session are processed one at a time in
// arrival order. Handler failures become an assistant message with Success false;
// only an unknown session or empty text is returned as an error.
func (m *Manager) Send(ctx context.Context, id, text string) (domain.Reply, error) {
	s, err := m.get(id)
	if err != nil {
		return domain.Reply{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Reply{}, apierr.Newf(apierr.KindValidation, "message text is required")
	}

	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	start := m.now()
	s.append(m.message(domain.RoleUser, text, nil))

	rec := intentmod.Analyze(text)
	m.recorder.Record(ctx, interactionlog.Entry{
		Type:      interactionlog.TypeUserRequest,
		SessionID: id,
		Data:      map[string]any{"message": text, "intent": string(rec.RequestKind), "confidence": rec.Confidence},
	})

	// A dropped client must not abandon a half-applied turn.
	turnCtx := context.WithoutCancel(ctx)
	if m.deadline > 0 {
		var cancel context.CancelFunc
		turnCtx, cancel = context.WithTimeout(turnCtx, m.deadline)
		defer cancel()
	}
	out, herr := m.dispatch(turnCtx, s, rec, text)

	meta := map[string]any{"type": string(rec.RequestKind), "confidence": rec.Confidence}
	for k, v := range out.metadata {
		meta[k] = v
	}
	reply := domain.Reply{Success: herr == nil, Actions: out.actions}
	if reply.Actions == nil {
		reply.Actions = []domain.Action{}
	}
	content := out.content
	if herr != nil {
		content = m.catalog.errorText(herr)
		meta["error"] = string(apierr.KindOf(herr))
		reply.Error = herr.Error()
		m.log.Warn("chat turn failed", "session_id", id, "request_kind", rec.RequestKind, "error", herr)
		m.recorder.Record(ctx, interactionlog.Entry{
			Type:      interactionlog.TypeError,
			SessionID: id,
			Data:      map[string]any{"intent": string(rec.RequestKind), "error": herr.Error()},
		})
	}
	reply.Message = m.message(domain.RoleAssistant, content, meta)
	s.append(reply.Message)
	s.lastActivity.Store(m.now().UnixNano())

	m.recorder.Record(ctx, interactionlog.Entry{
		Type:             interactionlog.TypeAIResponse,
		SessionID:        id,
		ProcessingTimeMS: m.now().Sub(start).Milliseconds(),
		Data:             map[string]any{"intent": string(rec.RequestKind), "success": reply.Success, "actions": len(reply.Actions)},
	})
	if m.metrics != nil {
		m.metrics.ObserveChatTurn(string(rec.RequestKind), reply.Success)
	}
	return reply, nil
}

// History returns the session's messages without system entries, in order.
func (m *Manager) History(id string) ([]domain.Message, error) {
	s, err := m.get(id)
	if err != nil {
		return nil, err
	}
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	out := make([]domain.Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if msg.Role != domain.RoleSystem {
			out = append(out, msg)
		}
	}
	return out, nil
}

// UpdateContext points the session at another project revision. History is untouched.
func (m *Manager) UpdateContext(ctx context.Context, id string, ref project.Reference) error {
	s, err := m.get(id)
	if err != nil {
		return err
	}
	if ref.IsZero() {
		return apierr.Newf(apierr.KindValidation, "project_id is required")
	}
	ref, snap, err := m.projects.Snapshot(ctx, ref)
	if err != nil {
		return err
	}
	s.setContext(ref, snap)
	s.lastActivity.Store(m.now().UnixNano())
	return nil
}

// Context reports the session's current project reference.
func (m *Manager) Context(id string) (project.Reference, error) {
	s, err := m.get(id)
	if err != nil {
		return project.Reference{}, err
	}
	ref, _ := s.context()
	return ref, nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// EvictIdle drops sessions idle for longer than the TTL and reports how many went.
func (m *Manager) EvictIdle() int {
	cutoff := m.now().Add(-m.ttl).UnixNano()
	m.mu.Lock()
	evicted := 0
	for id, s := range m.sessions {
		if s.lastActivity.Load() < cutoff {
			delete(m.sessions, id)
			evicted++
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if evicted > 0 {
		m.log.Info("evicted idle chat sessions", "count", evicted)
	}
	m.setSessions(n)
	return evicted
}

// RunJanitor evicts idle sessions until ctx ends.
func (m *Manager) RunJanitor(ctx context.Context) error {
	every := m.ttl / 4
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			m.EvictIdle()
		}
	}
}

func (m *Manager) setSessions(n int) {
	if m.metrics != nil {
		m.metrics.SetSessions(n)
	}
}

// handlerFunc runs one dispatched turn for a request kind.
type handlerFunc func(m *Manager, ctx context.Context, s *session, rec intent.Record, text string) (outcome, error)

type outcome struct {
	content  string
	actions  []domain.Action
	metadata map[string]any
}

func (m *Manager) dispatch(ctx context.Context, s *session, rec intent.Record, text string) (outcome, error) {
	h, ok := handlers[rec.RequestKind]
	if !ok {
		h = handlers[intent.General]
	}
	return h(m, ctx, s, rec, text)
}
