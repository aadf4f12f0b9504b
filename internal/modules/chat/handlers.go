package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	domain "github.com/yungbote/vibecode-backend/internal/domain/chat"
	"github.com/yungbote/vibecode-backend/internal/domain/intent"
	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/modules/synth"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/services"
)

// maxAffectedFiles caps the affected_files hint.
const maxAffectedFiles = 5

var handlers = map[intent.RequestKind]handlerFunc{
	intent.CreateNew:      handleCreate,
	intent.ModifyExisting: handleModify,
	intent.FixBug:         handleFixBug,
	intent.ImproveDesign:  handleImproveDesign,
	intent.General:        handleGeneral,
}

func (m *Manager) synthesize(ctx context.Context, s *session, in services.SynthesisInput) (project.Generated, error) {
	in.SessionID = s.id
	in.Author = services.AuthorAI
	gen, err := m.projects.Synthesize(ctx, in)
	if err != nil {
		return project.Generated{}, err
	}
	ref := project.Reference{ProjectID: gen.ProjectID, RevisionID: gen.RevisionID}
	_, snap, err := m.projects.Snapshot(ctx, ref)
	if err != nil {
		return project.Generated{}, err
	}
	s.setContext(ref, snap)
	return gen, nil
}

func handleCreate(m *Manager, ctx context.Context, s *session, rec intent.Record, text string) (outcome, error) {
	kind := rec.ProjectKind
	if kind == "" {
		kind = intent.Other
	}
	gen, err := m.synthesize(ctx, s, services.SynthesisInput{
		Intent:      rec,
		Mode:        synth.ModeCreate,
		Kind:        kind,
		Description: text,
	})
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		content: fmt.Sprintf(m.catalog.ProjectCreated, gen.Name, gen.Kind, len(gen.Files), m.catalog.list(gen.Features)),
		actions: []domain.Action{{Type: domain.ActionProjectCreated, ProjectID: gen.ProjectID, RevisionID: gen.RevisionID}},
		metadata: map[string]any{
			"project_id":      gen.ProjectID,
			"revision_id":     gen.RevisionID,
			"recommendations": len(gen.Summary.Recommendations),
		},
	}, nil
}

func handleModify(m *Manager, ctx context.Context, s *session, rec intent.Record, text string) (outcome, error) {
	ref, snap := s.context()
	if ref.IsZero() {
		return handleCreate(m, ctx, s, rec, text)
	}
	gen, err := m.synthesize(ctx, s, services.SynthesisInput{
		Intent:      rec,
		Mode:        synth.ModeModify,
		ProjectID:   ref.ProjectID,
		RevisionID:  ref.RevisionID,
		Description: text,
	})
	if err != nil {
		return outcome{}, err
	}
	affected := relevantFiles(snap.FileNames, text)
	return outcome{
		content: fmt.Sprintf(m.catalog.CodeUpdated, gen.Name, m.catalog.list(gen.Features), m.catalog.list(affected)),
		actions: []domain.Action{{Type: domain.ActionCodeUpdate, ProjectID: gen.ProjectID, RevisionID: gen.RevisionID}},
		metadata: map[string]any{
			"project_id":     gen.ProjectID,
			"revision_id":    gen.RevisionID,
			"affected_files": affected,
		},
	}, nil
}

// handleFixBug asks for a code review and applies any sections that name
// existing files as a patch.
func handleFixBug(m *Manager, ctx context.Context, s *session, rec intent.Record, text string) (outcome, error) {
	ref, snap := s.context()
	var prompt strings.Builder
	fmt.Fprintf(&prompt, "Проблема: %s\n", text)
	var files map[string]string
	if !ref.IsZero() {
		_, loaded, err := m.projects.Files(ctx, ref.ProjectID, ref.RevisionID)
		if err != nil {
			return outcome{}, err
		}
		files = loaded
		fmt.Fprintf(&prompt, "Проект: %s (%s)\n\n", snap.Name, snap.Kind)
		for _, p := range sortedPaths(files) {
			fmt.Fprintf(&prompt, "%s\n%s\n\n", p, files[p])
		}
	}
	res := m.generate(ctx, prompt.String(), llm.PromptCodeReview)
	out := outcome{
		content:  fmt.Sprintf(m.catalog.BugAnalysis, res.Text),
		actions:  []domain.Action{{Type: domain.ActionBugAnalysis, ProjectID: ref.ProjectID}},
		metadata: map[string]any{"provider": res.Provider},
	}
	if ref.IsZero() || res.Unavailable() {
		return out, nil
	}

	gen, err := m.synthesize(ctx, s, services.SynthesisInput{
		Intent:     rec,
		Mode:       synth.ModePatch,
		ProjectID:  ref.ProjectID,
		RevisionID: ref.RevisionID,
		Patch:      res.Text,
	})
	switch {
	case errors.Is(err, synth.ErrNothingToPatch):
		return out, nil
	case err != nil:
		return outcome{}, err
	}
	changed := changedFiles(files, gen.Files)
	out.content += "\n\n" + fmt.Sprintf(m.catalog.BugPatched, m.catalog.list(changed))
	out.actions = append(out.actions, domain.Action{Type: domain.ActionCodeUpdate, ProjectID: gen.ProjectID, RevisionID: gen.RevisionID})
	out.metadata["revision_id"] = gen.RevisionID
	out.metadata["affected_files"] = changed
	return out, nil
}

func handleImproveDesign(m *Manager, ctx context.Context, s *session, rec intent.Record, text string) (outcome, error) {
	ref, _ := s.context()
	if ref.IsZero() {
		return handleCreate(m, ctx, s, rec, text)
	}
	gen, err := m.synthesize(ctx, s, services.SynthesisInput{
		Intent:     rec,
		Mode:       synth.ModeRestyle,
		ProjectID:  ref.ProjectID,
		RevisionID: ref.RevisionID,
	})
	if err != nil {
		return outcome{}, err
	}
	return outcome{
		content:  fmt.Sprintf(m.catalog.DesignUpdated, gen.Name),
		actions:  []domain.Action{{Type: domain.ActionDesignUpdate, ProjectID: gen.ProjectID, RevisionID: gen.RevisionID}},
		metadata: map[string]any{"project_id": gen.ProjectID, "revision_id": gen.RevisionID, "design_hints": rec.DesignHints},
	}, nil
}

func handleGeneral(m *Manager, ctx context.Context, s *session, _ intent.Record, text string) (outcome, error) {
	ref, snap := s.context()
	var prompt strings.Builder
	if !ref.IsZero() {
		fmt.Fprintf(&prompt, "Проект: %s (%s), файлы: %s\n\n", snap.Name, snap.Kind, strings.Join(snap.FileNames, ", "))
	}
	// The user's turn is already the last entry of the window.
	for _, msg := range s.recent(recentWindow) {
		fmt.Fprintf(&prompt, "%s: %s\n", msg.Role, msg.Content)
	}
	if prompt.Len() == 0 {
		prompt.WriteString(text)
	}
	res := m.generate(ctx, prompt.String(), llm.PromptChat)
	return outcome{
		content:  fmt.Sprintf(m.catalog.Consultation, res.Text),
		metadata: map[string]any{"provider": res.Provider},
	}, nil
}

// generate never fails: without a client it answers like the fallback provider.
func (m *Manager) generate(ctx context.Context, prompt string, kind llm.PromptKind) llm.Result {
	if m.llm == nil {
		return llm.Result{OK: true, Provider: llm.FallbackProvider, Text: "service unavailable: " + prompt, Err: apierr.KindLLMUnavailable}
	}
	return m.llm.Generate(ctx, prompt, llm.Options{PromptKind: kind})
}

// relevantFiles picks files whose name contains a word of the message.
func relevantFiles(names []string, text string) []string {
	words := strings.Fields(strings.ToLower(text))
	out := []string{}
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, w := range words {
			if len([]rune(w)) >= 3 && strings.Contains(lower, w) {
				out = append(out, name)
				break
			}
		}
		if len(out) == maxAffectedFiles {
			break
		}
	}
	return out
}

func changedFiles(before, after map[string]string) []string {
	out := []string{}
	for _, p := range sortedPaths(after) {
		if before[p] != after[p] {
			out = append(out, p)
		}
	}
	return out
}

func sortedPaths(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
