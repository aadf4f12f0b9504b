package synth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	"github.com/yungbote/vibecode-backend/internal/domain/intent"
	"github.com/yungbote/vibecode-backend/internal/domain/project"
	"github.com/yungbote/vibecode-backend/internal/modules/templates"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

type Mode string

const (
	// ModeCreate renders a fresh scaffold.
	ModeCreate Mode = "create"
	// ModeModify starts from the prior files and splices in requested features.
	ModeModify Mode = "modify"
	// ModeRestyle regenerates only the stylesheet.
	ModeRestyle Mode = "restyle"
	// ModePatch replaces existing files with the sections of Request.Patch.
	ModePatch Mode = "patch"
)

// Progress milestones.
const (
	StageAnalyzing  = "analyzing"
	StageTemplating = "templating"
	StageEnriching  = "enriching"
	StageValidating = "validating"
	StageDone       = "done"
)

// ErrNothingToPatch is returned in ModePatch when the reply names no existing file.
var ErrNothingToPatch = errors.New("patch names no existing file")

// enrichingFeatures trigger an LLM enrichment pass regardless of complexity.
var enrichingFeatures = []string{"ai", "3d", "voice", "realtime"}

type ProgressFunc func(stage string, percent int)

// Library is the part of the template library the synthesizer renders with.
type Library interface {
	Spec(kind intent.ProjectKind) templates.KindSpec
	Render(kind intent.ProjectKind, ctx map[string]any) (map[string]string, error)
	RenderStub(path string, ctx map[string]any) (string, bool, error)
	RenderFeature(tag string, ctx map[string]any) (templates.Snippet, bool, error)
	Palette(hints []string) map[string]string
}

type Request struct {
	Intent intent.Record
	Mode   Mode
	// ProjectID is kept when set; an empty one is allocated.
	ProjectID   string
	Kind        intent.ProjectKind
	Name        string
	Description string
	Prior       map[string]string
	Patch       string
}

type Synthesizer struct {
	lib Library
	llm llm.Generator
	log *logger.Logger
	now func() time.Time
}

func New(lib Library, gen llm.Generator, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synthesizer{lib: lib, llm: gen, log: log.With("service", "Synthesizer"), now: time.Now}
}

// Synthesize produces a project from req. It has no internal deadline; only the
// LLM enrichment call observes ctx.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request, progress ProgressFunc) (project.Generated, error) {
	report := func(stage string, pct int) {
		if progress != nil {
			progress(stage, pct)
		}
	}
	if req.Mode == "" {
		req.Mode = ModeCreate
	}
	if req.Mode != ModeCreate && len(req.Prior) == 0 {
		req.Mode = ModeCreate
	}
	report(StageAnalyzing, 10)

	kind := req.Kind
	if kind == "" {
		kind = req.Intent.ProjectKind
	}
	if kind == "" {
		kind = intent.Other
	}
	spec := s.lib.Spec(kind)
	tctx := s.templateContext(req, kind, spec)

	failures := map[string]int{}
	enf := &enforcer{lib: s.lib, ctx: tctx, failures: failures, onRestub: func(p, reason string) {
		s.log.Warn("file failed kind check, re-stubbed", "path", p, "reason", reason)
	}}

	report(StageTemplating, 30)
	var files map[string]string
	var err error
	switch req.Mode {
	case ModeCreate:
		files, err = s.lib.Render(kind, tctx)
		if err != nil {
			return project.Generated{}, apierr.New(apierr.KindSynthesisFailed, err)
		}
		_, err = injectFeatures(s.lib, files, project.EntryFile, req.Intent.Features, tctx)
	case ModeModify:
		files = cloneFiles(req.Prior)
		var applied []string
		applied, err = injectFeatures(s.lib, files, project.EntryFile, req.Intent.Features, tctx)
		if err == nil && len(applied) == 0 {
			s.improve(ctx, req, files, failures)
		}
	case ModeRestyle:
		files = cloneFiles(req.Prior)
		var fresh map[string]string
		fresh, err = s.lib.Render(kind, tctx)
		if err != nil {
			return project.Generated{}, apierr.New(apierr.KindSynthesisFailed, err)
		}
		files[stylesPath] = fresh[stylesPath]
		_, err = injectFeatures(s.lib, files, project.EntryFile, presentFeatures(files[project.EntryFile]), tctx)
	case ModePatch:
		files = cloneFiles(req.Prior)
		if applyPatch(files, SplitByPathHints(req.Patch, sortedKeys(files)), failures) == 0 {
			return project.Generated{}, apierr.New(apierr.KindValidation, ErrNothingToPatch)
		}
	default:
		return project.Generated{}, apierr.Newf(apierr.KindValidation, "unknown synthesis mode %q", req.Mode)
	}
	if err != nil {
		return project.Generated{}, apierr.New(apierr.KindSynthesisFailed, err)
	}
	if err := enf.run(files); err != nil {
		return project.Generated{}, apierr.New(apierr.KindSynthesisFailed, err)
	}

	report(StageEnriching, 60)
	if (req.Mode == ModeCreate || req.Mode == ModeModify) && needsEnrichment(req.Intent) {
		s.enrich(ctx, req, kind, files, failures)
	}

	report(StageValidating, 85)
	if err := enf.run(files); err != nil {
		return project.Generated{}, apierr.New(apierr.KindSynthesisFailed, err)
	}
	if _, ok := files[project.EntryFile]; !ok {
		stub, _, err := s.lib.RenderStub(project.EntryFile, tctx)
		if err != nil {
			return project.Generated{}, apierr.New(apierr.KindSynthesisFailed, err)
		}
		files[project.EntryFile] = stub
		failures[project.EntryFile] = MaxEnforceFailures
	}

	features := union(req.Intent.Features, presentFeatures(files[project.EntryFile]))
	gen := project.Generated{
		ProjectID:    req.ProjectID,
		Name:         tctx["name"].(string),
		Description:  tctx["description"].(string),
		Kind:         kind,
		Files:        files,
		Technologies: union(req.Intent.TechHints, detectTechnologies(files)),
		Features:     features,
		CreatedAt:    s.now().UTC(),
		Summary: project.Summary{
			Features:         features,
			Recommendations:  recommend(files),
			ImprovementAreas: enf.failedPaths(),
		},
	}
	if gen.ProjectID == "" {
		gen.ProjectID = uuid.NewString()
	}
	report(StageDone, 100)
	s.log.Info("project synthesized",
		"project_id", gen.ProjectID, "mode", req.Mode, "kind", kind,
		"files", len(files), "improvement_areas", len(gen.Summary.ImprovementAreas))
	return gen, nil
}

func (s *Synthesizer) templateContext(req Request, kind intent.ProjectKind, spec templates.KindSpec) map[string]any {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = req.Intent.ExtractedData["name"]
		if name == strings.ToLower(name) {
			name = titleWords(name)
		}
	}
	if name == "" {
		name = spec.Title
	}
	desc := strings.TrimSpace(req.Description)
	if desc == "" {
		desc = req.Intent.ExtractedData["description"]
	}
	if desc == "" {
		desc = spec.Tagline
	}
	lang := req.Intent.ExtractedData["language"]
	if lang == "" {
		lang = "ru"
	}
	return map[string]any{
		"name":         name,
		"description":  desc,
		"tagline":      spec.Tagline,
		"lang":         lang,
		"kind":         string(kind),
		"palette":      s.lib.Palette(req.Intent.DesignHints),
		"features":     union(spec.Features, req.Intent.Features),
		"technologies": union(spec.Technologies, req.Intent.TechHints),
		"design_hints": append([]string{}, req.Intent.DesignHints...),
	}
}

func needsEnrichment(rec intent.Record) bool {
	if rec.Complexity.AtLeast(intent.Complex) {
		return true
	}
	for _, f := range enrichingFeatures {
		if rec.HasFeature(f) {
			return true
		}
	}
	return false
}

// enrich asks the LLM for supplemental code and appends each section to the
// matching file. Sections that would contaminate their file are dropped.
func (s *Synthesizer) enrich(ctx context.Context, req Request, kind intent.ProjectKind, files map[string]string, failures map[string]int) {
	if s.llm == nil {
		return
	}
	prompt := fmt.Sprintf("Описание: %s\nТип проекта: %s\nФункции: %s\nТехнологии: %s\nСложность: %s",
		req.Intent.ExtractedData["description"], kind,
		strings.Join(req.Intent.Features, ", "), strings.Join(req.Intent.TechHints, ", "),
		req.Intent.Complexity)
	res := s.llm.Generate(ctx, prompt, llm.Options{PromptKind: llm.PromptProjectGeneration})
	if res.Unavailable() {
		s.log.Warn("enrichment skipped, llm unavailable")
		return
	}
	secs := SplitByPathHints(res.Text, DefaultPathHints)
	for _, p := range secs.Order {
		body := secs.Files[p]
		if p == project.EntryFile {
			frag := bodyFragment(body)
			if frag == "" {
				continue
			}
			if html, ok := files[p]; ok {
				files[p] = insertBefore(html, "</body>", frag+"\n")
				continue
			}
		}
		if ok, _ := Check(p, body); !ok {
			failures[p]++
			s.log.Warn("enrichment section dropped", "path", p, "provider", res.Provider)
			continue
		}
		files[p] = appendSection(files[p], body)
	}
	s.log.Info("project enriched", "provider", res.Provider, "sections", len(secs.Order))
}

// improve is the modify path when no known feature applies: the LLM rewrites
// files and each clean section replaces its file.
func (s *Synthesizer) improve(ctx context.Context, req Request, files map[string]string, failures map[string]int) {
	if s.llm == nil {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Запрос: %s\n\n", req.Intent.ExtractedData["description"])
	for _, p := range sortedKeys(files) {
		fmt.Fprintf(&b, "%s\n%s\n\n", p, files[p])
	}
	res := s.llm.Generate(ctx, b.String(), llm.Options{PromptKind: llm.PromptProjectImprovement})
	if res.Unavailable() {
		s.log.Warn("improvement skipped, llm unavailable")
		return
	}
	applyPatch(files, SplitByPathHints(res.Text, sortedKeys(files)), failures)
}

// A replacement shorter than 1/minPatchRatio of a file of at least
// minPatchBaseline bytes is treated as cut off.
const (
	minPatchRatio    = 3
	minPatchBaseline = 200
)

// applyPatch replaces existing files with clean, complete sections and returns
// how many applied.
func applyPatch(files map[string]string, secs Sections, failures map[string]int) int {
	n := 0
	for _, p := range secs.Order {
		old, ok := files[p]
		if !ok {
			continue
		}
		body := secs.Files[p]
		if ok, _ := Check(p, body); !ok {
			failures[p]++
			continue
		}
		if !completeSection(p, old, body) {
			failures[p]++
			continue
		}
		files[p] = body + "\n"
		n++
	}
	return n
}

// completeSection rejects truncated replacements: a page must close its html
// root and no file may shrink to a fraction of its former size.
func completeSection(p, old, body string) bool {
	if isHTML(p) && !strings.Contains(strings.ToLower(body), "</html>") {
		return false
	}
	return len(old) < minPatchBaseline || len(body)*minPatchRatio >= len(old)
}

func appendSection(content, section string) string {
	if content == "" {
		return section + "\n"
	}
	return strings.TrimRight(content, "\n") + "\n\n" + section + "\n"
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func cloneFiles(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
