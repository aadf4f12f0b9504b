package synth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vibecode-backend/internal/clients/llm"
	"github.com/yungbote/vibecode-backend/internal/domain/intent"
	"github.com/yungbote/vibecode-backend/internal/modules/templates"
	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
)

type fakeLLM struct {
	mu          sync.Mutex
	reply       string
	unavailable bool
	kinds       []llm.PromptKind
}

func (f *fakeLLM) Generate(_ context.Context, prompt string, opts llm.Options) llm.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.kinds = append(f.kinds, opts.PromptKind)
	if f.unavailable {
		return llm.Result{OK: true, Provider: llm.FallbackProvider, Text: "service unavailable: " + prompt, Err: apierr.KindLLMUnavailable}
	}
	return llm.Result{OK: true, Provider: "fake", Text: f.reply}
}

type dirtyLib struct {
	*templates.Library
	renderErr error
	dirtyStub bool
}

func (d dirtyLib) RenderStub(p string, ctx map[string]any) (string, bool, error) {
	if d.dirtyStub {
		return "<style>body{}</style>", true, nil
	}
	return d.Library.RenderStub(p, ctx)
}

func (d dirtyLib) Render(kind intent.ProjectKind, ctx map[string]any) (map[string]string, error) {
	if d.renderErr != nil {
		return nil, d.renderErr
	}
	files, err := d.Library.Render(kind, ctx)
	if err == nil {
		files["styles.css"] += "\n<p>oops</p>\n"
	}
	return files, err
}

func library(t *testing.T) *templates.Library {
	t.Helper()
	l, err := templates.New()
	require.NoError(t, err)
	return l
}

func record(kind intent.ProjectKind, features ...string) intent.Record {
	return intent.Record{
		RequestKind:   intent.CreateNew,
		ProjectKind:   kind,
		Features:      features,
		Complexity:    intent.Simple,
		ExtractedData: map[string]string{"language": "en", "description": "a small " + string(kind)},
	}
}

func TestSynthesizeCalculator(t *testing.T) {
	gen := &fakeLLM{}
	s := New(library(t), gen, nil)

	var stages []string
	var pcts []int
	p, err := s.Synthesize(context.Background(), Request{Intent: record(intent.Calculator), Name: "Calc"},
		func(stage string, pct int) {
			stages = append(stages, stage)
			pcts = append(pcts, pct)
		})
	require.NoError(t, err)

	require.Equal(t, []string{StageAnalyzing, StageTemplating, StageEnriching, StageValidating, StageDone}, stages)
	require.Equal(t, []int{10, 30, 60, 85, 100}, pcts)
	require.Empty(t, gen.kinds, "simple projects are not enriched")

	require.NotEmpty(t, p.ProjectID)
	require.Equal(t, "Calc", p.Name)
	require.Equal(t, intent.Calculator, p.Kind)
	for _, f := range []string{"index.html", "styles.css", "script.js"} {
		require.Contains(t, p.Files, f)
	}
	html := p.Files["index.html"]
	require.Contains(t, html, "<!DOCTYPE html>")
	require.True(t, strings.Contains(html, "calculator") || strings.Contains(html, "калькулятор"))
	require.NotContains(t, p.Files["styles.css"], "<html")
	js := strings.ToLower(p.Files["script.js"])
	require.NotContains(t, js, "<html")
	require.NotContains(t, js, "<!doctype")

	require.Contains(t, p.Technologies, "html5")
	require.Contains(t, p.Technologies, "javascript")
	require.Empty(t, p.Summary.ImprovementAreas)
	for _, r := range p.Summary.Recommendations {
		require.NotEqual(t, "missing_viewport", r.Rule)
	}
}

func TestSynthesizeEveryFileIsClean(t *testing.T) {
	s := New(library(t), &fakeLLM{}, nil)
	kinds := append([]intent.ProjectKind{intent.Other}, intent.ProjectKinds...)
	for _, k := range kinds {
		p, err := s.Synthesize(context.Background(), Request{Intent: record(k, "cart", "search", "dark_theme")}, nil)
		require.NoError(t, err, k)
		require.Contains(t, p.Files, "index.html")
		for path, content := range p.Files {
			ok, reason := Check(path, content)
			require.True(t, ok, "%s %s: %s", k, path, reason)
		}
	}
}

func TestSynthesizeEnrichment(t *testing.T) {
	gen := &fakeLLM{reply: "Here is extra code.\n" +
		"### index.html\n```html\n<!DOCTYPE html><html><body><div id=\"extra\">hi</div></body></html>\n```\n" +
		"styles.css\n<div>bad</div>\n" +
		"script.js\nconsole.log('extra');\n"}
	s := New(library(t), gen, nil)

	p, err := s.Synthesize(context.Background(), Request{Intent: record(intent.AIApp, "voice")}, nil)
	require.NoError(t, err)
	require.Equal(t, []llm.PromptKind{llm.PromptProjectGeneration}, gen.kinds)

	html := p.Files["index.html"]
	require.Contains(t, html, `<div id="extra">hi</div>`)
	require.Equal(t, 1, strings.Count(strings.ToLower(html), "<!doctype"))
	require.Less(t, strings.Index(html, `id="extra"`), strings.LastIndex(html, "</body>"))
	require.Contains(t, html, `data-feature="voice"`)

	require.NotContains(t, p.Files["styles.css"], "<div")
	require.Contains(t, p.Files["script.js"], "console.log('extra');")
	require.Empty(t, p.Summary.ImprovementAreas)
	require.Contains(t, p.Technologies, "speech")
	require.Contains(t, p.Features, "voice")

	var rules []string
	for _, r := range p.Summary.Recommendations {
		rules = append(rules, r.Rule)
	}
	require.Contains(t, rules, "console_logging")
}

func TestSynthesizeEnrichmentSkippedWhenLLMUnavailable(t *testing.T) {
	down := &fakeLLM{unavailable: true}
	rec := record(intent.Landing)
	rec.Complexity = intent.VeryComplex

	p, err := New(library(t), down, nil).Synthesize(context.Background(), Request{Intent: rec, Name: "Site"}, nil)
	require.NoError(t, err)
	require.Len(t, down.kinds, 1)

	plain, err := New(library(t), nil, nil).Synthesize(context.Background(), Request{Intent: rec, Name: "Site"}, nil)
	require.NoError(t, err)
	require.Equal(t, plain.Files, p.Files)
}

func TestRepeatedContaminationIsReported(t *testing.T) {
	gen := &fakeLLM{reply: "styles.css\n<b>x</b>\n"}
	rec := record(intent.Landing)
	rec.Complexity = intent.Complex

	p, err := New(dirtyLib{Library: library(t)}, gen, nil).Synthesize(context.Background(), Request{Intent: rec}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"styles.css"}, p.Summary.ImprovementAreas)
	ok, _ := Check("styles.css", p.Files["styles.css"])
	require.True(t, ok)
}

func TestRenderFailureIsSynthesisFailed(t *testing.T) {
	lib := dirtyLib{Library: library(t), renderErr: templates.ErrRender}
	_, err := New(lib, nil, nil).Synthesize(context.Background(), Request{Intent: record(intent.Landing)}, nil)
	require.True(t, errors.Is(err, apierr.ErrSynthesisFailed))
}

func TestDirtyStubIsSynthesisFailed(t *testing.T) {
	lib := dirtyLib{Library: library(t), dirtyStub: true}
	_, err := New(lib, nil, nil).Synthesize(context.Background(), Request{Intent: record(intent.Landing)}, nil)
	require.True(t, errors.Is(err, apierr.ErrSynthesisFailed))
	require.ErrorContains(t, err, "styles.css")
}

func TestExtractedNameCasing(t *testing.T) {
	s := New(library(t), nil, nil)
	rec := record(intent.Landing)
	rec.ExtractedData["name"] = "iPhone Fans"
	p, err := s.Synthesize(context.Background(), Request{Intent: rec}, nil)
	require.NoError(t, err)
	require.Equal(t, "iPhone Fans", p.Name)

	rec.ExtractedData["name"] = "sunrise studio"
	p, err = s.Synthesize(context.Background(), Request{Intent: rec}, nil)
	require.NoError(t, err)
	require.Equal(t, "Sunrise Studio", p.Name)
}

func TestModifyInjectsFeaturesIdempotently(t *testing.T) {
	s := New(library(t), &fakeLLM{}, nil)
	ctx := context.Background()
	base, err := s.Synthesize(ctx, Request{Intent: record(intent.Calculator), Name: "Calc"}, nil)
	require.NoError(t, err)

	mod := record("", "cart")
	mod.RequestKind = intent.ModifyExisting
	req := Request{Intent: mod, Mode: ModeModify, ProjectID: base.ProjectID, Kind: intent.Calculator, Name: "Calc", Prior: base.Files}

	once, err := s.Synthesize(ctx, req, nil)
	require.NoError(t, err)
	require.Equal(t, base.ProjectID, once.ProjectID)
	require.Equal(t, 1, strings.Count(once.Files["index.html"], `data-feature="cart"`))
	require.Equal(t, 1, strings.Count(once.Files["styles.css"], "/* feature:cart */"))
	require.Equal(t, 1, strings.Count(once.Files["script.js"], "// feature:cart"))
	require.Contains(t, once.Files["index.html"], "<!-- features -->")

	req.Prior = once.Files
	twice, err := s.Synthesize(ctx, req, nil)
	require.NoError(t, err)
	require.Equal(t, once.Files, twice.Files)
}

func TestModifyWithoutKnownFeatureAsksForImprovement(t *testing.T) {
	gen := &fakeLLM{reply: "styles.css\nbutton { color: blue; }\n"}
	s := New(library(t), gen, nil)
	prior := map[string]string{"index.html": "<!DOCTYPE html><html><body></body></html>", "styles.css": "button{}"}

	mod := record("")
	mod.RequestKind = intent.ModifyExisting
	p, err := s.Synthesize(context.Background(), Request{Intent: mod, Mode: ModeModify, ProjectID: "p1", Prior: prior}, nil)
	require.NoError(t, err)
	require.Equal(t, "p1", p.ProjectID)
	require.Equal(t, []llm.PromptKind{llm.PromptProjectImprovement}, gen.kinds)
	require.Equal(t, "button { color: blue; }\n", p.Files["styles.css"])
	require.Equal(t, "button{}", prior["styles.css"], "prior files are not mutated")
}

func TestRestyleOnlyTouchesStylesheet(t *testing.T) {
	s := New(library(t), &fakeLLM{}, nil)
	ctx := context.Background()
	base, err := s.Synthesize(ctx, Request{Intent: record(intent.Game, "cart"), Name: "Snake"}, nil)
	require.NoError(t, err)

	rec := record("")
	rec.RequestKind = intent.ImproveDesign
	rec.DesignHints = []string{"gaming"}
	p, err := s.Synthesize(ctx, Request{Intent: rec, Mode: ModeRestyle, ProjectID: base.ProjectID, Kind: intent.Game, Name: "Snake", Prior: base.Files}, nil)
	require.NoError(t, err)

	require.Equal(t, base.Files["index.html"], p.Files["index.html"])
	require.Equal(t, base.Files["script.js"], p.Files["script.js"])
	require.NotEqual(t, base.Files["styles.css"], p.Files["styles.css"])
	require.Contains(t, p.Files["styles.css"], "#22c55e")
	require.Equal(t, 1, strings.Count(p.Files["styles.css"], "/* feature:cart */"))
}

func TestPatchMode(t *testing.T) {
	s := New(library(t), nil, nil)
	prior := map[string]string{
		"index.html": "<!DOCTYPE html><html><body><form></form></body></html>",
		"script.js":  "brokenCall(",
	}
	reply := "The script has a syntax error.\n\nscript.js\n```js\nfixedCall();\n```\n"

	p, err := s.Synthesize(context.Background(), Request{Intent: record(""), Mode: ModePatch, ProjectID: "p1", Prior: prior, Patch: reply}, nil)
	require.NoError(t, err)
	require.Equal(t, "fixedCall();\n", p.Files["script.js"])
	require.Equal(t, prior["index.html"], p.Files["index.html"])

	_, err = s.Synthesize(context.Background(), Request{Intent: record(""), Mode: ModePatch, ProjectID: "p1", Prior: prior, Patch: "just advice"}, nil)
	require.True(t, errors.Is(err, ErrNothingToPatch))
	require.True(t, errors.Is(err, apierr.ErrValidation))
}

func TestEnforcerIsIdempotent(t *testing.T) {
	lib := library(t)
	files := map[string]string{
		"index.html": "<div>no root</div>",
		"styles.css": "body{}<style>",
		"script.js":  "document.write('<script>x</script>')",
		"data.json":  "<anything>",
	}
	enf := &enforcer{lib: lib, ctx: map[string]any{"name": "X", "description": "d", "lang": "en"}, failures: map[string]int{}}
	require.NoError(t, enf.run(files))
	snapshot := cloneFiles(files)
	require.NoError(t, enf.run(files))
	require.Equal(t, snapshot, files)
	require.Equal(t, "<anything>", files["data.json"])
	for p, c := range files {
		ok, _ := Check(p, c)
		require.True(t, ok, p)
	}
}

func TestPatchRejectsTruncatedSections(t *testing.T) {
	s := New(library(t), nil, nil)
	page := "<!DOCTYPE html><html><body>" + strings.Repeat("<p>row</p>", 40) + "</body></html>"
	prior := map[string]string{
		"index.html": page,
		"README.md":  "# Calc\n\n" + strings.Repeat("Open index.html in a browser.\n", 20),
	}

	// A cut-off page keeps its doctype but loses the closing root.
	cut := "index.html\n<!DOCTYPE html><html><body><p>row</p>\n"
	_, err := s.Synthesize(context.Background(), Request{Intent: record(""), Mode: ModePatch, ProjectID: "p1", Prior: prior, Patch: cut}, nil)
	require.True(t, errors.Is(err, ErrNothingToPatch))

	short := "README.md\n...## Running\n\nOpen ...\n"
	_, err = s.Synthesize(context.Background(), Request{Intent: record(""), Mode: ModePatch, ProjectID: "p1", Prior: prior, Patch: short}, nil)
	require.True(t, errors.Is(err, ErrNothingToPatch))

	full := "index.html\n" + strings.Replace(page, "row", "fixed row", 1) + "\n"
	p, err := s.Synthesize(context.Background(), Request{Intent: record(""), Mode: ModePatch, ProjectID: "p1", Prior: prior, Patch: full}, nil)
	require.NoError(t, err)
	require.Contains(t, p.Files["index.html"], "fixed row")
	require.Equal(t, prior["README.md"], p.Files["README.md"])
}

func TestMockReplyNeverPatchesProject(t *testing.T) {
	gen := llm.New(nil, []llm.Provider{llm.NewMock()})
	s := New(library(t), gen, nil)
	ctx := context.Background()
	base, err := s.Synthesize(ctx, Request{Intent: record(intent.Calculator), Name: "Calc"}, nil)
	require.NoError(t, err)

	mod := record("")
	mod.RequestKind = intent.ModifyExisting
	mod.ExtractedData["description"] = "Измени заголовок"
	p, err := s.Synthesize(ctx, Request{Intent: mod, Mode: ModeModify, ProjectID: base.ProjectID, Kind: intent.Calculator, Name: "Calc", Prior: base.Files}, nil)
	require.NoError(t, err)
	require.Equal(t, base.Files, p.Files)
}
