package templates

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/vibecode-backend/internal/domain/intent"
)

//go:embed scaffolds
var embedded embed.FS

// ErrRender marks a template execution failure, typically an unresolved placeholder.
var ErrRender = errors.New("template render failed")

type KindSpec struct {
	Title        string   `yaml:"title"`
	Tagline      string   `yaml:"tagline"`
	Blocks       string   `yaml:"blocks"`
	Technologies []string `yaml:"technologies"`
	Features     []string `yaml:"features"`
}

type manifest struct {
	Files    []string                     `yaml:"files"`
	Fallback string                       `yaml:"fallback"`
	Kinds    map[string]KindSpec          `yaml:"kinds"`
	Stubs    map[string]string            `yaml:"stubs"`
	Snippets map[string]string            `yaml:"snippets"`
	Palettes map[string]map[string]string `yaml:"palettes"`
}

// Snippet is a feature fragment for each file kind.
type Snippet struct {
	HTML string
	CSS  string
	JS   string
}

// Library renders per-kind scaffolds. All templates are parsed in New; the
// library is read-only afterwards and safe for concurrent use.
type Library struct {
	m        manifest
	kinds    map[string]*template.Template
	stubs    map[string]*template.Template
	snippets map[string]*template.Template
}

// New loads the scaffolds compiled into the binary.
func New() (*Library, error) {
	sub, err := fs.Sub(embedded, "scaffolds")
	if err != nil {
		return nil, err
	}
	return NewFromFS(sub)
}

// NewFromFS loads a scaffold tree rooted at fsys (manifest.yaml at the top).
func NewFromFS(fsys fs.FS) (*Library, error) {
	raw, err := fs.ReadFile(fsys, "manifest.yaml")
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Files) == 0 {
		return nil, errors.New("manifest lists no files")
	}
	if _, ok := m.Kinds[m.Fallback]; !ok {
		return nil, fmt.Errorf("fallback kind %q not declared", m.Fallback)
	}

	l := &Library{
		m:        m,
		kinds:    make(map[string]*template.Template, len(m.Kinds)),
		stubs:    make(map[string]*template.Template, len(m.Stubs)),
		snippets: make(map[string]*template.Template, len(m.Snippets)),
	}
	for name, spec := range m.Kinds {
		t, err := newTemplate(name).ParseFS(fsys, "base/*.tmpl", spec.Blocks)
		if err != nil {
			return nil, fmt.Errorf("parse kind %s: %w", name, err)
		}
		for _, f := range m.Files {
			if t.Lookup(f+".tmpl") == nil {
				return nil, fmt.Errorf("kind %s: no base template for %s", name, f)
			}
		}
		l.kinds[name] = t
	}
	for ext, file := range m.Stubs {
		t, err := newTemplate("stub" + ext).ParseFS(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("parse stub %s: %w", ext, err)
		}
		l.stubs[ext] = t.Lookup(path.Base(file))
	}
	for tag, file := range m.Snippets {
		t, err := newTemplate("snippet-" + tag).ParseFS(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("parse snippet %s: %w", tag, err)
		}
		l.snippets[tag] = t
	}
	return l, nil
}

func newTemplate(name string) *template.Template {
	return template.New(name).Option("missingkey=error")
}

func (l *Library) resolve(kind intent.ProjectKind) string {
	if _, ok := l.kinds[string(kind)]; ok {
		return string(kind)
	}
	return l.m.Fallback
}

// Spec returns the manifest entry for kind, or the fallback kind's.
func (l *Library) Spec(kind intent.ProjectKind) KindSpec {
	return l.m.Kinds[l.resolve(kind)]
}

// Files lists the paths every scaffold produces, in manifest order.
func (l *Library) Files() []string {
	return append([]string(nil), l.m.Files...)
}

// Render produces the full file set for kind. Unknown kinds use the fallback scaffold.
func (l *Library) Render(kind intent.ProjectKind, ctx map[string]any) (map[string]string, error) {
	name := l.resolve(kind)
	t := l.kinds[name]
	out := make(map[string]string, len(l.m.Files))
	for _, f := range l.m.Files {
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, f+".tmpl", ctx); err != nil {
			return nil, fmt.Errorf("%w: %s/%s: %v", ErrRender, name, f, err)
		}
		out[f] = buf.String()
	}
	return out, nil
}

// RenderStub renders the minimal safe content for the file kind of p.
// ok is false when no stub exists for that extension.
func (l *Library) RenderStub(p string, ctx map[string]any) (string, bool, error) {
	t, ok := l.stubs[strings.ToLower(path.Ext(p))]
	if !ok || t == nil {
		return "", false, nil
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", true, fmt.Errorf("%w: stub %s: %v", ErrRender, p, err)
	}
	return buf.String(), true, nil
}

// RenderFeature renders the snippet for a feature tag. ok is false for unknown tags.
func (l *Library) RenderFeature(tag string, ctx map[string]any) (Snippet, bool, error) {
	t, ok := l.snippets[tag]
	if !ok {
		return Snippet{}, false, nil
	}
	var s Snippet
	for _, part := range []struct {
		name string
		dst  *string
	}{{"html", &s.HTML}, {"css", &s.CSS}, {"js", &s.JS}} {
		if t.Lookup(part.name) == nil {
			continue
		}
		var buf bytes.Buffer
		if err := t.ExecuteTemplate(&buf, part.name, ctx); err != nil {
			return Snippet{}, true, fmt.Errorf("%w: snippet %s/%s: %v", ErrRender, tag, part.name, err)
		}
		*part.dst = buf.String()
	}
	return s, true, nil
}

// HasFeature reports whether a snippet exists for tag.
func (l *Library) HasFeature(tag string) bool {
	_, ok := l.snippets[tag]
	return ok
}

// Palette picks the palette of the first design hint that names one.
func (l *Library) Palette(hints []string) map[string]string {
	for _, h := range hints {
		if p, ok := l.m.Palettes[h]; ok {
			return clone(p)
		}
	}
	return clone(l.m.Palettes["default"])
}

// Kinds lists the declared scaffold kinds, sorted.
func (l *Library) Kinds() []string {
	out := make([]string, 0, len(l.kinds))
	for k := range l.kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func clone(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
