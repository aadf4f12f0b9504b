package synth

import (
	"regexp"
	"strings"
)

// DefaultPathHints are the file names an LLM reply is split on.
var DefaultPathHints = []string{"index.html", "styles.css", "script.js", "README.md"}

// Sections is an LLM reply split into per-file parts.
type Sections struct {
	// Preamble is the text before the first path hint.
	Preamble string
	Files    map[string]string
	Order    []string
}

func (s Sections) Empty() bool { return len(s.Files) == 0 }

var hintDecoration = regexp.MustCompile(`^(?i)(?:[#*>\-\s]|\d+[.)]|file\s*:|файл\s*:|\x60)*`)

// SplitByPathHints splits reply at lines that name one of paths (case-insensitive),
// tolerating markdown decoration such as "### 1. `index.html`:". Code fences are
// dropped. A path named twice accumulates both parts.
func SplitByPathHints(reply string, paths []string) Sections {
	known := make(map[string]string, len(paths))
	for _, p := range paths {
		known[strings.ToLower(p)] = p
	}
	out := Sections{Files: map[string]string{}}
	var pre strings.Builder
	current := ""
	parts := map[string]*strings.Builder{}

	for _, line := range strings.Split(strings.ReplaceAll(reply, "\r\n", "\n"), "\n") {
		if p, ok := matchHint(line, known); ok {
			current = p
			if _, seen := parts[p]; !seen {
				parts[p] = &strings.Builder{}
				out.Order = append(out.Order, p)
			}
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		if current == "" {
			pre.WriteString(line)
			pre.WriteByte('\n')
			continue
		}
		parts[current].WriteString(line)
		parts[current].WriteByte('\n')
	}

	out.Preamble = strings.TrimSpace(pre.String())
	kept := out.Order[:0]
	for _, p := range out.Order {
		if body := strings.TrimSpace(parts[p].String()); body != "" {
			out.Files[p] = body
			kept = append(kept, p)
		}
	}
	out.Order = kept
	return out
}

func matchHint(line string, known map[string]string) (string, bool) {
	s := strings.TrimSpace(line)
	if s == "" || len(s) > 80 {
		return "", false
	}
	s = hintDecoration.ReplaceAllString(s, "")
	s = strings.TrimRight(s, " \t:*`")
	p, ok := known[strings.ToLower(strings.TrimSpace(s))]
	return p, ok
}

var (
	wrapperTag = regexp.MustCompile(`(?is)<!doctype[^>]*>|</?html[^>]*>|<head[^>]*>.*?</head>|</?body[^>]*>`)
)

// bodyFragment strips document wrappers from an HTML section so it can be
// spliced into an existing page.
func bodyFragment(html string) string {
	return strings.TrimSpace(wrapperTag.ReplaceAllString(html, ""))
}
