package synth

import (
	"regexp"
	"strings"
)

const (
	htmlFeatureMarker = "<!-- features -->"
	cssFeatureMarker  = "/* features */"
	jsFeatureMarker   = "// features"

	stylesPath = "styles.css"
	scriptPath = "script.js"
)

var featureAttr = regexp.MustCompile(`data-feature="([a-z0-9_]+)"`)

// presentFeatures lists the feature tags already spliced into markup, in page order.
func presentFeatures(html string) []string {
	var out []string
	seen := map[string]bool{}
	for _, m := range featureAttr.FindAllStringSubmatch(html, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// injectFeatures splices feature snippets into the entry file, the stylesheet
// and the script. Each part carries a marker so repeated injection is a no-op.
// It returns the tags that changed at least one file.
func injectFeatures(lib Library, files map[string]string, entry string, tags []string, ctx map[string]any) ([]string, error) {
	var applied []string
	for _, tag := range tags {
		snip, ok, err := lib.RenderFeature(tag, ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		changed := false

		if html, has := files[entry]; has && strings.TrimSpace(snip.HTML) != "" &&
			!strings.Contains(html, `data-feature="`+tag+`"`) {
			files[entry] = insertHTML(html, snip.HTML)
			changed = true
		}
		if css := strings.TrimSpace(snip.CSS); css != "" {
			mark := "/* feature:" + tag + " */"
			if !strings.Contains(files[stylesPath], mark) {
				files[stylesPath] = insertBefore(files[stylesPath], cssFeatureMarker, mark+"\n"+css+"\n\n")
				changed = true
			}
		}
		if js := strings.TrimSpace(snip.JS); js != "" {
			mark := "// feature:" + tag
			if !strings.Contains(files[scriptPath], mark) {
				files[scriptPath] = insertBefore(files[scriptPath], jsFeatureMarker, mark+"\n"+js+"\n\n")
				changed = true
			}
		}
		if changed {
			applied = append(applied, tag)
		}
	}
	return applied, nil
}

func insertHTML(html, fragment string) string {
	fragment = strings.TrimRight(fragment, "\n") + "\n"
	for _, anchor := range []string{htmlFeatureMarker, "</main>", "</body>"} {
		if i := strings.LastIndex(html, anchor); i >= 0 {
			return html[:i] + strings.TrimLeft(fragment, " \t") + indentOf(html, i) + html[i:]
		}
	}
	return html + "\n" + fragment
}

// insertBefore places block just before marker, or appends it when the marker is gone.
func insertBefore(content, marker, block string) string {
	if i := strings.LastIndex(content, marker); i >= 0 {
		return content[:i] + block + content[i:]
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if content != "" {
		content += "\n"
	}
	return content + strings.TrimRight(block, "\n") + "\n"
}

// indentOf returns the whitespace that precedes position i on its line.
func indentOf(s string, i int) string {
	start := strings.LastIndex(s[:i], "\n") + 1
	ws := s[start:i]
	if strings.TrimSpace(ws) != "" {
		return ""
	}
	return ws
}
