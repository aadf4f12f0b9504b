package synth

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// MaxEnforceFailures is how many times one path may fail the file-kind check
// before it is reported in summary.improvement_areas.
const MaxEnforceFailures = 2

var (
	// Any tag opener, closed or not: `content: "<html"` is markup too.
	markupTag    = regexp.MustCompile(`<[!/]?[a-zA-Z]`)
	documentTags = regexp.MustCompile(`(?i)<(!doctype|/?(html|head|body|script|style|link|meta))\b`)
)

// Check reports whether content is acceptable for the file kind of p.
// Paths of other kinds always pass.
func Check(p, content string) (bool, string) {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		lc := strings.ToLower(content)
		if !strings.Contains(lc, "<!doctype") && !strings.Contains(lc, "<html") {
			return false, "markup without doctype or html root"
		}
	case ".css":
		if markupTag.MatchString(content) {
			return false, "markup tag in stylesheet"
		}
	case ".js", ".mjs":
		if documentTags.MatchString(content) {
			return false, "document markup in script"
		}
	}
	return true, ""
}

func isHTML(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".html", ".htm":
		return true
	}
	return false
}

type enforcer struct {
	lib      Library
	ctx      map[string]any
	failures map[string]int
	onRestub func(p, reason string)
}

// run re-stubs every contaminated path in place. The result always passes Check,
// so a second run over the same files is a no-op. A stub that fails Check
// itself is an error.
func (e *enforcer) run(files map[string]string) error {
	for _, p := range sortedKeys(files) {
		ok, reason := Check(p, files[p])
		if ok {
			continue
		}
		e.failures[p]++
		stub, found, err := e.lib.RenderStub(p, e.ctx)
		if err != nil {
			return err
		}
		if !found {
			stub = ""
		}
		if ok, why := Check(p, stub); !ok {
			e.failures[p]++
			return fmt.Errorf("no clean stub for %s: %s", p, why)
		}
		files[p] = stub
		if e.onRestub != nil {
			e.onRestub(p, reason)
		}
	}
	return nil
}

// failedPaths lists paths that reached MaxEnforceFailures.
func (e *enforcer) failedPaths() []string {
	out := []string{}
	for _, p := range sortedKeys(e.failures) {
		if e.failures[p] >= MaxEnforceFailures {
			out = append(out, p)
		}
	}
	return out
}
