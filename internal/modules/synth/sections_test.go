package synth

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vibecode-backend/internal/domain/project"
)

func TestSplitByPathHints(t *testing.T) {
	reply := "Вот что я поменял.\n\n" +
		"### 1. `index.html`:\n```html\n<!DOCTYPE html>\n<html></html>\n```\n" +
		"**styles.css**\nbody { margin: 0; }\n" +
		"- Файл: script.js\nrun();\n" +
		"notes.txt\nignored line belongs to script\n" +
		"STYLES.CSS\nh1 { color: red; }\n" +
		"README.md\n\n"

	s := SplitByPathHints(reply, DefaultPathHints)
	require.Equal(t, "Вот что я поменял.", s.Preamble)
	require.Equal(t, []string{"index.html", "styles.css", "script.js"}, s.Order)
	require.Equal(t, "<!DOCTYPE html>\n<html></html>", s.Files["index.html"])
	require.Equal(t, "body { margin: 0; }\nh1 { color: red; }", s.Files["styles.css"])
	require.Equal(t, "run();\nnotes.txt\nignored line belongs to script", s.Files["script.js"])
	require.NotContains(t, s.Files, "README.md")
}

func TestSplitWithoutHints(t *testing.T) {
	s := SplitByPathHints("just some advice\nabout index.html files", DefaultPathHints)
	require.True(t, s.Empty())
	require.Equal(t, "just some advice\nabout index.html files", s.Preamble)
}

func TestBodyFragment(t *testing.T) {
	in := "<!DOCTYPE html>\n<html lang=\"en\"><head><title>x</title></head>\n<body class=\"a\">\n<p>hi</p>\n</body></html>"
	require.Equal(t, "<p>hi</p>", bodyFragment(in))
	require.Equal(t, "<p>plain</p>", bodyFragment("<p>plain</p>"))
}

func TestCheck(t *testing.T) {
	cases := []struct {
		path, content string
		ok            bool
	}{
		{"index.html", "<!DOCTYPE html><p>", true},
		{"pages/about.html", "<html><body></body></html>", true},
		{"index.html", "<div>fragment</div>", false},
		{"styles.css", "a > b { color: red; }", true},
		{"styles.css", "body{}\n<style>", false},
		{"styles.css", "</div>", false},
		{"script.js", "el.innerHTML = '<li>' + x + '</li>';", true},
		{"script.js", "const header = '<header>';", true},
		{"script.js", "document.write('<script src=x></script>')", false},
		{"script.js", "<!DOCTYPE html>", false},
		{"app.mjs", "`<BODY>`", false},
		{"README.md", "<html>", true},
		{"script.js", "const page = \"<html\";", false},
		{"script.js", "document.write('<!doctype');", false},
		{"script.js", "const end = '</body';", false},
		{"script.js", "if (a <b) { run(); }", true},
		{"styles.css", "h1::before { content: \"<html\"; }", false},
		{"styles.css", "/* <3 */ a { color: red; }", true},
	}
	for _, tc := range cases {
		ok, _ := Check(tc.path, tc.content)
		require.Equal(t, tc.ok, ok, "%s: %q", tc.path, tc.content)
	}
}

func TestRecommendRules(t *testing.T) {
	files := map[string]string{
		"index.html": "<html><body><img src=\"http://x/a.png\"><button onclick=\"go()\">go</button></body></html>",
		"styles.css": "body{}",
		"script.js":  "var x = 1; console.log(x);",
	}
	got := map[string]project.Priority{}
	for _, r := range recommend(files) {
		got[r.Rule+"@"+r.Path] = r.Priority
	}
	require.Equal(t, map[string]project.Priority{
		"missing_viewport@index.html":    project.PriorityHigh,
		"missing_title@index.html":       project.PriorityMedium,
		"missing_lang@index.html":        project.PriorityLow,
		"missing_description@index.html": project.PriorityLow,
		"images_without_alt@index.html":  project.PriorityMedium,
		"inline_handlers@index.html":     project.PriorityLow,
		"insecure_assets@index.html":     project.PriorityMedium,
		"no_media_queries@styles.css":    project.PriorityMedium,
		"console_logging@script.js":      project.PriorityLow,
		"var_declarations@script.js":     project.PriorityLow,
		"missing_readme@index.html":      project.PriorityLow,
	}, got)
}

func TestDetectTechnologies(t *testing.T) {
	files := map[string]string{
		"index.html": "<!DOCTYPE html><canvas id=c></canvas>",
		"script.js":  "localStorage.setItem('a', 1); fetch('/x');",
	}
	require.Equal(t, []string{"html5", "canvas", "localstorage", "fetch"}, detectTechnologies(files))
}
