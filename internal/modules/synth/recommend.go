package synth

import (
	"path"
	"regexp"
	"strings"

	"github.com/yungbote/vibecode-backend/internal/domain/project"
)

const largeFileBytes = 100 << 10

type rule struct {
	name     string
	priority project.Priority
	message  string
	// ext selects the files the rule inspects; empty means every file.
	ext   string
	fires func(p, content string, files map[string]string) bool
}

var (
	imgTag     = regexp.MustCompile(`(?i)<img\b[^>]*>`)
	altAttr    = regexp.MustCompile(`(?i)\balt\s*=`)
	inlineOnX  = regexp.MustCompile(`(?i)\son[a-z]+\s*=\s*["']`)
	htmlOpen   = regexp.MustCompile(`(?i)<html\b[^>]*>`)
	langAttr   = regexp.MustCompile(`(?i)\blang\s*=`)
	varDecl    = regexp.MustCompile(`(?m)(^|[;{\s])var\s+[A-Za-z_$]`)
	httpAssets = regexp.MustCompile(`(?i)(src|href)\s*=\s*["']http://`)
)

var rules = []rule{
	{
		name: "missing_viewport", priority: project.PriorityHigh, ext: ".html",
		message: "Add a mobile viewport meta tag",
		fires: func(_, c string, _ map[string]string) bool {
			return !strings.Contains(strings.ToLower(c), `name="viewport"`)
		},
	},
	{
		name: "missing_title", priority: project.PriorityMedium, ext: ".html",
		message: "Give the page a <title>",
		fires: func(_, c string, _ map[string]string) bool {
			return !strings.Contains(strings.ToLower(c), "<title")
		},
	},
	{
		name: "missing_lang", priority: project.PriorityLow, ext: ".html",
		message: "Declare the document language on the html element",
		fires: func(_, c string, _ map[string]string) bool {
			m := htmlOpen.FindString(c)
			return m != "" && !langAttr.MatchString(m)
		},
	},
	{
		name: "missing_description", priority: project.PriorityLow, ext: ".html",
		message: "Add a meta description for search engines",
		fires: func(_, c string, _ map[string]string) bool {
			return !strings.Contains(strings.ToLower(c), `name="description"`)
		},
	},
	{
		name: "images_without_alt", priority: project.PriorityMedium, ext: ".html",
		message: "Provide alt text for every image",
		fires: func(_, c string, _ map[string]string) bool {
			for _, tag := range imgTag.FindAllString(c, -1) {
				if !altAttr.MatchString(tag) {
					return true
				}
			}
			return false
		},
	},
	{
		name: "inline_handlers", priority: project.PriorityLow, ext: ".html",
		message: "Move inline event handlers into script.js",
		fires: func(_, c string, _ map[string]string) bool { return inlineOnX.MatchString(c) },
	},
	{
		name: "insecure_assets", priority: project.PriorityMedium, ext: ".html",
		message: "Load external assets over https",
		fires: func(_, c string, _ map[string]string) bool { return httpAssets.MatchString(c) },
	},
	{
		name: "no_media_queries", priority: project.PriorityMedium, ext: ".css",
		message: "Add media queries so the layout adapts to small screens",
		fires: func(_, c string, _ map[string]string) bool { return !strings.Contains(c, "@media") },
	},
	{
		name: "console_logging", priority: project.PriorityLow, ext: ".js",
		message: "Remove console.log calls before publishing",
		fires: func(_, c string, _ map[string]string) bool { return strings.Contains(c, "console.log(") },
	},
	{
		name: "var_declarations", priority: project.PriorityLow, ext: ".js",
		message: "Prefer const and let over var",
		fires: func(_, c string, _ map[string]string) bool { return varDecl.MatchString(c) },
	},
	{
		name: "large_file", priority: project.PriorityMedium,
		message: "Split or minify files larger than 100 KB",
		fires: func(_, c string, _ map[string]string) bool { return len(c) > largeFileBytes },
	},
	{
		name: "missing_readme", priority: project.PriorityLow,
		message: "Add a README.md describing the project",
		fires: func(p, _ string, files map[string]string) bool {
			_, ok := files["README.md"]
			return p == project.EntryFile && !ok
		},
	},
}

// recommend runs every rule over every file it applies to, in rule then path order.
func recommend(files map[string]string) []project.Recommendation {
	out := []project.Recommendation{}
	paths := sortedKeys(files)
	for _, r := range rules {
		for _, p := range paths {
			if r.ext != "" && strings.ToLower(path.Ext(p)) != r.ext {
				continue
			}
			if r.fires(p, files[p], files) {
				out = append(out, project.Recommendation{Rule: r.name, Message: r.message, Priority: r.priority, Path: p})
			}
		}
	}
	return out
}
