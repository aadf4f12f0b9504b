package synth

import (
	"path"
	"strings"
)

type fingerprint struct {
	tag string
	// ext limits the scan to files with this extension; empty scans all files.
	ext     string
	markers []string
}

// fingerprints map textual markers in file contents to technology tags.
var fingerprints = []fingerprint{
	{tag: "html5", ext: ".html", markers: []string{"<!doctype html"}},
	{tag: "css3", ext: ".css", markers: []string{"var(--", "@media", "display: grid", "display: flex", "transition:"}},
	{tag: "javascript", ext: ".js", markers: []string{"addeventlistener", "=>", "function "}},
	{tag: "canvas", markers: []string{"<canvas", "getcontext("}},
	{tag: "localstorage", markers: []string{"localstorage."}},
	{tag: "webaudio", markers: []string{"audiocontext", "<audio", "new audio("}},
	{tag: "speech", markers: []string{"speechrecognition", "speechsynthesis"}},
	{tag: "serviceworker", markers: []string{"serviceworker"}},
	{tag: "fetch", ext: ".js", markers: []string{"fetch("}},
	{tag: "webgl", markers: []string{"webgl"}},
	{tag: "threejs", markers: []string{"three.module.js", "three.min.js", "new three."}},
	{tag: "react", markers: []string{"react-dom", "react.production", "reactdom."}},
	{tag: "vue", markers: []string{"vue.global", "createapp("}},
	{tag: "tailwind", markers: []string{"tailwindcss", "cdn.tailwindcss.com"}},
	{tag: "bootstrap", markers: []string{"bootstrap.min.css", "bootstrap.bundle"}},
	{tag: "chartjs", markers: []string{"chart.js", "new chart("}},
	{tag: "notifications", ext: ".js", markers: []string{"notification.requestpermission"}},
	{tag: "geolocation", ext: ".js", markers: []string{"navigator.geolocation"}},
}

// detectTechnologies scans files against the fingerprint table, in table order.
func detectTechnologies(files map[string]string) []string {
	lowered := make(map[string]string, len(files))
	for p, c := range files {
		lowered[p] = strings.ToLower(c)
	}
	var out []string
	for _, fp := range fingerprints {
		if fp.matches(lowered) {
			out = append(out, fp.tag)
		}
	}
	return out
}

func (fp fingerprint) matches(files map[string]string) bool {
	for p, c := range files {
		if fp.ext != "" && strings.ToLower(path.Ext(p)) != fp.ext {
			continue
		}
		for _, m := range fp.markers {
			if strings.Contains(c, m) {
				return true
			}
		}
	}
	return false
}

// union appends the elements of more not already in base (case-insensitive), keeping order.
func union(base []string, more ...[]string) []string {
	out := make([]string, 0, len(base))
	seen := map[string]bool{}
	add := func(v string) {
		k := strings.ToLower(strings.TrimSpace(v))
		if k == "" || seen[k] {
			return
		}
		seen[k] = true
		out = append(out, v)
	}
	for _, v := range base {
		add(v)
	}
	for _, list := range more {
		for _, v := range list {
			add(v)
		}
	}
	return out
}
