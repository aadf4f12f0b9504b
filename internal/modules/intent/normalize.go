package intent

import (
	"strings"
	"unicode"
)

// Canonical lower-cases, strips punctuation and collapses whitespace.
// It is idempotent: Canonical(Canonical(s)) == Canonical(s).
func Canonical(message string) string {
	var b strings.Builder
	b.Grow(len(message))
	space := true
	for _, r := range strings.ToLower(message) {
		switch {
		case r == 'ё':
			r = 'е'
		case unicode.IsLetter(r) || unicode.IsDigit(r):
		default:
			r = ' '
		}
		if r == ' ' {
			if !space {
				b.WriteRune(' ')
			}
			space = true
			continue
		}
		b.WriteRune(r)
		space = false
	}
	return strings.TrimSpace(b.String())
}

// tokens splits canonical text and applies the synonym table.
func tokens(canonical string) []string {
	fields := strings.Fields(canonical)
	for i, f := range fields {
		if s, ok := synonyms[f]; ok {
			fields[i] = s
		}
	}
	return fields
}

type pattern []string

func compile(p string) pattern { return strings.Fields(p) }

func (p pattern) matchAt(toks []string, i int) bool {
	if i+len(p) > len(toks) {
		return false
	}
	for j, want := range p {
		got := toks[i+j]
		if strings.HasSuffix(want, "*") {
			if !strings.HasPrefix(got, strings.TrimSuffix(want, "*")) {
				return false
			}
			continue
		}
		if got != want {
			return false
		}
	}
	return true
}

// firstMatch returns the token index where p first matches, or -1.
func (p pattern) firstMatch(toks []string) int {
	if len(p) == 0 {
		return -1
	}
	for i := range toks {
		if p.matchAt(toks, i) {
			return i
		}
	}
	return -1
}

// hits counts how many of the patterns occur anywhere in toks.
func hits(patterns []string, toks []string) int {
	n := 0
	for _, raw := range patterns {
		if compile(raw).firstMatch(toks) >= 0 {
			n++
		}
	}
	return n
}

// earliest returns the earliest position any pattern matches, or -1.
func earliest(patterns []string, toks []string) int {
	best := -1
	for _, raw := range patterns {
		if i := compile(raw).firstMatch(toks); i >= 0 && (best < 0 || i < best) {
			best = i
		}
	}
	return best
}
