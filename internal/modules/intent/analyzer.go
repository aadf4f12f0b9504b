package intent

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	domain "github.com/yungbote/vibecode-backend/internal/domain/intent"
)

// Analyzer classifies user messages. It holds no state and is safe for concurrent use.
type Analyzer struct{}

func NewAnalyzer() *Analyzer { return &Analyzer{} }

func (a *Analyzer) Analyze(message string) domain.Record { return Analyze(message) }

// Analyze is pure and deterministic; it never fails.
func Analyze(message string) domain.Record {
	canon := Canonical(message)
	rec := domain.Record{
		RequestKind:   domain.General,
		Features:      []string{},
		TechHints:     []string{},
		DesignHints:   []string{},
		Complexity:    domain.Simple,
		ExtractedData: map[string]string{},
		CanonicalForm: canon,
	}
	if canon == "" {
		return rec
	}
	toks := tokens(canon)
	families := 0

	bestKind, bestScore := domain.General, 0
	for _, k := range domain.RequestKinds {
		fam, ok := requestFamilies[k]
		if !ok {
			continue
		}
		n := hits(fam.patterns, toks)
		if n > 0 {
			families++
		}
		if n > bestScore {
			bestKind, bestScore = k, n
		}
	}
	rec.RequestKind = bestKind

	if rec.RequestKind == domain.CreateNew {
		var matched int
		rec.ProjectKind, matched = scoreProjectKind(toks)
		families += matched
	}

	var matched int
	rec.Features, matched = matchTags(featureTags, toks)
	families += matched
	rec.TechHints, matched = matchTags(techTags, toks)
	families += matched
	rec.DesignHints, matched = matchTags(designTags, toks)
	families += matched

	rec.Complexity = complexityFor(hits(complexityIndicators, toks))

	if families > 0 {
		rec.Confidence = clamp(0.4+0.1*float64(families), 0, 1)
	}

	rec.ExtractedData["description"] = canon
	rec.ExtractedData["language"] = language(canon)
	if name := extractName(message); name != "" {
		rec.ExtractedData["name"] = name
	}
	return rec
}

// ProjectKindOf scores project kinds regardless of the request kind; used when
// the caller already knows a project is being created.
func ProjectKindOf(message string) domain.ProjectKind {
	canon := Canonical(message)
	if canon == "" {
		return domain.Other
	}
	k, _ := scoreProjectKind(tokens(canon))
	return k
}

// scoreProjectKind returns the best non-zero kind (else Other) and how many kind families matched.
func scoreProjectKind(toks []string) (domain.ProjectKind, int) {
	kind, best, matched := domain.Other, 0, 0
	for _, k := range domain.ProjectKinds {
		n := hits(projectFamilies[k].patterns, toks)
		if n > 0 {
			matched++
		}
		if n > best {
			kind, best = k, n
		}
	}
	return kind, matched
}

// matchTags returns matched tags ordered by where they first occur in the message.
func matchTags(table []tagEntry, toks []string) ([]string, int) {
	type hit struct {
		tag string
		pos int
		idx int
	}
	var found []hit
	seen := map[string]bool{}
	for i, e := range table {
		if seen[e.tag] {
			continue
		}
		if pos := earliest(e.patterns, toks); pos >= 0 {
			seen[e.tag] = true
			found = append(found, hit{tag: e.tag, pos: pos, idx: i})
		}
	}
	sort.SliceStable(found, func(a, b int) bool {
		if found[a].pos != found[b].pos {
			return found[a].pos < found[b].pos
		}
		return found[a].idx < found[b].idx
	})
	out := make([]string, 0, len(found))
	for _, h := range found {
		out = append(out, h.tag)
	}
	return out, len(out)
}

func complexityFor(n int) domain.Complexity {
	switch {
	case n <= 1:
		return domain.Simple
	case n <= 3:
		return domain.Medium
	case n <= 5:
		return domain.Complex
	default:
		return domain.VeryComplex
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func language(canon string) string {
	var cyr, lat int
	for _, r := range canon {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyr++
		case unicode.Is(unicode.Latin, r):
			lat++
		}
	}
	if cyr >= lat && cyr > 0 {
		return "ru"
	}
	return "en"
}

const maxNameWords = 3

var quotedName = regexp.MustCompile(`["«“„]([^"«»“”„\n]{1,60})["»”“]`)

// extractName reads the raw message so casing survives and synonyms never
// rewrite a name. A quoted phrase wins; otherwise up to maxNameWords words
// follow a naming marker, ending early at punctuation or a joining word.
func extractName(message string) string {
	if m := quotedName.FindStringSubmatch(message); m != nil {
		if name := strings.Join(strings.Fields(m[1]), " "); name != "" {
			return name
		}
	}
	words := strings.Fields(message)
	for i, w := range words {
		if !nameMarkers[Canonical(w)] {
			continue
		}
		var out []string
		for _, raw := range words[i+1:] {
			word := strings.TrimFunc(raw, notNameRune)
			if word == "" || nameStops[Canonical(word)] {
				break
			}
			out = append(out, word)
			if len(out) == maxNameWords || strings.TrimRightFunc(raw, notNameRune) != raw {
				break
			}
		}
		if len(out) > 0 {
			return strings.Join(out, " ")
		}
	}
	return ""
}

func notNameRune(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) }
