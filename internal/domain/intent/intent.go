package intent

// RequestKind classifies what the user wants done.
type RequestKind string

const (
	CreateNew      RequestKind = "create_new"
	ModifyExisting RequestKind = "modify_existing"
	FixBug         RequestKind = "fix_bug"
	ImproveDesign  RequestKind = "improve_design"
	General        RequestKind = "general"
)

// RequestKinds lists kinds in tie-break order.
var RequestKinds = []RequestKind{CreateNew, ModifyExisting, FixBug, ImproveDesign, General}

type ProjectKind string

const (
	Landing      ProjectKind = "landing"
	Ecommerce    ProjectKind = "ecommerce"
	Portfolio    ProjectKind = "portfolio"
	Calculator   ProjectKind = "calculator"
	Game         ProjectKind = "game"
	Fitness      ProjectKind = "fitness"
	ChatApp      ProjectKind = "chat_app"
	MediaPlayer  ProjectKind = "media_player"
	ThreeDViewer ProjectKind = "three_d_viewer"
	AIApp        ProjectKind = "ai_app"
	Other        ProjectKind = "other"
)

// ProjectKinds lists kinds in tie-break order; Other is the fallback and is not scored.
var ProjectKinds = []ProjectKind{
	Landing, Ecommerce, Portfolio, Calculator, Game, Fitness,
	ChatApp, MediaPlayer, ThreeDViewer, AIApp,
}

func ParseProjectKind(s string) ProjectKind {
	for _, k := range ProjectKinds {
		if string(k) == s {
			return k
		}
	}
	return Other
}

type Complexity string

const (
	Simple      Complexity = "simple"
	Medium      Complexity = "medium"
	Complex     Complexity = "complex"
	VeryComplex Complexity = "very_complex"
)

// AtLeast reports whether c ranks at or above other.
func (c Complexity) AtLeast(other Complexity) bool {
	return c.rank() >= other.rank()
}

func (c Complexity) rank() int {
	switch c {
	case Medium:
		return 1
	case Complex:
		return 2
	case VeryComplex:
		return 3
	default:
		return 0
	}
}

// Record is the structured classification of one user message.
type Record struct {
	RequestKind   RequestKind       `json:"request_kind"`
	ProjectKind   ProjectKind       `json:"project_kind,omitempty"`
	Features      []string          `json:"features"`
	TechHints     []string          `json:"tech_hints"`
	DesignHints   []string          `json:"design_hints"`
	Complexity    Complexity        `json:"complexity"`
	Confidence    float64           `json:"confidence"`
	ExtractedData map[string]string `json:"extracted_data"`
	CanonicalForm string            `json:"canonical_form"`
}

func (r Record) HasFeature(tag string) bool {
	for _, f := range r.Features {
		if f == tag {
			return true
		}
	}
	return false
}
