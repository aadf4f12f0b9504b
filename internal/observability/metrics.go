package observability

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// Metrics is the process-wide performance monitor. It is created once by the
// app and passed to the components that report into it; a nil *Metrics is a no-op.
type Metrics struct {
	apiRequests  *CounterVec
	apiLatency   *HistogramVec
	apiInflight  *Gauge
	llmAttempts  *CounterVec
	llmLatency   *HistogramVec
	synthRuns    *CounterVec
	synthLatency *HistogramVec
	revisions    *CounterVec
	chatTurns    *CounterVec
	sessions     *Gauge

	started time.Time
}

func New() *Metrics {
	return &Metrics{
		apiRequests:  NewCounterVec("vibecode_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:   NewHistogramVec("vibecode_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight:  NewGauge("vibecode_api_inflight_requests", "HTTP requests in flight."),
		llmAttempts:  NewCounterVec("vibecode_llm_attempts_total", "LLM provider attempts by outcome.", []string{"provider", "outcome"}),
		llmLatency:   NewHistogramVec("vibecode_llm_attempt_duration_seconds", "LLM provider attempt latency.", []string{"provider"}, []float64{0.25, 0.5, 1, 2, 5, 10, 30}),
		synthRuns:    NewCounterVec("vibecode_synthesis_total", "Synthesis runs by mode and status.", []string{"mode", "status"}),
		synthLatency: NewHistogramVec("vibecode_synthesis_duration_seconds", "Synthesis latency by mode.", []string{"mode"}, []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 60}),
		revisions:    NewCounterVec("vibecode_revisions_committed_total", "Committed revisions by author tag.", []string{"author"}),
		chatTurns:    NewCounterVec("vibecode_chat_turns_total", "Chat turns by request kind and success.", []string{"request_kind", "success"}),
		sessions:     NewGauge("vibecode_chat_sessions_active", "Open chat sessions."),
		started:      time.Now(),
	}
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveLLM records one provider attempt.
func (m *Metrics) ObserveLLM(provider, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.llmAttempts.Inc(provider, outcome)
	m.llmLatency.Observe(dur.Seconds(), provider)
}

func (m *Metrics) ObserveSynthesis(mode, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.synthRuns.Inc(mode, status)
	m.synthLatency.Observe(dur.Seconds(), mode)
}

func (m *Metrics) IncRevision(author string) {
	if m == nil {
		return
	}
	m.revisions.Inc(author)
}

func (m *Metrics) ObserveChatTurn(requestKind string, success bool) {
	if m == nil {
		return
	}
	s := "false"
	if success {
		s = "true"
	}
	m.chatTurns.Inc(requestKind, s)
}

func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.sessions.Set(float64(n))
}

// Snapshot is the JSON view of the counters.
type Snapshot struct {
	UptimeSeconds  float64 `json:"uptime_seconds"`
	APIRequests    float64 `json:"api_requests_total"`
	APIInflight    float64 `json:"api_inflight"`
	LLMAttempts    []Point `json:"llm_attempts"`
	Synthesis      []Point `json:"synthesis"`
	Revisions      float64 `json:"revisions_committed_total"`
	ChatTurns      []Point `json:"chat_turns"`
	SessionsActive float64 `json:"sessions_active"`
}

func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	return Snapshot{
		UptimeSeconds:  time.Since(m.started).Seconds(),
		APIRequests:    m.apiRequests.Total(),
		APIInflight:    m.apiInflight.Value(),
		LLMAttempts:    m.llmAttempts.Points(),
		Synthesis:      m.synthRuns.Points(),
		Revisions:      m.revisions.Total(),
		ChatTurns:      m.chatTurns.Points(),
		SessionsActive: m.sessions.Value(),
	}
}

// WriteHTTP serves the Prometheus text format when asked for it and the JSON snapshot otherwise.
func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	if r.URL.Query().Get("format") == "prometheus" || strings.Contains(r.Header.Get("Accept"), "text/plain") {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(m.Snapshot())
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmAttempts, m.llmLatency,
		m.synthRuns, m.synthLatency,
		m.revisions, m.chatTurns, m.sessions,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
