package interactionlog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yungbote/vibecode-backend/internal/platform/ctxutil"
)

type EntryType string

const (
	TypeUserRequest     EntryType = "user_request"
	TypeAIResponse      EntryType = "ai_response"
	TypeProjectCreation EntryType = "project_creation"
	TypeError           EntryType = "error"
)

// Entry is one line of logs/interactions_<YYYY-MM-DD>.jsonl.
type Entry struct {
	Timestamp        time.Time      `json:"timestamp"`
	Type             EntryType      `json:"type"`
	UserID           string         `json:"user_id,omitempty"`
	SessionID        string         `json:"session_id,omitempty"`
	RequestID        string         `json:"request_id,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
	ProcessingTimeMS int64          `json:"processing_time_ms,omitempty"`
}

// Recorder is what components depend on; Writer and Nop implement it.
type Recorder interface {
	Record(ctx context.Context, e Entry)
}

type nop struct{}

func (nop) Record(context.Context, Entry) {}

func Nop() Recorder { return nop{} }

// Writer appends entries to a per-day JSONL file through a zap JSON core.
type Writer struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
	zl   *zap.Logger
}

func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("interaction log dir: %w", err)
	}
	return &Writer{dir: dir, now: time.Now}, nil
}

func fileName(day string) string { return "interactions_" + day + ".jsonl" }

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		MessageKey:     "type",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}
}

// rotate must be called with w.mu held.
func (w *Writer) rotate(day string) error {
	if w.day == day && w.zl != nil {
		return nil
	}
	if w.file != nil {
		_ = w.zl.Sync()
		_ = w.file.Close()
	}
	f, err := os.OpenFile(filepath.Join(w.dir, fileName(day)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), zapcore.AddSync(f), zap.InfoLevel)
	w.file, w.zl, w.day = f, zap.New(core), day
	return nil
}

func (w *Writer) Record(ctx context.Context, e Entry) {
	if w == nil {
		return
	}
	if e.RequestID == "" {
		e.RequestID = ctxutil.RequestID(ctx)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rotate(w.now().Format("2006-01-02")); err != nil {
		return
	}
	fields := make([]zap.Field, 0, 5)
	if e.UserID != "" {
		fields = append(fields, zap.String("user_id", e.UserID))
	}
	if e.SessionID != "" {
		fields = append(fields, zap.String("session_id", e.SessionID))
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}
	if len(e.Data) > 0 {
		fields = append(fields, zap.Any("data", e.Data))
	}
	if e.ProcessingTimeMS > 0 {
		fields = append(fields, zap.Int64("processing_time_ms", e.ProcessingTimeMS))
	}
	w.zl.Info(string(e.Type), fields...)
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	_ = w.zl.Sync()
	err := w.file.Close()
	w.file, w.zl, w.day = nil, nil, ""
	return err
}

// ReadDay returns the entries recorded on the given day. Malformed lines are skipped.
func (w *Writer) ReadDay(day time.Time) ([]Entry, error) {
	w.mu.Lock()
	if w.zl != nil {
		_ = w.zl.Sync()
	}
	w.mu.Unlock()

	f, err := os.Open(filepath.Join(w.dir, fileName(day.Format("2006-01-02"))))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), 4<<20)
	for sc.Scan() {
		var e Entry
		if json.Unmarshal(sc.Bytes(), &e) != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

// Stats aggregates recent days of interaction logs.
type Stats struct {
	Days                int            `json:"days"`
	TotalRequests       int            `json:"total_requests"`
	TotalProjects       int            `json:"total_projects"`
	TotalErrors         int            `json:"total_errors"`
	TotalSessions       int            `json:"total_sessions"`
	PopularIntents      map[string]int `json:"popular_intents"`
	PopularProjectKinds map[string]int `json:"popular_project_kinds"`
}

func (w *Writer) Summarize(days int) (Stats, error) {
	if days <= 0 {
		days = 7
	}
	st := Stats{Days: days, PopularIntents: map[string]int{}, PopularProjectKinds: map[string]int{}}
	sessions := map[string]struct{}{}
	today := w.now()
	for i := 0; i < days; i++ {
		entries, err := w.ReadDay(today.AddDate(0, 0, -i))
		if err != nil {
			return st, err
		}
		for _, e := range entries {
			if e.SessionID != "" {
				sessions[e.SessionID] = struct{}{}
			}
			switch e.Type {
			case TypeUserRequest:
				st.TotalRequests++
				if k, ok := e.Data["intent"].(string); ok && k != "" {
					st.PopularIntents[k]++
				}
			case TypeProjectCreation:
				st.TotalProjects++
				k, _ := e.Data["project_kind"].(string)
				if k == "" {
					k = "unknown"
				}
				st.PopularProjectKinds[k]++
			case TypeError:
				st.TotalErrors++
			}
		}
	}
	st.TotalSessions = len(sessions)
	return st, nil
}
