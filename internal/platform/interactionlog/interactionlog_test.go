package interactionlog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vibecode-backend/internal/platform/ctxutil"
)

func TestWriterAppendsDailyJSONL(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return day }

	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{RequestID: "req-1"})
	w.Record(ctx, Entry{Type: TypeUserRequest, SessionID: "s1", Data: map[string]any{"intent": "create_new"}})
	w.Record(ctx, Entry{Type: TypeProjectCreation, SessionID: "s1", Data: map[string]any{"project_kind": "calculator"}})
	w.Record(ctx, Entry{Type: TypeError, SessionID: "s2", ProcessingTimeMS: 12})

	_, err = os.Stat(filepath.Join(dir, "interactions_2026-03-14.jsonl"))
	require.NoError(t, err)

	entries, err := w.ReadDay(day)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, TypeUserRequest, entries[0].Type)
	require.Equal(t, "req-1", entries[0].RequestID)
	require.Equal(t, int64(12), entries[2].ProcessingTimeMS)

	st, err := w.Summarize(1)
	require.NoError(t, err)
	require.Equal(t, 1, st.TotalRequests)
	require.Equal(t, 1, st.TotalProjects)
	require.Equal(t, 1, st.TotalErrors)
	require.Equal(t, 2, st.TotalSessions)
	require.Equal(t, 1, st.PopularIntents["create_new"])
	require.Equal(t, 1, st.PopularProjectKinds["calculator"])
	require.NoError(t, w.Close())
}

func TestWriterRotatesOnDayChange(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)
	day := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	w.now = func() time.Time { return day }
	w.Record(context.Background(), Entry{Type: TypeUserRequest})
	day = day.Add(2 * time.Minute)
	w.Record(context.Background(), Entry{Type: TypeUserRequest})
	require.NoError(t, w.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "interactions_*.jsonl"))
	require.NoError(t, err)
	require.Len(t, matches, 2)
}
