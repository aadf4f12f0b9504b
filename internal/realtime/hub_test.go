package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubOrderingAndReconnect(t *testing.T) {
	hub := NewSSEHub(logger.Nop())
	channel := ProjectChannel("p1")

	clientA := hub.NewSSEClient()
	hub.AddChannel(clientA, channel)

	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventSynthesisProgress, Data: map[string]any{"percent": 10}})
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventRevisionCommitted})

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventSynthesisProgress {
		t.Fatalf("first event: want=%s got=%s", SSEEventSynthesisProgress, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventRevisionCommitted {
		t.Fatalf("second event: want=%s got=%s", SSEEventRevisionCommitted, got.Event)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	_, ok := <-clientA.Outbound
	require.False(t, ok)
	require.Zero(t, hub.Subscribers(channel))

	clientB := hub.NewSSEClient()
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventRolledBack})
	require.Equal(t, SSEEventRolledBack, recvMessage(t, clientB.Outbound, time.Second).Event)
}

func TestSSEHubChannelsAreIsolated(t *testing.T) {
	hub := NewSSEHub(nil)
	a, b := hub.NewSSEClient(), hub.NewSSEClient()
	hub.AddChannel(a, ProjectChannel("a"))
	hub.AddChannel(b, ProjectChannel("b"))

	hub.Broadcast(SSEMessage{Channel: ProjectChannel("a"), Event: SSEEventSynthesisFailed})
	require.Equal(t, SSEEventSynthesisFailed, recvMessage(t, a.Outbound, time.Second).Event)
	select {
	case m := <-b.Outbound:
		t.Fatalf("unexpected message on b: %+v", m)
	default:
	}

	hub.RemoveChannel(a, ProjectChannel("a"))
	require.Zero(t, hub.Subscribers(ProjectChannel("a")))
}

func TestSSEHubBroadcastDoesNotBlockOnFullBuffer(t *testing.T) {
	hub := NewSSEHub(nil)
	c := hub.NewSSEClient()
	hub.AddChannel(c, "x")
	done := make(chan struct{})
	go func() {
		for i := 0; i < outboundBuffer*3; i++ {
			hub.Broadcast(SSEMessage{Channel: "x", Event: SSEEventSynthesisProgress})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("broadcast blocked")
	}
	require.Len(t, c.Outbound, outboundBuffer)
}

func TestSSEHubServeHTTPStreamsEvents(t *testing.T) {
	hub := NewSSEHub(nil)
	client := hub.NewSSEClient()
	hub.AddChannel(client, ProjectChannel("p"))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeHTTP(w, r, client)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	hub.Broadcast(SSEMessage{Channel: ProjectChannel("p"), Event: SSEEventRevisionCommitted, Data: map[string]any{"revision_id": "r1"}})

	sc := bufio.NewScanner(resp.Body)
	var lines []string
	for sc.Scan() {
		line := sc.Text()
		lines = append(lines, line)
		if strings.HasPrefix(line, "data: ") {
			break
		}
	}
	require.Contains(t, lines, "event: RevisionCommitted")
	require.Contains(t, lines[len(lines)-1], `"revision_id":"r1"`)
	hub.CloseClient(client)
}

func TestProjectChannel(t *testing.T) {
	require.Equal(t, "project:abc", ProjectChannel("abc"))
	require.True(t, IsProjectChannel("project:abc"))
	require.False(t, IsProjectChannel("project:"))
	require.False(t, IsProjectChannel("user:abc"))
}

func TestSSEHubCloseAll(t *testing.T) {
	hub := NewSSEHub(nil)
	a, b := hub.NewSSEClient(), hub.NewSSEClient()
	hub.AddChannel(a, ProjectChannel("a"))
	hub.AddChannel(b, ProjectChannel("a"))
	hub.AddChannel(b, ProjectChannel("b"))
	require.Equal(t, []string{"a", "b"}, b.ProjectIDs())

	hub.CloseAll()
	<-a.Done()
	_, ok := <-a.Outbound
	require.False(t, ok)
	_, ok = <-b.Outbound
	require.False(t, ok)
	require.Zero(t, hub.Subscribers(ProjectChannel("a")))
	require.Zero(t, hub.Subscribers(ProjectChannel("b")))
}
